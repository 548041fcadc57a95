package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role is the authorization role the backend assigns to a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the profile record returned by the auth endpoints. Fields the client does not
// model are kept in Extra and written back unchanged, and a numeric id stays numeric.
type User struct {
	ID        string
	Name      string
	Email     string
	Username  string
	AvatarURL string
	Role      Role
	Extra     map[string]interface{}

	numericID bool
}

// IsAdmin reports whether the user may open the admin panel.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a deep copy so read-only views cannot alias session state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Extra != nil {
		c.Extra = make(map[string]interface{}, len(u.Extra))
		for k, v := range u.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// AsMap flattens the profile into a single map keyed by wire field names.
func (u *User) AsMap() map[string]interface{} {
	if u == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(u.Extra)+6)
	for k, v := range u.Extra {
		out[k] = v
	}
	out["id"] = u.ID
	out["name"] = u.Name
	out["email"] = u.Email
	out["username"] = u.Username
	out["avatarUrl"] = u.AvatarURL
	out["role"] = string(u.Role)
	return out
}

// MarshalJSON writes known fields over Extra, omitting empty ones.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(u.Extra)+6)
	for k, v := range u.Extra {
		out[k] = v
	}
	if u.ID != "" {
		if u.numericID {
			out["id"] = json.Number(u.ID)
		} else {
			out["id"] = u.ID
		}
	}
	putString(out, "name", u.Name)
	putString(out, "email", u.Email)
	putString(out, "username", u.Username)
	putString(out, "avatarUrl", u.AvatarURL)
	putString(out, "role", string(u.Role))
	return json.Marshal(out)
}

func putString(out map[string]interface{}, key, value string) {
	if value != "" {
		out[key] = value
	}
}

// UnmarshalJSON accepts any JSON object; the id may be a string or a number.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*u = User{}
	for key, value := range raw {
		var err error
		switch key {
		case "id":
			err = u.decodeID(value)
		case "name":
			err = json.Unmarshal(value, &u.Name)
		case "email":
			err = json.Unmarshal(value, &u.Email)
		case "username":
			err = json.Unmarshal(value, &u.Username)
		case "avatarUrl":
			err = json.Unmarshal(value, &u.AvatarURL)
		case "role":
			err = json.Unmarshal(value, &u.Role)
		default:
			var v interface{}
			dec := json.NewDecoder(bytes.NewReader(value))
			dec.UseNumber()
			if err = dec.Decode(&v); err == nil {
				if u.Extra == nil {
					u.Extra = make(map[string]interface{})
				}
				u.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("user field %q: %w", key, err)
		}
	}
	return nil
}

func (u *User) decodeID(value json.RawMessage) error {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &u.ID)
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	u.ID = n.String()
	u.numericID = u.ID != ""
	return nil
}
