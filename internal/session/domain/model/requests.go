package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Credentials are the login inputs. The backend names them email and password.
type Credentials struct {
	Identifier string `json:"email"`
	Secret     string `json:"password"`
}

// Registration carries the sign-up form. Validation happens on the backend, and any
// field the client does not model travels in Extra.
type Registration struct {
	Email    string
	Username string
	Password string
	Name     string
	Extra    map[string]interface{}
}

func (r *Registration) fields() map[string]*string {
	return map[string]*string{
		"email":    &r.Email,
		"username": &r.Username,
		"password": &r.Password,
		"name":     &r.Name,
	}
}

// MarshalJSON writes known fields over Extra, omitting empty ones.
func (r Registration) MarshalJSON() ([]byte, error) {
	return marshalFields(r.Extra, r.fields())
}

// UnmarshalJSON accepts any JSON object.
func (r *Registration) UnmarshalJSON(data []byte) error {
	*r = Registration{}
	extra, err := unmarshalFields(data, r.fields())
	if err != nil {
		return fmt.Errorf("registration: %w", err)
	}
	r.Extra = extra
	return nil
}

// ProfileUpdate holds the fields to merge into the backend profile; empty fields are left alone.
type ProfileUpdate struct {
	Name      string
	Username  string
	AvatarURL string
	Extra     map[string]interface{}
}

func (p *ProfileUpdate) fields() map[string]*string {
	return map[string]*string{
		"name":      &p.Name,
		"username":  &p.Username,
		"avatarUrl": &p.AvatarURL,
	}
}

// IsEmpty reports whether the update would change nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == "" && p.Username == "" && p.AvatarURL == "" && len(p.Extra) == 0
}

// MarshalJSON writes known fields over Extra, omitting empty ones.
func (p ProfileUpdate) MarshalJSON() ([]byte, error) {
	return marshalFields(p.Extra, p.fields())
}

// UnmarshalJSON accepts any JSON object.
func (p *ProfileUpdate) UnmarshalJSON(data []byte) error {
	*p = ProfileUpdate{}
	extra, err := unmarshalFields(data, p.fields())
	if err != nil {
		return fmt.Errorf("profile update: %w", err)
	}
	p.Extra = extra
	return nil
}

func marshalFields(extra map[string]interface{}, known map[string]*string) ([]byte, error) {
	out := make(map[string]interface{}, len(extra)+len(known))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range known {
		if *v != "" {
			out[k] = *v
		} else {
			delete(out, k)
		}
	}
	return json.Marshal(out)
}

// unmarshalFields fills known string fields and returns the rest, numbers kept exact.
func unmarshalFields(data []byte, known map[string]*string) (map[string]interface{}, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var extra map[string]interface{}
	for key, value := range raw {
		if target, ok := known[key]; ok {
			if err := json.Unmarshal(value, target); err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			continue
		}
		var v interface{}
		dec := json.NewDecoder(bytes.NewReader(value))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		if extra == nil {
			extra = make(map[string]interface{})
		}
		extra[key] = v
	}
	return extra, nil
}

// AuthResult is the body of a successful login or registration.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
