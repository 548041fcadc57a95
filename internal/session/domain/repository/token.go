package repository

import "time"

// Claims is the locally decoded payload of a bearer token. Nothing in it is trusted;
// it only drives the expiry pre-check before the backend is asked.
type Claims struct {
	Subject   string
	ExpiresAt *time.Time
	Raw       map[string]interface{}
}

// TokenInspector decodes a token without verifying its signature.
type TokenInspector interface {
	Inspect(token string) (*Claims, error)
}
