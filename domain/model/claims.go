package model

import "github.com/golang-jwt/jwt"

// OwnerClaims are the bearer token claims identifying the calling owner.
type OwnerClaims struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	jwt.StandardClaims
}

// Owner returns the owner id, falling back to the subject and then the issuer.
func (c OwnerClaims) Owner() string {
	switch {
	case c.UserID != "":
		return c.UserID
	case c.Subject != "":
		return c.Subject
	default:
		return c.Issuer
	}
}
