package auth

import (
	"slices"
	"strings"

	"golang.org/x/oauth2"
)

// Credentials are the Google OAuth tokens held for one user.
type Credentials struct {
	Token  *oauth2.Token `json:"token"`
	Scopes []string      `json:"scopes,omitempty"`
}

// Valid reports whether the credentials can authorize a request, either
// directly or after a refresh.
func (c Credentials) Valid() bool {
	if c.Token == nil {
		return false
	}
	return c.Token.AccessToken != "" || c.Token.RefreshToken != ""
}

// HasScope reports whether scope was granted. Unknown grants count as granted.
func (c Credentials) HasScope(scope string) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	return slices.Contains(c.Scopes, scope)
}

// CredentialsFromToken builds Credentials from a freshly exchanged token,
// reading the granted scopes from the token response.
func CredentialsFromToken(token *oauth2.Token) Credentials {
	creds := Credentials{Token: token}
	if token == nil {
		return creds
	}
	if raw, ok := token.Extra("scope").(string); ok {
		creds.Scopes = strings.Fields(raw)
	}
	return creds
}
