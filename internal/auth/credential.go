// Package auth implements the eBay OAuth token lifecycle: the credential
// store, the token endpoint client, and the token manager that keeps a valid
// access token available to the marketplace client.
package auth

import (
	"encoding/base64"
	"strings"
)

// Credential holds the OAuth application identity. It is immutable after
// construction; refreshed tokens live in the Manager's token state, never
// here.
type Credential struct {
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       []string
}

// NewCredential creates an immutable Credential. The redirect URI is eBay's
// RuName for the application.
func NewCredential(clientID, clientSecret, redirectURI string, scopes []string) Credential {
	copied := make([]string, len(scopes))
	copy(copied, scopes)
	return Credential{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		scopes:       copied,
	}
}

// ClientID returns the OAuth client identifier.
func (c Credential) ClientID() string { return c.clientID }

// RedirectURI returns the registered redirect URI (RuName).
func (c Credential) RedirectURI() string { return c.redirectURI }

// ScopeString returns the space-joined scope list as sent to the token and
// consent endpoints.
func (c Credential) ScopeString() string { return strings.Join(c.scopes, " ") }

// BasicAuth returns the base64-encoded "clientID:clientSecret" value used in
// the HTTP Basic Authorization header on token endpoint calls.
func (c Credential) BasicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
}
