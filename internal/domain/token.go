package domain

import "time"

// TokenPair is the persisted OAuth token state: a short-lived access token
// used for API calls and a long-lived refresh token used solely to obtain new
// access tokens. Expiries already include the safety skew applied when the
// tokens were issued.
type TokenPair struct {
	AccessToken        string    `json:"access_token"`
	AccessTokenExpiry  time.Time `json:"access_token_expiry"`
	RefreshToken       string    `json:"refresh_token"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expiry"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// AccessValid reports whether the access token can still be used at t.
func (p TokenPair) AccessValid(t time.Time) bool {
	return p.AccessToken != "" && t.Before(p.AccessTokenExpiry)
}

// RefreshValid reports whether the refresh token can still be exchanged at t.
// A zero refresh expiry means the upstream did not report one; the token is
// assumed usable until the exchange fails.
func (p TokenPair) RefreshValid(t time.Time) bool {
	if p.RefreshToken == "" {
		return false
	}
	return p.RefreshTokenExpiry.IsZero() || t.Before(p.RefreshTokenExpiry)
}
