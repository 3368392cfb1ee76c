package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valoriste/valoriste/internal/domain"
)

// expirySkew is subtracted from upstream expiries so tokens are treated as
// expired slightly before the provider would reject them.
const expirySkew = 5 * time.Minute

// Endpoint is a client for the eBay OAuth token endpoint. It speaks the
// refresh_token and authorization_code grants with HTTP Basic client
// authentication.
type Endpoint struct {
	httpClient *http.Client
	tokenURL   string
	cred       Credential
	now        func() time.Time
}

// NewEndpoint creates a token endpoint client. A nil httpClient falls back to
// a client with a 30s timeout.
func NewEndpoint(tokenURL string, cred Credential, httpClient *http.Client) *Endpoint {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Endpoint{
		httpClient: httpClient,
		tokenURL:   tokenURL,
		cred:       cred,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	TokenType             string `json:"token_type"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
}

// Refresh exchanges a refresh token for a new access token. The returned pair
// keeps the existing refresh token (and its expiry) when the provider does not
// rotate it.
func (e *Endpoint) Refresh(ctx context.Context, prev domain.TokenPair) (domain.TokenPair, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {prev.RefreshToken},
		"scope":         {e.cred.ScopeString()},
	}
	resp, err := e.post(ctx, form)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("auth: refresh grant: %w", err)
	}
	pair := e.toPair(resp)
	if pair.RefreshToken == "" {
		pair.RefreshToken = prev.RefreshToken
		pair.RefreshTokenExpiry = prev.RefreshTokenExpiry
	}
	return pair, nil
}

// ExchangeCode redeems an authorization code from the user consent flow for a
// fresh token pair.
func (e *Endpoint) ExchangeCode(ctx context.Context, code string) (domain.TokenPair, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {e.cred.RedirectURI()},
	}
	resp, err := e.post(ctx, form)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("auth: authorization_code grant: %w", err)
	}
	return e.toPair(resp), nil
}

func (e *Endpoint) post(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+e.cred.BasicAuth())

	res, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", e.tokenURL, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || tr.Error != "" {
		return nil, fmt.Errorf("token endpoint status %d: %s %s: %w",
			res.StatusCode, tr.Error, tr.ErrorDescription, domain.ErrRefreshFailed)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token: %w", domain.ErrRefreshFailed)
	}
	return &tr, nil
}

func (e *Endpoint) toPair(tr *tokenResponse) domain.TokenPair {
	now := e.now()
	pair := domain.TokenPair{
		AccessToken:       tr.AccessToken,
		AccessTokenExpiry: now.Add(time.Duration(tr.ExpiresIn)*time.Second - expirySkew),
		RefreshToken:      tr.RefreshToken,
		UpdatedAt:         now,
	}
	if tr.RefreshTokenExpiresIn > 0 {
		pair.RefreshTokenExpiry = now.Add(time.Duration(tr.RefreshTokenExpiresIn)*time.Second - expirySkew)
	}
	return pair
}
