// Package ebay is the REST client for the eBay Browse API. It rides on the
// auth token manager for bearer tokens and transparently retries a request
// once after a 401 by forcing a token refresh.
package ebay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valoriste/valoriste/internal/auth"
	"github.com/valoriste/valoriste/internal/domain"
)

const searchPath = "/buy/browse/v1/item_summary/search"

// TokenSource supplies bearer tokens and handles forced refreshes. The auth
// Manager satisfies it.
type TokenSource interface {
	EnsureValidToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

var _ TokenSource = (*auth.Manager)(nil)

// Client is the Browse API client.
type Client struct {
	httpClient *http.Client
	apiHost    string
	tokens     TokenSource
	limiter    domain.RateLimiter // optional
	cache      domain.SearchCache // optional
	cacheTTL   time.Duration
	rps        int
	logger     *slog.Logger
}

// Option configures optional Client collaborators.
type Option func(*Client)

// WithRateLimiter throttles outgoing searches to rps requests per second.
func WithRateLimiter(limiter domain.RateLimiter, rps int) Option {
	return func(c *Client) {
		c.limiter = limiter
		c.rps = rps
	}
}

// WithSearchCache caches search results by query fingerprint.
func WithSearchCache(cache domain.SearchCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Browse API client.
//
// apiHost is the API root, e.g. "https://api.ebay.com".
func NewClient(apiHost string, tokens TokenSource, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiHost:    strings.TrimRight(apiHost, "/"),
		tokens:     tokens,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs an item_summary search for active fixed-price listings.
// Malformed item records are skipped individually, never failing the whole
// page.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Listing, error) {
	params := c.buildParams(q)

	if c.cache != nil {
		key := cacheKey(params)
		if cached, err := c.cache.Get(ctx, key); err == nil {
			return cached, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn("ebay: search cache read failed", "error", err)
		}
	}

	body, err := c.get(ctx, searchPath, params)
	if err != nil {
		return nil, fmt.Errorf("ebay: search %q: %w", q.Keywords, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ebay: decode search response: %w", err)
	}

	listings := make([]domain.Listing, 0, len(resp.ItemSummaries))
	skipped := 0
	for _, raw := range resp.ItemSummaries {
		l, ok := toListing(raw)
		if !ok {
			skipped++
			continue
		}
		listings = append(listings, l)
	}
	if skipped > 0 {
		c.logger.Debug("ebay: skipped malformed listings", "count", skipped, "query", q.Keywords)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey(params), listings, c.cacheTTL); err != nil {
			c.logger.Warn("ebay: search cache write failed", "error", err)
		}
	}
	return listings, nil
}

// SearchSold returns recently sold listings for the given keywords, used for
// market-value comps. Sold searches sort by price descending the way the
// Browse API indexes completed sales.
func (c *Client) SearchSold(ctx context.Context, keywords string, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		limit = 200
	}
	q := domain.SearchQuery{
		Keywords: keywords,
		MinPrice: 5,
		MaxPrice: 1000,
		SoldOnly: true,
		Limit:    limit,
	}
	return c.Search(ctx, q)
}

func (c *Client) buildParams(q domain.SearchQuery) url.Values {
	filters := []string{
		"conditions:{NEW|USED}",
		"deliveryCountry:US",
		"itemLocationCountry:US",
		"buyingOptions:{FIXED_PRICE}",
	}
	if q.SoldOnly {
		filters = append([]string{"soldItems"}, filters...)
	}

	minPrice, maxPrice := q.MinPrice, q.MaxPrice
	if minPrice <= 0 {
		minPrice = 5
	}
	if maxPrice <= 0 {
		maxPrice = 1000
	}
	filters = append(filters, fmt.Sprintf("price:[%s..%s]",
		strconv.FormatFloat(minPrice, 'f', -1, 64),
		strconv.FormatFloat(maxPrice, 'f', -1, 64)))

	if len(q.CategoryIDs) > 0 {
		filters = append(filters, "categoryIds:{"+strings.Join(q.CategoryIDs, "|")+"}")
	}
	if len(q.Sizes) > 0 {
		filters = append(filters, "aspects.Size:{"+strings.Join(q.Sizes, "|")+"}")
	}

	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	params := url.Values{
		"q":           {q.Keywords},
		"limit":       {strconv.Itoa(limit)},
		"filter":      {strings.Join(filters, ",")},
		"fieldgroups": {"MINIMAL"},
	}
	if q.SoldOnly {
		params.Set("sort", "-price")
	} else {
		params.Set("sort", "price")
	}
	return params
}

// get issues an authenticated GET. On a 401 it forces exactly one token
// refresh and replays the request; a second 401 surfaces as
// domain.ErrAuthentication.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "ebay:browse"); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, status, err := c.do(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.logger.Info("ebay: request unauthorized, refreshing token")
		if err := c.tokens.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("refresh after 401: %w", err)
		}
		body, status, err = c.do(ctx, path, params)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, fmt.Errorf("still unauthorized after refresh: %w", domain.ErrAuthentication)
		}
	}

	switch {
	case status == http.StatusOK:
		return body, nil
	case status == http.StatusTooManyRequests:
		return nil, fmt.Errorf("status 429: %w", domain.ErrRateLimited)
	case status >= 500:
		return nil, fmt.Errorf("status %d: %w", status, domain.ErrUpstream)
	default:
		var ae apiError
		_ = json.Unmarshal(body, &ae)
		return nil, fmt.Errorf("status %d: %s", status, ae.message())
	}
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	token, err := c.tokens.EnsureValidToken(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("ensure token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiHost+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", "EBAY_US")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, res.StatusCode, nil
}

func cacheKey(params url.Values) string {
	sum := sha256.Sum256([]byte(params.Encode()))
	return "search:" + hex.EncodeToString(sum[:16])
}
