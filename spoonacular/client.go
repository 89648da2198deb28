// Package spoonacular queries the Spoonacular complexSearch endpoint.
package spoonacular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/eringen/ratatouille/recipe"
)

const (
	// DefaultBaseURL is the public Spoonacular API host.
	DefaultBaseURL = "https://api.spoonacular.com"

	apiName      = "spoonacular"
	searchPath   = "/recipes/complexSearch"
	userAgent    = "Ratatouille/1.0"
	maxBodyBytes = 4 << 20
	maxErrBytes  = 512
)

// Client implements recipe.Searcher against the Spoonacular API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	cacheTTL   time.Duration
	recipeInfo bool
	logger     echo.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit allows r requests per second with the given burst.
// A zero rate disables limiting.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithCacheTTL caches successful pages for ttl. Zero disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// WithRecipeInformation asks the API to include summary and sourceUrl.
func WithRecipeInformation(on bool) Option {
	return func(c *Client) {
		c.recipeInfo = on
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l echo.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	l := log.New(apiName)
	l.SetOutput(io.Discard)
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(1, 3),
		logger:     l,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheTTL > 0 {
		c.cache = cache.New(c.cacheTTL, 2*c.cacheTTL)
	}
	return c
}

// Search fetches one page of results for req.
func (c *Client) Search(ctx context.Context, req recipe.SearchRequest) (recipe.SearchPage, error) {
	if req.Number <= 0 {
		req.Number = recipe.PageSize
	}
	key := cacheKey(req)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return clonePage(v.(recipe.SearchPage)), nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return recipe.SearchPage{}, fmt.Errorf("search recipes: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(req), nil)
	if err != nil {
		return recipe.SearchPage{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return recipe.SearchPage{}, fmt.Errorf("search recipes: %w", redact(err))
	}
	defer resp.Body.Close()
	c.logger.Debugf("spoonacular: query=%q offset=%d -> %d (%s)", req.Query, req.Offset, resp.StatusCode, time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBytes))
		return recipe.SearchPage{}, &recipe.APIError{
			API:        apiName,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	var page recipe.SearchPage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&page); err != nil {
		return recipe.SearchPage{}, fmt.Errorf("decode search response: %w", err)
	}
	if page.Results == nil {
		page.Results = []recipe.Summary{}
	}
	if page.TotalResults < 0 {
		page.TotalResults = 0
	}

	if c.cache != nil {
		c.cache.Set(key, clonePage(page), cache.DefaultExpiration)
	}
	return page, nil
}

func (c *Client) searchURL(req recipe.SearchRequest) string {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("query", req.Query)
	q.Set("number", strconv.Itoa(req.Number))
	q.Set("offset", strconv.Itoa(req.Offset))
	if c.recipeInfo {
		q.Set("addRecipeInformation", "true")
	}
	return c.baseURL + searchPath + "?" + q.Encode()
}

func cacheKey(req recipe.SearchRequest) string {
	return fmt.Sprintf("search:%d:%d:%s", req.Number, req.Offset, req.Query)
}

func clonePage(p recipe.SearchPage) recipe.SearchPage {
	out := p
	out.Results = append([]recipe.Summary(nil), p.Results...)
	if out.Results == nil {
		out.Results = []recipe.Summary{}
	}
	return out
}

// redact strips the query string (which carries the API key) from
// transport errors before they reach logs.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
		}
	}
	return err
}
