// Package launchpad reads bug tasks, linked branches and merge proposals
// from the Launchpad REST API and turns them into work items.
package launchpad

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultServiceRoot is the production API root.
const DefaultServiceRoot = "https://api.launchpad.net/1.0/"

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Status int
	URL    string
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("launchpad: %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("launchpad: %s: status %d: %s", e.URL, e.Status, e.Body)
}

// Unauthorized reports whether the server refused access to the resource.
// Bugs linked to private branches answer this way.
func (e *HTTPError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Credentials are OAuth tokens for an authorized desktop application. The
// zero value makes anonymous requests.
type Credentials struct {
	ConsumerKey      string
	OAuthToken       string
	OAuthTokenSecret string
}

func (c Credentials) empty() bool {
	return c.OAuthToken == ""
}

// Config configures a Client.
type Config struct {
	ServiceRoot string
	Credentials Credentials
	// MaxConcurrency bounds parallel requests when resolving many bug tasks.
	MaxConcurrency int
	// RequestsPerSecond limits the request rate. Zero means unlimited.
	RequestsPerSecond float64
	// ReleasedWithin drops Fix Released tasks closed longer ago than this
	// from person boards.
	ReleasedWithin time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client talks to the Launchpad API.
type Client struct {
	root           string
	creds          Credentials
	maxConcurrency int
	releasedWithin time.Duration
	http           *http.Client
	limiter        *rate.Limiter
	log            *slog.Logger
	now            func() time.Time
}

// New returns a client for cfg, filling in defaults for unset fields.
func New(cfg Config) *Client {
	root := cfg.ServiceRoot
	if root == "" {
		root = DefaultServiceRoot
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	c := &Client{
		root:           root,
		creds:          cfg.Credentials,
		maxConcurrency: cfg.MaxConcurrency,
		releasedWithin: cfg.ReleasedWithin,
		http:           cfg.HTTPClient,
		log:            cfg.Logger,
		now:            time.Now,
	}
	if c.maxConcurrency <= 0 {
		c.maxConcurrency = 4
	}
	if c.releasedWithin <= 0 {
		c.releasedWithin = 31 * 24 * time.Hour
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	c.limiter = rate.NewLimiter(limit, c.maxConcurrency)
	return c
}

// resolve turns a path relative to the service root into a URL. Absolute
// links returned by the API are used as is.
func (c *Client) resolve(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return c.root + strings.TrimPrefix(link, "/")
}

// get fetches link with query q and decodes the JSON response into out.
// 429 and 5xx responses are retried with backoff.
func (c *Client) get(ctx context.Context, link string, q url.Values, out any) error {
	u := c.resolve(link)
	if len(q) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + q.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
			}
		}
		retry, err := c.do(ctx, u, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		c.log.Debug("retrying launchpad request", "url", u, "attempt", attempt+1, "error", err)
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, u string, out any) (retry bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if !c.creds.empty() {
		req.Header.Set("Authorization", c.authorization())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("launchpad: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		herr := &HTTPError{Status: resp.StatusCode, URL: u, Body: strings.TrimSpace(string(body))}
		return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, herr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("launchpad: decode %s: %w", u, err)
	}
	return false, nil
}

// authorization builds an OAuth 1.0 header signed with PLAINTEXT, the only
// signature method the API accepts.
func (c *Client) authorization() string {
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)
	params := []struct{ k, v string }{
		{"oauth_consumer_key", c.creds.ConsumerKey},
		{"oauth_token", c.creds.OAuthToken},
		{"oauth_signature_method", "PLAINTEXT"},
		{"oauth_signature", "&" + url.QueryEscape(c.creds.OAuthTokenSecret)},
		{"oauth_timestamp", strconv.FormatInt(c.now().Unix(), 10)},
		{"oauth_nonce", hex.EncodeToString(nonce)},
		{"oauth_version", "1.0"},
	}
	parts := []string{`OAuth realm="https://api.launchpad.net/"`}
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s=%q", p.k, p.v))
	}
	return strings.Join(parts, ", ")
}

// collection reads every page of a collection.
func collection[T any](ctx context.Context, c *Client, link string, q url.Values) ([]T, error) {
	var all []T
	next := link
	for next != "" {
		var page struct {
			Entries            []T    `json:"entries"`
			NextCollectionLink string `json:"next_collection_link"`
		}
		if err := c.get(ctx, next, q, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Entries...)
		next = page.NextCollectionLink
		// The next link already carries the query.
		q = nil
	}
	return all, nil
}
