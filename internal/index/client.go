// Package index provides a client for the package index's JSON API,
// serving released version lists and per-release requirement metadata.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/depfix-tools/depfix/internal/errors"
	"github.com/depfix-tools/depfix/pkg/pep440"
)

const (
	// DefaultBaseURL is the public PyPI JSON API root.
	DefaultBaseURL = "https://pypi.org/pypi"

	// DefaultRequestInterval is the minimum spacing between outbound
	// requests.
	DefaultRequestInterval = 200 * time.Millisecond
)

// Client fetches package metadata from the index with request throttling,
// a per-invocation in-memory cache, and an optional on-disk response cache.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	interval    time.Duration
	lastRequest time.Time
	diskCache   *Cache

	versionCache  map[string][]*pep440.Version
	requiresCache map[string][]string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the index root URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithRequestInterval overrides the minimum spacing between requests.
func WithRequestInterval(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.interval = d
		}
	}
}

// WithDiskCache attaches an on-disk response cache.
func WithDiskCache(cache *Cache) Option {
	return func(c *Client) {
		c.diskCache = cache
	}
}

// WithHTTPClient substitutes the HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an index client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		interval:      DefaultRequestInterval,
		versionCache:  make(map[string][]*pep440.Version),
		requiresCache: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// projectDoc is the index's JSON document for a package.
type projectDoc struct {
	Info struct {
		RequiresDist []string `json:"requires_dist"`
	} `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

type releaseFile struct {
	Yanked bool `json:"yanked"`
}

// Versions returns the released versions for a package, newest first.
// Releases with no files and fully yanked releases are dropped, as are
// pre-releases unless nothing but pre-releases exists. Failures return an
// empty list plus a soft error for the caller to record; a 404 surfaces as
// a NotFoundError.
func (c *Client) Versions(ctx context.Context, name string) ([]*pep440.Version, error) {
	key := pep440.Normalize(name)
	if cached, ok := c.versionCache[key]; ok {
		return cached, nil
	}

	doc, err := c.fetchProject(ctx, key, "")
	if err != nil {
		return nil, err
	}

	var all []*pep440.Version
	for raw, files := range doc.Releases {
		if len(files) == 0 || allYanked(files) {
			continue
		}
		v := pep440.Parse(raw)
		if v.Unknown {
			continue
		}
		all = append(all, v)
	}

	// Pre-releases only count when the package has nothing else.
	var stable []*pep440.Version
	for _, v := range all {
		if !v.IsPrerelease() {
			stable = append(stable, v)
		}
	}
	if len(stable) > 0 {
		all = stable
	}

	pep440.SortDescending(all)
	c.versionCache[key] = all
	return all, nil
}

// Requires returns the raw requires_dist entries for a specific release.
func (c *Client) Requires(ctx context.Context, name, version string) ([]string, error) {
	key := pep440.Normalize(name) + "==" + version
	if cached, ok := c.requiresCache[key]; ok {
		return cached, nil
	}

	doc, err := c.fetchProject(ctx, pep440.Normalize(name), version)
	if err != nil {
		return nil, err
	}

	c.requiresCache[key] = doc.Info.RequiresDist
	return doc.Info.RequiresDist, nil
}

// fetchProject retrieves and decodes /{name}/json or /{name}/{version}/json.
func (c *Client) fetchProject(ctx context.Context, name, version string) (*projectDoc, error) {
	target := fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(name))
	if version != "" {
		target = fmt.Sprintf("%s/%s/%s/json", c.baseURL, url.PathEscape(name), url.PathEscape(version))
	}

	body, err := c.get(ctx, name, target)
	if err != nil {
		return nil, err
	}

	var doc projectDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.NewIndexError(name, "decode", err)
	}
	return &doc, nil
}

// get performs a throttled GET, consulting the on-disk cache first.
func (c *Client) get(ctx context.Context, name, target string) ([]byte, error) {
	if c.diskCache != nil {
		if data, ok := c.diskCache.Get(target); ok {
			return data, nil
		}
	}

	if err := c.throttle(ctx); err != nil {
		return nil, errors.NewIndexError(name, "fetch", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewIndexError(name, "fetch", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "depfix")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewIndexError(name, "fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewNotFoundError("package", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewIndexError(name, "fetch",
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewIndexError(name, "fetch", err)
	}

	if c.diskCache != nil {
		c.diskCache.Put(target, body)
	}
	return body, nil
}

// throttle enforces the minimum inter-request interval, honoring
// cancellation while waiting.
func (c *Client) throttle(ctx context.Context) error {
	if c.interval <= 0 {
		return nil
	}
	wait := c.interval - time.Since(c.lastRequest)
	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func allYanked(files []releaseFile) bool {
	for _, f := range files {
		if !f.Yanked {
			return false
		}
	}
	return true
}
