// Package shellcache keeps a generation-versioned offline copy of the
// application shell: navigable pages and static assets, keyed by
// request path with the query string ignored. Assets are served
// cache-first; page navigations network-first with a fallback chain
// that degrades a missing detail page to its family's list page and
// finally to the root app page.
package shellcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/shell"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

// ErrNotCached means the network failed and no fallback in the chain
// had a cached body.
var ErrNotCached = errors.New("not in shell cache")

// Family maps a detail-route pattern to the list/shell page served
// when the detail page itself is not cached.
type Family struct {
	Detail   *regexp.Regexp
	Fallback string
}

// Config declares the shell namespace for one cache generation.
type Config struct {
	// Generation names the cache; bump it whenever the shell asset set
	// changes. Activate evicts every other generation.
	Generation int

	// StaticPrefixes and AppPrefix bound what gets cached
	// opportunistically (API responses never do).
	StaticPrefixes []string
	AppPrefix      string

	// Families drive the navigation fallback chain; Root is the final
	// fallback.
	Families []Family
	Root     string

	// ShellURLs are precached on Activate.
	ShellURLs []string
}

// DefaultConfig mirrors the deployed shell layout.
func DefaultConfig() Config {
	return Config{
		Generation:     5,
		StaticPrefixes: []string{"/static/"},
		AppPrefix:      "/pwa/",
		Families: []Family{
			{Detail: regexp.MustCompile(`^/pwa/zlecenia/\d+/?$`), Fallback: "/pwa/zlecenia/"},
			{Detail: regexp.MustCompile(`^/pwa/protokoly/serwis/\d+/?$`), Fallback: "/pwa/"},
			{Detail: regexp.MustCompile(`^/pwa/protokoly/konserwacja/\d+/?$`), Fallback: "/pwa/"},
		},
		Root: "/pwa/",
		ShellURLs: []string{
			"/pwa/",
			"/pwa/zlecenia/",
			"/pwa/obiekty/",
			"/static/css/main.css",
			"/static/js/app.js",
		},
	}
}

type Controller struct {
	cfg   Config
	repo  shell.Repository
	base  url.URL
	http  *http.Client
	log   logging.Logger
	clock func() time.Time
}

// NewController builds a cache controller sharing the API client's
// http.Client so page fetches ride the same session cookies.
func NewController(cfg Config, repo shell.Repository, base url.URL, client *http.Client, log logging.Logger) *Controller {
	return &Controller{cfg: cfg, repo: repo, base: base, http: client, log: log, clock: time.Now}
}

// NormalizePath strips the query string and fragment; cache identity is
// the path alone.
func NormalizePath(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

func (c *Controller) cacheable(path string) bool {
	if strings.HasPrefix(path, "/api/") {
		return false
	}
	for _, p := range c.cfg.StaticPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return strings.HasPrefix(path, c.cfg.AppPrefix)
}

// Activate evicts every generation other than the configured one and
// precaches the shell URL set. Per-URL precache failures are logged,
// not fatal: a partially warmed shell still serves.
func (c *Controller) Activate(ctx context.Context) error {
	if err := c.repo.EvictOtherGenerations(ctx, c.cfg.Generation); err != nil {
		return err
	}
	c.Warm(ctx, c.cfg.ShellURLs)
	return nil
}

// Warm fetches each path and stores successful responses. Used by the
// sync cycle to precache detail pages of freshly synced work orders.
func (c *Controller) Warm(ctx context.Context, paths []string) {
	for _, p := range paths {
		if _, err := c.fetchAndStore(ctx, NormalizePath(p)); err != nil {
			c.log.Warn(ctx, "shell cache warm failed", "path", p, "error", err)
		}
	}
}

func (c *Controller) fetchAndStore(ctx context.Context, path string) (*shell.Entry, error) {
	u := c.base
	u.Path = path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	entry := &shell.Entry{
		Generation:  c.cfg.Generation,
		Path:        path,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   c.clock().UnixMilli(),
	}
	if c.cacheable(path) {
		if err := c.repo.Put(ctx, entry); err != nil {
			// The fetch succeeded; a failed cache write only costs the
			// next offline hit.
			c.log.Warn(ctx, "failed to store shell cache entry", "path", path, "error", err)
		}
	}
	return entry, nil
}

// FetchAsset serves a static asset or known shell page cache-first:
// cached copy if present, otherwise network with opportunistic
// population.
func (c *Controller) FetchAsset(ctx context.Context, path string) (*shell.Entry, error) {
	path = NormalizePath(path)
	cached, err := c.repo.Get(ctx, c.cfg.Generation, path)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}
	entry, err := c.fetchAndStore(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, path)
	}
	return entry, nil
}

// FetchPage serves a navigation network-first. On network failure the
// fallback chain runs: exact cached match, then the detail family's
// list page, then the root app page.
func (c *Controller) FetchPage(ctx context.Context, path string) (*shell.Entry, error) {
	path = NormalizePath(path)

	entry, err := c.fetchAndStore(ctx, path)
	if err == nil {
		return entry, nil
	}
	c.log.Debug(ctx, "page fetch failed, trying cache", "path", path, "error", err)

	for _, candidate := range c.fallbackChain(path) {
		cached, err := c.repo.Get(ctx, c.cfg.Generation, candidate)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotCached, path)
}

func (c *Controller) fallbackChain(path string) []string {
	chain := []string{path}
	for _, f := range c.cfg.Families {
		if f.Detail.MatchString(path) {
			chain = append(chain, f.Fallback)
			break
		}
	}
	if last := chain[len(chain)-1]; last != c.cfg.Root {
		chain = append(chain, c.cfg.Root)
	}
	return chain
}

// Do applies the cache policies to a GET request and builds an
// http.Response from the result. Non-GET requests and API paths bypass
// the cache entirely.
func (c *Controller) Do(req *http.Request) (*http.Response, error) {
	path := NormalizePath(req.URL.Path)
	if req.Method != http.MethodGet || strings.HasPrefix(path, "/api/") {
		return c.http.Do(req)
	}

	var entry *shell.Entry
	var err error
	if c.isStatic(path) {
		entry, err = c.FetchAsset(req.Context(), path)
	} else {
		entry, err = c.FetchPage(req.Context(), path)
	}
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(entry.Body)),
		Request:    req,
	}, nil
}

func (c *Controller) isStatic(path string) bool {
	for _, p := range c.cfg.StaticPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
