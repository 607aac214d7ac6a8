package shellcache

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/shell"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) shell.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE shell_cache (
  generation INTEGER NOT NULL,
  path TEXT NOT NULL,
  content_type TEXT NOT NULL DEFAULT '',
  body BLOB NOT NULL,
  fetched_at INTEGER NOT NULL,
  PRIMARY KEY (generation, path)
);`)
	require.NoError(t, err)
	return shell.NewSQLiteRepository(db)
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testShell serves a minimal shell; down makes every request fail.
type testShell struct {
	down atomic.Bool
	hits atomic.Int64
}

func (s *testShell) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if s.down.Load() {
			// Aborting the handler surfaces as a transport error on the
			// client side, the closest stand-in for a dead network.
			panic(http.ErrAbortHandler)
		}
		switch {
		case r.URL.Path == "/static/css/main.css":
			w.Header().Set("Content-Type", "text/css")
			w.Write([]byte("body{margin:0}"))
		case r.URL.Path == "/missing/":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>" + r.URL.Path + "</html>"))
		}
	})
}

func testConfig(generation int) Config {
	cfg := DefaultConfig()
	cfg.Generation = generation
	cfg.ShellURLs = []string{"/pwa/", "/pwa/zlecenia/", "/static/css/main.css"}
	return cfg
}

func setup(t *testing.T, generation int) (*Controller, *testShell, shell.Repository) {
	t.Helper()
	srv := &testShell{}
	hs := httptest.NewServer(srv.handler())
	t.Cleanup(hs.Close)

	base, err := url.Parse(hs.URL)
	require.NoError(t, err)

	repo := setupRepo(t)
	c := NewController(testConfig(generation), repo, *base, hs.Client(), testLogger())
	return c, srv, repo
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/pwa/zlecenia/7/", NormalizePath("/pwa/zlecenia/7/?tab=notes"))
	assert.Equal(t, "/pwa/", NormalizePath("/pwa/#top"))
	assert.Equal(t, "/pwa/", NormalizePath("/pwa/"))
}

func TestActivate_WarmsShellAndEvictsOldGenerations(t *testing.T) {
	c, _, repo := setup(t, 5)
	ctx := context.Background()

	// Leftover from a previous shell version.
	require.NoError(t, repo.Put(ctx, &shell.Entry{
		Generation: 4, Path: "/pwa/", Body: []byte("stale"), FetchedAt: 1,
	}))

	require.NoError(t, c.Activate(ctx))

	old, err := repo.Count(ctx, 4)
	require.NoError(t, err)
	assert.Zero(t, old, "whole old generation gone")

	current, err := repo.Count(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, current, "all shell urls precached")

	cached, err := repo.Get(ctx, 5, "/static/css/main.css")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "text/css", cached.ContentType)
}

func TestFetchAsset_CacheFirst(t *testing.T) {
	c, srv, _ := setup(t, 5)
	ctx := context.Background()

	first, err := c.FetchAsset(ctx, "/static/css/main.css")
	require.NoError(t, err)
	assert.Equal(t, []byte("body{margin:0}"), first.Body)
	assert.Equal(t, int64(1), srv.hits.Load())

	// Second read is served from cache even with the server down.
	srv.down.Store(true)
	second, err := c.FetchAsset(ctx, "/static/css/main.css")
	require.NoError(t, err)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, int64(1), srv.hits.Load(), "no second network hit")
}

func TestFetchAsset_QueryStringSharesCacheIdentity(t *testing.T) {
	c, srv, _ := setup(t, 5)
	ctx := context.Background()

	_, err := c.FetchAsset(ctx, "/static/css/main.css?v=12")
	require.NoError(t, err)
	_, err = c.FetchAsset(ctx, "/static/css/main.css?v=13")
	require.NoError(t, err)

	assert.Equal(t, int64(1), srv.hits.Load())
}

func TestFetchPage_NetworkFirstRefreshesCache(t *testing.T) {
	c, _, repo := setup(t, 5)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &shell.Entry{
		Generation: 5, Path: "/pwa/", Body: []byte("stale"), FetchedAt: 1,
	}))

	got, err := c.FetchPage(ctx, "/pwa/")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>/pwa/</html>"), got.Body, "network copy wins while online")

	cached, err := repo.Get(ctx, 5, "/pwa/")
	require.NoError(t, err)
	assert.Equal(t, got.Body, cached.Body, "the fresh copy replaced the stale one")
}

func TestFetchPage_FallsBackToExactCachedMatch(t *testing.T) {
	c, srv, _ := setup(t, 5)
	ctx := context.Background()

	_, err := c.FetchPage(ctx, "/pwa/zlecenia/7/")
	require.NoError(t, err)

	srv.down.Store(true)
	got, err := c.FetchPage(ctx, "/pwa/zlecenia/7/")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>/pwa/zlecenia/7/</html>"), got.Body)
}

func TestFetchPage_FallsBackToFamilyListPage(t *testing.T) {
	c, srv, _ := setup(t, 5)
	ctx := context.Background()

	require.NoError(t, c.Activate(ctx))

	// Detail page never cached; offline navigation degrades to the list.
	srv.down.Store(true)
	got, err := c.FetchPage(ctx, "/pwa/zlecenia/99/")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>/pwa/zlecenia/</html>"), got.Body)
}

func TestFetchPage_FallsBackToRoot(t *testing.T) {
	c, srv, _ := setup(t, 5)
	ctx := context.Background()

	require.NoError(t, c.Activate(ctx))

	srv.down.Store(true)
	got, err := c.FetchPage(ctx, "/pwa/protokoly/serwis/3/")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>/pwa/</html>"), got.Body)
}

func TestFetchPage_NothingCachedIsErrNotCached(t *testing.T) {
	c, srv, _ := setup(t, 5)

	srv.down.Store(true)
	_, err := c.FetchPage(context.Background(), "/pwa/zlecenia/7/")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestFetchAndStore_NeverCachesAPIPaths(t *testing.T) {
	c, _, repo := setup(t, 5)
	ctx := context.Background()

	c.Warm(ctx, []string{"/api/pwa/ping/"})

	cached, err := repo.Get(ctx, 5, "/api/pwa/ping/")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestWarm_SkipsNon2xxResponses(t *testing.T) {
	c, _, repo := setup(t, 5)
	ctx := context.Background()

	c.Warm(ctx, []string{"/missing/"})

	cached, err := repo.Get(ctx, 5, "/missing/")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestDo_BuildsResponseFromCache(t *testing.T) {
	c, srv, _ := setup(t, 5)
	ctx := context.Background()

	require.NoError(t, c.Activate(ctx))
	srv.down.Store(true)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://app/pwa/zlecenia/99/", nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>/pwa/zlecenia/</html>"), body)
}
