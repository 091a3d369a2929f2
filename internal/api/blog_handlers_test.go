package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedicportal/portal/internal/blogfeed"
	"github.com/vedicportal/portal/internal/portal"
)

func TestGetBlogsLive(t *testing.T) {
	t.Parallel()

	blogs := &fakeBlogs{result: blogfeed.Result{Blogs: blogEntries(3), Source: portal.SourceLive, FetchedAt: fixedTime}}
	rec := serve(t, newTestServer(blogs, nil), http.MethodGet, "/api/blogs?max=3&refresh=true", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, blogs.lastLimit)
	assert.True(t, blogs.lastRefresh)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "live", body["source"])
	assert.EqualValues(t, 3, body["count"])
	assert.Equal(t, "2025-06-01T08:30:15.123Z", body["fetchedAt"])
	assert.NotContains(t, body, "cachedAt")
}

func TestGetBlogsCache(t *testing.T) {
	t.Parallel()

	blogs := &fakeBlogs{result: blogfeed.Result{Blogs: blogEntries(2), Source: portal.SourceCache, CachedAt: fixedTime}}
	rec := serve(t, newTestServer(blogs, nil), http.MethodGet, "/api/blogs", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15, blogs.lastLimit)
	assert.False(t, blogs.lastRefresh)
	body := decodeBody(t, rec)
	assert.Equal(t, "cache", body["source"])
	assert.Equal(t, "2025-06-01T08:30:15.123Z", body["cachedAt"])
	assert.NotContains(t, body, "fetchedAt")
}

func TestGetBlogsStaticFallbackHasNoTimestamp(t *testing.T) {
	t.Parallel()

	blogs := &fakeBlogs{result: blogfeed.Result{Blogs: blogEntries(1), Source: portal.SourceStaticFallback}}
	body := decodeBody(t, serve(t, newTestServer(blogs, nil), http.MethodGet, "/api/blogs", nil))
	assert.Equal(t, "static-fallback", body["source"])
	assert.NotContains(t, body, "fetchedAt")
	assert.NotContains(t, body, "cachedAt")
}

func TestGetBlogsInvalidMaxUsesDefault(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"abc", "0", "-4", ""} {
		blogs := &fakeBlogs{result: blogfeed.Result{Blogs: blogEntries(1), Source: portal.SourceLive}}
		serve(t, newTestServer(blogs, nil), http.MethodGet, "/api/blogs?max="+raw, nil)
		assert.Equal(t, 15, blogs.lastLimit, "max=%q", raw)
	}
}

func TestGetBlogsCapsMax(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"101", "2000000000", "9223372036854775807"} {
		blogs := &fakeBlogs{result: blogfeed.Result{Blogs: blogEntries(1), Source: portal.SourceLive}}
		serve(t, newTestServer(blogs, nil), http.MethodGet, "/api/blogs?refresh=true&max="+raw, nil)
		assert.Equal(t, 100, blogs.lastLimit, "max=%q", raw)
	}
}

func TestGetBlogsNoBlogs(t *testing.T) {
	t.Parallel()

	blogs := &fakeBlogs{readErr: blogfeed.ErrNoBlogs}
	rec := serve(t, newTestServer(blogs, nil), http.MethodGet, "/api/blogs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"No blogs","blogs":[]}`, rec.Body.String())
}

func TestGetBlogsUnexpectedError(t *testing.T) {
	t.Parallel()

	blogs := &fakeBlogs{readErr: errors.New("load blog fallback: corrupt")}
	rec := serve(t, newTestServer(blogs, nil), http.MethodGet, "/api/blogs", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"load blog fallback: corrupt"}`, rec.Body.String())
}

func TestPostBlogsRefresh(t *testing.T) {
	t.Parallel()

	blogs := &fakeBlogs{refreshed: blogEntries(15)}
	rec := serve(t, newTestServer(blogs, nil), http.MethodPost, "/api/blogs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 15, body["count"])
}

func TestPostBlogsRefreshFailure(t *testing.T) {
	t.Parallel()

	blogs := &fakeBlogs{refreshErr: blogfeed.ErrNoBlogs}
	rec := serve(t, newTestServer(blogs, nil), http.MethodPost, "/api/blogs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to fetch blogs"}`, rec.Body.String())
}
