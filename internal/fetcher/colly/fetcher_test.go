package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

func TestFetchGet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "unit-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Trace"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>results</html>"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "unit-agent", Timeout: 5 * time.Second})
	resp, err := f.Fetch(context.Background(), primerblast.FetchRequest{
		URL:     srv.URL + "/primertool.cgi?job_key=K1",
		Headers: http.Header{"X-Trace": {"yes"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>results</html>", string(resp.Body))
	assert.Equal(t, "text/html", resp.Headers.Get("Content-Type"))
}

func TestFetchPostForm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "mailto-agent", r.Header.Get("User-Agent"))
		require.NoError(t, r.ParseForm())
		_, _ = w.Write([]byte("cmd=" + r.PostForm.Get("CMD") + " acc=" + r.PostForm.Get("INPUT_SEQUENCE")))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "default-agent"})
	resp, err := f.Fetch(context.Background(), primerblast.FetchRequest{
		URL:     srv.URL,
		Method:  http.MethodPost,
		Form:    map[string]string{"CMD": "request", "INPUT_SEQUENCE": "NC_045512.2"},
		Headers: http.Header{"User-Agent": {"mailto-agent"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cmd=request acc=NC_045512.2", string(resp.Body))
}

func TestFetchDoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/target" {
			_, _ = w.Write([]byte("followed"))
			return
		}
		w.Header().Set("Location", "/target")
		w.WriteHeader(http.StatusFound)
		_, _ = w.Write([]byte(`<meta http-equiv="refresh" content="0; URL=/target?job_key=R1">`))
	}))
	defer srv.Close()

	f := New(Config{})
	resp, err := f.Fetch(context.Background(), primerblast.FetchRequest{URL: srv.URL + "/submit", Method: http.MethodPost})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "job_key=R1")

	following := New(Config{FollowRedirects: true})
	resp, err = following.Fetch(context.Background(), primerblast.FetchRequest{URL: srv.URL + "/start"})
	require.NoError(t, err)
	assert.Equal(t, "followed", string(resp.Body))
}

func TestFetchHTTPErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := New(Config{})
	resp, err := f.Fetch(context.Background(), primerblast.FetchRequest{URL: srv.URL})
	require.ErrorIs(t, err, ErrHTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(ctx, primerblast.FetchRequest{URL: srv.URL})
	require.Error(t, err)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	req := primerblast.FetchRequest{
		URL:     "https://example.com",
		Headers: http.Header{"X-Trace": {"yes"}, "User-Agent": {"override"}},
	}
	start := time.Unix(0, 0)
	var result primerblast.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, start, &result, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{"User-Agent": {"colly"}}}
	hooks.onRequest(collyReq)
	assert.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))
	assert.Equal(t, []string{"override"}, collyReq.Headers.Values("User-Agent"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	})
	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, "body", string(result.Body))
	assert.Equal(t, "ok", result.Headers.Get("X-Resp"))

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

func TestCopyHeadersHandlesNil(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	collyReq := &colly.Request{Headers: &http.Header{}}
	f.copyHeaders(primerblast.FetchRequest{}, collyReq)
	assert.Empty(t, *collyReq.Headers)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
