package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/byteowlz/kaextract/internal/fetcher"
	"github.com/byteowlz/kaextract/internal/model"
	"github.com/byteowlz/kaextract/internal/processor"
)

const listingURL = "https://www.kleinanzeigen.de/s-anzeige/bike/123"

type fakeExtractor struct {
	fn  func(ctx context.Context, url string) (*model.Result, error)
	got string
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (*model.Result, error) {
	f.got = url
	return f.fn(ctx, url)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func extractPath(u string) string {
	return "/api/extract?url=" + url.QueryEscape(u)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestExtract_OK(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ex := &fakeExtractor{fn: func(context.Context, string) (*model.Result, error) {
		return &model.Result{Title: "Bike", Price: "1.450 € VB", Timestamp: ts}, nil
	}}
	h := NewHandler(ex, DefaultOptions())

	rec := do(t, h, http.MethodGet, extractPath(listingURL))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, listingURL, ex.got)

	var body model.ExtractResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Bike", body.Title)
	require.Equal(t, "1.450 € VB", body.Price)
	require.NotNil(t, body.Images)
	require.True(t, body.ExtractedAt.Equal(ts))
}

func TestExtract_MissingURL(t *testing.T) {
	h := NewHandler(&fakeExtractor{}, DefaultOptions())

	rec := do(t, h, http.MethodGet, "/api/extract")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "missing url", decodeError(t, rec).Error)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestExtract_InvalidURL(t *testing.T) {
	h := NewHandler(&fakeExtractor{}, DefaultOptions())

	for _, u := range []string{"https://example.com/x", "not a url", "ftp://www.kleinanzeigen.de/x"} {
		rec := do(t, h, http.MethodGet, extractPath(u))
		require.Equal(t, http.StatusBadRequest, rec.Code, u)
		body := decodeError(t, rec)
		require.Equal(t, "invalid url", body.Error)
		require.Contains(t, body.Message, "Ungültige URL")
	}
}

func TestExtract_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"gone", &fetcher.HTTPError{StatusCode: 410, Status: "410 Gone"}, http.StatusNotFound},
		{"forbidden", &fetcher.HTTPError{StatusCode: 403, Status: "403 Forbidden"}, http.StatusForbidden},
		{"rate limited", &fetcher.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}, http.StatusTooManyRequests},
		{"no listing", processor.ErrNoListing, http.StatusNotFound},
		{"upstream 500", &fetcher.HTTPError{StatusCode: 500, Status: "500 Internal Server Error"}, http.StatusBadGateway},
		{"network", errors.New("connection reset"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExtractor{fn: func(context.Context, string) (*model.Result, error) { return nil, tt.err }}
			rec := do(t, NewHandler(ex, DefaultOptions()), http.MethodGet, extractPath(listingURL))
			require.Equal(t, tt.want, rec.Code)
			require.NotEmpty(t, decodeError(t, rec).Error)
		})
	}
}

func TestExtract_ResponseTimeout(t *testing.T) {
	ex := &fakeExtractor{fn: func(ctx context.Context, _ string) (*model.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	opts := DefaultOptions()
	opts.ResponseTimeout = 20 * time.Millisecond

	rec := do(t, NewHandler(ex, opts), http.MethodGet, extractPath(listingURL))
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Equal(t, "upstream timeout", decodeError(t, rec).Error)
}

func TestExtract_MethodNotAllowed(t *testing.T) {
	rec := do(t, NewHandler(&fakeExtractor{}, DefaultOptions()), http.MethodPost, extractPath(listingURL))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	rec := do(t, NewHandler(&fakeExtractor{}, DefaultOptions()), http.MethodOptions, "/api/extract")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestHealth(t *testing.T) {
	rec := do(t, NewHandler(&fakeExtractor{}, DefaultOptions()), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	ex := &fakeExtractor{fn: func(context.Context, string) (*model.Result, error) { panic("boom") }}
	rec := do(t, NewHandler(ex, DefaultOptions()), http.MethodGet, extractPath(listingURL))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	NewHandler(&fakeExtractor{}, DefaultOptions()).ServeHTTP(rec, req)
	require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestServerRunAndShutdown(t *testing.T) {
	opts := DefaultOptions()
	opts.Addr = "127.0.0.1:0"
	srv := New(&fakeExtractor{}, opts)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, time.Second) }()

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}
