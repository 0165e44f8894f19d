package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/byteowlz/kaextract/internal/config"
	adextract "github.com/byteowlz/kaextract/pkg/extractor"
)

// Verify interfaces are satisfied at compile time
var _ Backend = (*APIBackend)(nil)
var _ Backend = (*LocalBackend)(nil)

const listingURL = "https://www.kleinanzeigen.de/s-anzeige/bike/123"

func TestAPIBackend_Name(t *testing.T) {
	b := NewAPIBackend("http://localhost:3000/")
	if b.Name() != "api" {
		t.Errorf("expected 'api', got %q", b.Name())
	}
	if b.BaseURL != "http://localhost:3000" {
		t.Errorf("expected trailing slash trimmed, got %q", b.BaseURL)
	}
	if !b.IsAvailable() {
		t.Error("backend with base URL should be available")
	}
	if NewAPIBackend("").IsAvailable() {
		t.Error("backend without base URL must not be available")
	}
}

func TestAPIBackend_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/extract" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("url"); got != listingURL {
			t.Errorf("unexpected url param %q", got)
		}
		if r.Header.Get("Cache-Control") != "no-cache" || r.Header.Get("Pragma") != "no-cache" {
			t.Errorf("expected no-cache headers, got %v", r.Header)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Bike","description":"","price":"1.450 € VB","location":"Hamburg","extractedAt":"2026-03-01T12:00:00Z"}`))
	}))
	defer server.Close()

	res, err := NewAPIBackend(server.URL).Extract(context.Background(), listingURL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Title != "Bike" || res.Location != "Hamburg" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Images == nil || len(res.Images) != 0 {
		t.Errorf("expected empty images, got %#v", res.Images)
	}
	if res.SourceURL != listingURL {
		t.Errorf("expected source url, got %q", res.SourceURL)
	}
	if !res.Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", res.Timestamp)
	}
}

func TestAPIBackend_Extract_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"listing not found","message":"HTTP error: 404 Not Found"}`))
	}))
	defer server.Close()

	_, err := NewAPIBackend(server.URL).Extract(context.Background(), listingURL)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound || se.Reason != "listing not found" {
		t.Errorf("unexpected status error %+v", se)
	}
}

func TestAPIBackend_Extract_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := NewAPIBackend(addr).Extract(context.Background(), listingURL)

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestAPIBackend_Extract_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>captive portal</html>"))
	}))
	defer server.Close()

	_, err := NewAPIBackend(server.URL).Extract(context.Background(), listingURL)

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError for undecodable body, got %v", err)
	}
}

func TestAPIBackend_Extract_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewAPIBackend(server.URL).Extract(ctx, listingURL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLocalBackend_InvalidURL(t *testing.T) {
	b := NewLocalBackend(adextract.New(config.Default()))
	if !b.IsAvailable() {
		t.Error("local backend with extractor should be available")
	}

	_, err := b.Extract(context.Background(), "https://example.com/x")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", se.Code)
	}
}
