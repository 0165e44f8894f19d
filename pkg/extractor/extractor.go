package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/byteowlz/kaextract/internal/browser"
	"github.com/byteowlz/kaextract/internal/config"
	"github.com/byteowlz/kaextract/internal/fetcher"
	"github.com/byteowlz/kaextract/internal/logx"
	"github.com/byteowlz/kaextract/internal/model"
	"github.com/byteowlz/kaextract/internal/processor"
	"github.com/byteowlz/kaextract/internal/target"
)

// Extractor fetches one listing page and pulls the ad fields out of it.
// It is the Extraction Service behind /api/extract and the local backend.
type Extractor struct {
	config    *config.Config
	fetcher   *fetcher.ContentFetcher
	processor *processor.ListingProcessor
	cookies   *browser.CookieExtractor
	validate  func(string) (*neturl.URL, error)
	now       func() time.Time
}

func New(cfg *config.Config) *Extractor {
	bt, err := browser.ParseBrowserType(cfg.Network.CookieBrowser)
	if err != nil {
		slog.Warn("ignoring cookie browser setting", "value", cfg.Network.CookieBrowser, "error", err)
		bt = browser.BrowserNone
	}

	return &Extractor{
		config: cfg,
		fetcher: fetcher.NewContentFetcher(fetcher.ClientOptions{
			Timeout:         cfg.Network.RequestTimeout(),
			Retries:         cfg.Server.UpstreamRetries,
			RetryWait:       500 * time.Millisecond,
			RetryMaxWait:    4 * time.Second,
			FollowRedirects: cfg.Network.FollowRedirects,
			MaxRedirects:    cfg.Network.MaxRedirects,
		}),
		processor: processor.NewListingProcessor(),
		cookies:   browser.NewCookieExtractor(bt),
		validate:  target.Validate,
		now:       time.Now,
	}
}

func (e *Extractor) Extract(ctx context.Context, url string) (*model.Result, error) {
	start := time.Now()
	log := logx.FromContext(ctx).With("url", url)

	if _, err := e.validate(url); err != nil {
		return nil, err
	}

	cookies, err := e.cookies.ExtractCookies(ctx, url)
	if err != nil {
		// Cookie extraction failure is not fatal, log and continue
		log.Debug("cookie extraction failed", "error", err)
		cookies = nil
	}

	fetchOpts := fetcher.FetchOptions{
		Mode:            fetcher.FetchMode(e.config.Extraction.FetchMode),
		UserAgent:       e.config.Network.UserAgent,
		BrowserAgent:    e.config.Network.BrowserAgent,
		Cookies:         cookies,
		WaitForSelector: e.config.Extraction.WaitForSelector,
		JSTimeout:       e.config.Extraction.JSWait(),
	}

	fetchResult, err := e.fetcher.Fetch(ctx, url, fetchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}

	processOpts := processor.ProcessOptions{
		ReadabilityFallback:  e.config.Extraction.ReadabilityFallback,
		MaxDescriptionLength: e.config.Extraction.MaxDescription,
	}

	result, err := e.processor.Process(fetchResult.HTML, url, processOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to process listing: %w", err)
	}
	result.Timestamp = e.now().UTC()

	log.Debug("listing extracted",
		"used_js", fetchResult.UsedJS,
		"images", len(result.Images),
		"elapsed_ms", time.Since(start).Milliseconds())

	return result, nil
}

// StatusFor maps an Extract error to the HTTP status the API answers with.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if errors.Is(err, target.ErrInvalidURL) {
		return http.StatusBadRequest
	}
	if errors.Is(err, processor.ErrNoListing) {
		return http.StatusNotFound
	}

	var httpErr *fetcher.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return http.StatusNotFound
		case http.StatusForbidden:
			return http.StatusForbidden
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
