package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
)

type FetchMode string

const (
	FetchModeAuto   FetchMode = "auto"
	FetchModeStatic FetchMode = "static"
	FetchModeJS     FetchMode = "javascript"
)

// ListingSelector is present on every rendered listing page.
const ListingSelector = "#viewad-title"

type FetchOptions struct {
	Mode            FetchMode
	UserAgent       string
	BrowserAgent    string
	Cookies         []*http.Cookie
	WaitForSelector string
	JSTimeout       time.Duration
}

type FetchResult struct {
	HTML       string
	URL        string
	StatusCode int
	UsedJS     bool
}

// HTTPError is an upstream answer with status >= 400.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %s", e.Status)
}

// ClientOptions configure the upstream HTTP client. Retries is the number of
// extra attempts after the first one; waits grow exponentially with jitter
// between RetryWait and RetryMaxWait.
type ClientOptions struct {
	Timeout         time.Duration
	Retries         int
	RetryWait       time.Duration
	RetryMaxWait    time.Duration
	FollowRedirects bool
	MaxRedirects    int
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:         15 * time.Second,
		Retries:         2,
		RetryWait:       500 * time.Millisecond,
		RetryMaxWait:    4 * time.Second,
		FollowRedirects: true,
		MaxRedirects:    10,
	}
}

type ContentFetcher struct {
	client  *resty.Client
	agents  *UserAgentSelector
	retries int
}

func NewContentFetcher(opts ClientOptions) *ContentFetcher {
	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(opts.Retries)
	client.SetRetryWaitTime(opts.RetryWait)
	client.SetRetryMaxWaitTime(opts.RetryMaxWait)
	client.AddRetryCondition(retryUpstream)

	if opts.FollowRedirects {
		maxRedirects := opts.MaxRedirects
		if maxRedirects <= 0 {
			maxRedirects = 10
		}
		client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	} else {
		client.SetRedirectPolicy(resty.NoRedirectPolicy())
	}

	return &ContentFetcher{
		client:  client,
		agents:  NewUserAgentSelector(),
		retries: opts.Retries,
	}
}

// retryUpstream retries transport failures, 429 and 5xx. A cancelled or
// expired context is final.
func retryUpstream(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (cf *ContentFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	switch opts.Mode {
	case FetchModeJS:
		return cf.fetchWithJS(ctx, url, opts)
	case FetchModeStatic, "":
		return cf.fetchStatic(ctx, url, opts)
	}

	// Auto mode: try static first, then JS if the listing markup is missing
	result, err := cf.fetchStatic(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	if needsJSRendering(result.HTML) {
		return cf.fetchWithJS(ctx, url, opts)
	}
	return result, nil
}

func (cf *ContentFetcher) fetchStatic(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	// Set user agent (custom takes precedence, then browser agent, then random)
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = cf.agents.GetUserAgent(opts.BrowserAgent)
	}

	req := cf.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8").
		SetHeader("Accept-Language", "de-DE,de;q=0.9,en;q=0.8").
		SetHeader("Upgrade-Insecure-Requests", "1").
		SetHeader("Sec-Fetch-Dest", "document").
		SetHeader("Sec-Fetch-Mode", "navigate").
		SetHeader("Sec-Fetch-Site", "none").
		SetHeader("Cache-Control", "no-cache")

	if len(opts.Cookies) > 0 {
		req.SetCookies(opts.Cookies)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	return &FetchResult{
		HTML:       string(resp.Body()),
		URL:        url,
		StatusCode: resp.StatusCode(),
		UsedJS:     false,
	}, nil
}

func (cf *ContentFetcher) fetchWithJS(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	chromeCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	if opts.JSTimeout > 0 {
		chromeCtx, cancel = context.WithTimeout(chromeCtx, opts.JSTimeout)
		defer cancel()
	}

	selector := opts.WaitForSelector
	if selector == "" {
		selector = ListingSelector
	}

	var html string
	err := chromedp.Run(chromeCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(selector),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run Chrome tasks: %w", err)
	}

	return &FetchResult{
		HTML:       html,
		URL:        url,
		StatusCode: http.StatusOK,
		UsedJS:     true,
	}, nil
}

// needsJSRendering reports whether a static page lacks the listing markup
// but looks like a script-driven shell.
func needsJSRendering(html string) bool {
	if strings.Contains(html, strings.TrimPrefix(ListingSelector, "#")) {
		return false
	}
	lower := strings.ToLower(html)
	return strings.Count(lower, "<script") > 5 || len(strings.TrimSpace(html)) < 2000
}
