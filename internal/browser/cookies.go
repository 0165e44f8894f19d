package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser support
)

type BrowserType string

const (
	BrowserNone    BrowserType = "none"
	BrowserAuto    BrowserType = "auto"
	BrowserChrome  BrowserType = "chrome"
	BrowserFirefox BrowserType = "firefox"
	BrowserSafari  BrowserType = "safari"
)

// ParseBrowserType maps a config value to a BrowserType; empty disables
// cookie lookup.
func ParseBrowserType(s string) (BrowserType, error) {
	switch bt := BrowserType(strings.ToLower(strings.TrimSpace(s))); bt {
	case "", BrowserNone:
		return BrowserNone, nil
	case BrowserAuto, BrowserChrome, BrowserFirefox, BrowserSafari:
		return bt, nil
	}
	return "", fmt.Errorf("unknown browser %q", s)
}

// CookieExtractor reads the local browser's cookies for a listing host so
// upstream requests carry the user's consent and session state.
type CookieExtractor struct {
	browserType BrowserType
}

func NewCookieExtractor(browserType BrowserType) *CookieExtractor {
	return &CookieExtractor{browserType: browserType}
}

func (ce *CookieExtractor) Enabled() bool {
	return ce != nil && ce.browserType != BrowserNone && ce.browserType != ""
}

func (ce *CookieExtractor) ExtractCookies(ctx context.Context, targetURL string) ([]*http.Cookie, error) {
	if !ce.Enabled() {
		return nil, nil
	}

	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	host := parsedURL.Hostname()

	if ce.browserType != BrowserAuto {
		return ce.extractFromBrowser(ctx, ce.browserType, host), nil
	}

	// Try all browsers in order of preference
	for _, browser := range []BrowserType{BrowserChrome, BrowserFirefox, BrowserSafari} {
		if cookies := ce.extractFromBrowser(ctx, browser, host); len(cookies) > 0 {
			return cookies, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func (ce *CookieExtractor) extractFromBrowser(ctx context.Context, browserType BrowserType, domain string) []*http.Cookie {
	var cookies []*http.Cookie

	for cookie, err := range kooky.TraverseCookies(ctx) {
		if err != nil {
			// unreadable stores are skipped
			continue
		}

		if matchesBrowserType(cookie.Browser, browserType) && matchesDomain(cookie.Domain, domain) {
			cookies = append(cookies, &http.Cookie{
				Name:     cookie.Name,
				Value:    cookie.Value,
				Path:     cookie.Path,
				Domain:   cookie.Domain,
				Expires:  cookie.Expires,
				Secure:   cookie.Secure,
				HttpOnly: cookie.HttpOnly,
			})
		}
	}

	return cookies
}

func matchesBrowserType(browser kooky.BrowserInfo, browserType BrowserType) bool {
	if browserType == BrowserAuto {
		return true
	}
	if browser == nil {
		return false
	}
	return matchesBrowserName(browser.Browser(), browserType)
}

func matchesBrowserName(name string, browserType BrowserType) bool {
	name = strings.ToLower(name)
	switch browserType {
	case BrowserChrome:
		return strings.Contains(name, "chrome") || strings.Contains(name, "chromium")
	case BrowserFirefox:
		return strings.Contains(name, "firefox")
	case BrowserSafari:
		return strings.Contains(name, "safari")
	}
	return false
}

func matchesDomain(cookieDomain, targetDomain string) bool {
	if cookieDomain == "" || targetDomain == "" {
		return false
	}

	cookieDomain = strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	targetDomain = strings.ToLower(targetDomain)

	if cookieDomain == targetDomain {
		return true
	}

	// Subdomain match
	return strings.HasSuffix(targetDomain, "."+cookieDomain)
}
