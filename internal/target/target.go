// Package target knows which pages kaextract is willing to fetch.
package target

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var ErrInvalidURL = errors.New("invalid url")

// AllowedHosts are the hostnames serving classified-ad pages.
var AllowedHosts = []string{
	"kleinanzeigen.de",
	"www.kleinanzeigen.de",
	"m.kleinanzeigen.de",
	"ebay-kleinanzeigen.de",
	"www.ebay-kleinanzeigen.de",
}

// Validate parses raw as an absolute http(s) URL on an allowed host.
func Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if !slices.Contains(AllowedHosts, host) {
		return nil, fmt.Errorf("%w: unsupported host %s", ErrInvalidURL, host)
	}
	return u, nil
}
