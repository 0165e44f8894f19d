package fetcher

import (
	"math/rand/v2"
	"strings"
)

type UserAgentType string

const (
	UserAgentAuto    UserAgentType = "auto"
	UserAgentChrome  UserAgentType = "chrome"
	UserAgentFirefox UserAgentType = "firefox"
	UserAgentSafari  UserAgentType = "safari"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var userAgents = map[UserAgentType][]string{
	UserAgentChrome: {
		defaultUserAgent,
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	},
	UserAgentFirefox: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	},
	UserAgentSafari: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	},
}

// allAgents is the flattened pool, in a fixed order.
var allAgents = func() []string {
	var out []string
	for _, t := range []UserAgentType{UserAgentChrome, UserAgentFirefox, UserAgentSafari} {
		out = append(out, userAgents[t]...)
	}
	return out
}()

// UserAgentSelector picks browser-like User-Agent headers for upstream
// requests.
type UserAgentSelector struct {
	pick func(n int) int
}

func NewUserAgentSelector() *UserAgentSelector {
	return &UserAgentSelector{pick: rand.IntN}
}

// GetUserAgent returns an agent for the browser family uaType. "auto" or
// empty picks from every family; an unknown value is used verbatim as a
// custom agent string.
func (s *UserAgentSelector) GetUserAgent(uaType string) string {
	normalized := UserAgentType(strings.ToLower(strings.TrimSpace(uaType)))
	if normalized == "" {
		normalized = UserAgentAuto
	}

	if normalized == UserAgentAuto {
		return s.choose(allAgents)
	}
	if agents, ok := userAgents[normalized]; ok {
		return s.choose(agents)
	}
	return strings.TrimSpace(uaType)
}

func (s *UserAgentSelector) choose(agents []string) string {
	if len(agents) == 0 {
		return defaultUserAgent
	}
	return agents[s.pick(len(agents))]
}
