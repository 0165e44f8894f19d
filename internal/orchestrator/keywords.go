package orchestrator

import (
	"strings"
	"unicode/utf8"

	"github.com/byteowlz/kaextract/internal/model"
)

// DemoKeywords trigger local synthesis instead of a network call.
var DemoKeywords = []string{"demo", "iphone", "smartphone", "sofa", "möbel", "moebel"}

const maxBareKeywordLen = 30

// IsDemoKeyword reports whether key is answered with demo data: it contains
// a demo keyword, or it is a short word without a dot. Anything with a
// scheme is a URL.
func IsDemoKeyword(key string) bool {
	if strings.Contains(key, "://") {
		return false
	}

	lower := strings.ToLower(key)
	for _, kw := range DemoKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return !strings.Contains(key, ".") && utf8.RuneCountInString(key) < maxBareKeywordLen
}

// Classify builds the request for an already trimmed key.
func Classify(key string) model.Request {
	return model.Request{Key: key, IsDemoKeyword: IsDemoKeyword(key)}
}
