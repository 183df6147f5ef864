package domain

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// MaxStringLen caps every sanitized free-text field before it reaches
// persistence or logs.
const MaxStringLen = 512

// SanitizeString strips control characters and truncates to MaxStringLen.
// It is total: any input yields a usable string.
func SanitizeString(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) > MaxStringLen {
		// Cut on a rune boundary so truncation never emits invalid UTF-8.
		cut := MaxStringLen
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out
}

// SanitizeURL normalizes a URL to canonical scheme://host form. Only http
// and https schemes are accepted; anything else returns an empty string.
func SanitizeURL(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}

// SanitizeJSON walks an already-decoded JSON structure and sanitizes every
// string leaf, preserving shape. Numbers, booleans and nulls pass through
// unchanged. Unknown leaf types become empty strings rather than aborting
// the request.
func SanitizeJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return SanitizeString(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[SanitizeString(k)] = SanitizeJSON(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = SanitizeJSON(item)
		}
		return out
	case float64, int, int64, bool, nil:
		return val
	default:
		return ""
	}
}
