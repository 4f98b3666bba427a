package security

import (
	"regexp"
	"strings"
)

// Violation kinds reported by request inspection.
const (
	ViolationSQLInjection = "sql_injection"
	ViolationXSS          = "xss"
	ViolationBlockedIP    = "blocked_ip"
	ViolationCSRF         = "csrf"
	ViolationUpload       = "malicious_upload"
)

var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union\s+(all\s+)?select|select\s+.*\s+from|insert\s+into|drop\s+(table|database)|delete\s+from|truncate\s+table)\b`),
	regexp.MustCompile(`(?i)(\bor\b|\band\b)\s+['"]?\d+['"]?\s*=\s*['"]?\d+`),
	regexp.MustCompile(`(?i);\s*(--|#|/\*)`),
	regexp.MustCompile(`(?i)\b(sleep|benchmark|pg_sleep|waitfor\s+delay)\s*\(`),
}

var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script\b`),
	regexp.MustCompile(`(?i)<\s*iframe\b`),
	regexp.MustCompile(`(?i)\bon(load|error|click|mouseover|focus|submit)\s*=`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)<\s*img[^>]+src\s*=\s*['"]?\s*data:`),
}

var stripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<\s*script\b.*?(</\s*script\s*>|$)`),
	regexp.MustCompile(`(?is)<\s*iframe\b.*?(</\s*iframe\s*>|$)`),
	regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`),
	regexp.MustCompile(`(?i)javascript\s*:`),
}

// Inspect reports the violation kind found in the value, or "" when clean.
func Inspect(value string) string {
	for _, p := range sqlPatterns {
		if p.MatchString(value) {
			return ViolationSQLInjection
		}
	}
	for _, p := range xssPatterns {
		if p.MatchString(value) {
			return ViolationXSS
		}
	}
	return ""
}

// InspectAll runs Inspect over every value and reports the first hit.
func InspectAll(values []string) string {
	for _, v := range values {
		if kind := Inspect(v); kind != "" {
			return kind
		}
	}
	return ""
}

// StripMarkup removes script and iframe blocks, inline event handlers
// and javascript: URIs from the value.
func StripMarkup(value string) string {
	for _, p := range stripPatterns {
		value = p.ReplaceAllString(value, "")
	}
	return value
}

// sanitizeJSON walks a decoded JSON document and strips markup from
// every string it finds.
func sanitizeJSON(v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(StripMarkup(t))
	case map[string]any:
		for k, child := range t {
			t[k] = sanitizeJSON(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = sanitizeJSON(child)
		}
		return t
	default:
		return v
	}
}

// collectJSONStrings gathers every string value from a decoded JSON
// document for pattern inspection.
func collectJSONStrings(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		return append(out, t)
	case map[string]any:
		for _, child := range t {
			out = collectJSONStrings(child, out)
		}
		return out
	case []any:
		for _, child := range t {
			out = collectJSONStrings(child, out)
		}
		return out
	default:
		return out
	}
}
