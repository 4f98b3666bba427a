package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspect(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"clean prose", "the quick brown fox", ""},
		{"clean email", "ada@example.com", ""},
		{"union select", "x' UNION SELECT password FROM users --", ViolationSQLInjection},
		{"tautology", "admin' OR '1'='1", ViolationSQLInjection},
		{"drop table", "; DROP TABLE users; --", ViolationSQLInjection},
		{"timing probe", "1 AND sleep(5)", ViolationSQLInjection},
		{"script tag", `<script>alert(1)</script>`, ViolationXSS},
		{"iframe", `<iframe src="https://evil.test">`, ViolationXSS},
		{"event handler", `<img src=x onerror=alert(1)>`, ViolationXSS},
		{"javascript uri", `javascript:alert(document.cookie)`, ViolationXSS},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Inspect(tc.value))
		})
	}
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "hello ", StripMarkup(`hello <script>alert(1)</script>`))
	assert.Equal(t, "<p>fine</p>", StripMarkup("<p>fine</p>"))
	assert.Equal(t, `<a href="#">x</a>`, StripMarkup(`<a href="#" onclick="steal()">x</a>`))
	assert.NotContains(t, StripMarkup(`<iframe src="x"></iframe>rest`), "iframe")
}

func TestSanitizeJSONWalksNestedValues(t *testing.T) {
	doc := map[string]any{
		"name": "  Ada <script>x</script> ",
		"tags": []any{"<iframe>", "ok"},
		"nested": map[string]any{
			"bio": `click <a onclick="x">here</a>`,
		},
		"count": float64(3),
	}
	out := sanitizeJSON(doc).(map[string]any)
	assert.Equal(t, "Ada", out["name"])
	assert.Equal(t, "", out["tags"].([]any)[0])
	assert.NotContains(t, out["nested"].(map[string]any)["bio"], "onclick")
	assert.Equal(t, float64(3), out["count"])
}
