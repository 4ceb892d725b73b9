// Package sanitize strips executable markup from free-text journal content
// before it is persisted or echoed. It is a best-effort denylist, not an
// allowlist-based HTML parser: plain text and unrelated markup pass through
// untouched.
package sanitize

import "regexp"

var patterns = []*regexp.Regexp{
	// Script blocks, including their contents.
	regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`),
	// Orphaned script open/close tags.
	regexp.MustCompile(`(?i)</?script\b[^>]*>`),
	// Inline event handlers (onclick="...", onload='...', onerror=foo).
	regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`),
	// javascript: URI scheme.
	regexp.MustCompile(`(?i)javascript\s*:`),
	// Embedding elements.
	regexp.MustCompile(`(?i)</?(iframe|object|embed)\b[^>]*>`),
}

// Clean removes denylisted constructs from text. Removal can expose new
// matches ("<scr<script>ipt>"), so it loops to a fixpoint; the result is
// idempotent: Clean(Clean(x)) == Clean(x).
func Clean(text string) string {
	for {
		out := text
		for _, p := range patterns {
			out = p.ReplaceAllString(out, "")
		}
		if out == text {
			return out
		}
		text = out
	}
}
