package sanitize

import (
	"strings"
	"testing"
)

func TestCleanRemovesExecutableMarkup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "script block with contents",
			in:   `before<script>alert("x")</script>after`,
			want: "beforeafter",
		},
		{
			name: "script tag with attributes",
			in:   `<script src="https://evil.example/x.js"></script>text`,
			want: "text",
		},
		{
			name: "inline event handler double quoted",
			in:   `<img src="a.png" onclick="steal()">`,
			want: `<img src="a.png">`,
		},
		{
			name: "inline event handler unquoted",
			in:   `<div onmouseover=run()>hi</div>`,
			want: `<div>hi</div>`,
		},
		{
			name: "javascript uri",
			in:   `<a href="javascript:alert(1)">link</a>`,
			want: `<a href="alert(1)">link</a>`,
		},
		{
			name: "iframe",
			in:   `a<iframe src="x"></iframe>b`,
			want: "ab",
		},
		{
			name: "object and embed",
			in:   `<object data="x"></object><embed src="y">z`,
			want: "z",
		},
		{
			name: "plain text untouched",
			in:   "today I wrote in my journal about <3 and a+b > c",
			want: "today I wrote in my journal about <3 and a+b > c",
		},
		{
			name: "unrelated markup untouched",
			in:   "<p>hello <strong>world</strong></p>",
			want: "<p>hello <strong>world</strong></p>",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Clean(tt.in); got != tt.want {
				t.Fatalf("Clean(%q)=%q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`before<script>alert("x")</script>after`,
		`<scr<script>ipt>alert(1)</scr</script>ipt>`,
		`<img onclick="a" onload="b">`,
		`javajavascript:script:alert(1)`,
		"plain journal entry",
		strings.Repeat("<iframe>", 10),
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Fatalf("Clean not idempotent for %q: first=%q second=%q", in, once, twice)
		}
	}
}

func TestCleanNestedScriptDoesNotSurvive(t *testing.T) {
	t.Parallel()

	got := Clean(`<scr<script>ipt>alert(1)</script>`)
	if strings.Contains(strings.ToLower(got), "<script") {
		t.Fatalf("nested script survived: %q", got)
	}
}
