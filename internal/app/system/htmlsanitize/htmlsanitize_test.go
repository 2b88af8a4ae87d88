package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/taskboard/internal/app/system/htmlsanitize"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "Hello, World!", "Hello, World!"},
		{"safe html", "<p><strong>Bold</strong> and <em>italic</em></p>", "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{"script removed", "<p>Hello</p><script>alert('xss')</script>", "<p>Hello</p>"},
		{"lists", "<ul><li>Item 1</li><li>Item 2</li></ul>", "<ul><li>Item 1</li><li>Item 2</li></ul>"},
		{"code block", "<pre><code>func main() {}</code></pre>", "<pre><code>func main() {}</code></pre>"},
		{"text formatting", "<u>u</u> <s>s</s> <sub>sub</sub> <sup>sup</sup> <mark>m</mark>", "<u>u</u> <s>s</s> <sub>sub</sub> <sup>sup</sup> <mark>m</mark>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_RemovesDangerousAttributes(t *testing.T) {
	inputs := []string{
		`<button onclick="alert('xss')">Click</button>`,
		`<a href="javascript:alert('xss')">Click</a>`,
		`<p>Content</p><iframe src="https://evil.com"></iframe>`,
	}
	for _, in := range inputs {
		out := htmlsanitize.Sanitize(in)
		if strings.Contains(out, "onclick") || strings.Contains(out, "javascript:") || strings.Contains(out, "iframe") {
			t.Errorf("Sanitize(%q) kept dangerous content: %q", in, out)
		}
	}
}

func TestSanitize_KeepsTableAttributes(t *testing.T) {
	out := htmlsanitize.Sanitize(`<table class="grid"><tr><td colspan="2" rowspan="2">Cell</td></tr></table>`)
	for _, want := range []string{`class="grid"`, `colspan="2"`, `rowspan="2"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s preserved, got %q", want, out)
		}
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"  just text  ", "just text"},
		{"<b>bold</b> move", "bold move"},
		{"<script>alert(1)</script>ok", "ok"},
		{"don't <i>panic</i> & relax", "don't panic & relax"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := htmlsanitize.Plain(tt.input); got != tt.want {
				t.Errorf("Plain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"Hello, World!", true},
		{"a < b", true},
		{"<p>Hello</p>", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := htmlsanitize.IsPlainText(tt.input); got != tt.want {
				t.Errorf("IsPlainText(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
