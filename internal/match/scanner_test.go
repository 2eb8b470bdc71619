package match

import (
	"regexp"
	"testing"
)

func TestUnquotedSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want []string
	}{
		{"no quotes", `Foo();`, []string{`Foo();`}},
		{"middle", `log("x"); Foo();`, []string{`log(`, `); Foo();`}},
		{"leading quote", `"x" Foo`, []string{` Foo`}},
		{"only quoted", `"Foo"`, nil},
		{"unterminated", `a "b c`, []string{`a `}},
		{"escaped quote", `a "b\"c" d`, []string{`a `, ` d`}},
		{"escaped backslash", `a "b\\" d`, []string{`a `}},
		{"empty", ``, nil},
		{"adjacent", `"a""b"c`, []string{`c`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := unquotedSpans(tt.line)
			if len(got) != len(tt.want) {
				t.Fatalf("unquotedSpans(%q) = %q, want %q", tt.line, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("unquotedSpans(%q)[%d] = %q, want %q", tt.line, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lf", "a\nb", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"cr", "a\rb", []string{"a", "b"}},
		{"trailing newline", "a\n", []string{"a"}},
		{"blank lines", "a\n\nb", []string{"a", "", "b"}},
		{"form feed", "a\fb", []string{"a", "b"}},
		{"unicode separator", "a\u2028b", []string{"a", "b"}},
		{"next line", "a\u0085b", []string{"a", "b"}},
		{"empty", "", nil},
		{"non-separator multibyte", "é\n€", []string{"é", "€"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := splitLines(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("splitLines(%q) = %q, want %q", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitLines(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestOccursOutsideQuotes(t *testing.T) {
	t.Parallel()

	word := regexp.MustCompile(`\bFoo\b`)
	tests := []struct {
		text string
		want bool
	}{
		{"Foo();", true},
		{"// Foo", false},
		{"   //Foo", false},
		{"x(); // Foo", true},
		{`"Foo"`, false},
		{"\"Foo\"\n  Foo", true},
		{"/* Foo */", true},
		{"\x1f// Foo", false},
		{"\u00a0\t// Foo", false},
		{"\x1fFoo", true},
		{"Foobar", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			if got := occursOutsideQuotes(word, tt.text); got != tt.want {
				t.Errorf("occursOutsideQuotes(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
