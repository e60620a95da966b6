package catalog

import "testing"

func TestSanitizeDecimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain number", input: "12.34", want: "12.34"},
		{name: "strips letters and symbols", input: "$1,2a3.4", want: "123.4"},
		{name: "clamps fraction digits", input: "9.999", want: "9.99"},
		{name: "drops extra decimal points", input: "1.2.3", want: "1.23"},
		{name: "keeps trailing dot while typing", input: "7.", want: "7."},
		{name: "leading dot", input: ".5", want: ".5"},
		{name: "empty", input: "", want: ""},
		{name: "only junk", input: "abc", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeDecimal(tt.input); got != tt.want {
				t.Fatalf("SanitizeDecimal(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeInteger(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":       "",
		"12":     "12",
		"1.5":    "15",
		"-3 pcs": "3",
		"x":      "",
	}
	for input, want := range cases {
		if got := SanitizeInteger(input); got != want {
			t.Fatalf("SanitizeInteger(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	if got := SanitizeText("<b>Tom</b> & Jerry"); got != "Tom & Jerry" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
	if got := SanitizeText("Plain Shirt "); got != "Plain Shirt " {
		t.Fatalf("expected whitespace preserved, got %q", got)
	}
}
