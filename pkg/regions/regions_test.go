package regions

import (
	"errors"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, r := range All() {
		got, err := Parse(r.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", r.String(), err)
		}
		if got != r {
			t.Errorf("round trip %q: got %v want %v", r.String(), got, r)
		}
	}
}

func TestParseUnsupported(t *testing.T) {
	for _, s := range []string{"", "us-east-2", "US-EAST-1", "mars-north-1"} {
		_, err := Parse(s)
		if err == nil {
			t.Fatalf("Parse(%q): expected error", s)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Parse(%q): expected *ParseError, got %T", s, err)
		}
		if pe.Input != s {
			t.Errorf("ParseError.Input = %q, want %q", pe.Input, s)
		}
	}
}

func TestEndpointHost(t *testing.T) {
	if got := USEast1.EndpointHost(); got != "s3.amazonaws.com" {
		t.Errorf("us-east-1 endpoint = %q", got)
	}
	for _, r := range All() {
		if r == USEast1 {
			continue
		}
		want := "s3-" + r.String() + ".amazonaws.com"
		if got := r.EndpointHost(); got != want {
			t.Errorf("%v endpoint = %q, want %q", r, got, want)
		}
	}
}

func TestWireNamesLowercaseHyphenated(t *testing.T) {
	for _, r := range All() {
		s := r.String()
		if s != strings.ToLower(s) || !strings.Contains(s, "-") {
			t.Errorf("wire name %q is not lowercase hyphenated", s)
		}
	}
}
