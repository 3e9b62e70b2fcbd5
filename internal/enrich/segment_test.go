package enrich

import (
	"strings"
	"testing"
)

func TestSplitIntoPartsRoundTrip(t *testing.T) {
	for _, n := range []int{500, 501, 5000, 60000, 200000} {
		text := strings.Repeat("a", n)
		parts := SplitIntoParts(text)
		if len(parts) == 0 {
			t.Fatalf("len %d: expected parts", n)
		}
		if got := strings.Join(parts, ""); got != text {
			t.Fatalf("len %d: concatenation does not round-trip (got %d chars)", n, len(got))
		}
		for i, part := range parts {
			if len([]rune(part)) > CharacterLimit {
				t.Fatalf("len %d: part %d exceeds character limit: %d", n, i, len(part))
			}
		}
	}
}

func TestSplitIntoPartsShortText(t *testing.T) {
	if parts := SplitIntoParts(strings.Repeat("a", 499)); parts != nil {
		t.Fatalf("expected nil for short text, got %d parts", len(parts))
	}
	if parts := SplitIntoParts(""); parts != nil {
		t.Fatalf("expected nil for empty text, got %d parts", len(parts))
	}
}

func TestSplitIntoPartsSmallDocumentFloor(t *testing.T) {
	// 600 chars: the sublinear term floors at 3 parts of ceil(600/3)=200.
	parts := SplitIntoParts(strings.Repeat("x", 600))
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	for i, part := range parts {
		if len(part) != 200 {
			t.Fatalf("part %d: expected 200 chars, got %d", i, len(part))
		}
	}
}

func TestSplitIntoPartsMultibyte(t *testing.T) {
	text := strings.Repeat("ä", 1000)
	parts := SplitIntoParts(text)
	if got := strings.Join(parts, ""); got != text {
		t.Fatalf("multibyte concatenation does not round-trip")
	}
	for i, part := range parts {
		if !strings.HasPrefix(part, "ä") {
			t.Fatalf("part %d starts mid-rune", i)
		}
	}
}
