package enrich

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		url  string
		want Format
	}{
		{"https://example.org/paper.pdf", FormatPDF},
		{"https://example.org/PAPER.PDF", FormatPDF},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", FormatVideo},
		{"https://youtu.be.example.com/watch?v=abc", FormatVideo},
		{"https://www.youtube.com/embed/abc", FormatGenericText}, // not a watch url
		{"https://example.org/course", FormatGenericText},
		{"https://example.org/paper.pdf.html", FormatGenericText},
		{"", FormatUnsupported},
	}
	for _, tc := range cases {
		if got := Classify(tc.url); got != tc.want {
			t.Fatalf("Classify(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}
