package enrich

import "strings"

// Format identifies which pipeline handles a resource.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatVideo
	FormatGenericText
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatVideo:
		return "video"
	case FormatGenericText:
		return "text"
	default:
		return "unsupported"
	}
}

// Classify resolves the pipeline for a resource URL: PDFs by file extension,
// YouTube watch URLs by pattern, anything else is enriched from its title
// and description.
func Classify(url string) Format {
	if url == "" {
		return FormatUnsupported
	}
	if strings.HasSuffix(strings.ToLower(url), ".pdf") {
		return FormatPDF
	}
	if strings.Contains(url, "youtu") && strings.Contains(url, "/watch?v=") {
		return FormatVideo
	}
	return FormatGenericText
}
