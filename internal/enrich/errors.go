package enrich

import "errors"

// Pipeline failures are caught at the chunkifier boundary and reported to
// the queue as a failed enrichment; none of them is fatal to the worker.
var (
	ErrContentTooShort   = errors.New("text too short")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDownload          = errors.New("download failed")
	ErrTextConversion    = errors.New("text conversion failed")
)
