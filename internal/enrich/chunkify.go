package enrich

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"code.sajari.com/docconv"
	"github.com/google/uuid"
)

// DefaultTargetSectionSeconds is the target length of a video section.
const DefaultTargetSectionSeconds = 120

// minTranscriptLength is the shortest transcript worth chunking.
const minTranscriptLength = 200

// EntityExtractor converts a text fragment into a ranked set of linked
// entities.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}

// Chunkifier turns an OER resource into an ordered list of wikichunks,
// dispatching on the resource format.
type Chunkifier struct {
	Extractor            EntityExtractor
	HTTPClient           *http.Client
	Logger               *log.Logger
	ScratchDir           string
	TargetSectionSeconds int

	// convertPath is swappable in tests; the default shells out to
	// pdftotext via docconv.
	convertPath func(path string) (string, error)
}

// NewChunkifier constructs a Chunkifier with docconv-backed PDF conversion
// and a scratch directory under the system temp dir.
func NewChunkifier(extractor EntityExtractor, logger *log.Logger) *Chunkifier {
	return &Chunkifier{
		Extractor:            extractor,
		HTTPClient:           &http.Client{Timeout: 60 * time.Second},
		Logger:               logger,
		ScratchDir:           os.TempDir(),
		TargetSectionSeconds: DefaultTargetSectionSeconds,
		convertPath:          convertPDFToText,
	}
}

// Chunkify runs the pipeline for res and assembles the enrichment. Format
// and content errors are converted into a failed Enrichment and returned
// alongside it so the caller can report the message to the queue.
func (c *Chunkifier) Chunkify(ctx context.Context, res Resource) (Enrichment, error) {
	chunks, err := c.makeChunks(ctx, res)
	if err != nil {
		return Enrichment{Chunks: []Chunk{}, Errors: true}, err
	}
	return Enrichment{
		Chunks:    chunks,
		Mentions:  ExtractMentions(chunks),
		TopTitles: TopTitles(chunks),
	}, nil
}

func (c *Chunkifier) makeChunks(ctx context.Context, res Resource) ([]Chunk, error) {
	switch Classify(res.URL) {
	case FormatPDF:
		return c.chunksFromPDF(ctx, res)
	case FormatVideo:
		return c.chunksFromVideo(ctx, res)
	case FormatGenericText:
		return c.chunksFromText(ctx, res.Title+". "+res.Description, false)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// chunksFromPDF downloads the document to a scratch path, converts it to
// plain text and chunkifies the text by character position.
func (c *Chunkifier) chunksFromPDF(ctx context.Context, res Resource) ([]Chunk, error) {
	path := filepath.Join(c.ScratchDir, fmt.Sprintf("wikichunker_%s.pdf", uuid.NewString()))
	defer os.Remove(path)

	if err := c.download(ctx, res.URL, path); err != nil {
		return nil, err
	}
	text, err := c.convertPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTextConversion, err)
	}
	// Every chunk of a PDF carries the complete document text, not just its
	// own part. Mention positions and stored enrichments depend on this;
	// review with the product owner before changing it.
	return c.chunksFromText(ctx, text, true)
}

// chunksFromText segments text into parts and extracts entities per part.
// Chunk positions accumulate as character fractions of the whole text.
func (c *Chunkifier) chunksFromText(ctx context.Context, text string, wholeTextPerChunk bool) ([]Chunk, error) {
	total := len([]rune(text))
	if total < MinTextLength {
		return nil, ErrContentTooShort
	}
	parts := SplitIntoParts(text)

	chunks := make([]Chunk, 0, len(parts))
	start := 0.0
	for i, part := range parts {
		c.Logger.Printf("processing chunk %d/%d", i+1, len(parts))
		entities, err := c.Extractor.Extract(ctx, part)
		if err != nil {
			return nil, err
		}
		length := float64(len([]rune(part))) / float64(total)
		chunkText := part
		if wholeTextPerChunk {
			chunkText = text
		}
		chunks = append(chunks, Chunk{Start: start, Length: length, Entities: entities, Text: chunkText})
		start += length
	}
	return chunks, nil
}

// chunksFromVideo sections the transcript along its timestamps and converts
// section times into fractions of the video duration. Section boundaries are
// approximate, so chunk lengths are re-derived afterwards to make the chunks
// stick precisely end to end.
func (c *Chunkifier) chunksFromVideo(ctx context.Context, res Resource) ([]Chunk, error) {
	if len([]rune(res.Transcript)) < minTranscriptLength {
		return nil, ErrContentTooShort
	}
	duration, err := SecondsFromTimestamp(res.Duration)
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("unusable video duration %q", res.Duration)
	}
	sections := SplitIntoSections(res.Transcript, duration, c.TargetSectionSeconds)

	chunks := make([]Chunk, 0, len(sections))
	for i, section := range sections {
		c.Logger.Printf("processing chunk %d/%d", i+1, len(sections))
		entities, err := c.Extractor.Extract(ctx, section.Text)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, Chunk{
			Start:    float64(section.StartSecond) / float64(duration),
			Length:   float64(section.LengthSeconds) / float64(duration),
			Entities: entities,
			Text:     section.Text,
		})
	}
	for i := range chunks {
		end := 1.0
		if i < len(chunks)-1 {
			end = chunks[i+1].Start
		}
		chunks[i].Length = end - chunks[i].Start
	}
	return chunks, nil
}

func (c *Chunkifier) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w with status %d", ErrDownload, resp.StatusCode)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	return nil
}

func convertPDFToText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}
