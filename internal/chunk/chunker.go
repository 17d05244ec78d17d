package chunk

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// boundaryWindow is how far back from the naive cut we look for a boundary.
const boundaryWindow = 200

var (
	// ErrInvalidSize is returned when MaxChunkSize is not positive.
	ErrInvalidSize = errors.New("chunk: max chunk size must be positive")
	// ErrInvalidOverlap is returned when OverlapSize is negative or not
	// smaller than MaxChunkSize.
	ErrInvalidOverlap = errors.New("chunk: overlap must be in [0, max chunk size)")
)

// boundaries are tried in order; the first pattern that yields an acceptable
// cut wins.
var boundaries = []*regexp.Regexp{
	regexp.MustCompile(`\n\n`),
	regexp.MustCompile(`[.!?]\s+`),
	regexp.MustCompile(`[,;]\s+`),
	regexp.MustCompile(`\s+`),
}

// Options controls chunk sizes. Sizes are measured in characters (runes).
type Options struct {
	MaxChunkSize       int  `json:"maxChunkSize" yaml:"maxChunkSize"`
	OverlapSize        int  `json:"overlapSize" yaml:"overlapSize"`
	PreserveBoundaries bool `json:"preserveBoundaries" yaml:"preserveBoundaries"`
}

// DefaultOptions returns 2000-character chunks with 200 characters of overlap,
// cut at natural boundaries.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:       2000,
		OverlapSize:        200,
		PreserveBoundaries: true,
	}
}

// Chunk is a bounded, possibly overlapping slice of a larger text.
// Offsets are rune offsets into the whole text; EndOffset is exclusive.
type Chunk struct {
	ID                  string `json:"id"`
	Text                string `json:"text"`
	StartOffset         int    `json:"startOffset"`
	EndOffset           int    `json:"endOffset"`
	OverlapWithPrevious int    `json:"overlapWithPrevious"`
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}

// Chunker splits text into overlapping chunks.
type Chunker struct {
	opts Options
}

// New validates opts and returns a Chunker.
func New(opts Options) (*Chunker, error) {
	if opts.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, opts.MaxChunkSize)
	}
	if opts.OverlapSize < 0 || opts.OverlapSize >= opts.MaxChunkSize {
		return nil, fmt.Errorf("%w: got %d with max %d", ErrInvalidOverlap, opts.OverlapSize, opts.MaxChunkSize)
	}
	return &Chunker{opts: opts}, nil
}

// Options returns the chunker's configuration.
func (c *Chunker) Options() Options {
	return c.opts
}

// NeedsChunking reports whether text is longer than one chunk.
func (c *Chunker) NeedsChunking(text string) bool {
	return utf8.RuneCountInString(text) > c.opts.MaxChunkSize
}

// Chunk splits text. The result is never empty; empty text yields a single
// empty chunk.
func (c *Chunker) Chunk(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n <= c.opts.MaxChunkSize {
		return []Chunk{{ID: "0", Text: text, StartOffset: 0, EndOffset: n}}
	}

	var chunks []Chunk
	start, overlap := 0, 0
	for start < n {
		end := start + c.opts.MaxChunkSize
		if end < n && c.opts.PreserveBoundaries {
			if b := c.findBoundary(runes, start, end); b != -1 {
				end = b
			}
		}
		end = min(end, n)

		chunks = append(chunks, Chunk{
			ID:                  strconv.Itoa(len(chunks)),
			Text:                string(runes[start:end]),
			StartOffset:         start,
			EndOffset:           end,
			OverlapWithPrevious: overlap,
		})

		if end >= n {
			break
		}
		// A boundary cut can leave no room for the full overlap; the next
		// chunk then starts at end and shares nothing with this one.
		next := end - c.opts.OverlapSize
		if next <= start {
			next = end
		}
		overlap = end - next
		start = next
	}
	return chunks
}

// findBoundary returns the rune offset just past the best boundary in the
// window before preferredEnd, or -1 when no boundary keeps the chunk at
// least half of MaxChunkSize.
func (c *Chunker) findBoundary(runes []rune, start, preferredEnd int) int {
	searchStart := max(start, preferredEnd-boundaryWindow)
	window := string(runes[searchStart:preferredEnd])
	minLen := float64(c.opts.MaxChunkSize) * 0.5

	for _, pat := range boundaries {
		locs := pat.FindAllStringIndex(window, -1)
		if len(locs) == 0 {
			continue
		}
		last := locs[len(locs)-1]
		pos := searchStart + utf8.RuneCountInString(window[:last[1]])
		if float64(pos-start) >= minLen {
			return pos
		}
	}
	return -1
}
