package chunker

import (
	"fmt"
	"strings"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// Chunk is a size-bounded slice of an element's content submitted to
// the embedder.
type Chunk struct {
	// ID is the vector record id: the element id for a single chunk,
	// "elementID#n" when the element yields more than one.
	ID        string
	ElementID string
	Index     int
	Text      string
}

// Chunker splits element content into embedding chunks.
type Chunker struct {
	chunkSize int
}

// New creates a Chunker with the given maximum chunk size in
// characters.
func New(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	return &Chunker{chunkSize: chunkSize}
}

// ChunkElement splits an element's embedding text into contiguous,
// non-overlapping chunks of at most chunkSize characters, preferring
// boundaries at line breaks. An element always remains a single
// structural element; only its embedding is chunked.
func (c *Chunker) ChunkElement(elem *types.Element, text string) []Chunk {
	if text == "" {
		text = elem.Content
	}
	pieces := SplitText(text, c.chunkSize)

	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		id := elem.ID
		if len(pieces) > 1 {
			id = fmt.Sprintf("%s#%d", elem.ID, i)
		}
		chunks = append(chunks, Chunk{
			ID:        id,
			ElementID: elem.ID,
			Index:     i,
			Text:      piece,
		})
	}
	return chunks
}

// SplitText splits text into pieces of at most size characters. The
// split point backtracks to the last newline within the window when one
// exists; otherwise the window is cut hard.
func SplitText(text string, size int) []string {
	if text == "" {
		return []string{""}
	}
	if len(text) <= size {
		return []string{text}
	}

	var pieces []string
	rest := text
	for len(rest) > size {
		window := rest[:size]
		cut := size
		if idx := strings.LastIndexByte(window, '\n'); idx > 0 {
			cut = idx + 1
		}
		pieces = append(pieces, rest[:cut])
		rest = rest[cut:]
	}
	if rest != "" {
		pieces = append(pieces, rest)
	}
	return pieces
}
