package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

func TestSplitText_SmallInput(t *testing.T) {
	pieces := SplitText("hello world", 100)
	require.Len(t, pieces, 1)
	assert.Equal(t, "hello world", pieces[0])
}

func TestSplitText_Empty(t *testing.T) {
	pieces := SplitText("", 100)
	require.Len(t, pieces, 1)
	assert.Equal(t, "", pieces[0])
}

func TestSplitText_PrefersLineBreaks(t *testing.T) {
	text := "line one\nline two\nline three\nline four\n"
	pieces := SplitText(text, 20)

	require.Greater(t, len(pieces), 1)
	// Every piece except the last ends at a line break.
	for _, p := range pieces[:len(pieces)-1] {
		assert.True(t, strings.HasSuffix(p, "\n"), "piece %q should end at a newline", p)
	}
	// Chunks are contiguous and non-overlapping: concatenation restores
	// the input.
	assert.Equal(t, text, strings.Join(pieces, ""))
}

func TestSplitText_RespectsMaxSize(t *testing.T) {
	text := strings.Repeat("x", 250) // no newlines at all
	pieces := SplitText(text, 100)

	require.Len(t, pieces, 3)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p), 100)
	}
	assert.Equal(t, text, strings.Join(pieces, ""))
}

func TestChunkElement_SingleChunkKeepsElementID(t *testing.T) {
	elem := &types.Element{
		ID:      "abc123",
		Content: "short content",
	}
	c := New(1000)
	chunks := c.ChunkElement(elem, "")

	require.Len(t, chunks, 1)
	assert.Equal(t, "abc123", chunks[0].ID)
	assert.Equal(t, "abc123", chunks[0].ElementID)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunkElement_MultiChunkIDs(t *testing.T) {
	elem := &types.Element{
		ID:      "abc123",
		Content: strings.Repeat("line of content\n", 100),
	}
	c := New(200)
	chunks := c.ChunkElement(elem, "")

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, "abc123", chunk.ElementID)
		assert.Equal(t, i, chunk.Index)
	}
	assert.Equal(t, "abc123#0", chunks[0].ID)
	assert.Equal(t, "abc123#1", chunks[1].ID)
}

func TestChunkElement_ExplicitText(t *testing.T) {
	elem := &types.Element{ID: "x", Content: "raw source"}
	c := New(1000)
	chunks := c.ChunkElement(elem, "shaped embedding text")

	require.Len(t, chunks, 1)
	assert.Equal(t, "shaped embedding text", chunks[0].Text)
}
