package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *LocalIndex {
	t.Helper()
	idx, err := NewLocalIndex(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func record(id, elementID, file string, vector []float32) Record {
	return Record{
		ID:        id,
		ElementID: elementID,
		FilePath:  file,
		Type:      "function",
		Language:  "python",
		Name:      id,
		StartLine: 1,
		ChunkText: "chunk of " + id,
		Vector:    vector,
	}
}

func TestSerializeVector_RoundTrip(t *testing.T) {
	v := []float32{0.1, -0.5, 3.25, 0}
	blob := SerializeVector(v)
	assert.Equal(t, v, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}

	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity(a, c), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{0, 0, 0}))
}

func TestLocalIndex_ReplaceAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.ReplaceFile(ctx, "a.py", []Record{
		record("e1", "e1", "a.py", []float32{1, 0, 0}),
		record("e2", "e2", "a.py", []float32{0, 1, 0}),
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10, QueryFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "e1", hits[0].Record.ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Less(t, hits[1].Similarity, hits[0].Similarity)
}

func TestLocalIndex_ReplaceRemovesOldRecords(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.ReplaceFile(ctx, "a.py", []Record{
		record("old", "old", "a.py", []float32{1, 0, 0}),
	}))
	require.NoError(t, idx.ReplaceFile(ctx, "a.py", []Record{
		record("new", "new", "a.py", []float32{0, 1, 0}),
	}))

	// The old content no longer matches at a high threshold.
	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10, QueryFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Record.ID)
	assert.Less(t, hits[0].Similarity, 0.9)
}

func TestLocalIndex_Filters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	md := record("h1", "h1", "docs/x.md", []float32{1, 0, 0})
	md.Type = "heading"
	md.Language = "markdown"
	require.NoError(t, idx.ReplaceFile(ctx, "docs/x.md", []Record{md}))
	require.NoError(t, idx.ReplaceFile(ctx, "src/y.py", []Record{
		record("f1", "f1", "src/y.py", []float32{1, 0, 0}),
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10, QueryFilters{Type: "function"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "f1", hits[0].Record.ID)

	hits, err = idx.Search(ctx, []float32{1, 0, 0}, 10, QueryFilters{FilePrefix: "docs/"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "h1", hits[0].Record.ID)

	hits, err = idx.Search(ctx, []float32{1, 0, 0}, 10, QueryFilters{Language: "markdown"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "h1", hits[0].Record.ID)
}

func TestLocalIndex_TieBreak(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	rb := record("b", "b", "b.py", []float32{1, 0, 0})
	ra := record("a", "a", "a.py", []float32{1, 0, 0})
	ra.StartLine = 5
	ra2 := record("a2", "a2", "a.py", []float32{1, 0, 0})
	ra2.StartLine = 2

	require.NoError(t, idx.ReplaceFile(ctx, "b.py", []Record{rb}))
	require.NoError(t, idx.ReplaceFile(ctx, "a.py", []Record{ra, ra2}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10, QueryFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	// Equal similarity: lower file path first, then lower start line.
	assert.Equal(t, "a2", hits[0].Record.ID)
	assert.Equal(t, "a", hits[1].Record.ID)
	assert.Equal(t, "b", hits[2].Record.ID)
}

func TestLocalIndex_DeleteByFile(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.ReplaceFile(ctx, "a.py", []Record{
		record("e1", "e1", "a.py", []float32{1, 0, 0}),
	}))
	require.NoError(t, idx.DeleteByFile(ctx, "a.py"))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLocalIndex_ClearKeepsCollection(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.ReplaceFile(ctx, "a.py", []Record{
		record("e1", "e1", "a.py", []float32{1, 0, 0}),
	}))
	require.NoError(t, idx.Clear(ctx))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Still writable after clearing.
	require.NoError(t, idx.ReplaceFile(ctx, "a.py", []Record{
		record("e2", "e2", "a.py", []float32{0, 1, 0}),
	}))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLocalIndex_DimensionMismatchSkipped(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.ReplaceFile(ctx, "a.py", []Record{
		record("short", "short", "a.py", []float32{1, 0}),
		record("ok", "ok", "a.py", []float32{1, 0, 0}),
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10, QueryFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ok", hits[0].Record.ID)
}
