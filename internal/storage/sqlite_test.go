package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "structured.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func elem(file string, typ types.ElementType, name string, start, end int) *types.Element {
	e := &types.Element{
		Type:      typ,
		Name:      name,
		FilePath:  file,
		StartLine: start,
		EndLine:   end,
		Language:  "python",
		Metadata:  map[string]string{},
	}
	e.ID = types.ElementID(file, typ, name, start, 0)
	return e
}

func TestReplaceFile_InsertAndFetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	elements := []*types.Element{
		elem("lib/a.py", types.TypeModule, "a", 1, 10),
		elem("lib/a.py", types.TypeFunction, "greet", 2, 5),
	}
	require.NoError(t, store.ReplaceFile(ctx, "lib/a.py", elements))

	got, err := store.GetByFile(ctx, "lib/a.py")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "greet", got[1].Name)
}

func TestReplaceFile_AtomicReplacement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceFile(ctx, "x.py", []*types.Element{
		elem("x.py", types.TypeFunction, "foo", 1, 3),
	}))

	// Rename foo -> bar and re-index.
	require.NoError(t, store.ReplaceFile(ctx, "x.py", []*types.Element{
		elem("x.py", types.TypeFunction, "bar", 1, 3),
	}))

	foo, err := store.SearchStructural(ctx, "foo", Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, foo)

	bar, err := store.SearchStructural(ctx, "bar", Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, bar, 1)
}

func TestDeleteByFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	elements := []*types.Element{elem("a.py", types.TypeFunction, "f", 1, 2)}
	require.NoError(t, store.ReplaceFile(ctx, "a.py", elements))
	require.NoError(t, store.DeleteByFile(ctx, "a.py"))

	got, err := store.GetByFile(ctx, "a.py")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Re-index restores the identical element set by id.
	require.NoError(t, store.ReplaceFile(ctx, "a.py", elements))
	restored, err := store.GetByFile(ctx, "a.py")
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, elements[0].ID, restored[0].ID)
}

func TestSearchStructural_GlobVsSubstring(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceFile(ctx, "u1.py", []*types.Element{
		elem("u1.py", types.TypeFunction, "get_user", 1, 2),
		elem("u1.py", types.TypeFunction, "get_users", 4, 5),
	}))
	require.NoError(t, store.ReplaceFile(ctx, "u2.py", []*types.Element{
		elem("u2.py", types.TypeFunction, "set_user", 1, 2),
		elem("u2.py", types.TypeFunction, "getUser", 4, 5),
	}))

	// Glob: get_* matches get_user and get_users, not getUser.
	got, err := store.SearchStructural(ctx, "get_*", Filters{Type: "function"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "get_user", got[0].Name)
	assert.Equal(t, "get_users", got[1].Name)

	// Ordered by (file_path, start_line).
	assert.Equal(t, "u1.py", got[0].FilePath)
	assert.LessOrEqual(t, got[0].StartLine, got[1].StartLine)

	// Substring: "user" matches all four.
	all, err := store.SearchStructural(ctx, "user", Filters{}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSearchStructural_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	py := elem("a.py", types.TypeFunction, "handler", 1, 2)
	js := elem("b.js", types.TypeFunction, "handler", 1, 2)
	js.Language = "javascript"
	require.NoError(t, store.ReplaceFile(ctx, "a.py", []*types.Element{py}))
	require.NoError(t, store.ReplaceFile(ctx, "b.js", []*types.Element{js}))

	got, err := store.SearchStructural(ctx, "handler", Filters{Language: "javascript"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b.js", got[0].FilePath)

	got, err = store.SearchStructural(ctx, "handler", Filters{File: "a.py"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.py", got[0].FilePath)
}

func TestSearchStructural_MissingYieldsEmpty(t *testing.T) {
	store := newTestStore(t)
	got, err := store.SearchStructural(context.Background(), "nothing", Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetChildren(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	module := elem("m.py", types.TypeModule, "m", 1, 20)
	f1 := elem("m.py", types.TypeFunction, "beta", 10, 12)
	f2 := elem("m.py", types.TypeFunction, "alpha", 2, 4)
	f1.ParentID = module.ID
	f2.ParentID = module.ID

	require.NoError(t, store.ReplaceFile(ctx, "m.py", []*types.Element{module, f1, f2}))

	children, err := store.GetChildren(ctx, module.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	// Ordered by start line, not insertion or name order.
	assert.Equal(t, "alpha", children[0].Name)
	assert.Equal(t, "beta", children[1].Name)
}

func TestGetByID_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := elem("r.py", types.TypeFunction, "roundtrip", 1, 5)
	e.Signature = "(a, b)"
	e.Docstring = "Does things."
	e.Dependencies = []string{"os", "sys"}
	e.Metadata = map[string]string{"decorators": "@cached"}

	require.NoError(t, store.ReplaceFile(ctx, "r.py", []*types.Element{e}))

	got, err := store.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.Signature, got.Signature)
	assert.Equal(t, e.Docstring, got.Docstring)
	assert.Equal(t, e.Dependencies, got.Dependencies)
	assert.Equal(t, e.Metadata, got.Metadata)

	_, err = store.GetByID(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatistics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	js := elem("b.js", types.TypeFunction, "f", 1, 2)
	js.Language = "javascript"
	require.NoError(t, store.ReplaceFile(ctx, "a.py", []*types.Element{
		elem("a.py", types.TypeModule, "a", 1, 5),
		elem("a.py", types.TypeFunction, "g", 2, 4),
	}))
	require.NoError(t, store.ReplaceFile(ctx, "b.js", []*types.Element{js}))

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalElements)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 2, stats.ByType["function"])
	assert.Equal(t, 1, stats.ByType["module"])
	assert.Equal(t, 2, stats.ByLanguage["python"])
	assert.Equal(t, 1, stats.ByLanguage["javascript"])
}

func TestManifest_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetManifest(ctx, "/proj")
	assert.ErrorIs(t, err, ErrNotFound)

	m := &types.ProjectManifest{
		RootPath:      "/proj",
		TotalElements: 42,
		TotalFiles:    7,
		Languages:     map[string]int{"python": 40, "markdown": 2},
	}
	require.NoError(t, store.UpsertManifest(ctx, m))

	got, err := store.GetManifest(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, 42, got.TotalElements)
	assert.Equal(t, 7, got.TotalFiles)
	assert.Equal(t, m.Languages, got.Languages)
	assert.False(t, got.CreatedAt.IsZero())

	// Update keeps created_at.
	m.TotalElements = 50
	require.NoError(t, store.UpsertManifest(ctx, m))
	updated, err := store.GetManifest(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, 50, updated.TotalElements)
	assert.True(t, got.CreatedAt.Equal(updated.CreatedAt))
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceFile(ctx, "a.py", []*types.Element{
		elem("a.py", types.TypeFunction, "f", 1, 2),
	}))
	require.NoError(t, store.Clear(ctx))

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalElements)
}
