package walker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealFaceCode/ContextBrain/internal/config"
	"github.com/RealFaceCode/ContextBrain/internal/exclusion"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalker_Discovery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "print('hi')")
	writeFile(t, root, "docs/readme.md", "# Title")
	writeFile(t, root, "src/app.js", "const x = 1;")
	writeFile(t, root, "image.png", "binary")
	writeFile(t, root, "node_modules/pkg/index.js", "excluded")

	w := New(config.DefaultExtensions(), exclusion.New(true, nil), 0)
	files, err := w.Walk(root, nil)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.RelPath)
	}
	assert.ElementsMatch(t, []string{"main.py", "docs/readme.md", "src/app.js"}, paths)

	for _, f := range files {
		switch f.RelPath {
		case "main.py":
			assert.Equal(t, "python", f.Language)
		case "docs/readme.md":
			assert.Equal(t, "markdown", f.Language)
		case "src/app.js":
			assert.Equal(t, "javascript", f.Language)
		}
	}
}

func TestWalker_MaxSizeBoundary(t *testing.T) {
	root := t.TempDir()
	atLimit := strings.Repeat("a", 100)
	overLimit := strings.Repeat("b", 101)
	writeFile(t, root, "at_limit.py", atLimit)
	writeFile(t, root, "over_limit.py", overLimit)

	var skipped []string
	w := New(config.DefaultExtensions(), exclusion.New(true, nil), 100)
	files, err := w.Walk(root, func(relPath, reason string) {
		skipped = append(skipped, relPath+": "+reason)
	})
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "at_limit.py", files[0].RelPath)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "over_limit.py")
	assert.Contains(t, skipped[0], "max file size")
}

func TestWalker_LanguageWhitelist(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1")
	writeFile(t, root, "b.js", "var x = 1;")

	w := New(config.DefaultExtensions(), exclusion.New(true, nil), 0)
	w.SetLanguages([]string{"python"})

	files, err := w.Walk(root, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.py", files[0].RelPath)
}

func TestWalker_DetectLanguage(t *testing.T) {
	w := New(config.DefaultExtensions(), exclusion.New(true, nil), 0)
	assert.Equal(t, "python", w.DetectLanguage("x/y/z.py"))
	assert.Equal(t, "typescript", w.DetectLanguage("a.TS"))
	assert.Equal(t, "", w.DetectLanguage("a.bin"))
}
