package walker

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/RealFaceCode/ContextBrain/internal/exclusion"
	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// File is one discovery result: a root-relative path with its detected
// language.
type File struct {
	RelPath  string
	AbsPath  string
	Language string
	Size     int64
}

// Walker enumerates candidate files under a project root.
type Walker struct {
	extensions map[string]string
	filter     *exclusion.Filter
	maxSize    int64

	// languages, when non-empty, whitelists language tags.
	languages map[string]bool
}

// New creates a Walker. maxSize bounds file size in bytes; files larger
// than it are skipped with a recorded reason.
func New(extensions map[string]string, filter *exclusion.Filter, maxSize int64) *Walker {
	return &Walker{
		extensions: extensions,
		filter:     filter,
		maxSize:    maxSize,
	}
}

// SetLanguages restricts discovery to the given language tags.
func (w *Walker) SetLanguages(langs []string) {
	if len(langs) == 0 {
		w.languages = nil
		return
	}
	w.languages = make(map[string]bool, len(langs))
	for _, l := range langs {
		w.languages[l] = true
	}
}

// DetectLanguage returns the language tag for a path, or "" when the
// extension is not supported.
func (w *Walker) DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return w.extensions[ext]
}

// Walk traverses root and returns discovered files in path order.
// Oversized files are reported through the skip callback, which may be
// nil.
func (w *Walker) Walk(root string, onSkip func(relPath, reason string)) ([]File, error) {
	var files []File

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entry, continue the walk
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = types.NormalizePath(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if w.filter.ShouldExclude(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.filter.ShouldExclude(rel) {
			return nil
		}

		lang := w.DetectLanguage(path)
		if lang == "" {
			return nil
		}
		if w.languages != nil && !w.languages[lang] {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if w.maxSize > 0 && info.Size() > w.maxSize {
			if onSkip != nil {
				onSkip(rel, "exceeds max file size")
			}
			return nil
		}

		files = append(files, File{
			RelPath:  rel,
			AbsPath:  path,
			Language: lang,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
