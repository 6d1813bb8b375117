package exclusion

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// DefaultPatterns is the built-in exclusion rule set: virtual
// environments, dependency caches, VCS directories, build outputs,
// editor metadata and compiled artefacts.
var DefaultPatterns = []string{
	"**/.git/**",
	"**/.svn/**",
	"**/.hg/**",
	"**/node_modules/**",
	"**/__pycache__/**",
	"**/venv/**",
	"**/.venv/**",
	"**/env/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/.idea/**",
	"**/.vscode/**",
	"**/.pytest_cache/**",
	"**/.mypy_cache/**",
	"**/coverage/**",
	"**/*.egg-info/**",
	"**/*.pyc",
	"**/*.pyo",
	"**/*.class",
	"**/*.o",
	"**/*.so",
	"**/*.dll",
	"**/*.exe",
	"**/*.log",
	"**/*.tmp",
	"**/*.swp",
	"**/*.bak",
	"**/.DS_Store",
}

// manifestNames are the package-manifest files surfaced by dependency
// scanning regardless of exclusion rules.
var manifestNames = map[string]bool{
	"package.json":      true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"go.mod":            true,
	"go.sum":            true,
	"requirements.txt":  true,
	"Pipfile":           true,
	"Pipfile.lock":      true,
	"pyproject.toml":    true,
	"setup.py":          true,
	"Cargo.toml":        true,
	"Cargo.lock":        true,
	"pom.xml":           true,
	"build.gradle":      true,
	"Gemfile":           true,
	"Gemfile.lock":      true,
	"composer.json":     true,
}

// Filter decides which paths enter the indexing pipeline. Matching is
// glob-style with ** wildcards, anchored at the project root.
type Filter struct {
	patterns []string
}

// New builds a filter from the default rule set (when enabled) plus
// user-supplied patterns.
func New(useDefaults bool, userPatterns []string) *Filter {
	var patterns []string
	if useDefaults {
		patterns = append(patterns, DefaultPatterns...)
	}
	for _, p := range userPatterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// Bare directory or file names match anywhere in the tree.
		if !strings.ContainsAny(p, "/*?") {
			patterns = append(patterns, "**/"+p+"/**", "**/"+p)
		} else {
			patterns = append(patterns, p)
		}
	}
	return &Filter{patterns: patterns}
}

// ShouldExclude reports whether the root-relative path matches any rule.
// It is deterministic and pure.
func (f *Filter) ShouldExclude(relPath string) bool {
	relPath = types.NormalizePath(relPath)
	for _, pattern := range f.patterns {
		if matchGlob(pattern, relPath) {
			return true
		}
	}
	return false
}

// ScanDependencyFiles walks the root, including excluded directories,
// and yields root-relative paths of recognised package-manifest files.
func (f *Filter) ScanDependencyFiles(root string) ([]string, error) {
	var manifests []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if d.IsDir() {
			// Never descend into VCS metadata, there is nothing to find.
			if d.Name() == ".git" || d.Name() == ".svn" || d.Name() == ".hg" {
				return filepath.SkipDir
			}
			return nil
		}
		if manifestNames[d.Name()] {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			manifests = append(manifests, types.NormalizePath(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manifests, nil
}

// IsManifestFile reports whether name is a recognised package manifest.
func IsManifestFile(name string) bool {
	return manifestNames[name]
}

// matchGlob matches a slash-separated glob pattern supporting ** (any
// number of path segments, including none), * and ? within one segment.
func matchGlob(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pat, parts []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			// Collapse consecutive ** segments.
			for len(pat) > 0 && pat[0] == "**" {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true
			}
			for i := 0; i <= len(parts); i++ {
				if matchSegments(pat, parts[i:]) {
					return true
				}
			}
			return false
		}
		if len(parts) == 0 {
			return false
		}
		ok, err := filepath.Match(pat[0], parts[0])
		if err != nil || !ok {
			return false
		}
		pat = pat[1:]
		parts = parts[1:]
	}
	return len(parts) == 0
}
