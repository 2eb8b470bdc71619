// Package discover finds C/C++ source files in a repository.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/apiscan/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to repo root
	Language string
}

// DefaultExcludeDirs are directory names pruned from the walk. Matching is
// exact and case-sensitive.
var DefaultExcludeDirs = []string{
	"build", "cmake", "CMake", "libs", "lib", "extern",
	"external", "3rdparty", "third_party", "tests", "test",
	"doc", "docs", "data", "resources", "res", ".git",
}

// Options controls which files Files returns.
type Options struct {
	// ExcludeDirs replaces DefaultExcludeDirs when non-nil.
	ExcludeDirs []string
	// ExcludeGlobs are matched against slash-separated relative paths.
	ExcludeGlobs []string
	// RespectGitignore skips files matched by the root .gitignore.
	RespectGitignore bool
}

// Files discovers candidate source files under root, sorted by path.
func Files(root string, opts Options) ([]FileEntry, error) {
	excludeDirs := opts.ExcludeDirs
	if excludeDirs == nil {
		excludeDirs = DefaultExcludeDirs
	}
	skipDirs := make(map[string]struct{}, len(excludeDirs))
	for _, d := range excludeDirs {
		skipDirs[d] = struct{}{}
	}

	globs := make([]glob.Glob, 0, len(opts.ExcludeGlobs))
	for _, pattern := range opts.ExcludeGlobs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	var gi *ignore.GitIgnore
	if opts.RespectGitignore {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		langName := lang.ForExtension(filepath.Ext(name))
		if langName == "" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		slashed := filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(slashed) {
			return nil
		}
		for _, g := range globs {
			if g.Match(slashed) {
				return nil
			}
		}

		results = append(results, FileEntry{Path: rel, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
