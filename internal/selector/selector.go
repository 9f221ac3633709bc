// Package selector picks the subset of a repository's source files that is
// worth sending to the model: a single metadata walk scores every candidate,
// and only the top-ranked files are actually read from disk.
package selector

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is a selected file with its repo-relative path and full content.
type File struct {
	Path    string
	Content string
}

// Options bound the selection.
type Options struct {
	Extensions  []string // lowercase, with leading dot; nil = DefaultExtensions
	MaxFiles    int      // 0 = DefaultMaxFiles
	MaxFileSize int64    // bytes, 0 = DefaultMaxFileSize
}

// Defaults for file discovery.
const (
	DefaultMaxFiles    = 50
	DefaultMaxFileSize = 100_000
)

// DefaultExtensions covers the languages the agent knows how to verify or
// at least reason about.
var DefaultExtensions = []string{
	".py", ".js", ".ts", ".jsx", ".tsx",
	".java", ".go", ".rs", ".rb", ".php",
	".c", ".cpp", ".h", ".hpp", ".cs",
}

// skipDirs are noise directories excluded from the walk entirely.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true,
	"vendor":       true,
}

// candidate is the ephemeral scoring record for one file. Contents are not
// read until the candidate survives ranking.
type candidate struct {
	relPath string
	size    int64
	score   int
	order   int
}

// Select walks the repository once, ranks candidates, and reads contents for
// the top MaxFiles only. Unreadable files are silently skipped.
func Select(root string, opts Options) ([]File, error) {
	exts := opts.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var candidates []candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !extSet[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSize {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		candidates = append(candidates, candidate{
			relPath: rel,
			size:    info.Size(),
			score:   Score(rel, info.Size()),
			order:   len(candidates),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stable: ties keep walk order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxFiles {
		candidates = candidates[:maxFiles]
	}

	files := make([]File, 0, len(candidates))
	for _, c := range candidates {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(c.relPath)))
		if err != nil {
			continue
		}
		files = append(files, File{Path: c.relPath, Content: string(data)})
	}
	return files, nil
}

// entryPointNames get the biggest boost: they anchor the program.
var entryPointNames = map[string]bool{
	"main":   true,
	"app":    true,
	"index":  true,
	"server": true,
	"cli":    true,
	"run":    true,
}

// importantNames mark architecturally significant modules.
var importantNames = map[string]bool{
	"models":   true,
	"routes":   true,
	"config":   true,
	"auth":     true,
	"api":      true,
	"core":     true,
	"handlers": true,
	"views":    true,
	"database": true,
	"schema":   true,
}

var sourceRootDirs = map[string]bool{
	"src":      true,
	"lib":      true,
	"app":      true,
	"pkg":      true,
	"internal": true,
	"cmd":      true,
}

var lowPriorityDirs = map[string]bool{
	"tests":      true,
	"test":       true,
	"testdata":   true,
	"docs":       true,
	"doc":        true,
	"examples":   true,
	"example":    true,
	"migrations": true,
	"vendor":     true,
	"scripts":    true,
	"fixtures":   true,
}

// Score rates a repo-relative (slash-separated) path for analysis value.
// Higher is better; scores may be negative.
func Score(relPath string, size int64) int {
	score := 0

	base := strings.ToLower(filepath.Base(relPath))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	switch {
	case entryPointNames[stem]:
		score += 20
	case importantNames[stem]:
		score += 10
	case stem == "__init__":
		score -= 5
	}

	dirs := strings.Split(relPath, "/")
	dirs = dirs[:len(dirs)-1] // drop filename
	for _, d := range dirs {
		d = strings.ToLower(d)
		if sourceRootDirs[d] {
			score += 5
			break
		}
	}
	for _, d := range dirs {
		d = strings.ToLower(d)
		if lowPriorityDirs[d] {
			score -= 10
			break
		}
	}

	if isTestFile(base, stem) {
		score -= 15
	}

	score -= len(dirs) // nesting depth

	switch {
	case size >= 500 && size <= 20_000:
		score += 3
	case size < 100:
		score -= 3
	case size > 50_000:
		score -= 2
	}

	return score
}

// isTestFile matches common test-file naming conventions across languages.
func isTestFile(base, stem string) bool {
	if base == "conftest.py" {
		return true
	}
	if strings.HasPrefix(base, "test_") {
		return true
	}
	if strings.HasSuffix(stem, "_test") {
		return true
	}
	if strings.Contains(base, ".spec.") || strings.Contains(base, ".test.") {
		return true
	}
	return false
}
