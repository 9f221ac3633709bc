// Package patch applies a validated fix to a working tree. A fix lands only
// if its original snippet matches exactly once and the patched file still
// passes syntax verification; otherwise the file on disk is untouched.
package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joescharf/nightfix/internal/models"
	"github.com/joescharf/nightfix/internal/syntax"
)

const (
	// MaxFixedLines rejects replacement snippets large enough to suggest the
	// model rewrote a file instead of fixing a bug.
	MaxFixedLines = 200
	// MaxGrowthFactor rejects fixes that balloon the snippet they replace.
	MaxGrowthFactor = 10.0
)

// Applier writes fixes to disk with syntax verification and atomic replace.
type Applier struct {
	verifier *syntax.Verifier
}

// New creates an Applier. verifier must not be nil.
func New(verifier *syntax.Verifier) *Applier {
	return &Applier{verifier: verifier}
}

// Apply replaces the fix's original snippet with its fixed snippet in the
// target file. The write goes through a temp file in the same directory and
// is renamed over the original only after the patched content verifies, so a
// failure at any stage leaves the file unchanged.
func (a *Applier) Apply(ctx context.Context, repoRoot string, fix *models.FixSuggestion) error {
	target, err := resolveInRepo(repoRoot, fix.FilePath)
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("target file: %w", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("read target: %w", err)
	}
	content := string(data)

	switch n := strings.Count(content, fix.OriginalCode); {
	case n == 0:
		return fmt.Errorf("original code not found in %s", fix.FilePath)
	case n > 1:
		return fmt.Errorf("original code matches %d locations in %s, refusing ambiguous patch", n, fix.FilePath)
	}

	if err := checkFixSize(fix); err != nil {
		return err
	}

	patched := strings.Replace(content, fix.OriginalCode, fix.FixedCode, 1)

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { os.Remove(tmpPath) }()

	if _, err := tmp.WriteString(patched); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	// Verify against a path with the target's extension so the right
	// language checker runs.
	verifyPath := tmpPath + filepath.Ext(target)
	if err := os.Rename(tmpPath, verifyPath); err != nil {
		return fmt.Errorf("stage temp file: %w", err)
	}
	tmpPath = verifyPath

	if err := a.verifier.Verify(ctx, verifyPath); err != nil {
		return fmt.Errorf("patched file failed verification: %w", err)
	}

	if err := os.Rename(verifyPath, target); err != nil {
		return fmt.Errorf("replace target: %w", err)
	}
	return nil
}

// checkFixSize applies the growth guards. Both are line-based: a snippet
// that explodes one line into dozens is a rewrite, however few bytes it
// adds.
func checkFixSize(fix *models.FixSuggestion) error {
	fixedLines := strings.Count(fix.FixedCode, "\n") + 1
	if fixedLines > MaxFixedLines {
		return fmt.Errorf("fixed code is %d lines, over the %d line limit", fixedLines, MaxFixedLines)
	}
	originalLines := strings.Count(fix.OriginalCode, "\n") + 1
	growth := float64(fixedLines) / float64(originalLines)
	if growth > MaxGrowthFactor {
		return fmt.Errorf("fixed code is %.1fx the line count of the original, over the %.1fx limit", growth, MaxGrowthFactor)
	}
	return nil
}

// resolveInRepo resolves rel inside root and rejects any path that escapes
// it. The model's file_path has already been screened for traversal, but the
// applier enforces containment on the resolved path anyway.
func resolveInRepo(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve repo root: %w", err)
	}
	target := filepath.Join(absRoot, filepath.FromSlash(rel))
	if target != absRoot && !strings.HasPrefix(target, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the repository", rel)
	}
	return target, nil
}
