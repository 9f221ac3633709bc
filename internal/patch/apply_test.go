package patch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/nightfix/internal/models"
	"github.com/joescharf/nightfix/internal/syntax"
)

func newApplier() *Applier {
	return New(syntax.NewVerifier(nil))
}

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readRepoFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	return string(data)
}

func TestApplyReplacesSingleMatch(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(1)\n}\n")

	fix := &models.FixSuggestion{
		FilePath:     "main.go",
		OriginalCode: "println(1)",
		FixedCode:    "println(2)",
	}
	require.NoError(t, newApplier().Apply(context.Background(), root, fix))
	assert.Contains(t, readRepoFile(t, root, "main.go"), "println(2)")
}

func TestApplyRejectsZeroMatches(t *testing.T) {
	root := t.TempDir()
	const before = "package main\n\nfunc main() {}\n"
	writeRepoFile(t, root, "main.go", before)

	fix := &models.FixSuggestion{
		FilePath:     "main.go",
		OriginalCode: "does not appear",
		FixedCode:    "x",
	}
	err := newApplier().Apply(context.Background(), root, fix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Equal(t, before, readRepoFile(t, root, "main.go"))
}

func TestApplyRejectsAmbiguousMatches(t *testing.T) {
	root := t.TempDir()
	const before = "package main\n\nfunc a() { println(1) }\nfunc b() { println(1) }\n"
	writeRepoFile(t, root, "main.go", before)

	fix := &models.FixSuggestion{
		FilePath:     "main.go",
		OriginalCode: "println(1)",
		FixedCode:    "println(2)",
	}
	err := newApplier().Apply(context.Background(), root, fix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
	assert.Equal(t, before, readRepoFile(t, root, "main.go"))
}

func TestApplyFailedVerificationLeavesFileUnchanged(t *testing.T) {
	root := t.TempDir()
	const before = "package main\n\nfunc main() {\n\tprintln(1)\n}\n"
	writeRepoFile(t, root, "main.go", before)

	fix := &models.FixSuggestion{
		FilePath:     "main.go",
		OriginalCode: "println(1)",
		FixedCode:    "println(1) {{{",
	}
	err := newApplier().Apply(context.Background(), root, fix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification")
	assert.Equal(t, before, readRepoFile(t, root, "main.go"))

	// No stray temp files left behind.
	entries, readErr := os.ReadDir(root)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1)
}

func TestApplyRejectsEscapingPath(t *testing.T) {
	root := t.TempDir()
	fix := &models.FixSuggestion{
		FilePath:     "../outside.go",
		OriginalCode: "a",
		FixedCode:    "b",
	}
	err := newApplier().Apply(context.Background(), root, fix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestApplyRejectsOversizedFix(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(1)\n}\n")

	fix := &models.FixSuggestion{
		FilePath:     "main.go",
		OriginalCode: "println(1)",
		FixedCode:    strings.Repeat("// filler\n", MaxFixedLines+1),
	}
	err := newApplier().Apply(context.Background(), root, fix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line limit")
}

func TestApplyRejectsExcessiveGrowth(t *testing.T) {
	root := t.TempDir()
	const before = "package main\n\nfunc main() {\n\tprintln(1)\n}\n"
	writeRepoFile(t, root, "main.go", before)

	// One 10-char line replaced by 20 short lines: fewer bytes than a long
	// comment, but a 20x line blowup.
	fix := &models.FixSuggestion{
		FilePath:     "main.go",
		OriginalCode: "println(1)",
		FixedCode:    strings.TrimRight(strings.Repeat("_ = 0\n", 20), "\n"),
	}
	err := newApplier().Apply(context.Background(), root, fix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line count of the original")
	assert.Equal(t, before, readRepoFile(t, root, "main.go"))
}

func TestCheckFixSizeUsesLineRatio(t *testing.T) {
	// Byte count shrinks while line count explodes; only a line-based
	// ratio catches it.
	fix := &models.FixSuggestion{
		OriginalCode: strings.Repeat("a", 50),
		FixedCode:    strings.Repeat("x\n", 20),
	}
	err := checkFixSize(fix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line count")

	// Same line counts, more bytes: fine.
	fix = &models.FixSuggestion{
		OriginalCode: "if x {\n\treturn\n}",
		FixedCode:    "if x != nil && x.Ready() {\n\treturn\n}",
	}
	assert.NoError(t, checkFixSize(fix))
}

func TestApplyPreservesFileMode(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "run.py", "print(1)\n")
	target := filepath.Join(root, "run.py")
	require.NoError(t, os.Chmod(target, 0o755))

	fix := &models.FixSuggestion{
		FilePath:     "run.py",
		OriginalCode: "print(1)",
		FixedCode:    "print(2)",
	}
	if err := newApplier().Apply(context.Background(), root, fix); err != nil {
		t.Skipf("python3 unavailable: %v", err)
	}
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
