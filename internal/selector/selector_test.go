package selector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestSelectRanksEntryPointsFirst(t *testing.T) {
	root := t.TempDir()
	body := strings.Repeat("x = 1\n", 100)
	writeTree(t, root, map[string]string{
		"main.py":          body,
		"helpers.py":       body,
		"src/models.py":    body,
		"tests/test_it.py": body,
	})

	files, err := Select(root, Options{})
	require.NoError(t, err)
	got := paths(files)
	require.Len(t, got, 4)
	assert.Equal(t, "main.py", got[0])
	assert.Equal(t, "tests/test_it.py", got[len(got)-1])
}

func TestSelectSkipsNoiseDirsAndUnknownExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.py":                  "print(1)\n",
		"node_modules/dep/x.js":   "ignored",
		".git/hooks/sample.py":    "ignored",
		"__pycache__/app.pyc":     "ignored",
		"README.md":               "ignored",
		"assets/logo.svg":         "ignored",
	})

	files, err := Select(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, paths(files))
}

func TestSelectHonorsMaxFiles(t *testing.T) {
	root := t.TempDir()
	tree := make(map[string]string)
	for i := 0; i < 10; i++ {
		tree[string(rune('a'+i))+".py"] = "x = 1\n"
	}
	writeTree(t, root, tree)

	files, err := Select(root, Options{MaxFiles: 3})
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestSelectSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"small.py": "x = 1\n",
		"big.py":   strings.Repeat("y", 200),
	})

	files, err := Select(root, Options{MaxFileSize: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.py"}, paths(files))
}

func TestSelectEmptyRepo(t *testing.T) {
	files, err := Select(t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScore(t *testing.T) {
	// Entry points beat important modules beat plain files.
	assert.Greater(t, Score("main.py", 1000), Score("models.py", 1000))
	assert.Greater(t, Score("models.py", 1000), Score("util.py", 1000))

	// Source roots help, low-priority dirs and depth hurt.
	assert.Greater(t, Score("src/core.py", 1000), Score("scripts/core.py", 1000))
	assert.Greater(t, Score("app.py", 1000), Score("a/b/c/app.py", 1000))

	// Test files sink.
	assert.Less(t, Score("test_app.py", 1000), Score("app.py", 1000))
	assert.Less(t, Score("widget.spec.ts", 1000), Score("widget.ts", 1000))

	// Mid-sized files get a boost over tiny ones.
	assert.Greater(t, Score("x.py", 1000), Score("x.py", 10))
}

func TestFormatForPrompt(t *testing.T) {
	files := []File{
		{Path: "a.py", Content: "print('a')\n"},
		{Path: "b.py", Content: "print('b')\n"},
	}
	out := FormatForPrompt(files, DefaultMaxPromptChars)
	assert.Contains(t, out, "--- a.py ---")
	assert.Contains(t, out, "--- b.py ---")
	assert.Contains(t, out, "print('a')")
}

func TestFormatForPromptTruncates(t *testing.T) {
	files := []File{
		{Path: "big.py", Content: strings.Repeat("x", 5000)},
		{Path: "late.py", Content: "never included"},
	}
	out := FormatForPrompt(files, 2000)
	assert.LessOrEqual(t, len(out), 2000)
	assert.Contains(t, out, "[truncated]")
	assert.NotContains(t, out, "never included")
}
