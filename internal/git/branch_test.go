package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeBranchName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fix null pointer in parser", "fix-null-pointer-in-parser"},
		{"fix: handle EOF!!", "fix-handle-eof"},
		{"---weird---", "weird"},
		{"", "fix"},
		{"///", "fix"},
		{"CamelCase Words_and_underscores", "camelcase-words-and-underscores"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeBranchName(tt.in), "input %q", tt.in)
	}
}

func TestSanitizeBranchNameCapsLength(t *testing.T) {
	long := "fix the extremely long description of a bug that keeps going and going"
	got := SanitizeBranchName(long)
	assert.LessOrEqual(t, len(got), maxBranchLen)
	assert.NotEqual(t, "-", got[len(got)-1:])
}

func TestRepoPath(t *testing.T) {
	m := NewRepoManager("/tmp/clones", "u", "e", nil, nil)
	assert.Equal(t, "/tmp/clones/owner_repo", m.RepoPath("owner/repo"))
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "https://github.com/o/r/pull/42",
		lastLine("Creating pull request\nhttps://github.com/o/r/pull/42\n"))
}
