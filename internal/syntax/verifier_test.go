package syntax

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVerifyGo(t *testing.T) {
	dir := t.TempDir()
	v := NewVerifier(nil)

	good := writeFile(t, dir, "good.go", "package main\n\nfunc main() {}\n")
	assert.NoError(t, v.Verify(context.Background(), good))

	bad := writeFile(t, dir, "bad.go", "package main\n\nfunc main() {\n")
	assert.Error(t, v.Verify(context.Background(), bad))
}

func TestVerifyJSON(t *testing.T) {
	dir := t.TempDir()
	v := NewVerifier(nil)

	good := writeFile(t, dir, "good.json", `{"a": [1, 2, 3]}`)
	assert.NoError(t, v.Verify(context.Background(), good))

	bad := writeFile(t, dir, "bad.json", `{"a": [1, 2,}`)
	assert.Error(t, v.Verify(context.Background(), bad))
}

func TestVerifyUnknownExtensionAccepted(t *testing.T) {
	dir := t.TempDir()
	v := NewVerifier(nil)

	md := writeFile(t, dir, "notes.md", "anything [ { goes")
	assert.NoError(t, v.Verify(context.Background(), md))
}

type recordingChecker struct {
	called bool
}

func (r *recordingChecker) Check(context.Context, string) error {
	r.called = true
	return nil
}

func TestRegisterOverridesAndNormalizesCase(t *testing.T) {
	dir := t.TempDir()
	v := NewVerifier(nil)
	rc := &recordingChecker{}
	v.Register(".GO", rc)

	f := writeFile(t, dir, "x.go", "not go at all")
	assert.NoError(t, v.Verify(context.Background(), f))
	assert.True(t, rc.called)
}

func TestTSOutputClassification(t *testing.T) {
	assert.True(t, tsOutputHasSyntaxError("x.ts(3,1): error TS1005: ';' expected."))
	assert.False(t, tsOutputHasSyntaxError("x.ts(3,1): error TS2304: Cannot find name 'foo'."))
	assert.False(t, tsOutputHasSyntaxError(""))
}
