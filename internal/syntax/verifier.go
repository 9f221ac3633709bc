// Package syntax verifies that a patched file still parses, dispatching to a
// per-language checker keyed on file extension. Each checker owns its own
// timeout and its own policy for missing tooling; a missing checker for an
// extension means no verification claim is made and the file is accepted.
package syntax

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/joescharf/nightfix/internal/output"
)

// Checker validates a single file for one language. A nil return means the
// file is syntactically acceptable.
type Checker interface {
	Check(ctx context.Context, path string) error
}

// Verifier dispatches files to language checkers by extension.
type Verifier struct {
	checkers map[string]Checker
	ui       *output.UI
}

// NewVerifier builds a Verifier with the default language table. ui may be
// nil.
func NewVerifier(ui *output.UI) *Verifier {
	if ui == nil {
		ui = output.New()
	}
	v := &Verifier{
		checkers: make(map[string]Checker),
		ui:       ui,
	}

	v.Register(".go", goChecker{})
	v.Register(".json", jsonChecker{})
	v.Register(".py", &pythonChecker{timeout: 10 * time.Second, ui: ui})
	node := &nodeChecker{timeout: 2 * time.Second, ui: ui}
	for _, ext := range []string{".js", ".jsx", ".mjs", ".cjs"} {
		v.Register(ext, node)
	}
	ts := &typescriptChecker{timeout: 30 * time.Second, ui: ui}
	v.Register(".ts", ts)
	v.Register(".tsx", ts)

	return v
}

// Register installs (or replaces) the checker for an extension.
func (v *Verifier) Register(ext string, c Checker) {
	v.checkers[strings.ToLower(ext)] = c
}

// Verify checks the file at path. Extensions without a configured checker
// are treated as valid by default.
func (v *Verifier) Verify(ctx context.Context, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	checker, ok := v.checkers[ext]
	if !ok {
		return nil
	}
	return checker.Check(ctx, path)
}
