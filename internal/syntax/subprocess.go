package syntax

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/joescharf/nightfix/internal/output"
)

// pythonChecker shells out to py_compile. A missing interpreter rejects the
// file: Python is common enough that its absence is a setup problem, and an
// unverifiable .py change is not safe to ship.
type pythonChecker struct {
	timeout time.Duration
	ui      *output.UI
}

func (c *pythonChecker) Check(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "python3", "-m", "py_compile", path)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		c.ui.Warning("python syntax check timed out for %s, accepting", path)
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("python3 not available, cannot verify %s", path)
	}
	return fmt.Errorf("python syntax error: %s", firstLine(out))
}

// nodeChecker shells out to node --check. Like Python, a missing runtime
// rejects the file.
type nodeChecker struct {
	timeout time.Duration
	ui      *output.UI
}

func (c *nodeChecker) Check(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "node", "--check", path)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		c.ui.Warning("node syntax check timed out for %s, accepting", path)
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("node not available, cannot verify %s", path)
	}
	return fmt.Errorf("javascript syntax error: %s", firstLine(out))
}

// typescriptChecker runs tsc in a syntax-only configuration. tsc is slow and
// often absent, so unlike the other subprocess checkers it fails open: only a
// clean tsc run that reports a parse-level diagnostic (code TS1xxx) rejects
// the file. Type errors are expected with --noResolve and do not count.
type typescriptChecker struct {
	timeout time.Duration
	ui      *output.UI
}

func (c *typescriptChecker) Check(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "npx", "--yes", "typescript", "tsc",
		"--noEmit", "--allowJs", "--esModuleInterop",
		"--jsx", "react-jsx", "--isolatedModules", "--noResolve",
		"--moduleResolution", "bundler", path)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		c.ui.Warning("tsc timed out for %s, accepting", path)
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		c.ui.Warning("npx not available, accepting %s unverified", path)
		return nil
	}
	if tsOutputHasSyntaxError(string(out)) {
		return fmt.Errorf("typescript syntax error: %s", firstLine(out))
	}
	return nil
}

// tsOutputHasSyntaxError reports whether tsc output contains a parse-level
// diagnostic. Syntax diagnostics use codes TS1000-TS1999; everything else is
// a type error the syntax-only run cannot judge.
func tsOutputHasSyntaxError(out string) bool {
	return strings.Contains(out, "error TS1")
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
