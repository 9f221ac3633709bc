package review

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joescharf/nightfix/internal/output"
)

// TestResult is the outcome of running a repository's own test suite after
// a fix is applied.
type TestResult struct {
	Ran    bool
	Passed bool
	Detail string
}

// runRepoTests detects and runs the repository's test command. A repo with
// no recognizable test setup returns Ran=false, which the caller treats as
// "nothing to verify". A timeout counts as a failure: a fix that hangs the
// suite is not shippable.
func runRepoTests(ctx context.Context, repoPath string, timeout time.Duration, ui *output.UI) TestResult {
	name, args := detectTestCommand(repoPath)
	if name == "" {
		ui.VerboseLog("no test command detected in %s", repoPath)
		return TestResult{}
	}

	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ui.VerboseLog("running %s %s in %s", name, strings.Join(args, " "), repoPath)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = repoPath
	out, err := cmd.CombinedOutput()
	if err == nil {
		return TestResult{Ran: true, Passed: true}
	}
	detail := tailLines(string(out), 20)
	if ctx.Err() == context.DeadlineExceeded {
		detail = "test run timed out"
	}
	return TestResult{Ran: true, Passed: false, Detail: detail}
}

// detectTestCommand picks a test invocation from the repo's build files.
func detectTestCommand(repoPath string) (string, []string) {
	if hasMakeTarget(repoPath, "test") {
		return "make", []string{"test"}
	}
	if fileExists(repoPath, "go.mod") {
		return "go", []string{"test", "./..."}
	}
	if fileExists(repoPath, "package.json") && packageJSONHasTest(repoPath) {
		return "npm", []string{"test", "--silent"}
	}
	if fileExists(repoPath, "pytest.ini") || fileExists(repoPath, "setup.py") || fileExists(repoPath, "pyproject.toml") {
		return "python3", []string{"-m", "pytest", "-x", "-q"}
	}
	return "", nil
}

func fileExists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func hasMakeTarget(dir, target string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, target+":") {
			return true
		}
	}
	return false
}

func packageJSONHasTest(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return false
	}
	// npm's default placeholder script exits non-zero; treat it as absent.
	s := string(data)
	return strings.Contains(s, `"test"`) && !strings.Contains(s, "no test specified")
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
