package git

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/nightfix/internal/models"
	"github.com/joescharf/nightfix/internal/ratelimit"
)

// GitHubClient is the gh-backed surface the review pipeline needs.
type GitHubClient interface {
	CreatePR(ctx context.Context, repoName, branch, title, body string) (number int, url string, err error)
	HasOpenPRWithPrefix(ctx context.Context, repoName, prefix string) (bool, error)
	OpenIssues(ctx context.Context, repoName string, limit int) ([]models.Issue, error)
}

// RealGitHubClient talks to GitHub through the gh CLI, which carries its own
// authentication. It also implements ratelimit.QuotaChecker.
type RealGitHubClient struct {
	limiter *ratelimit.Limiter
}

// NewGitHubClient creates a RealGitHubClient. limiter may be nil.
func NewGitHubClient(limiter *ratelimit.Limiter) *RealGitHubClient {
	return &RealGitHubClient{limiter: limiter}
}

func gh(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "gh", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// CreatePR opens a pull request from branch against the default branch and
// returns its number and URL.
func (c *RealGitHubClient) CreatePR(ctx context.Context, repoName, branch, title, body string) (int, string, error) {
	if err := c.throttle(ctx); err != nil {
		return 0, "", err
	}
	url, err := gh(ctx, "pr", "create",
		"--repo", repoName,
		"--head", branch,
		"--title", title,
		"--body", body)
	if err != nil {
		return 0, "", err
	}
	// gh prints the PR URL; the number is its last path segment.
	url = lastLine(url)
	number := 0
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		number, _ = strconv.Atoi(url[i+1:])
	}
	return number, url, nil
}

// HasOpenPRWithPrefix reports whether the repo already has an open PR from a
// branch with the given prefix.
func (c *RealGitHubClient) HasOpenPRWithPrefix(ctx context.Context, repoName, prefix string) (bool, error) {
	if err := c.throttle(ctx); err != nil {
		return false, err
	}
	out, err := gh(ctx, "pr", "list",
		"--repo", repoName,
		"--state", "open",
		"--json", "headRefName")
	if err != nil {
		return false, err
	}
	var prs []struct {
		HeadRefName string `json:"headRefName"`
	}
	if err := json.Unmarshal([]byte(out), &prs); err != nil {
		return false, fmt.Errorf("parse gh pr list output: %w", err)
	}
	for _, pr := range prs {
		if strings.HasPrefix(pr.HeadRefName, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// OpenIssues returns up to limit open issues for the repo.
func (c *RealGitHubClient) OpenIssues(ctx context.Context, repoName string, limit int) ([]models.Issue, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	out, err := gh(ctx, "issue", "list",
		"--repo", repoName,
		"--state", "open",
		"--limit", strconv.Itoa(limit),
		"--json", "number,title,body,labels,url")
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse gh issue list output: %w", err)
	}
	issues := make([]models.Issue, 0, len(raw))
	for _, r := range raw {
		issue := models.Issue{
			Number: r.Number,
			Title:  r.Title,
			Body:   r.Body,
			URL:    r.URL,
		}
		for _, l := range r.Labels {
			issue.Labels = append(issue.Labels, l.Name)
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// Quota implements ratelimit.QuotaChecker from gh api rate_limit.
func (c *RealGitHubClient) Quota(ctx context.Context) (ratelimit.Quota, error) {
	out, err := gh(ctx, "api", "rate_limit", "--jq", ".resources.core")
	if err != nil {
		return ratelimit.Quota{}, err
	}
	var core struct {
		Remaining int   `json:"remaining"`
		Reset     int64 `json:"reset"`
	}
	if err := json.Unmarshal([]byte(out), &core); err != nil {
		return ratelimit.Quota{}, fmt.Errorf("parse rate_limit output: %w", err)
	}
	return ratelimit.Quota{
		Remaining: core.Remaining,
		Reset:     time.Unix(core.Reset, 0),
	}, nil
}

func (c *RealGitHubClient) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Throttle(ctx)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
