// Package analyze turns a checked-out repository into at most one validated
// fix suggestion per run: it selects files, prompts the model, and validates
// the raw response into a FixSuggestion or nothing.
package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/joescharf/nightfix/internal/llm"
	"github.com/joescharf/nightfix/internal/models"
	"github.com/joescharf/nightfix/internal/output"
	"github.com/joescharf/nightfix/internal/selector"
)

const (
	llmMaxAttempts  = 2
	llmRetryDelay   = 2 * time.Second
	llmRetryBackoff = 2
)

// Analyzer analyzes one repository for bugs using an LLM.
type Analyzer struct {
	llm llm.Client
	ui  *output.UI
}

// New creates an Analyzer. ui may be nil.
func New(client llm.Client, ui *output.UI) *Analyzer {
	if ui == nil {
		ui = output.New()
	}
	return &Analyzer{llm: client, ui: ui}
}

// Analyze selects the repository's most valuable files, asks the model for
// one fix, and validates the response. The returned result always carries
// the repo name; Error is set only for analysis failures, never for a clean
// "no bug found".
func (a *Analyzer) Analyze(ctx context.Context, repoPath, repoName string, issues []models.Issue) models.AnalysisResult {
	start := time.Now()

	files, err := selector.Select(repoPath, selector.Options{})
	if err != nil {
		return models.AnalysisResult{
			RepoName:     repoName,
			Error:        fmt.Sprintf("select files: %v", err),
			AnalysisTime: time.Since(start),
		}
	}
	if len(files) == 0 {
		a.ui.Warning("no code files found in %s", repoName)
		return models.AnalysisResult{
			RepoName:     repoName,
			Error:        "No code files found",
			AnalysisTime: time.Since(start),
		}
	}

	prompt := buildPrompt(
		repoName,
		formatIssues(issues),
		selector.FormatForPrompt(files, selector.DefaultMaxPromptChars),
	)

	a.ui.VerboseLog("sending %d files from %s to the model", len(files), repoName)
	resp, err := a.generateWithRetry(ctx, prompt)
	if err != nil {
		return models.AnalysisResult{
			RepoName:       repoName,
			Error:          err.Error(),
			FilesAnalyzed:  len(files),
			IssuesReviewed: len(issues),
			AnalysisTime:   time.Since(start),
		}
	}

	parsed := ParseFixResponse(resp.Content)
	result := models.AnalysisResult{
		RepoName:       repoName,
		FilesAnalyzed:  len(files),
		IssuesReviewed: len(issues),
		AnalysisTime:   time.Since(start),
		TokensUsed:     resp.TokensUsed,
	}
	switch parsed.Verdict {
	case VerdictValidFix:
		result.FoundFix = true
		result.Fix = parsed.Fix
	case VerdictNoBug:
		a.ui.VerboseLog("model found no bugs in %s", repoName)
	case VerdictRejected:
		a.ui.Warning("discarding model response for %s: %s", repoName, parsed.Reason)
	}
	return result
}

// generateWithRetry calls the model, retrying empty responses and transient
// errors with exponential backoff.
func (a *Analyzer) generateWithRetry(ctx context.Context, prompt string) (llm.Response, error) {
	delay := llmRetryDelay
	var lastErr error
	for attempt := 1; attempt <= llmMaxAttempts; attempt++ {
		resp, err := a.llm.Generate(ctx, prompt, systemPrompt)
		if err == nil && resp.Success() {
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("model returned empty response")
		}
		if attempt < llmMaxAttempts {
			a.ui.Warning("model call failed (attempt %d/%d): %v", attempt, llmMaxAttempts, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return llm.Response{}, ctx.Err()
			}
			delay *= llmRetryBackoff
		}
	}
	return llm.Response{}, fmt.Errorf("model call failed after %d attempts: %w", llmMaxAttempts, lastErr)
}
