package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Confidence is the model's self-reported certainty for a fix.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FixSuggestion is a single proposed code change for one repository.
// Instances are built once by the response validator and never mutated.
type FixSuggestion struct {
	FilePath       string     `json:"file_path"`
	BugDescription string     `json:"bug_description"`
	FixDescription string     `json:"fix_description"`
	OriginalCode   string     `json:"original_code"`
	FixedCode      string     `json:"fixed_code"`
	PRTitle        string     `json:"pr_title"`
	PRBody         string     `json:"pr_body"`
	Confidence     Confidence `json:"confidence"`
	RelatedIssue   int        `json:"related_issue,omitempty"` // 0 = none
}

// IsHighConfidence reports whether the fix may be applied at all.
func (f *FixSuggestion) IsHighConfidence() bool {
	return Confidence(strings.ToLower(string(f.Confidence))) == ConfidenceHigh
}

// Hash returns a stable content hash used to suppress resuggesting a
// previously rejected fix.
func (f *FixSuggestion) Hash() string {
	sum := sha256.Sum256([]byte(f.OriginalCode + "\n---\n" + f.FixedCode))
	return hex.EncodeToString(sum[:])
}

// AnalysisResult is the outcome of analyzing one repository in one run.
// A "no fix found" outcome is still a success; only Error != "" is a failure.
type AnalysisResult struct {
	RepoName       string
	FoundFix       bool
	Fix            *FixSuggestion
	Error          string
	FilesAnalyzed  int
	IssuesReviewed int
	AnalysisTime   time.Duration
	TokensUsed     int
}

// Success reports whether the analysis itself completed without error.
func (r *AnalysisResult) Success() bool {
	return r.Error == ""
}
