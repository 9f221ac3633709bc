package analyze

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/nightfix/internal/models"
)

const validResponse = `{
	"found_bug": true,
	"file_path": "src/app.py",
	"bug_description": "off-by-one in pagination",
	"fix_description": "use len(items) - 1",
	"original_code": "last = items[len(items)]",
	"fixed_code": "last = items[len(items) - 1]",
	"pr_title": "Fix off-by-one in pagination",
	"pr_body": "The last page indexed past the end.",
	"confidence": "high",
	"related_issue": 12
}`

func TestParseValidFix(t *testing.T) {
	parsed := ParseFixResponse(validResponse)
	require.Equal(t, VerdictValidFix, parsed.Verdict)
	require.NotNil(t, parsed.Fix)
	assert.Equal(t, "src/app.py", parsed.Fix.FilePath)
	assert.Equal(t, models.ConfidenceHigh, parsed.Fix.Confidence)
	assert.Equal(t, 12, parsed.Fix.RelatedIssue)
}

func TestParseFencedResponse(t *testing.T) {
	raw := "Here is my analysis:\n```json\n" + validResponse + "\n```\nHope that helps!"
	parsed := ParseFixResponse(raw)
	assert.Equal(t, VerdictValidFix, parsed.Verdict)
}

func TestParseNoBug(t *testing.T) {
	parsed := ParseFixResponse(`{"found_bug": false}`)
	assert.Equal(t, VerdictNoBug, parsed.Verdict)
	assert.Nil(t, parsed.Fix)
}

func TestParseQuotedBoolean(t *testing.T) {
	parsed := ParseFixResponse(`{"found_bug": "false"}`)
	assert.Equal(t, VerdictNoBug, parsed.Verdict)
}

func TestParseNoJSON(t *testing.T) {
	parsed := ParseFixResponse("I could not find any bugs worth fixing.")
	assert.Equal(t, VerdictRejected, parsed.Verdict)
	assert.Contains(t, parsed.Reason, "no JSON")
}

func TestParseBracesInsideStrings(t *testing.T) {
	raw := `{"found_bug": false, "note": "code like } or { does not confuse extraction"}`
	parsed := ParseFixResponse("prefix " + raw + " suffix")
	assert.Equal(t, VerdictNoBug, parsed.Verdict)
}

func TestParseRepairsLiteralNewlines(t *testing.T) {
	raw := strings.Replace(validResponse,
		`"last = items[len(items)]"`,
		"\"last = items[len(items)]\nextra\"", 1)
	parsed := ParseFixResponse(raw)
	require.Equal(t, VerdictValidFix, parsed.Verdict)
	assert.Contains(t, parsed.Fix.OriginalCode, "\nextra")
}

func TestRepairStringNewlinesIdempotent(t *testing.T) {
	in := "{\"a\": \"line1\nline2\"}"
	once := repairStringNewlines(in)
	assert.Equal(t, once, repairStringNewlines(once))
	assert.Contains(t, once, `line1\nline2`)
}

func TestRepairRespectsEscapedQuotes(t *testing.T) {
	in := "{\"a\": \"he said \\\"hi\\\"\nbye\"}"
	out := repairStringNewlines(in)
	assert.Contains(t, out, `\n`)
	assert.NotContains(t, out, "\n")
}

func TestParseRejectsLowConfidence(t *testing.T) {
	raw := strings.Replace(validResponse, `"high"`, `"medium"`, 1)
	parsed := ParseFixResponse(raw)
	assert.Equal(t, VerdictRejected, parsed.Verdict)
	assert.Contains(t, parsed.Reason, "confidence")
}

func TestParseRejectsMissingFields(t *testing.T) {
	raw := strings.Replace(validResponse, `"Fix off-by-one in pagination"`, `""`, 1)
	parsed := ParseFixResponse(raw)
	assert.Equal(t, VerdictRejected, parsed.Verdict)
	assert.Contains(t, parsed.Reason, "pr_title")
}

func TestParseRejectsUnsafePaths(t *testing.T) {
	for _, path := range []string{
		"../../etc/passwd",
		"/etc/passwd",
		`src/..\x`,
		"a/../b.py",
		"bad\x00path.py",
	} {
		raw := strings.Replace(validResponse, `"src/app.py"`, `"`+strings.ReplaceAll(path, `\`, `\\`)+`"`, 1)
		parsed := ParseFixResponse(raw)
		assert.Equal(t, VerdictRejected, parsed.Verdict, "path %q", path)
	}
}

func TestParseCoercions(t *testing.T) {
	raw := strings.Replace(validResponse, `"related_issue": 12`, `"related_issue": "34"`, 1)
	parsed := ParseFixResponse(raw)
	require.Equal(t, VerdictValidFix, parsed.Verdict)
	assert.Equal(t, 34, parsed.Fix.RelatedIssue)

	raw = strings.Replace(validResponse, `"related_issue": 12`, `"related_issue": null`, 1)
	parsed = ParseFixResponse(raw)
	require.Equal(t, VerdictValidFix, parsed.Verdict)
	assert.Equal(t, 0, parsed.Fix.RelatedIssue)

	raw = strings.Replace(validResponse, `"related_issue": 12`, `"related_issue": -2`, 1)
	parsed = ParseFixResponse(raw)
	require.Equal(t, VerdictValidFix, parsed.Verdict)
	assert.Equal(t, 0, parsed.Fix.RelatedIssue)

	raw = strings.Replace(validResponse, `"related_issue": 12`, `"related_issue": true`, 1)
	parsed = ParseFixResponse(raw)
	require.Equal(t, VerdictValidFix, parsed.Verdict)
	assert.Equal(t, 1, parsed.Fix.RelatedIssue)

	raw = strings.Replace(validResponse, `"related_issue": 12`, `"related_issue": false`, 1)
	parsed = ParseFixResponse(raw)
	require.Equal(t, VerdictValidFix, parsed.Verdict)
	assert.Equal(t, 0, parsed.Fix.RelatedIssue)
}

func TestParseUnterminatedJSON(t *testing.T) {
	parsed := ParseFixResponse(`{"found_bug": true, "file_path": "a.py"`)
	assert.Equal(t, VerdictRejected, parsed.Verdict)
}

func TestParseOversizedResponseTruncated(t *testing.T) {
	raw := validResponse + strings.Repeat(" ", MaxResponseSize)
	parsed := ParseFixResponse(raw)
	assert.Equal(t, VerdictValidFix, parsed.Verdict)
}
