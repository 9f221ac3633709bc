package analyze

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/joescharf/nightfix/internal/models"
)

// MaxResponseSize caps how much raw model output the parser will look at.
const MaxResponseSize = 500_000

// Verdict tags the outcome of parsing a model response.
type Verdict int

const (
	// VerdictNoBug means the model reported no bug; this is not an error.
	VerdictNoBug Verdict = iota
	// VerdictValidFix means a high-confidence, fully validated fix.
	VerdictValidFix
	// VerdictRejected means the response was malformed, unsafe, incomplete,
	// or below the confidence bar.
	VerdictRejected
)

// Parsed is the validated outcome of one raw model response. Fix is non-nil
// only when Verdict is VerdictValidFix; Reason is set only for
// VerdictRejected.
type Parsed struct {
	Verdict Verdict
	Fix     *models.FixSuggestion
	Reason  string
}

func rejected(format string, a ...any) Parsed {
	return Parsed{Verdict: VerdictRejected, Reason: fmt.Sprintf(format, a...)}
}

// requiredFields must all be non-empty for a fix to be accepted.
var requiredFields = []string{
	"file_path", "bug_description", "fix_description",
	"original_code", "fixed_code", "pr_title", "pr_body",
}

// ParseFixResponse turns raw model output into a validated fix, a "no bug"
// verdict, or a rejection. Only high-confidence fixes with every field
// populated and a safe file path survive.
func ParseFixResponse(raw string) Parsed {
	if len(raw) > MaxResponseSize {
		raw = raw[:MaxResponseSize]
	}

	jsonStr, ok := extractJSON(raw)
	if !ok {
		return rejected("no JSON object in response")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		// Models often emit literal newlines inside JSON strings; repair
		// and retry exactly once.
		repaired := repairStringNewlines(jsonStr)
		if err := json.Unmarshal([]byte(repaired), &data); err != nil {
			return rejected("response is not valid JSON: %v", err)
		}
	}

	foundBug, ok := asBool(data["found_bug"])
	if !ok {
		return rejected("found_bug missing or not a boolean")
	}
	if !foundBug {
		return Parsed{Verdict: VerdictNoBug}
	}

	fields := make(map[string]string, len(requiredFields))
	for _, name := range requiredFields {
		fields[name] = asString(data[name])
	}

	if reason := checkFilePath(fields["file_path"]); reason != "" {
		return rejected("%s", reason)
	}

	for _, name := range requiredFields {
		if fields[name] == "" {
			return rejected("missing required field %q", name)
		}
	}

	confidence := strings.ToLower(asString(data["confidence"]))
	if confidence != string(models.ConfidenceHigh) {
		return rejected("confidence %q is below the bar", confidence)
	}

	return Parsed{
		Verdict: VerdictValidFix,
		Fix: &models.FixSuggestion{
			FilePath:       fields["file_path"],
			BugDescription: fields["bug_description"],
			FixDescription: fields["fix_description"],
			OriginalCode:   fields["original_code"],
			FixedCode:      fields["fixed_code"],
			PRTitle:        fields["pr_title"],
			PRBody:         fields["pr_body"],
			Confidence:     models.ConfidenceHigh,
			RelatedIssue:   asPositiveInt(data["related_issue"]),
		},
	}
}

// checkFilePath rejects paths that could escape the repository root. Both
// separator conventions are checked independently so mixed separators like
// `src/..\x` are caught too.
func checkFilePath(p string) string {
	if p == "" {
		return "" // caught by the required-field check with a clearer message
	}
	if strings.ContainsRune(p, 0) {
		return "file_path contains a null byte"
	}
	if strings.HasPrefix(p, "/") {
		return "file_path is absolute"
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "file_path contains a parent-directory segment"
		}
	}
	for _, seg := range strings.Split(p, `\`) {
		if seg == ".." {
			return "file_path contains a parent-directory segment"
		}
	}
	return ""
}

// extractJSON finds the first top-level JSON object using string-aware brace
// matching. Braces, code fences, and escapes inside string values are
// ignored, so a pr_body containing literal ``` blocks does not break
// extraction.
func extractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch ch {
			case '\\':
				i++ // skip the escaped character
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// repairStringNewlines escapes literal newline, carriage-return, and tab
// characters that appear inside double-quoted strings. A quote toggles
// string state only when preceded by an even number of backslashes. The
// transformation is idempotent.
func repairStringNewlines(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	inString := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch == '"' && !escaped(text, i) {
			inString = !inString
			sb.WriteByte(ch)
			continue
		}
		if inString {
			switch ch {
			case '\n':
				sb.WriteString(`\n`)
				continue
			case '\r':
				sb.WriteString(`\r`)
				continue
			case '\t':
				sb.WriteString(`\t`)
				continue
			}
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// escaped reports whether the character at i is preceded by an odd number of
// backslashes.
func escaped(text string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// asString coerces a decoded JSON value to a string, tolerating the scalar
// types models actually produce.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// asBool tolerates the model quoting its booleans.
func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// asPositiveInt coerces related_issue values arriving as numbers, numeric
// strings, or booleans; anything non-positive or unparseable becomes 0.
func asPositiveInt(v any) int {
	switch t := v.(type) {
	case float64:
		n := int(t)
		if n > 0 {
			return n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n > 0 {
			return n
		}
	case bool:
		if t {
			return 1
		}
	}
	return 0
}
