package git

import "strings"

const maxBranchLen = 50

// SanitizeBranchName converts arbitrary text into a safe git branch
// component: lowercase, alphanumerics and hyphens only, capped in length.
func SanitizeBranchName(s string) string {
	var sb strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(sb.String(), "-")
	if len(out) > maxBranchLen {
		out = strings.Trim(out[:maxBranchLen], "-")
	}
	if out == "" {
		out = "fix"
	}
	return out
}
