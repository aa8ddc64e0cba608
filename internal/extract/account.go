package extract

import (
	"regexp"
	"strings"
)

var (
	fromAccountRe = regexp.MustCompile(`(?i)\bfrom\s+(?:my\s+)?(checking|savings|credit)\b`)
	toAccountRe   = regexp.MustCompile(`(?i)\b(?:to|into|in)\s+(?:my\s+)?(checking|savings|credit)\b`)
	bareAccountRe = regexp.MustCompile(`(?i)\b(?:my\s+)?(checking|savings)(?:\s+account)?\b`)
)

// parsedAccounts holds account references recognized in the utterance.
type parsedAccounts struct {
	source string // "from ..." reference
	target string // "to/into ..." reference
}

// parseAccounts recognizes account-type references and their direction.
func parseAccounts(text string) parsedAccounts {
	var out parsedAccounts

	if m := fromAccountRe.FindStringSubmatch(text); m != nil {
		out.source = normalizeAccountWord(m[1])
	}
	if m := toAccountRe.FindStringSubmatch(text); m != nil {
		out.target = normalizeAccountWord(m[1])
	}
	if out.source == "" && out.target == "" {
		if m := bareAccountRe.FindStringSubmatch(text); m != nil {
			out.target = normalizeAccountWord(m[1])
		}
	}

	return out
}

func normalizeAccountWord(w string) string {
	return strings.ToLower(w)
}
