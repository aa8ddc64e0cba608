package extract

import (
	"regexp"
	"strings"
)

// recipientRe captures a proper-noun name after a directional word.
var recipientRe = regexp.MustCompile(`(?:\bto|\bpay|\bsend)\s+((?:[A-Z][a-zA-Z'.-]+)(?:\s+[A-Z][a-zA-Z'.-]+)*)`)

// accountWords are tokens that look like names in "to My Savings" but are
// account references, not people.
var accountWords = map[string]bool{
	"checking": true,
	"savings":  true,
	"credit":   true,
	"account":  true,
	"my":       true,
}

// parseRecipientName extracts a candidate recipient name from the utterance.
func parseRecipientName(text string) (string, bool) {
	m := recipientRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	name := strings.TrimSpace(m[1])
	words := strings.Fields(strings.ToLower(name))
	for _, w := range words {
		if accountWords[w] {
			return "", false
		}
	}

	return name, name != ""
}

var memoRe = regexp.MustCompile(`\bfor\s+([a-z][a-z0-9 ]{2,40})$`)

// parseMemo captures a trailing lowercase "for ..." clause as a memo.
func parseMemo(text string) (string, bool) {
	m := memoRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	memo := strings.TrimSpace(m[1])
	if accountWords[memo] {
		return "", false
	}
	return memo, true
}
