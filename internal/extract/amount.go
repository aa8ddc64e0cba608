package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Confidence assigned by the amount parser. Symbol-prefixed amounts are less
// likely to be incidental numbers than bare ones.
const (
	symbolAmountConfidence = 0.95
	wordAmountConfidence   = 0.90
	bareAmountConfidence   = 0.70
)

var (
	symbolAmountRe = regexp.MustCompile(`[$€£]\s*(\d[\d,]*(?:\.\d{1,4})?)`)
	wordAmountRe   = regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d{1,4})?)\s*(dollars|bucks|usd|eur|euros|gbp|pounds)\b`)
	bareAmountRe   = regexp.MustCompile(`\b(\d[\d,]*(?:\.\d{1,4})?)\b`)
)

// parsedAmount is the outcome of the currency-aware numeric parse.
type parsedAmount struct {
	value      string
	raw        string
	number     float64
	confidence float64
}

// parseAmount finds the first monetary amount in the utterance. Preference
// order: currency symbol, currency word, bare number.
func parseAmount(text string) (parsedAmount, bool) {
	if m := symbolAmountRe.FindStringSubmatch(text); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return parsedAmount{
				value:      formatNumber(n),
				raw:        strings.TrimSpace(m[0]),
				number:     n,
				confidence: symbolAmountConfidence,
			}, true
		}
	}

	if m := wordAmountRe.FindStringSubmatch(text); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return parsedAmount{
				value:      formatNumber(n),
				raw:        strings.TrimSpace(m[0]),
				number:     n,
				confidence: wordAmountConfidence,
			}, true
		}
	}

	if m := bareAmountRe.FindStringSubmatch(text); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return parsedAmount{
				value:      formatNumber(n),
				raw:        m[0],
				number:     n,
				confidence: bareAmountConfidence,
			}, true
		}
	}

	return parsedAmount{}, false
}

// currencySymbols maps symbols and words to ISO currency codes.
var currencySymbols = map[string]string{
	"$":       "USD",
	"dollars": "USD",
	"bucks":   "USD",
	"usd":     "USD",
	"€":       "EUR",
	"euros":   "EUR",
	"eur":     "EUR",
	"£":       "GBP",
	"pounds":  "GBP",
	"gbp":     "GBP",
}

// parseCurrency finds an explicit currency mention.
func parseCurrency(text string) (code, raw string, ok bool) {
	lowered := strings.ToLower(text)
	for token, c := range currencySymbols {
		if strings.Contains(lowered, token) {
			return c, token, true
		}
	}
	return "", "", false
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
