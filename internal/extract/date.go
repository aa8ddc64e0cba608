package extract

import (
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	weekdayRe     = regexp.MustCompile(`(?i)\b(?:on|next)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	relativeWords = map[string]int{
		"today":    0,
		"tomorrow": 1,
	}
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// parseDate recognizes ISO dates, today/tomorrow, and "on <weekday>" phrases.
// The returned value is always an ISO date relative to now.
func parseDate(text string, now time.Time) (value, raw string, ok bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if _, err := time.Parse(dateLayout, m[1]); err == nil {
			return m[1], m[1], true
		}
	}

	lowered := strings.ToLower(text)
	for word, offset := range relativeWords {
		if strings.Contains(lowered, word) {
			return now.AddDate(0, 0, offset).Format(dateLayout), word, true
		}
	}

	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		target := weekdays[strings.ToLower(m[1])]
		days := (int(target) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days).Format(dateLayout), m[0], true
	}

	return "", "", false
}
