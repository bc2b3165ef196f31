package evaluation

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ExtractScore pulls the numeric score for a label out of free-form grader
// text. The grader is instructed to emit clean "LABEL: n" lines but in
// practice wraps them in markdown emphasis, trailing commentary, or drops
// them entirely, so the scan is deliberately forgiving: find a line
// containing the label, strip emphasis markers, take everything after the
// label, trim a leading colon, and grab the first integer-or-decimal token.
// No label or no number yields 0.
func ExtractScore(text, label string) float64 {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, label) {
			continue
		}
		// Strip bold/italic markers; underscores stay so the label itself
		// survives.
		clean := strings.ReplaceAll(line, "**", "")
		clean = strings.ReplaceAll(clean, "*", "")

		parts := strings.SplitN(clean, label, 2)
		if len(parts) < 2 {
			continue
		}
		rest := strings.TrimSpace(parts[1])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))

		if token := numberPattern.FindString(rest); token != "" {
			score, err := strconv.ParseFloat(token, 64)
			if err == nil {
				return score
			}
		}
	}
	return 0
}
