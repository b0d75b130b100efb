package detail

import (
	"regexp"
	"strconv"
	"strings"
)

// amountRe matches a currency amount with comma-grouped thousands or a
// plain ungrouped digit run. The site occasionally renders a price with a
// stray extra decimal point; the repair happens in NormalizePrice, so the
// raw match is permissive about repeated decimal segments.
var amountRe = regexp.MustCompile(`\$?\s*\d{1,3}(?:,\d{3})+(?:\.\d+)*|\$?\s*\d+(?:\.\d+)*`)

// FindLabeledPrice scans text for any recognized price label followed by a
// currency amount and returns the raw amount text of the first hit.
func FindLabeledPrice(text string, labels []string) (string, bool) {
	for _, label := range labels {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:?\s*(\$\s*[\d][\d,.]*)`)
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// FindAmountNearMSRP is the backup raw scan: any currency amount in text
// that also mentions MSRP.
func FindAmountNearMSRP(text string) (string, bool) {
	if !strings.Contains(strings.ToUpper(text), "MSRP") {
		return "", false
	}
	if m := amountRe.FindString(text); m != "" && strings.ContainsAny(m, "0123456789") {
		return strings.TrimSpace(m), true
	}
	return "", false
}

// NormalizePrice reduces a raw price string to a plain decimal. Thousands
// separators are stripped; a string left with more than one decimal point
// (an observed site rendering defect) is repaired by keeping only the last
// one before conversion.
func NormalizePrice(raw string) (string, bool) {
	var b strings.Builder
	for _, ch := range raw {
		if (ch >= '0' && ch <= '9') || ch == '.' {
			b.WriteRune(ch)
		}
	}
	digits := b.String()
	if digits == "" || digits == "." {
		return "", false
	}

	if n := strings.Count(digits, "."); n > 1 {
		digits = strings.Replace(digits, ".", "", n-1)
	}

	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', 2, 64), true
}
