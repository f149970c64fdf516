package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// digit group (with separators or "NNk" shorthand) immediately before a
// mile/mileage word
var mileageRegex = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?k|\d+)[\s-]*(?:miles?|mileage)`)

// fact-table form, "Mileage: 96,400"
var mileageLabelRegex = regexp.MustCompile(`(?i)mileage:?\s+(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?k|\d+)`)

// context words that make a surrounding mileage mention trustworthy,
// in priority order
var mileageContexts = []string{
	"indicated",
	"documented",
	"odometer",
	"original",
	"current",
	"chassis",
}

// ExtractMileage pulls the first mileage figure out of a piece of text.
func ExtractMileage(text string) (int64, bool) {
	groups := mileageRegex.FindStringSubmatch(text)
	if groups == nil {
		groups = mileageLabelRegex.FindStringSubmatch(text)
	}
	if groups == nil {
		return 0, false
	}
	return parseMileageNumber(groups[1])
}

// ExtractMileageDoc searches the essentials section first, then falls back
// to a whole-document scan where matches near a known context keyword win
// over bare ones; unrelated numbers ("450 hp", lot numbers) are the main
// false-positive hazard.
func ExtractMileageDoc(essentials, document string) (int64, bool) {
	if miles, ok := ExtractMileage(essentials); ok {
		return miles, true
	}

	matches := mileageRegex.FindAllStringSubmatchIndex(document, -1)
	if matches == nil {
		return 0, false
	}
	lower := strings.ToLower(document)

	// keywords precede the figure they qualify ("odometer shows 61,500
	// miles"), so only the leading context counts
	for _, context := range mileageContexts {
		for _, m := range matches {
			start := m[0] - 50
			if start < 0 {
				start = 0
			}
			if strings.Contains(lower[start:m[0]], context) {
				return parseMileageNumber(document[m[2]:m[3]])
			}
		}
	}

	return parseMileageNumber(document[matches[0][2]:matches[0][3]])
}

func parseMileageNumber(raw string) (int64, bool) {
	raw = strings.ReplaceAll(raw, ",", "")
	if k := strings.ToLower(raw); strings.HasSuffix(k, "k") {
		base, err := strconv.ParseFloat(strings.TrimSuffix(k, "k"), 64)
		if err != nil {
			return 0, false
		}
		return int64(base * 1000), true
	}
	miles, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return miles, true
}
