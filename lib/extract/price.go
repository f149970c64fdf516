package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// status prefixes the sources put in front of amounts
var pricePrefixes = []string{
	"bid to",
	"current bid:",
	"current bid",
	"sold for:",
	"sold for",
	"high bid:",
	"winning bid:",
	"reserve not met",
}

var amountRegex = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d+`)

// keywords that mark status-only text ("No Reserve", "5 bids") where the
// absence of an amount means zero rather than a parse failure
var statusKeywords = []string{"reserve", "bid", "comment", "watch"}

// ParsePrice extracts a whole-currency amount from bid/price text.
// Pure; malformed or empty input yields 0.
func ParsePrice(text string) int64 {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range pricePrefixes {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, prefix))
	}
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥':
			return -1
		}
		return r
	}, cleaned)

	match := amountRegex.FindString(cleaned)
	if match == "" {
		return 0
	}
	amount, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return amount
}

// HasPriceContext reports whether the text talks about bidding at all;
// a zero from ParsePrice is only meaningful when it does.
func HasPriceContext(text string) bool {
	lower := strings.ToLower(text)
	if amountRegex.MatchString(lower) {
		return true
	}
	for _, kw := range statusKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
