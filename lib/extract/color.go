package extract

import "strings"

// canonical palette the downstream price models are trained on; specific
// manufacturer shades map onto it by keyword
var colorPalette = []struct {
	canonical string
	keywords  []string
}{
	{"black", []string{"black", "nero", "schwarz"}},
	{"white", []string{"white", "bianco", "ivory", "alpine"}},
	{"silver", []string{"silver", "argento"}},
	{"gray", []string{"gray", "grey", "grigio", "graphite", "anthracite", "slate"}},
	{"red", []string{"red", "rosso", "guards", "crimson", "scarlet"}},
	{"blue", []string{"blue", "blu", "azure", "navy", "cobalt"}},
	{"green", []string{"green", "verde", "british racing"}},
	{"yellow", []string{"yellow", "giallo", "speed yellow"}},
	{"orange", []string{"orange", "arancio"}},
	{"brown", []string{"brown", "marrone", "chocolate", "espresso"}},
	{"tan", []string{"tan", "saddle", "cognac"}},
	{"gold", []string{"gold", "champagne"}},
	{"burgundy", []string{"burgundy", "maroon", "bordeaux"}},
	{"purple", []string{"purple", "violet", "viola"}},
	{"beige", []string{"beige", "cream", "sand"}},
}

// NormalizeColor maps free-text color descriptions ("Finished in Guards
// Red over black leather") onto the canonical palette. The exterior color
// is named first, so the earliest keyword in the text wins. Keywords only
// count on word boundaries ("Powered" must not read as red).
func NormalizeColor(text string) (string, bool) {
	lower := strings.ToLower(text)
	best := ""
	bestIdx := -1
	for _, entry := range colorPalette {
		for _, kw := range entry.keywords {
			idx := indexWord(lower, kw)
			if idx < 0 {
				continue
			}
			if bestIdx == -1 || idx < bestIdx {
				best, bestIdx = entry.canonical, idx
			}
		}
	}
	return best, bestIdx >= 0
}

func indexWord(s, sub string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], sub)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(sub)
		if isBoundary(s, start, end) {
			return start
		}
		offset = end
	}
}
