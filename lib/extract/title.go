package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"carpulse-backend/lib/textutil"
)

// TitleInfo is a best-effort decomposition of a listing title. Fields the
// parser could not recover stay zero, it never fails outright.
type TitleInfo struct {
	Year  int
	Make  string
	Model string
}

type TitleOptions struct {
	// skips lexicon resolution when the caller already knows the make
	HintMake string
	// candidate model names, e.g. from a source's per-make model index
	ModelSuggestions []string
}

var yearRegex = regexp.MustCompile(`(19\d{2}|20\d{2})`)

// ParseTitle recovers year/make/model from a free-text listing title.
// The year token is the required anchor: no year, no result.
func ParseTitle(title string, opts TitleOptions) TitleInfo {
	year, yearEnd, ok := findYear(title)
	if !ok {
		return TitleInfo{}
	}
	info := TitleInfo{Year: year}

	makeName, remainder := resolveMake(title, yearEnd, opts.HintMake)
	if makeName == "" {
		return info
	}
	info.Make = makeName
	info.Model = resolveModel(makeName, remainder, opts.ModelSuggestions)
	return info
}

func findYear(title string) (int, int, bool) {
	maxYear := time.Now().Year() + 1
	for _, loc := range yearRegex.FindAllStringIndex(title, -1) {
		if !isBoundary(title, loc[0], loc[1]) {
			continue
		}
		year, err := strconv.Atoi(title[loc[0]:loc[1]])
		if err != nil {
			continue
		}
		if year >= 1900 && year <= maxYear {
			return year, loc[1], true
		}
	}
	return 0, 0, false
}

// reports whether [start,end) sits on its own word, not inside a longer
// alphanumeric run (stops "90" matching inside "1990")
func isBoundary(s string, start, end int) bool {
	if start > 0 && isAlnum(s[start-1]) {
		return false
	}
	if end < len(s) && isAlnum(s[end]) {
		return false
	}
	return true
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func resolveMake(title string, yearEnd int, hint string) (string, string) {
	if hint != "" {
		name := hint
		if entry := lookupMake(hint); entry != nil {
			name = entry.Name
		}
		// anchor the remainder on the make when it appears in the title,
		// otherwise on the year
		if _, end, ok := findInsensitive(title, name); ok {
			return name, title[end:]
		}
		return name, title[yearEnd:]
	}

	// longest lexicon name first, so "Alfa Romeo" beats shorter matches
	for _, name := range makeNamesByLength {
		if _, end, ok := findInsensitive(title, name); ok {
			return makesByName[strings.ToLower(name)].Name, title[end:]
		}
	}

	// fall back to the token immediately following the year
	rest := title[yearEnd:]
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", ""
	}
	token := fields[0]
	idx := strings.Index(rest, token)
	return token, rest[idx+len(token):]
}

// case-insensitive whole-word search, returns the match bounds in s
func findInsensitive(s, sub string) (int, int, bool) {
	lower := strings.ToLower(s)
	sub = strings.ToLower(sub)
	offset := 0
	for {
		idx := strings.Index(lower[offset:], sub)
		if idx < 0 {
			return 0, 0, false
		}
		start := offset + idx
		end := start + len(sub)
		if isBoundary(s, start, end) {
			return start, end, true
		}
		offset = end
	}
}

func resolveModel(makeName, remainder string, suggestions []string) string {
	remainder = strings.TrimSpace(remainder)
	if remainder == "" {
		return ""
	}

	// longest suggestion first, so "911 Turbo" wins over "911" when both fit
	if len(suggestions) > 0 {
		sorted := make([]string, len(suggestions))
		copy(sorted, suggestions)
		sort.SliceStable(sorted, func(a, b int) bool {
			return len(sorted[a]) > len(sorted[b])
		})
		for _, s := range sorted {
			if textutil.ContainsEither(remainder, s) {
				return s
			}
		}
	}

	if entry := lookupMake(makeName); entry != nil {
		if model := resolveLexiconModel(entry, remainder); model != "" {
			return model
		}
	}

	return strings.Fields(remainder)[0]
}

// make-specific structural rules: earliest base model in the remainder,
// then a known trim token directly after it, then a sub-variant token
// directly after the trim
func resolveLexiconModel(entry *MakeEntry, remainder string) string {
	bestIdx := -1
	bestEnd := 0
	best := ""
	for _, model := range entry.Models {
		start, end, ok := findInsensitive(remainder, model)
		if !ok {
			continue
		}
		if bestIdx == -1 || start < bestIdx || (start == bestIdx && len(model) > len(best)) {
			bestIdx, bestEnd, best = start, end, model
		}
	}
	if bestIdx == -1 {
		return ""
	}

	parts := []string{best}
	following := strings.Fields(remainder[bestEnd:])

	if len(following) > 0 {
		trim := matchToken(following[0], entry.Trims)
		if trim != "" {
			parts = append(parts, trim)
			if len(following) > 1 {
				if sub := matchToken(following[1], entry.Subvariants[trim]); sub != "" {
					parts = append(parts, sub)
				}
			}
		}
	}

	return strings.Join(parts, " ")
}

func matchToken(token string, candidates []string) string {
	for _, c := range candidates {
		if strings.EqualFold(token, c) {
			return c
		}
	}
	return ""
}
