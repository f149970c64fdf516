package extract

import (
	_ "embed"
	"encoding/json"
	"sort"
	"strings"
)

// the manufacturer lexicon is versioned data, not code; regenerate
// makes.json from the source make indexes when new manufacturers appear
//
//go:embed makes.json
var makesRaw []byte

type MakeEntry struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Models  []string `json:"models"`
	Trims   []string `json:"trims"`
	// trim token -> tokens allowed to follow it
	Subvariants map[string][]string `json:"subvariants"`
}

type Lexicon struct {
	Version string      `json:"version"`
	Makes   []MakeEntry `json:"makes"`
}

var lexicon Lexicon

// names sorted longest-first so "Alfa Romeo" wins over a hypothetical "Alfa"
var makeNamesByLength []string
var makesByName map[string]*MakeEntry

func init() {
	err := json.Unmarshal(makesRaw, &lexicon)
	if err != nil {
		panic(err)
	}

	makesByName = map[string]*MakeEntry{}
	for i := range lexicon.Makes {
		entry := &lexicon.Makes[i]
		makeNamesByLength = append(makeNamesByLength, entry.Name)
		makesByName[strings.ToLower(entry.Name)] = entry
		for _, alias := range entry.Aliases {
			makeNamesByLength = append(makeNamesByLength, alias)
			makesByName[strings.ToLower(alias)] = entry
		}
	}
	sort.SliceStable(makeNamesByLength, func(a, b int) bool {
		return len(makeNamesByLength[a]) > len(makeNamesByLength[b])
	})
}

func LexiconVersion() string {
	return lexicon.Version
}

func Makes() []MakeEntry {
	return lexicon.Makes
}

// resolves an alias or any casing to the canonical entry
func lookupMake(name string) *MakeEntry {
	return makesByName[strings.ToLower(strings.TrimSpace(name))]
}

// ModelsFor enumerates known model names for a make, trim combinations
// included, for use as title-parsing suggestions. Unknown makes yield nil.
func ModelsFor(make string) []string {
	entry := lookupMake(make)
	if entry == nil {
		return nil
	}

	var out []string
	for _, model := range entry.Models {
		out = append(out, model)
		for _, trim := range entry.Trims {
			combined := model + " " + trim
			out = append(out, combined)
			for _, sub := range entry.Subvariants[trim] {
				out = append(out, combined+" "+sub)
			}
		}
	}
	return out
}
