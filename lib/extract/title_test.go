package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTitle(t *testing.T) {
	testCases := []struct {
		title    string
		opts     TitleOptions
		expected TitleInfo
	}{
		{
			title:    "1988 Audi 90 Quattro",
			expected: TitleInfo{Year: 1988, Make: "Audi", Model: "90"},
		},
		{
			title:    "43K-Mile 2004 Porsche 911 Turbo S Cabriolet",
			expected: TitleInfo{Year: 2004, Make: "Porsche", Model: "911 Turbo S"},
		},
		{
			title:    "1973 Porsche 911 Carrera RS Tribute",
			expected: TitleInfo{Year: 1973, Make: "Porsche", Model: "911 Carrera RS"},
		},
		{
			title:    "2016 Chevy Corvette Z06 Convertible",
			expected: TitleInfo{Year: 2016, Make: "Chevrolet", Model: "Corvette Z06"},
		},
		{
			title:    "1991 Alfa Romeo Spider Veloce",
			expected: TitleInfo{Year: 1991, Make: "Alfa Romeo", Model: "Spider"},
		},
		{
			// unknown make falls back to the token after the year
			title:    "1967 Glas 1700 GT",
			expected: TitleInfo{Year: 1967, Make: "Glas", Model: "1700"},
		},
		{
			// no year anchor means no result at all
			title:    "Porsche 911 Turbo project car",
			expected: TitleInfo{},
		},
		{
			title:    "Modified 2009 Nissan GT-R",
			expected: TitleInfo{Year: 2009, Make: "Nissan", Model: "GT-R"},
		},
		{
			// the hint make overrides lexicon resolution
			title:    "2001 Spyker C8 Spyder",
			opts:     TitleOptions{HintMake: "Spyker"},
			expected: TitleInfo{Year: 2001, Make: "Spyker", Model: "C8"},
		},
		{
			// longest suggestion wins when a shorter one also matches
			title: "2018 Porsche 911 Turbo Coupe",
			opts: TitleOptions{
				ModelSuggestions: []string{"911", "911 Turbo", "Cayman"},
			},
			expected: TitleInfo{Year: 2018, Make: "Porsche", Model: "911 Turbo"},
		},
	}

	for _, test := range testCases {
		got := ParseTitle(test.title, test.opts)
		require.Equal(t, test.expected, got, "title: %s", test.title)
	}
}

func TestParseTitleIdempotent(t *testing.T) {
	title := "1995 BMW M3 Coupe 5-Speed"
	first := ParseTitle(title, TitleOptions{})
	for i := 0; i < 10; i++ {
		require.Equal(t, first, ParseTitle(title, TitleOptions{}))
	}
	require.Equal(t, 1995, first.Year)
	require.Equal(t, "BMW", first.Make)
}

func TestParseTitleYearIsNotConfusedByMileage(t *testing.T) {
	// "1990" inside a longer digit run must not be read as a year
	got := ParseTitle("19900-Mile 2012 Toyota Land Cruiser", TitleOptions{})
	require.Equal(t, 2012, got.Year)
	require.Equal(t, "Toyota", got.Make)
	require.Equal(t, "Land Cruiser", got.Model)
}

func TestLexiconVersioned(t *testing.T) {
	require.NotEmpty(t, LexiconVersion())
	require.NotEmpty(t, Makes())
}
