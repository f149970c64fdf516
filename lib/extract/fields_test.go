package extract

import (
	"testing"
	"time"

	"carpulse-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		text     string
		expected int64
	}{
		{"Sold for $28,050", 28050},
		{"Bid to $151,000", 151000},
		{"Current Bid: $4,300", 4300},
		{"Current Bid: USD $12,500", 12500},
		{"No Reserve", 0},
		{"", 0},
		{"€95,000", 95000},
		{"Sold for £1,234,567", 1234567},
		{"reserve not met", 0},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, ParsePrice(test.text), "text: %q", test.text)
	}
}

func TestHasPriceContext(t *testing.T) {
	require.True(t, HasPriceContext("No Reserve"))
	require.True(t, HasPriceContext("12 bids"))
	require.True(t, HasPriceContext("3 watchers"))
	require.False(t, HasPriceContext("lovely paint"))
}

func TestExtractMileage(t *testing.T) {
	testCases := []struct {
		text     string
		expected int64
		ok       bool
	}{
		{"43K-Mile 1988 Audi 90 Quattro", 43000, true},
		{"4,400-Mile 1988 Ferrari Testarossa", 4400, true},
		{"shows 87,000 miles", 87000, true},
		{"odometer reads 12345 miles", 12345, true},
		{"2.5k miles since rebuild", 2500, true},
		{"Mileage: 96,400", 96400, true},
		{"no odometer reading", 0, false},
		{"", 0, false},
	}

	for _, test := range testCases {
		miles, ok := ExtractMileage(test.text)
		require.Equal(t, test.ok, ok, "text: %q", test.text)
		require.Equal(t, test.expected, miles, "text: %q", test.text)
	}
}

func TestExtractMileageDocPrefersEssentials(t *testing.T) {
	miles, ok := ExtractMileageDoc(
		"Chassis: WP0AA0911KN... 52,000 Miles Shown",
		"the seller drove 800 miles home after purchase",
	)
	require.True(t, ok)
	require.EqualValues(t, 52000, miles)
}

func TestExtractMileageDocContextKeywords(t *testing.T) {
	document := "The car rides on 17-inch wheels wrapped in 255-mile-rated rubber. " +
		"The odometer shows 61,500 miles, around 1,200 miles of which were added by the seller."

	miles, ok := ExtractMileageDoc("", document)
	require.True(t, ok)
	// the figure next to "odometer" beats earlier unrelated matches
	require.EqualValues(t, 61500, miles)
}

func TestDetectTransmission(t *testing.T) {
	testCases := []struct {
		text     string
		expected Transmission
	}{
		{"7-Speed PDK", TransmissionAutomatic},
		{"six-speed manual gearbox", TransmissionManual},
		{"5-speed automatic transmission", TransmissionAutomatic},
		{"dual-clutch gearbox, no manual offered", TransmissionAutomatic},
		{"sequential gearbox", TransmissionAutomatic},
		{"5-speed", TransmissionManual},
		{"column shift", TransmissionUnknown},
		{"", TransmissionUnknown},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, DetectTransmission(test.text), "text: %q", test.text)
	}
}

func TestParseEndDateRelative(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, timezone.Location)

	end, ok := ParseEndDate("Ends in 2 days, 3 hours", now)
	require.True(t, ok)
	require.Equal(t, now.Add(51*time.Hour), end)

	end, ok = ParseEndDate("Ends in 5 hours, 30 minutes", now)
	require.True(t, ok)
	require.Equal(t, now.Add(5*time.Hour+30*time.Minute), end)

	end, ok = ParseEndDate("Ends in 45 minutes", now)
	require.True(t, ok)
	require.Equal(t, now.Add(45*time.Minute), end)
}

func TestParseEndDateAbsolute(t *testing.T) {
	now := timezone.Now()

	end, ok := ParseEndDate("Ended March 26, 2025", now)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 26, 0, 0, 0, 0, timezone.Location), end)

	end, ok = ParseEndDate("Sold on Mar 4, 2024", now)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, timezone.Location), end)

	end, ok = ParseEndDate("Sold for $61,500 on 3/4/25", now)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, timezone.Location), end)

	_, ok = ParseEndDate("auction live", now)
	require.False(t, ok)
}

func TestNormalizeColor(t *testing.T) {
	testCases := []struct {
		text     string
		expected string
		ok       bool
	}{
		{"Finished in Guards Red over black leather", "red", true},
		{"Grigio Silverstone Metallic", "gray", true},
		{"Speed Yellow", "yellow", true},
		{"bare metal", "", false},
	}

	for _, test := range testCases {
		color, ok := NormalizeColor(test.text)
		require.Equal(t, test.ok, ok, "text: %q", test.text)
		require.Equal(t, test.expected, color, "text: %q", test.text)
	}
}
