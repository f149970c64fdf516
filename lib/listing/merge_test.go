package listing

import (
	"testing"
	"time"

	"carpulse-backend/lib/timezone"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMergePrefersReliableSource(t *testing.T) {
	end := time.Date(2025, 3, 26, 0, 0, 0, 0, timezone.Location)

	auctionHouse := Record{
		ID:       "lot-42",
		SourceID: "bonhams",
		Title:    "1988 Porsche 911 Carrera",
		Vehicle: Vehicle{
			Year:         1988,
			Make:         "Porsche",
			Model:        "911 Carrera",
			Transmission: TransmissionUnknown,
		},
		PriceCents: 9500000,
		Currency:   "USD",
		Status:     StatusSold,
	}
	marketplace := Record{
		ID:       "987",
		SourceID: "ebay",
		Title:    "1988 Porsche 911 Carrera Coupe",
		Vehicle: Vehicle{
			Year:         1988,
			Make:         "Porsche",
			Model:        "911",
			Mileage:      50000,
			Transmission: TransmissionManual,
			Color:        "red",
		},
		PriceCents: 8800000,
		EndTime:    end,
	}

	// input order must not matter, reliability decides
	merged := Merge([]Record{marketplace, auctionHouse})

	expected := auctionHouse
	expected.Vehicle.Mileage = 50000
	expected.Vehicle.Transmission = TransmissionManual
	expected.Vehicle.Color = "red"
	expected.EndTime = end

	require.Empty(t, cmp.Diff(expected, merged))
}

func TestMergeSingleRecordUnchanged(t *testing.T) {
	record := Record{ID: "x", SourceID: "bringatrailer", PriceCents: 100}
	require.Empty(t, cmp.Diff(record, Merge([]Record{record})))
}

func TestMergeDeterministic(t *testing.T) {
	records := []Record{
		{ID: "a", SourceID: "carsandbids", Vehicle: Vehicle{Mileage: 1}},
		{ID: "b", SourceID: "bringatrailer", Vehicle: Vehicle{Color: "blue"}},
		{ID: "c", SourceID: "ebay", Vehicle: Vehicle{Model: "911"}},
	}

	first := Merge(records)
	for i := 0; i < 5; i++ {
		require.Empty(t, cmp.Diff(first, Merge(records)))
	}
	// bringatrailer outranks carsandbids outranks ebay
	require.Equal(t, "b", first.ID)
	require.EqualValues(t, 1, first.Vehicle.Mileage)
	require.Equal(t, "blue", first.Vehicle.Color)
	require.Equal(t, "911", first.Vehicle.Model)
}

func TestGroupByVehicle(t *testing.T) {
	records := []Record{
		{ID: "1", SourceID: "bringatrailer", Title: "1988 Porsche 911 Carrera Coupe"},
		{ID: "2", SourceID: "ebay", Title: "1988 Porsche 911 Carrera coupe"},
		{ID: "3", SourceID: "carsandbids", Title: "1967 Toyota 2000GT"},
	}

	groups := GroupByVehicle(records, 0.92)
	require.Len(t, groups, 2)
	require.Len(t, groups[0], 2)
	require.Len(t, groups[1], 1)
	require.Equal(t, "3", groups[1][0].ID)
}

func TestMergeAcrossSources(t *testing.T) {
	records := []Record{
		{
			ID: "1", SourceID: "bringatrailer",
			Title:   "1988 Porsche 911 Carrera Coupe",
			Vehicle: Vehicle{Year: 1988, Make: "Porsche"},
		},
		{
			ID: "2", SourceID: "ebay",
			Title:   "1988 Porsche 911 Carrera coupe",
			Vehicle: Vehicle{Year: 1988, Make: "Porsche", Mileage: 72000},
		},
		{
			ID: "3", SourceID: "carsandbids",
			Title:   "1967 Toyota 2000GT",
			Vehicle: Vehicle{Year: 1967, Make: "Toyota"},
		},
	}

	merged := MergeAcrossSources(records, 0.92)
	require.Len(t, merged, 2)
	require.Equal(t, "1", merged[0].ID)
	require.EqualValues(t, 72000, merged[0].Vehicle.Mileage)
}
