package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carpulse-backend/lib/fetch"
	"carpulse-backend/lib/listing"

	"github.com/stretchr/testify/require"
)

type fakeDetail struct {
	Essentials string   `json:"essentials"`
	Images     []string `json:"images"`
	Bids       int      `json:"bids"`
}

type fakeDetailSource struct{}

func (fakeDetailSource) DetailRequest(record listing.Record) fetch.Request {
	return fetch.Request{URL: record.URL}
}

func (fakeDetailSource) ParseDetail(ctx context.Context, body []byte) (Detail, error) {
	var parsed fakeDetail
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Detail{}, err
	}
	return Detail{
		Essentials: parsed.Essentials,
		Images:     parsed.Images,
		BidCount:   parsed.Bids,
	}, nil
}

func TestEnrichFillsMissingAttributes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fakeDetail{
			Essentials: "Finished in Guards Red, 5-Speed Manual Gearbox, 43,000 Miles Shown",
			Images:     []string{"https://example.com/1.jpg"},
			Bids:       17,
		})
	}))
	t.Cleanup(server.Close)

	collector, _ := newTestCollector(t, http.NotFoundHandler())

	records := []listing.Record{
		{
			ID:  "1",
			URL: server.URL + "/listing/1",
			Vehicle: listing.Vehicle{
				Year: 1988, Make: "Porsche",
				Transmission: listing.TransmissionUnknown,
			},
		},
		{
			// already complete, must not be touched
			ID:  "2",
			URL: server.URL + "/listing/2",
			Vehicle: listing.Vehicle{
				Mileage:      12000,
				Transmission: listing.TransmissionAutomatic,
				Color:        "blue",
			},
			Images: []string{"keep.jpg"},
		},
	}

	errs := collector.Enrich(context.Background(), fakeDetailSource{}, records, EnrichOptions{BatchSize: 1})
	require.Empty(t, errs)

	require.EqualValues(t, 43000, records[0].Vehicle.Mileage)
	require.Equal(t, listing.TransmissionManual, records[0].Vehicle.Transmission)
	require.Equal(t, "red", records[0].Vehicle.Color)
	require.Equal(t, []string{"https://example.com/1.jpg"}, records[0].Images)
	require.Equal(t, 17, records[0].BidCount)

	require.EqualValues(t, 12000, records[1].Vehicle.Mileage)
	require.Equal(t, []string{"keep.jpg"}, records[1].Images)
}

func TestEnrichConcurrentBatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fakeDetail{
			Essentials: "Finished in Guards Red, 5-Speed Manual Gearbox, 43,000 Miles Shown",
		})
	}))
	t.Cleanup(server.Close)

	collector, _ := newTestCollector(t, http.NotFoundHandler())

	// a full batch fetches through the shared gateway at once
	var records []listing.Record
	for i := 0; i < 16; i++ {
		records = append(records, listing.Record{
			ID:      fmt.Sprintf("%d", i),
			URL:     fmt.Sprintf("%s/listing/%d", server.URL, i),
			Vehicle: listing.Vehicle{Transmission: listing.TransmissionUnknown},
		})
	}

	errs := collector.Enrich(context.Background(), fakeDetailSource{}, records, EnrichOptions{
		BatchSize:  8,
		BatchDelay: time.Millisecond,
	})
	require.Empty(t, errs)

	for _, r := range records {
		require.EqualValues(t, 43000, r.Vehicle.Mileage)
		require.Equal(t, listing.TransmissionManual, r.Vehicle.Transmission)
		require.Equal(t, "red", r.Vehicle.Color)
	}
}

func TestEnrichAbsorbsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	collector, _ := newTestCollector(t, http.NotFoundHandler())

	records := []listing.Record{
		{ID: "1", URL: server.URL + "/a", Vehicle: listing.Vehicle{Transmission: listing.TransmissionUnknown}},
		{ID: "2", URL: server.URL + "/b", Vehicle: listing.Vehicle{Transmission: listing.TransmissionUnknown}},
	}

	errs := collector.Enrich(context.Background(), fakeDetailSource{}, records, EnrichOptions{})
	require.Len(t, errs, 2)
}
