package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carpulse-backend/lib/collect"
	"carpulse-backend/lib/fetch"
	"carpulse-backend/lib/listing"
	"carpulse-backend/lib/testutil"
	"carpulse-backend/services/collector/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type stubPage struct {
	PagesTotal int        `json:"pages_total"`
	Items      []stubItem `json:"items"`
}

type stubItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	PriceText string `json:"price_text"`
}

type stubSource struct {
	id      string
	baseURL string
}

func (s stubSource) ID() string { return s.id }

func (s stubSource) BuildQuery(query collect.Query, page int) fetch.Request {
	return fetch.Request{
		URL: fmt.Sprintf("%s/?src=%s&page=%d", s.baseURL, s.id, page),
	}
}

func (s stubSource) ParsePage(ctx context.Context, body []byte) (collect.Page, error) {
	var parsed stubPage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return collect.Page{}, err
	}
	page := collect.Page{Meta: collect.PageMeta{TotalPages: parsed.PagesTotal}}
	for _, item := range parsed.Items {
		page.Items = append(page.Items, listing.RawItem{
			ID:        item.ID,
			Title:     item.Title,
			URL:       item.URL,
			PriceText: item.PriceText,
		})
	}
	return page, nil
}

func writeStubPage(w http.ResponseWriter, items ...stubItem) {
	json.NewEncoder(w).Encode(stubPage{Items: items})
}

func newTestService(t *testing.T) (Service, string) {
	t.Helper()

	// alpha and beta list the same vehicle under slightly different
	// titles, gamma is permanently broken
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("src") {
		case "alpha":
			writeStubPage(w, stubItem{
				ID:        "100",
				Title:     "1988 Porsche 911 Carrera Coupe",
				URL:       "https://alpha.example.com/100",
				PriceText: "Sold for $95,000",
			})
		case "beta":
			writeStubPage(w, stubItem{
				ID:        "b-7",
				Title:     "1988 Porsche 911 Carrera coupe",
				URL:       "https://beta.example.com/b-7",
				PriceText: "Sold for $88,000",
			})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/collector",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	gateway := fetch.NewGateway(fetch.Options{CacheTTL: time.Minute})
	pages := collect.NewCollector(gateway, collect.Options{
		PageDelay:      time.Millisecond,
		PageJitter:     time.Millisecond,
		LongPauseEvery: 1,
		LongPause:      time.Millisecond,
	})
	return NewService(setup.DB, pages), server.URL
}

func TestRun(t *testing.T) {
	service, baseURL := newTestService(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	units := []Unit{
		{Source: stubSource{id: "alpha", baseURL: baseURL}, Query: collect.Query{Make: "Porsche", MaxPages: 3}},
		{Source: stubSource{id: "beta", baseURL: baseURL}, Query: collect.Query{Make: "Porsche", MaxPages: 3}},
		{Source: stubSource{id: "gamma", baseURL: baseURL}, Query: collect.Query{Make: "Porsche", MaxPages: 3}},
	}

	result, err := service.Run(ctx, units, Options{})
	require.NoError(t, err)

	require.Equal(t, 1, result.UnitCounts["alpha/Porsche"])
	require.Equal(t, 1, result.UnitCounts["beta/Porsche"])
	// a broken source contributes errors, never aborts its siblings
	require.Equal(t, 0, result.UnitCounts["gamma/Porsche"])
	require.NotEmpty(t, result.Errors)

	// the near-identical titles collapse into one vehicle
	require.Len(t, result.Merged, 1)
	require.Equal(t, "1988 Porsche 911 Carrera Coupe", result.Merged[0].Title)

	stored, err := service.StoredBySource(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "100", stored[0].ID)
	require.Equal(t, "Porsche", stored[0].Vehicle.Make)
	require.EqualValues(t, 9500000, stored[0].PriceCents)
	require.Equal(t, listing.StatusSold, stored[0].Status)

	count, err := service.qry.CountListings(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	runs, err := service.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	// newest first
	require.Equal(t, "gamma", runs[0].Source)
	require.EqualValues(t, 0, runs[0].Records)

	// a second run upserts instead of duplicating
	_, err = service.Run(ctx, units[:1], Options{})
	require.NoError(t, err)

	count, err = service.qry.CountListings(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	row, err := service.qry.GetListing(ctx, db.GetListingParams{Source: "alpha", ID: "100"})
	require.NoError(t, err)
	require.Equal(t, "1988 Porsche 911 Carrera Coupe", row.Title)
	require.EqualValues(t, 9500000, row.PriceCents)
}

func TestRunFilters(t *testing.T) {
	service, baseURL := newTestService(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	units := []Unit{
		{Source: stubSource{id: "alpha", baseURL: baseURL}, Query: collect.Query{Make: "Porsche", MaxPages: 2}},
	}
	result, err := service.Run(ctx, units, Options{
		Filter: listing.FilterOptions{YearMin: 2000, YearMax: 2010},
	})
	require.NoError(t, err)

	// the 1988 record falls outside the year bounds
	require.Zero(t, result.UnitCounts["alpha/Porsche"])
	require.Empty(t, result.Merged)
}
