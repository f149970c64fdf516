package listing

import "time"

type BiddingStatus string

const (
	StatusActive      BiddingStatus = "active"
	StatusSold        BiddingStatus = "sold"
	StatusEndedNoSale BiddingStatus = "ended_no_sale"
	StatusWithdrawn   BiddingStatus = "withdrawn"
)

type Transmission string

const (
	TransmissionManual    Transmission = "manual"
	TransmissionAutomatic Transmission = "automatic"
	TransmissionUnknown   Transmission = "unknown"
)

// RawItem is the transient per-item payload a source page hands over;
// it is consumed immediately into a Record and never stored.
type RawItem struct {
	ID        string
	Title     string
	URL       string
	Thumbnail string
	// unparsed bid/price text, e.g. "Sold for $28,050"
	PriceText string
	// unparsed end-date text, e.g. "Ends in 2 days, 3 hours"
	DateText string
	// unparsed status label, e.g. "No Reserve"
	StatusText string
	// text of the essentials/facts section of a detail page, if fetched
	Essentials string
	// whole-document text fallback for the heuristics
	Document string
	Images   []string
}

// Vehicle carries the attributes recovered by the extractors. It is a
// nested struct so cross-source merging can fill each attribute
// individually.
type Vehicle struct {
	Year         int
	Make         string
	Model        string
	Mileage      int64
	Transmission Transmission
	Color        string
}

// Record is the normalized listing entity. ID is unique per (source, id)
// within one collection run; zero-valued fields mean "not recovered".
type Record struct {
	ID       string
	SourceID string
	URL      string
	Title    string

	Vehicle Vehicle

	PriceCents int64
	Currency   string
	Status     BiddingStatus
	EndTime    time.Time

	BidCount     int
	WatcherCount int
	CommentCount int

	Images []string
}
