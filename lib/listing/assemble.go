package listing

import (
	"strings"
	"time"

	"carpulse-backend/lib/extract"
	"carpulse-backend/lib/textutil"
)

type AssembleOptions struct {
	SourceID string
	// ISO currency code the source quotes in, defaults to USD
	Currency string
	// passed through to the title parser
	HintMake         string
	ModelSuggestions []string
	// reference instant for relative countdown conversion
	Now time.Time
}

// Assemble turns one raw source item into a normalized Record by running
// the title parser and field extractors over its text payloads. Fields
// that cannot be recovered stay zero; assembly itself never fails.
func Assemble(raw RawItem, opts AssembleOptions) Record {
	currency := opts.Currency
	if currency == "" {
		currency = "USD"
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	record := Record{
		ID:       raw.ID,
		SourceID: opts.SourceID,
		URL:      raw.URL,
		Title:    raw.Title,
		Currency: currency,
		Images:   raw.Images,
	}
	if raw.Thumbnail != "" && len(record.Images) == 0 {
		record.Images = []string{raw.Thumbnail}
	}

	info := extract.ParseTitle(raw.Title, extract.TitleOptions{
		HintMake:         opts.HintMake,
		ModelSuggestions: opts.ModelSuggestions,
	})
	record.Vehicle.Year = info.Year
	record.Vehicle.Make = info.Make
	record.Vehicle.Model = info.Model

	if amount := extract.ParsePrice(raw.PriceText); amount > 0 {
		record.PriceCents = amount * 100
	}

	record.Status = classifyStatus(raw.StatusText, raw.PriceText, raw.DateText)

	if end, ok := extract.ParseEndDate(raw.DateText, now); ok {
		record.EndTime = end
	}

	if miles, ok := extract.ExtractMileageDoc(raw.Essentials, raw.Document); ok {
		record.Vehicle.Mileage = miles
	} else if miles, ok := extract.ExtractMileage(raw.Title); ok {
		record.Vehicle.Mileage = miles
	}

	facts := raw.Essentials
	if facts == "" {
		facts = raw.Document
	}
	if facts == "" {
		facts = raw.Title
	}
	record.Vehicle.Transmission = Transmission(extract.DetectTransmission(facts))

	if color, ok := extract.NormalizeColor(raw.Essentials); ok {
		record.Vehicle.Color = color
	}

	return record
}

func classifyStatus(statusText, priceText, dateText string) BiddingStatus {
	status := strings.ToLower(statusText + " " + priceText)
	switch {
	case strings.Contains(status, "withdrawn"):
		return StatusWithdrawn
	case strings.Contains(status, "sold"):
		return StatusSold
	case strings.Contains(status, "bid to"), strings.Contains(status, "reserve not met"):
		return StatusEndedNoSale
	case strings.Contains(strings.ToLower(dateText), "ends in"):
		return StatusActive
	case strings.Contains(strings.ToLower(dateText), "ended"):
		return StatusEndedNoSale
	}
	return StatusActive
}

type FilterOptions struct {
	Make         string
	Model        string
	YearMin      int
	YearMax      int
	Transmission Transmission
}

// Filter drops records that do not satisfy the options. Make and model
// match bidirectionally with a literal title-substring fallback, since
// source fields are often partial or abbreviated. Year bounds are
// inclusive and only apply when both the bound and the record's year are
// defined: yearless records are retained.
func Filter(records []Record, opts FilterOptions) []Record {
	var out []Record
	for _, r := range records {
		if !matchesField(opts.Make, r.Vehicle.Make, r.Title) {
			continue
		}
		if !matchesField(opts.Model, r.Vehicle.Model, r.Title) {
			continue
		}
		if opts.YearMin > 0 && r.Vehicle.Year > 0 && r.Vehicle.Year < opts.YearMin {
			continue
		}
		if opts.YearMax > 0 && r.Vehicle.Year > 0 && r.Vehicle.Year > opts.YearMax {
			continue
		}
		if opts.Transmission != "" && r.Vehicle.Transmission != opts.Transmission {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesField(want, got, title string) bool {
	if want == "" {
		return true
	}
	if textutil.ContainsEither(want, got) {
		return true
	}
	return textutil.MatchName(title, []string{textutil.NormalizeName(want)})
}
