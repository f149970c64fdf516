package bringatrailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"carpulse-backend/lib/collect"
	"carpulse-backend/lib/extract"
	"carpulse-backend/lib/fetch"
	"carpulse-backend/lib/listing"
	"carpulse-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("carpulse.lib.scrapers.bringatrailer")

const listingsEndpoint = "https://bringatrailer.com/wp-json/bringatrailer/1.0/data/listings-filter"

// Source walks the site's listings-filter JSON endpoint, which reports
// pagination totals and carries sold/bid text per item. Index items are
// thin, so records go through detail enrichment afterwards.
type Source struct{}

func New() Source { return Source{} }

func (Source) ID() string { return "bringatrailer" }

func (Source) BuildQuery(query collect.Query, page int) fetch.Request {
	params := url.Values{}
	terms := strings.TrimSpace(query.Make + " " + query.Model)
	if terms != "" {
		params.Set("q", terms)
	}
	params.Set("page", strconv.Itoa(page))
	if query.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(query.PerPage))
	}
	return fetch.Request{URL: listingsEndpoint + "?" + params.Encode()}
}

// ModelSuggestions sharpens title parsing with the lexicon's model and
// trim combinations for the queried make.
func (Source) ModelSuggestions(query collect.Query) []string {
	suggestions := extract.ModelsFor(query.Make)
	if query.Model != "" {
		suggestions = append([]string{query.Model}, suggestions...)
	}
	return suggestions
}

type listingsPage struct {
	PagesTotal int           `json:"pages_total"`
	ItemsTotal int           `json:"items_total"`
	Items      []listingItem `json:"items"`
}

type listingItem struct {
	ID           json.Number `json:"id"`
	Title        string      `json:"title"`
	URL          string      `json:"url"`
	ThumbnailURL string      `json:"thumbnail_url"`
	// "Sold for $61,500 on 3/4/25" or "Bid to $28,050 on 3/4/25",
	// empty while the auction is live
	SoldText string `json:"sold_text"`
	// "Ends in 2 days, 3 hours" on live auctions
	CountdownText       string `json:"countdown_text"`
	CurrentBidFormatted string `json:"current_bid_formatted"`
	Active              bool   `json:"active"`
}

func (Source) ParsePage(ctx context.Context, body []byte) (collect.Page, error) {
	_, span := tracer.Start(ctx, "ParsePage")
	defer span.End()

	var parsed listingsPage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return collect.Page{}, fmt.Errorf("listings payload: %w", err)
	}

	page := collect.Page{Meta: collect.PageMeta{
		TotalPages: parsed.PagesTotal,
		TotalItems: parsed.ItemsTotal,
	}}
	for _, item := range parsed.Items {
		// sold_text can be status-only ("Withdrawn"); fall back to the
		// bid amount whenever it carries no price at all
		priceText := item.SoldText
		if !extract.HasPriceContext(priceText) {
			priceText = item.CurrentBidFormatted
		}
		page.Items = append(page.Items, listing.RawItem{
			ID:         item.ID.String(),
			Title:      item.Title,
			URL:        item.URL,
			Thumbnail:  item.ThumbnailURL,
			PriceText:  priceText,
			DateText:   firstNonEmpty(item.SoldText, item.CountdownText),
			StatusText: item.SoldText,
		})
	}
	return page, nil
}

func (Source) DetailRequest(record listing.Record) fetch.Request {
	return fetch.Request{URL: record.URL}
}

// ParseDetail pulls the essentials list, gallery, and stats counters out
// of a listing page.
func (Source) ParseDetail(ctx context.Context, body []byte) (collect.Detail, error) {
	_, span := tracer.Start(ctx, "ParseDetail")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return collect.Detail{}, fmt.Errorf("detail page: %w", err)
	}

	detail := collect.Detail{}

	var facts []string
	doc.Find("div.essentials ul li").Each(func(_ int, sel *goquery.Selection) {
		if text := textutil.CollapseWhitespace(sel.Text()); text != "" {
			facts = append(facts, text)
		}
	})
	detail.Essentials = strings.Join(facts, ", ")
	detail.Document = textutil.CollapseWhitespace(doc.Text())

	doc.Find("div.gallery img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			detail.Images = append(detail.Images, src)
		}
	})

	detail.BidCount = counter(doc, ".listing-stats .bids")
	detail.WatcherCount = counter(doc, ".listing-stats .watchers")
	detail.CommentCount = counter(doc, ".listing-stats .comments")

	return detail, nil
}

func counter(doc *goquery.Document, selector string) int {
	text := strings.TrimSpace(doc.Find(selector).First().Text())
	text = strings.ReplaceAll(text, ",", "")
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
