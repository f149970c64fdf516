package carsandbids

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"carpulse-backend/lib/collect"
	"carpulse-backend/lib/fetch"
	"carpulse-backend/lib/htmlutil"
	"carpulse-backend/lib/listing"
	"carpulse-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("carpulse.lib.scrapers.carsandbids")

const baseURL = "https://carsandbids.com"

// Source parses the HTML auction cards. The site reports no pagination
// totals, so the collector relies on the exhaustion stop instead.
type Source struct{}

func New() Source { return Source{} }

func (Source) ID() string { return "carsandbids" }

// BuildQuery targets the past-auctions search. The site pages at a fixed
// size, so Query.PerPage has no parameter to land in.
func (Source) BuildQuery(query collect.Query, page int) fetch.Request {
	params := url.Values{}
	terms := strings.TrimSpace(query.Make + " " + query.Model)
	if terms != "" {
		params.Set("q", terms)
	}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	target := baseURL + "/past-auctions/"
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return fetch.Request{URL: target}
}

func (Source) ParsePage(ctx context.Context, body []byte) (collect.Page, error) {
	ctx, span := tracer.Start(ctx, "ParsePage")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return collect.Page{}, fmt.Errorf("auction page: %w", err)
	}

	var page collect.Page
	doc.Find("li.auction-item").Each(func(_ int, card *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, card.Find("a.auction-title"))
		if len(anchors) == 0 {
			return
		}
		href := resolveHref(anchors[0].Href)

		item := listing.RawItem{
			ID:         auctionID(href),
			Title:      anchors[0].Name,
			URL:        href,
			PriceText:  textutil.CollapseWhitespace(card.Find(".bid-value").Text()),
			DateText:   textutil.CollapseWhitespace(card.Find(".time-left, .ended").Text()),
			StatusText: textutil.CollapseWhitespace(card.Find(".auction-status").Text()),
		}
		if src, ok := card.Find("img").First().Attr("src"); ok {
			item.Thumbnail = src
		}
		if item.ID != "" {
			page.Items = append(page.Items, item)
		}
	})

	return page, nil
}

func resolveHref(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return baseURL + "/" + strings.TrimPrefix(href, "/")
}

// auction urls look like /auctions/9X3kJ2m1/1988-audi-90-quattro; the
// short token is the stable id
func auctionID(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "auctions" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	if len(segments) > 0 && segments[len(segments)-1] != "" {
		return segments[len(segments)-1]
	}
	return ""
}

func (Source) DetailRequest(record listing.Record) fetch.Request {
	return fetch.Request{URL: record.URL}
}

// ParseDetail reads the quick-facts table and gallery of an auction page.
func (Source) ParseDetail(ctx context.Context, body []byte) (collect.Detail, error) {
	_, span := tracer.Start(ctx, "ParseDetail")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return collect.Detail{}, fmt.Errorf("detail page: %w", err)
	}

	detail := collect.Detail{}

	var facts []string
	doc.Find("div.quick-facts dl").Each(func(_ int, sel *goquery.Selection) {
		terms := sel.Find("dt")
		values := sel.Find("dd")
		terms.Each(func(i int, term *goquery.Selection) {
			if i >= values.Length() {
				return
			}
			key := textutil.CollapseWhitespace(term.Text())
			value := textutil.CollapseWhitespace(values.Eq(i).Text())
			if key != "" && value != "" {
				facts = append(facts, key+": "+value)
			}
		})
	})
	detail.Essentials = strings.Join(facts, ", ")
	detail.Document = textutil.CollapseWhitespace(doc.Text())

	doc.Find("div.gallery img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			detail.Images = append(detail.Images, src)
		}
	})

	if text := doc.Find(".bid-stats .num-bids").First().Text(); text != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			detail.BidCount = n
		}
	}
	if text := doc.Find(".comments-header .count").First().Text(); text != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(strings.Trim(text, "()"))); err == nil {
			detail.CommentCount = n
		}
	}

	return detail, nil
}
