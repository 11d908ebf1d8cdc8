package crawler

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/wikicatalog/helpers"
)

// DiscountCrawler builds the catalog of discounted donate items, keeping the
// cheapest offer per item name
type DiscountCrawler struct {
	BaseCrawler
	Grammar PriceGrammar
}

// NewDiscountCrawler creates a discount crawler
func NewDiscountCrawler(config CrawlerConfig, fetcher Fetcher) *DiscountCrawler {
	return &DiscountCrawler{
		BaseCrawler: newBaseCrawler(config, fetcher),
		Grammar:     DefaultPriceGrammar,
	}
}

// FetchCatalog walks the discount tables and returns the best offers sorted by name
func (c *DiscountCrawler) FetchCatalog(ctx context.Context) (Result, error) {
	pages := &discountPages{crawler: c, deals: NewDealAggregator()}

	offers, err := NewPaginator[ItemRecord](c.GetName(), c.Fetcher, c.Config.URL, c.Config.MaxPages).Walk(ctx, pages)
	if err != nil {
		return Result{}, err
	}

	c.log.Info().Int("offers", len(offers)).Int("items", pages.deals.Len()).Msg("Discount catalog built")
	catalog := pages.deals.Finalize()
	return Result{Records: catalog, Count: len(catalog)}, nil
}

// ParseRows reads every table row with enough cells into an offer. Rows
// without a name are skipped.
func (c *DiscountCrawler) ParseRows(doc *goquery.Document) []ItemRecord {
	sel := c.Config.Selectors
	var records []ItemRecord
	doc.Find(sel.Row).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(sel.Cell)
		if cells.Length() < sel.MinCells {
			return
		}
		cell := func(i int) string { return helpers.Normalize(cells.Eq(i).Text()) }

		name := cell(0)
		if name == "" {
			return
		}
		quote := c.Grammar.Parse(cells.Eq(3).Text())
		records = append(records, ItemRecord{
			Name:         name,
			Category:     cell(1),
			Server:       cell(2),
			PriceQuote:   quote,
			DisplayPrice: DisplayPrice(quote),
			ValidUntil:   cell(4),
		})
	})
	return records
}

// discountPages adapts the discount table to the listing walk. Each row is a
// candidate; rows parsed in Candidates are handed to Visit.
type discountPages struct {
	crawler *DiscountCrawler
	deals   *DealAggregator
	pending []ItemRecord
}

func (p *discountPages) Candidates(doc *goquery.Document, _ *RawPage) []string {
	p.pending = p.crawler.ParseRows(doc)
	keys := make([]string, 0, len(p.pending))
	for _, rec := range p.pending {
		keys = append(keys, strings.Join([]string{rec.Name, rec.Server, rec.DisplayPrice, rec.ValidUntil}, "\x1f"))
	}
	return keys
}

func (p *discountPages) Visit(_ context.Context, _ *goquery.Document, _ *RawPage, _ []string) ([]ItemRecord, error) {
	records := p.pending
	p.pending = nil
	p.deals.Add(records...)
	return records, nil
}
