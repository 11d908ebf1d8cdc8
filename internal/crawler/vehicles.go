package crawler

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	apperrors "sjsage522/wikicatalog/pkg/errors"
)

// VehicleCrawler builds the vehicle catalog from the paginated listing and
// one detail page per vehicle
type VehicleCrawler struct {
	BaseCrawler
	discoverer *LinkDiscoverer
	extractor  *VehicleExtractor
}

// NewVehicleCrawler creates a vehicle crawler
func NewVehicleCrawler(config CrawlerConfig, fetcher Fetcher) (*VehicleCrawler, error) {
	discoverer, err := NewLinkDiscoverer(config.BaseURL, config.URL, config.Selectors)
	if err != nil {
		return nil, err
	}
	if config.DetailConcurrency < 1 {
		config.DetailConcurrency = 1
	}
	return &VehicleCrawler{
		BaseCrawler: newBaseCrawler(config, fetcher),
		discoverer:  discoverer,
		extractor:   NewVehicleExtractor(config.Selectors),
	}, nil
}

// FetchCatalog walks the listing, visits every vehicle once and returns the
// records sorted by name
func (c *VehicleCrawler) FetchCatalog(ctx context.Context) (Result, error) {
	pages := &vehiclePages{crawler: c, visited: make(map[string]struct{})}

	records, err := NewPaginator[VehicleRecord](c.GetName(), c.Fetcher, c.Config.URL, c.Config.MaxPages).Walk(ctx, pages)
	if err != nil {
		return Result{}, err
	}

	if records == nil {
		records = []VehicleRecord{}
	}
	catalog := sortByName(records)
	c.log.Info().Int("vehicles", len(catalog)).Int("visited", len(pages.visited)).Msg("Vehicle catalog built")
	return Result{Records: catalog, Count: len(catalog)}, nil
}

// visitDetails fetches and extracts links with bounded fan-out. Results keep
// link order; rejected and failed pages are logged and skipped.
func (c *VehicleCrawler) visitDetails(ctx context.Context, links []string) ([]VehicleRecord, error) {
	results := make([]*VehicleRecord, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Config.DetailConcurrency)

	for i, link := range links {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := c.visitDetail(gctx, link)
			if err != nil {
				return err
			}
			results[i] = rec
			// hold the slot through the pause, so the next visit (on this
			// listing page or the next) starts DetailDelay after this one ended
			if c.Config.DetailDelay > 0 {
				return sleep(gctx, c.Config.DetailDelay)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return lo.FilterMap(results, func(rec *VehicleRecord, _ int) (VehicleRecord, bool) {
		if rec == nil {
			return VehicleRecord{}, false
		}
		return *rec, true
	}), nil
}

// visitDetail returns nil without error for pages that yield no record
func (c *VehicleCrawler) visitDetail(ctx context.Context, link string) (*VehicleRecord, error) {
	page, err := c.Fetcher.Fetch(ctx, link)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Warn().Err(err).Str("url", link).Msg("Skipping vehicle page")
		return nil, nil
	}

	rec, reason := c.extractor.Extract(page)
	if reason != RejectNone {
		c.log.Info().
			Err(apperrors.NewMalformed(c.GetName(), "rejected "+link)).
			Str("reason", string(reason)).
			Msg("Rejected vehicle page")
		return nil, nil
	}
	c.log.Debug().Str("name", rec.Name).Str("url", link).Msg("Extracted vehicle")
	return rec, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// vehiclePages adapts the vehicle listing to the listing walk. The visited
// set spans the whole run so a vehicle linked from every page is fetched once.
type vehiclePages struct {
	crawler *VehicleCrawler
	visited map[string]struct{}
	pending []string
}

func (p *vehiclePages) Candidates(doc *goquery.Document, page *RawPage) []string {
	listing := page.FinalURL
	if listing == "" {
		listing = page.URL
	}
	candidates, fresh := p.crawler.discoverer.Discover(doc, listing, p.visited)
	p.pending = fresh
	return candidates
}

func (p *vehiclePages) Visit(ctx context.Context, _ *goquery.Document, _ *RawPage, _ []string) ([]VehicleRecord, error) {
	links := p.pending
	p.pending = nil
	return p.crawler.visitDetails(ctx, links)
}
