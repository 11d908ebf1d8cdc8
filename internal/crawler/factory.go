package crawler

import (
	"fmt"
	"slices"

	"sjsage522/wikicatalog/config"
	"sjsage522/wikicatalog/logger"
)

// Crawler names accepted by --only
const (
	NameDiscounts = "discounts"
	NameVehicles  = "vehicles"
)

// CreateCrawlers creates the crawlers selected by only (all when empty)
func CreateCrawlers(cfg *config.Config, fetcher Fetcher, only []string) ([]Crawler, error) {
	configurations := Configurations(cfg)

	for _, name := range only {
		if !slices.ContainsFunc(configurations, func(c CrawlerConfig) bool { return c.Name == name }) {
			return nil, fmt.Errorf("unknown crawler %q", name)
		}
	}

	var crawlers []Crawler
	for _, cc := range configurations {
		if len(only) > 0 && !slices.Contains(only, cc.Name) {
			continue
		}

		var (
			c   Crawler
			err error
		)
		switch cc.Name {
		case NameDiscounts:
			c = NewDiscountCrawler(cc, fetcher)
		case NameVehicles:
			c, err = NewVehicleCrawler(cc, fetcher)
		}
		if err != nil {
			return nil, fmt.Errorf("create %s crawler: %w", cc.Name, err)
		}

		logger.ForCrawler(cc.Name).Debug().Str("url", cc.URL).Str("output", cc.Output).Msg("Crawler created")
		crawlers = append(crawlers, c)
	}
	return crawlers, nil
}

// Configurations returns the crawler configurations for the wiki sections
func Configurations(cfg *config.Config) []CrawlerConfig {
	return []CrawlerConfig{
		{
			// Discounted donate items
			Name:     NameDiscounts,
			URL:      cfg.DiscountsURL,
			BaseURL:  cfg.BaseURL,
			Output:   cfg.DiscountsFile,
			MaxPages: cfg.Crawl.MaxPages,
			Selectors: Selectors{
				Row:      "table tr",
				Cell:     "td",
				MinCells: 5,
			},
		},
		{
			// Vehicle listing and detail pages
			Name:              NameVehicles,
			URL:               cfg.VehiclesURL,
			BaseURL:           cfg.BaseURL,
			Output:            cfg.VehiclesFile,
			MaxPages:          cfg.Crawl.MaxPages,
			DetailDelay:       cfg.Crawl.DetailDelay,
			DetailConcurrency: cfg.Crawl.DetailConcurrency,
			Selectors: Selectors{
				Link:           "a[href]",
				CatalogSegment: "/vehicles/",
				ExcludeMarkers: []string{"/page/", "/category/"},
				Heading:        "h1.entry-title",
				MetaTitle:      `meta[property="og:title"]`,
				SpecRow:        "tr",
				SpecCell:       "td, th",
				Content:        "div.entry-content",
				Paragraph:      "p, li",
				SpeedKeyword:   []string{"Cкорость", "Скорость"},
			},
		},
	}
}
