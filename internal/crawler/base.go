package crawler

import (
	"sjsage522/wikicatalog/logger"
)

// BaseCrawler provides common functionality for all crawlers
type BaseCrawler struct {
	Config  CrawlerConfig
	Fetcher Fetcher
	log     *logger.Logger
}

func newBaseCrawler(config CrawlerConfig, fetcher Fetcher) BaseCrawler {
	return BaseCrawler{
		Config:  config,
		Fetcher: fetcher,
		log:     logger.ForCrawler(config.Name),
	}
}

// GetName returns the crawler's name for logging
func (c *BaseCrawler) GetName() string {
	return c.Config.Name
}

// GetOutput returns the document name the catalog is published under
func (c *BaseCrawler) GetOutput() string {
	return c.Config.Output
}
