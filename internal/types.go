package internal

import (
	"io"

	"sjsage522/wikicatalog/config"
	"sjsage522/wikicatalog/internal/crawler"
	"sjsage522/wikicatalog/services/cache"
	"sjsage522/wikicatalog/services/publisher"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Fetcher   crawler.Fetcher
}

// NewDependencies wires the cooldown cache, the fetcher and the output
// publisher from the configuration
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	cacheSvc, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		return nil, err
	}

	fetcher, err := crawler.NewHTTPFetcher(cfg.Fetch, cacheSvc)
	if err != nil {
		return nil, err
	}

	pub, err := publisher.NewFilePublisher(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Cache:     cacheSvc,
		Publisher: pub,
		Fetcher:   fetcher,
	}, nil
}

// Close releases the publisher and any cache connection
func (d *Dependencies) Close() error {
	var err error
	if d.Publisher != nil {
		err = d.Publisher.Close()
	}
	if closer, ok := d.Cache.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
