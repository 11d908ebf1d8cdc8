package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"sjsage522/wikicatalog/helpers"
	"sjsage522/wikicatalog/internal/crawler"
	"sjsage522/wikicatalog/logger"
	"sjsage522/wikicatalog/services/publisher"

	apperrors "sjsage522/wikicatalog/pkg/errors"
)

// catalogJSON writes non-ASCII verbatim, leaves HTML unescaped and indents by four spaces
var catalogJSON = jsoniter.Config{
	EscapeHTML:    false,
	IndentionStep: 4,
}.Froze()

// Worker handles the crawling and publishing process
type Worker struct {
	crawlers  []crawler.Crawler
	publisher publisher.Publisher
	logger    helpers.LoggerInterface
	log       *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(
	crawlers []crawler.Crawler,
	pub publisher.Publisher,
	errLog helpers.LoggerInterface,
) *Worker {
	return &Worker{
		crawlers:  crawlers,
		publisher: pub,
		logger:    errLog,
		log:       logger.ForWorker(),
	}
}

// Run builds and publishes every catalog once. Catalogs are independent: one
// failing does not stop the others. The returned error joins every failure.
func (w *Worker) Run(ctx context.Context) error {
	start := time.Now()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, c := range w.crawlers {
		wg.Add(1)
		go func(c crawler.Crawler) {
			defer wg.Done()
			if err := w.crawlAndPublish(ctx, c); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", c.GetName(), err))
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	w.logger.LogInfo("Run finished in %s (%d catalogs, %d failed)", time.Since(start).Round(time.Millisecond), len(w.crawlers), len(errs))
	return errors.Join(errs...)
}

// crawlAndPublish builds one catalog and publishes it. Nothing is published
// when the catalog could not be built.
func (w *Worker) crawlAndPublish(ctx context.Context, c crawler.Crawler) error {
	name := c.GetName()

	result, err := c.FetchCatalog(ctx)
	if err != nil {
		w.logger.LogError(name, err)
		return err
	}

	document, err := EncodeCatalog(result.Records)
	if err != nil {
		err = apperrors.NewParsing(name, "encode catalog", err)
		w.logger.LogError(name, err)
		return err
	}

	if err := w.publisher.Publish(c.GetOutput(), document); err != nil {
		w.logger.LogError(name, err)
		return err
	}

	w.log.Info().
		Str("crawler", name).
		Str("output", c.GetOutput()).
		Int("records", result.Count).
		Int("bytes", len(document)).
		Msg("Catalog published")
	return nil
}

// EncodeCatalog renders records as the published JSON document
func EncodeCatalog(records any) ([]byte, error) {
	data, err := catalogJSON.Marshal(records)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
