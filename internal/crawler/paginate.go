package crawler

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/wikicatalog/logger"

	apperrors "sjsage522/wikicatalog/pkg/errors"
)

// PageState is a step of the listing walk
type PageState string

const (
	StateFetching        PageState = "FETCHING"
	StateExtractingLinks PageState = "EXTRACTING_LINKS"
	StateVisitingDetails PageState = "VISITING_DETAILS"
	StateAdvancing       PageState = "ADVANCING"
	StateDone            PageState = "DONE"
)

// PageHandler turns one listing page into records
type PageHandler[T any] interface {
	// Candidates returns the page's candidate set. An empty set ends the walk.
	Candidates(doc *goquery.Document, page *RawPage) []string

	// Visit produces the records for the candidates of the current page.
	// It only fails when ctx is done.
	Visit(ctx context.Context, doc *goquery.Document, page *RawPage, candidates []string) ([]T, error)
}

// Paginator walks root, root/page/2/, root/page/3/, ... until a terminal condition
type Paginator[T any] struct {
	name     string
	fetcher  Fetcher
	root     string
	maxPages int
	log      *logger.Logger
}

// NewPaginator creates a walker over the listing rooted at root. maxPages 0
// means no cap.
func NewPaginator[T any](name string, fetcher Fetcher, root string, maxPages int) *Paginator[T] {
	return &Paginator[T]{
		name:     name,
		fetcher:  fetcher,
		root:     rootURL(root),
		maxPages: maxPages,
		log:      logger.ForCrawler(name),
	}
}

// ListingURL returns the address of listing page n
func ListingURL(root string, n int) string {
	root = rootURL(root)
	if n <= 1 {
		return root
	}
	return root + "page/" + strconv.Itoa(n) + "/"
}

// walkState carries what the cycle guard compares between pages
type walkState struct {
	page           int
	visited        int
	lastFinalURL   string
	lastCandidates []string
}

// Walk runs the listing state machine and returns every record collected.
// A first page that cannot be fetched is a terminal error; later failures
// end the walk with what was collected so far.
func (p *Paginator[T]) Walk(ctx context.Context, handler PageHandler[T]) ([]T, error) {
	var (
		records    []T
		state      = StateFetching
		ws         = walkState{page: 1}
		raw        *RawPage
		doc        *goquery.Document
		candidates []string
	)

	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch state {
		case StateFetching:
			url := ListingURL(p.root, ws.page)
			p.log.Info().Int("page", ws.page).Str("url", url).Msg("Fetching listing page")

			page, err := p.fetcher.Fetch(ctx, url)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				if ws.page == 1 {
					return nil, apperrors.NewTerminal(p.name, "first listing page unreachable", err)
				}
				p.log.Warn().Err(err).Int("page", ws.page).Msg("Listing fetch failed, stopping")
				state = StateDone
				continue
			}

			if page.FinalURL == "" {
				page.FinalURL = page.URL
			}
			if page.StatusCode != http.StatusOK {
				if ws.page == 1 {
					return nil, apperrors.NewTerminal(p.name, fmt.Sprintf("first listing page returned status %d", page.StatusCode), nil)
				}
				p.log.Info().Int("page", ws.page).Int("status", page.StatusCode).Msg("No more listing pages")
				state = StateDone
				continue
			}

			if ws.page > 1 && page.FinalURL == ws.lastFinalURL {
				p.log.Info().Int("page", ws.page).Str("final_url", page.FinalURL).Msg("Listing redirected to the previous page, stopping")
				state = StateDone
				continue
			}

			parsed, err := createDocument(page)
			if err != nil {
				if ws.page == 1 {
					return nil, apperrors.NewTerminal(p.name, "first listing page unparsable", err)
				}
				p.log.Warn().Err(err).Int("page", ws.page).Msg("Listing parse failed, stopping")
				state = StateDone
				continue
			}
			raw, doc = page, parsed
			ws.lastFinalURL = page.FinalURL
			state = StateExtractingLinks

		case StateExtractingLinks:
			candidates = handler.Candidates(doc, raw)
			p.log.Info().Int("page", ws.page).Int("candidates", len(candidates)).Msg("Extracted candidates")

			switch {
			case len(candidates) == 0:
				state = StateDone
			case ws.page > 1 && sameSet(candidates, ws.lastCandidates):
				p.log.Info().Int("page", ws.page).Msg("Listing repeats the previous page, stopping")
				state = StateDone
			default:
				state = StateVisitingDetails
			}

		case StateVisitingDetails:
			pageRecords, err := handler.Visit(ctx, doc, raw, candidates)
			if err != nil {
				return nil, err
			}
			records = append(records, pageRecords...)
			ws.visited++
			state = StateAdvancing

		case StateAdvancing:
			if p.maxPages > 0 && ws.page >= p.maxPages {
				p.log.Info().Int("max_pages", p.maxPages).Msg("Page cap reached")
				state = StateDone
				continue
			}
			ws.lastCandidates = candidates
			ws.page++
			raw, doc, candidates = nil, nil, nil
			state = StateFetching
		}
	}

	p.log.Info().Int("pages", ws.visited).Int("records", len(records)).Msg("Listing walk finished")
	return records, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
