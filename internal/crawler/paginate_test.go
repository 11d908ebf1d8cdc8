package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/wikicatalog/logger"
	apperrors "sjsage522/wikicatalog/pkg/errors"
)

const pagedRoot = "https://wiki.test/list/"

// itemPages treats every <li> as a candidate and a record
type itemPages struct {
	visits int
}

func (p *itemPages) Candidates(doc *goquery.Document, _ *RawPage) []string {
	return doc.Find("li").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
}

func (p *itemPages) Visit(_ context.Context, _ *goquery.Document, _ *RawPage, candidates []string) ([]string, error) {
	p.visits++
	return candidates, nil
}

func listPage(items ...string) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range items {
		fmt.Fprintf(&b, "<li>%s</li>", item)
	}
	b.WriteString("</ul>")
	return b.String()
}

func TestListingURL(t *testing.T) {
	assert.Equal(t, "https://wiki.test/list/", ListingURL("https://wiki.test/list/", 1))
	assert.Equal(t, "https://wiki.test/list/page/2/", ListingURL("https://wiki.test/list/", 2))
	assert.Equal(t, "https://wiki.test/list/page/10/", ListingURL("https://wiki.test/list", 10))
}

func TestWalkStopsOnNotFound(t *testing.T) {
	fetcher := NewMockFetcher().
		Page(pagedRoot, http.StatusOK, listPage("a", "b")).
		Page(ListingURL(pagedRoot, 2), http.StatusOK, listPage("c"))

	records, err := NewPaginator[string]("test", fetcher, pagedRoot, 0).Walk(context.Background(), &itemPages{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, records)
	assert.Equal(t, []string{pagedRoot, ListingURL(pagedRoot, 2), ListingURL(pagedRoot, 3)}, fetcher.Requests())
}

func TestWalkLogsPagesVisited(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf)
	t.Cleanup(func() { logger.InitWithWriter(io.Discard) })

	fetcher := NewMockFetcher().
		Page(pagedRoot, http.StatusOK, listPage("a", "b")).
		Page(ListingURL(pagedRoot, 2), http.StatusOK, listPage("c"))

	_, err := NewPaginator[string]("test", fetcher, pagedRoot, 0).Walk(context.Background(), &itemPages{})
	require.NoError(t, err)

	// page 3 was requested but never processed
	assert.Contains(t, buf.String(), "Listing walk finished")
	assert.Contains(t, buf.String(), "pages=2")
	assert.NotContains(t, buf.String(), "pages=3")
}

func TestWalkStopsOnEmptyPage(t *testing.T) {
	fetcher := NewMockFetcher().
		Page(pagedRoot, http.StatusOK, listPage("a")).
		Page(ListingURL(pagedRoot, 2), http.StatusOK, listPage())

	pages := &itemPages{}
	records, err := NewPaginator[string]("test", fetcher, pagedRoot, 0).Walk(context.Background(), pages)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, records)
	assert.Equal(t, 1, pages.visits)
}

func TestWalkLaterFailuresKeepRecords(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(*MockFetcher)
	}{
		{"server error", func(f *MockFetcher) { f.Page(ListingURL(pagedRoot, 2), http.StatusInternalServerError, "") }},
		{"fetch failure", func(f *MockFetcher) { f.Fail(ListingURL(pagedRoot, 2), errConnRefused) }},
		{"bot block", func(f *MockFetcher) {
			f.Fail(ListingURL(pagedRoot, 2), apperrors.NewBotBlock("wiki.test", http.StatusForbidden))
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := NewMockFetcher().Page(pagedRoot, http.StatusOK, listPage("a"))
			tc.setup(fetcher)

			records, err := NewPaginator[string]("test", fetcher, pagedRoot, 0).Walk(context.Background(), &itemPages{})
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, records)
		})
	}
}

func TestWalkFirstPageIsTerminal(t *testing.T) {
	testCases := []struct {
		name    string
		fetcher *MockFetcher
	}{
		{"unreachable", NewMockFetcher().Fail(pagedRoot, errConnRefused)},
		{"not found", NewMockFetcher()},
		{"forbidden", NewMockFetcher().Page(pagedRoot, http.StatusForbidden, "")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := NewPaginator[string]("test", tc.fetcher, pagedRoot, 0).Walk(context.Background(), &itemPages{})
			require.Error(t, err)
			assert.True(t, apperrors.IsTerminal(err))
			assert.Nil(t, records)
		})
	}
}

func TestWalkCycleGuard(t *testing.T) {
	t.Run("redirect back to the previous page", func(t *testing.T) {
		fetcher := NewMockFetcher().
			Page(pagedRoot, http.StatusOK, listPage("a")).
			Redirect(ListingURL(pagedRoot, 2), pagedRoot, listPage("a"))

		records, err := NewPaginator[string]("test", fetcher, pagedRoot, 0).Walk(context.Background(), &itemPages{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, records)
		assert.Len(t, fetcher.Requests(), 2)
	})

	t.Run("same candidates as the previous page", func(t *testing.T) {
		fetcher := NewMockFetcher().
			Page(pagedRoot, http.StatusOK, listPage("a", "b")).
			Page(ListingURL(pagedRoot, 2), http.StatusOK, listPage("b", "a")).
			Page(ListingURL(pagedRoot, 3), http.StatusOK, listPage("c"))

		records, err := NewPaginator[string]("test", fetcher, pagedRoot, 0).Walk(context.Background(), &itemPages{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, records)
		assert.Equal(t, 0, fetcher.Count(ListingURL(pagedRoot, 3)))
	})
}

func TestWalkMaxPages(t *testing.T) {
	fetcher := NewMockFetcher()
	for n := 1; n <= 5; n++ {
		fetcher.Page(ListingURL(pagedRoot, n), http.StatusOK, listPage(fmt.Sprintf("item%d", n)))
	}

	records, err := NewPaginator[string]("test", fetcher, pagedRoot, 2).Walk(context.Background(), &itemPages{})
	require.NoError(t, err)
	assert.Equal(t, []string{"item1", "item2"}, records)
	assert.Len(t, fetcher.Requests(), 2)
}

func TestWalkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewMockFetcher().Page(pagedRoot, http.StatusOK, listPage("a"))
	records, err := NewPaginator[string]("test", fetcher, pagedRoot, 0).Walk(ctx, &itemPages{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, records)
	assert.Empty(t, fetcher.Requests())
}
