package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

var skippedSchemes = []string{"mailto:", "javascript:", "tel:", "#"}

// LinkDiscoverer finds detail-page links on a listing page
type LinkDiscoverer struct {
	base      *url.URL
	root      string
	selectors Selectors
}

// NewLinkDiscoverer creates a discoverer for the catalog rooted at catalogRoot.
// Only links on baseURL's host are candidates.
func NewLinkDiscoverer(baseURL, catalogRoot string, selectors Selectors) (*LinkDiscoverer, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &LinkDiscoverer{
		base:      base,
		root:      canonical(catalogRoot),
		selectors: selectors,
	}, nil
}

// Discover returns the page's candidate links in document order without
// duplicates, plus the subset not yet in seen. seen is updated.
func (d *LinkDiscoverer) Discover(doc *goquery.Document, listingURL string, seen map[string]struct{}) (candidates, fresh []string) {
	current := canonical(listingURL)
	listing, err := url.Parse(listingURL)
	if err != nil {
		listing = d.base
	}

	var found []string
	doc.Find(d.selectors.Link).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if link, ok := d.candidate(listing, strings.TrimSpace(href), current); ok {
			found = append(found, link)
		}
	})
	candidates = lo.Uniq(found)

	fresh = lo.Filter(candidates, func(link string, _ int) bool {
		_, visited := seen[link]
		return !visited
	})
	if seen != nil {
		for _, link := range fresh {
			seen[link] = struct{}{}
		}
	}
	return candidates, fresh
}

func (d *LinkDiscoverer) candidate(listing *url.URL, href, current string) (string, bool) {
	if href == "" {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, prefix := range skippedSchemes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := listing.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""

	if !strings.EqualFold(resolved.Hostname(), d.base.Hostname()) {
		return "", false
	}
	link := resolved.String()
	if !strings.Contains(resolved.Path, d.selectors.CatalogSegment) {
		return "", false
	}
	for _, marker := range d.selectors.ExcludeMarkers {
		if strings.Contains(resolved.Path, marker) {
			return "", false
		}
	}
	if c := canonical(link); c == d.root || c == current {
		return "", false
	}
	return link, true
}

// canonical drops the fragment and trailing slash so equal pages compare equal
func canonical(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSuffix(raw, "/")
}
