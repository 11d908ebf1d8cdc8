package crawler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// challengeTitles are page titles served by bot-protection interstitials
var challengeTitles = []string{"Just a moment", "Attention Required"}

// createDocument parses a fetched page
func createDocument(page *RawPage) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page.URL, err)
	}
	return doc, nil
}

// isChallenge reports whether doc is a bot-protection interstitial
func isChallenge(doc *goquery.Document) bool {
	title := doc.Find("title").First().Text()
	for _, marker := range challengeTitles {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}
