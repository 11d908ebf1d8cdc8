package crawler

import (
	"context"
	"strings"
	"time"
)

// Currency identifies the unit a price is quoted in
type Currency string

const (
	CurrencyAZ      Currency = "AZ"
	CurrencyRUB     Currency = "RUB"
	CurrencyUnknown Currency = "UNKNOWN"
)

// Label returns the human-readable suffix used in display prices
func (c Currency) Label() string {
	switch c {
	case CurrencyAZ:
		return "AZ"
	case CurrencyRUB:
		return "Руб."
	default:
		return ""
	}
}

// PriceQuote is the parsed price/discount tuple for one offer.
// Original and DiscountPercent are 0 when the source did not state them.
type PriceQuote struct {
	Current         int      `json:"price_val"`
	Original        int      `json:"old_price"`
	DiscountPercent int      `json:"percent"`
	Currency        Currency `json:"currency"`
}

// ItemRecord is one priced item offered on one server
type ItemRecord struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Server   string `json:"server"`
	PriceQuote
	DisplayPrice string `json:"display_price"`
	ValidUntil   string `json:"time_str"`
}

// GetName returns the identity key
func (r ItemRecord) GetName() string { return r.Name }

// VehicleSpecs holds the recognized table fields; "-" marks a field
// the page did not list
type VehicleSpecs struct {
	Speed    string `json:"speed"`
	SpeedTT  string `json:"speed_tt"`
	SpeedFT  string `json:"speed_ft"`
	Accel    string `json:"accel"`
	Accel100 string `json:"accel_100"`
	Seats    string `json:"seats"`
	Type     string `json:"type"`
	ModelID  string `json:"model_id"`
	GameName string `json:"game_name"`
	Files    string `json:"files"`
}

// VehicleRecord is one vehicle detail page
type VehicleRecord struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	VehicleSpecs
	Description string   `json:"description"`
	Paragraphs  []string `json:"-"`
}

// GetName returns the sort key
func (r VehicleRecord) GetName() string { return r.Name }

// Named is implemented by every catalog record
type Named interface {
	GetName() string
}

// RawPage is one fetched URL
type RawPage struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves pages
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*RawPage, error)
}

// Result is a finished catalog
type Result struct {
	Records any
	Count   int
}

// Crawler interface defines the contract for all catalog crawlers
type Crawler interface {
	// FetchCatalog walks the site and returns a sorted catalog
	FetchCatalog(ctx context.Context) (Result, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetOutput returns the document name the catalog is published under
	GetOutput() string
}

// Selectors contains CSS selectors and URL markers for one site section
type Selectors struct {
	// Listing pages
	Row            string
	Cell           string
	MinCells       int
	Link           string
	CatalogSegment string
	ExcludeMarkers []string

	// Detail pages
	Heading      string
	MetaTitle    string
	SpecRow      string
	SpecCell     string
	Content      string
	Paragraph    string
	SpeedKeyword []string
}

// CrawlerConfig contains configuration for a crawler
type CrawlerConfig struct {
	Name      string
	URL       string
	BaseURL   string
	Output    string
	Selectors Selectors
	MaxPages  int

	// Detail visits
	DetailDelay       time.Duration
	DetailConcurrency int
}

// rootURL makes sure a listing root ends with a slash so page suffixes join cleanly
func rootURL(raw string) string {
	if strings.HasSuffix(raw, "/") {
		return raw
	}
	return raw + "/"
}
