package crawler

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/wikicatalog/helpers"
)

// RejectReason explains why a detail page produced no record
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectNotFound    RejectReason = "not_found"
	RejectBadStatus   RejectReason = "bad_status"
	RejectChallenge   RejectReason = "challenge"
	RejectPlaceholder RejectReason = "placeholder"
	RejectNoSpecs     RejectReason = "no_specs"
	RejectUnparsable  RejectReason = "unparsable"
)

const (
	unknownTitle = "Unknown"
	missingSpec  = "-"
)

// placeholderTitles are section headings served instead of a vehicle name
var placeholderTitles = map[string]struct{}{
	"Транспорт":  {},
	"Vehicles":   {},
	unknownTitle: {},
}

// titleNoise is removed from page titles in order
var titleNoise = []*regexp.Regexp{
	regexp.MustCompile(`🚗|Цены и скорость|202\d|на Arizona RP|— ARZ-WIKI`),
	regexp.MustCompile(`\(\d+\)`),
}

// specField binds an output field to the table keys the site uses for it.
// The first alias is the site's own spelling.
type specField struct {
	aliases []string
	set     func(*VehicleSpecs, string)
}

var specFields = []specField{
	{aliases: []string{"Cкорость", "Скорость"}, set: func(s *VehicleSpecs, v string) { s.Speed = v }},
	{aliases: []string{"Cкорость c TT2", "Скорость с TT2"}, set: func(s *VehicleSpecs, v string) { s.SpeedTT = v }},
	{aliases: []string{"Cкорость с ФТ (red)", "Скорость с ФТ (red)"}, set: func(s *VehicleSpecs, v string) { s.SpeedFT = v }},
	{aliases: []string{"Разгон"}, set: func(s *VehicleSpecs, v string) { s.Accel = v }},
	{aliases: []string{"Разгона до 100км"}, set: func(s *VehicleSpecs, v string) { s.Accel100 = v }},
	{aliases: []string{"Мест в машине"}, set: func(s *VehicleSpecs, v string) { s.Seats = v }},
	{aliases: []string{"Тип"}, set: func(s *VehicleSpecs, v string) { s.Type = v }},
	{aliases: []string{"ID машины"}, set: func(s *VehicleSpecs, v string) { s.ModelID = v }},
	{aliases: []string{"Игровое имя"}, set: func(s *VehicleSpecs, v string) { s.GameName = v }},
	{aliases: []string{"Файлы"}, set: func(s *VehicleSpecs, v string) { s.Files = v }},
}

// VehicleExtractor turns a vehicle detail page into a record
type VehicleExtractor struct {
	selectors Selectors
}

// NewVehicleExtractor creates an extractor for the given detail-page selectors
func NewVehicleExtractor(selectors Selectors) *VehicleExtractor {
	return &VehicleExtractor{selectors: selectors}
}

// Extract returns the record for page, or the reason the page was rejected
func (e *VehicleExtractor) Extract(page *RawPage) (*VehicleRecord, RejectReason) {
	switch page.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, RejectNotFound
	default:
		return nil, RejectBadStatus
	}

	doc, err := createDocument(page)
	if err != nil {
		return nil, RejectUnparsable
	}
	return e.ExtractDocument(doc, page.URL)
}

// ExtractDocument runs the extraction on an already parsed page
func (e *VehicleExtractor) ExtractDocument(doc *goquery.Document, sourceURL string) (*VehicleRecord, RejectReason) {
	if isChallenge(doc) {
		return nil, RejectChallenge
	}

	name := CleanTitle(e.resolveTitle(doc))
	if _, ok := placeholderTitles[name]; ok {
		return nil, RejectPlaceholder
	}

	table := e.specTable(doc)
	if len(table) == 0 {
		return nil, RejectNoSpecs
	}

	paragraphs := e.description(doc)
	return &VehicleRecord{
		Name:         name,
		URL:          sourceURL,
		VehicleSpecs: projectSpecs(table),
		Description:  strings.Join(paragraphs, "\n"),
		Paragraphs:   paragraphs,
	}, RejectNone
}

// resolveTitle tries heading, document title and og:title in that order
func (e *VehicleExtractor) resolveTitle(doc *goquery.Document) string {
	strategies := []func() string{
		func() string { return doc.Find(e.selectors.Heading).First().Text() },
		func() string { return doc.Find("title").First().Text() },
		func() string { return doc.Find(e.selectors.MetaTitle).First().AttrOr("content", "") },
	}
	for _, strategy := range strategies {
		if title := helpers.Normalize(strategy()); title != "" {
			return title
		}
	}
	return unknownTitle
}

// CleanTitle strips SEO decoration and bracketed ids from a page title
func CleanTitle(raw string) string {
	name := raw
	for _, re := range titleNoise {
		name = re.ReplaceAllString(name, "")
	}
	name = helpers.Normalize(name)
	if name == "" {
		return unknownTitle
	}
	return name
}

// specTable collects every two-cell row as key/value; later rows win
func (e *VehicleExtractor) specTable(doc *goquery.Document) map[string]string {
	table := make(map[string]string)
	doc.Find(e.selectors.SpecRow).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(e.selectors.SpecCell)
		if cells.Length() != 2 {
			return
		}
		key := helpers.Normalize(strings.ReplaceAll(helpers.Normalize(cells.Eq(0).Text()), ":", ""))
		table[key] = helpers.Normalize(cells.Eq(1).Text())
	})
	return table
}

func projectSpecs(table map[string]string) VehicleSpecs {
	var specs VehicleSpecs
	for _, field := range specFields {
		value := missingSpec
		for _, alias := range field.aliases {
			if v, ok := table[alias]; ok {
				value = v
				break
			}
		}
		field.set(&specs, value)
	}
	return specs
}

func (e *VehicleExtractor) description(doc *goquery.Document) []string {
	var lines []string
	doc.Find(e.selectors.Content).First().Find(e.selectors.Paragraph).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("table").Length() > 0 {
			return
		}
		text := helpers.Normalize(s.Text())
		if utf8.RuneCountInString(text) <= 3 || e.mentionsSpeed(text) {
			return
		}
		lines = append(lines, text)
	})
	return lines
}

func (e *VehicleExtractor) mentionsSpeed(text string) bool {
	for _, keyword := range e.selectors.SpeedKeyword {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
