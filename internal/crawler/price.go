package crawler

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"sjsage522/wikicatalog/helpers"
)

// PriceGrammar turns a raw price cell into a quote. Implementations never fail;
// unparsable input yields a zero quote.
type PriceGrammar interface {
	Parse(raw string) PriceQuote
}

// currencyMarker maps a substring of the cleaned price to a currency.
// Markers are checked in order and the first match wins.
type currencyMarker struct {
	marker   string
	currency Currency
}

var currencyMarkers = []currencyMarker{
	{marker: "руб", currency: CurrencyRUB},
	{marker: "az", currency: CurrencyAZ},
}

var digitRun = regexp.MustCompile(`[0-9]+`)

// PositionalGrammar reads digit runs by position: price, original price,
// discount percent. Two runs are price and percent; one run is the price.
type PositionalGrammar struct{}

// DefaultPriceGrammar is the grammar used by the discount crawler
var DefaultPriceGrammar PriceGrammar = PositionalGrammar{}

// ParsePrice parses raw with the default grammar
func ParsePrice(raw string) PriceQuote {
	return DefaultPriceGrammar.Parse(raw)
}

// Parse implements PriceGrammar
func (PositionalGrammar) Parse(raw string) PriceQuote {
	clean := strings.ToLower(helpers.StripSpaces(raw))

	quote := PriceQuote{Currency: DetectCurrency(clean)}

	tokens := numberTokens(clean)
	switch {
	case len(tokens) >= 3:
		quote.Current, quote.Original, quote.DiscountPercent = tokens[0], tokens[1], tokens[2]
	case len(tokens) == 2:
		quote.Current, quote.DiscountPercent = tokens[0], tokens[1]
	case len(tokens) == 1:
		quote.Current = tokens[0]
	}

	if quote.DiscountPercent > 100 {
		quote.DiscountPercent = 100
	}
	return quote
}

// DetectCurrency scans a cleaned, lower-cased price string for a currency marker
func DetectCurrency(clean string) Currency {
	for _, m := range currencyMarkers {
		if strings.Contains(clean, m.marker) {
			return m.currency
		}
	}
	return CurrencyUnknown
}

func numberTokens(s string) []int {
	runs := digitRun.FindAllString(s, -1)
	tokens := make([]int, 0, len(runs))
	for _, run := range runs {
		n, err := strconv.Atoi(run)
		if err != nil {
			n = math.MaxInt
		}
		tokens = append(tokens, n)
	}
	return tokens
}

// DisplayPrice renders a quote the way the catalog shows it
func DisplayPrice(q PriceQuote) string {
	label := q.Currency.Label()
	if label == "" {
		return strconv.Itoa(q.Current)
	}
	return strconv.Itoa(q.Current) + " " + label
}
