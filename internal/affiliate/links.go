// Package affiliate builds outbound partner search URLs for tours, stays and
// flights. Every builder is pure: the same destination and configuration
// always produce the same URLs, and a missing configuration falls back to a
// placeholder domain instead of failing.
package affiliate

import (
	"net/url"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	DefaultToursBaseURL   = "https://www.viator.com/searchResults/all?text="
	DefaultHotelsBaseURL  = "https://your-booking-affiliate-search-url.com/search?q="
	DefaultFlightsBaseURL = "https://your-flights-affiliate-search-url.com/search?route="

	recommendedSort = "&sort=RECOMMENDED"
	secondPage      = "&page=2"
)

// Provider is one partner's search endpoint. BaseURL must end where the
// encoded search text is appended. Params carry partner credentials such as
// an affiliate id and are emitted sorted by key. Suffix is appended verbatim.
type Provider struct {
	BaseURL string
	Suffix  string
	Params  map[string]string
}

func (p Provider) withDefault(base string) Provider {
	if strings.TrimSpace(p.BaseURL) == "" {
		p.BaseURL = base
	}
	return p
}

func (p Provider) url(text string) string {
	var b strings.Builder
	b.WriteString(p.BaseURL)
	b.WriteString(Encode(text))
	if len(p.Params) > 0 {
		keys := lo.Keys(p.Params)
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte('&')
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(p.Params[k]))
		}
	}
	b.WriteString(p.Suffix)
	return b.String()
}

// Links groups the configured partners.
type Links struct {
	TourPartner   Provider
	HotelPartner  Provider
	FlightPartner Provider
}

// Tours returns a plain search and a recommended-sort variant for destination.
func (l Links) Tours(destination string) []string {
	return []string{l.TourSearch(destination), l.TourRecommended(destination)}
}

func (l Links) TourSearch(destination string) string {
	return l.TourPartner.withDefault(DefaultToursBaseURL).url(destination)
}

// TourRecommended is TourSearch with the recommended sort flag appended, so
// its query is always a superset of the search link's.
func (l Links) TourRecommended(destination string) string {
	return l.TourSearch(destination) + recommendedSort
}

func (l Links) Hotels(destination string) []string {
	search := l.HotelPartner.withDefault(DefaultHotelsBaseURL).url(destination)
	return []string{search, search + secondPage}
}

func (l Links) Flights(route string) []string {
	return []string{l.FlightPartner.withDefault(DefaultFlightsBaseURL).url(route)}
}

// Encode trims text and percent-encodes it for use inside a query value,
// with spaces as %20 rather than '+'.
func Encode(text string) string {
	return strings.ReplaceAll(url.QueryEscape(strings.TrimSpace(text)), "+", "%20")
}
