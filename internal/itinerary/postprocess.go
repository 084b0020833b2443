package itinerary

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
)

const (
	SentinelKeyword    = "DESTINATIONS"
	MaxSentinelEntries = 5
)

// sentinelLine matches the trailing destinations line, tolerating emphasis
// markup around the keyword.
var sentinelLine = regexp.MustCompile(`(?im)^[ \t*_]*` + SentinelKeyword + `[ \t*_]*:(.*)$`)

var sentinelSplit = regexp.MustCompile(`[|,]`)

// ExtractDestinations parses the last sentinel line into city names.
func ExtractDestinations(raw string) []string {
	matches := sentinelLine.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}
	payload := matches[len(matches)-1][1]

	cities := lo.Map(sentinelSplit.Split(payload, -1), func(s string, _ int) string {
		return strings.Trim(s, " \t\r*_")
	})
	cities = lo.Filter(cities, func(s string, _ int) bool { return s != "" })
	cities = lo.UniqBy(cities, strings.ToLower)
	if len(cities) > MaxSentinelEntries {
		cities = cities[:MaxSentinelEntries]
	}
	return cities
}

// StripSentinelLine removes every sentinel line and trailing whitespace.
func StripSentinelLine(raw string) string {
	return strings.TrimRight(sentinelLine.ReplaceAllString(raw, ""), " \t\r\n")
}

// AppendLinksSection adds a delimited booking section with a browse-all and a
// recommended link per city. Without cities body is returned unchanged.
func AppendLinksSection(body string, cities []string, links affiliate.Links) string {
	if len(cities) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(body, " \t\r\n"))
	b.WriteString("\n\n----------\n")
	b.WriteString("🎟 *Book tours for your trip*\n")
	for _, city := range cities {
		fmt.Fprintf(&b, "\n*%s*\n", city)
		fmt.Fprintf(&b, "• [Browse all %s tours](%s)\n", city, links.TourSearch(city))
		fmt.Fprintf(&b, "• [Recommended %s tours](%s)\n", city, links.TourRecommended(city))
	}
	return b.String()
}
