package itinerary

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
)

const (
	tokenOpen  = "{{@@"
	tokenClose = "@@}}"

	kindSearch      = "TOUR_SEARCH"
	kindRecommended = "TOUR_RECOMMENDED"
)

// linkToken matches anything shaped like a link token in any letter case,
// known or not.
var linkToken = regexp.MustCompile(`(?i)\{\{@@TOUR_(SEARCH|RECOMMENDED):([^@{}\n]*)@@\}\}`)

var nonAlnumRun = regexp.MustCompile(`[^A-Z0-9]+`)

// Entry maps one city to the two tokens the model may emit for it.
type Entry struct {
	City             string
	Key              string
	SearchToken      string
	RecommendedToken string
}

// Vocabulary is the per-generation token set. It lives only for one
// generation and substitution pass.
type Vocabulary struct {
	entries []Entry
	links   affiliate.Links
}

func token(kind, key string) string {
	return tokenOpen + kind + ":" + key + tokenClose
}

// foldDiacritics strips combining marks, so "São Tomé" becomes "Sao Tome".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CityKey normalizes a city name into the symbolic key used inside tokens.
func CityKey(city string) string {
	key := strings.ToUpper(foldDiacritics(city))
	key = nonAlnumRun.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

// BuildVocabulary assigns tokens to cities in order. Cities that normalize to
// an empty or already-used key are skipped.
func BuildVocabulary(cities []string, links affiliate.Links) Vocabulary {
	v := Vocabulary{links: links}
	seen := make(map[string]bool, len(cities))
	for _, city := range cities {
		city = strings.TrimSpace(city)
		key := CityKey(city)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		v.entries = append(v.entries, Entry{
			City:             city,
			Key:              key,
			SearchToken:      token(kindSearch, key),
			RecommendedToken: token(kindRecommended, key),
		})
	}
	return v
}

func (v Vocabulary) Len() int {
	return len(v.entries)
}

func (v Vocabulary) Entries() []Entry {
	return v.entries
}

func (v Vocabulary) Cities() []string {
	cities := make([]string, len(v.entries))
	for i, e := range v.entries {
		cities[i] = e.City
	}
	return cities
}

// PromptListing renders the vocabulary for inclusion in a generation prompt.
func (v Vocabulary) PromptListing() string {
	if len(v.entries) == 0 {
		return "(no link tokens for this trip)"
	}
	var b strings.Builder
	for _, e := range v.entries {
		fmt.Fprintf(&b, "- %s: browse all tours %s | recommended tours %s\n", e.City, e.SearchToken, e.RecommendedToken)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Substitute replaces every vocabulary token in text with its affiliate URL.
// Keys are compared after CityKey normalization, so a token the model
// re-cased or re-spelled still resolves. Token-shaped strings outside the
// vocabulary become a tour search built from their key, so no token survives
// into user-facing text.
func (v Vocabulary) Substitute(text string) string {
	if !strings.Contains(text, tokenOpen) {
		return text
	}

	cities := make(map[string]string, len(v.entries))
	for _, e := range v.entries {
		cities[e.Key] = e.City
	}

	return linkToken.ReplaceAllStringFunc(text, func(m string) string {
		parts := linkToken.FindStringSubmatch(m)
		key := CityKey(parts[2])
		city, ok := cities[key]
		if !ok {
			city = strings.ToLower(strings.ReplaceAll(key, "_", " "))
		}
		if strings.EqualFold(parts[1], "RECOMMENDED") {
			return v.links.TourRecommended(city)
		}
		return v.links.TourSearch(city)
	})
}
