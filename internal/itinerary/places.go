package itinerary

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
)

// PlaceDetector extracts place names from free text, ordered by first
// appearance. The keyword matcher below is one implementation; a gazetteer
// or NER backed detector can replace it without touching the pipeline.
type PlaceDetector interface {
	Detect(text string) []string
}

// DefaultCities seeds the keyword detector when no list is configured.
var DefaultCities = []string{
	"Nairobi", "Mombasa", "Diani", "Malindi", "Watamu", "Lamu", "Naivasha", "Nakuru",
	"Maasai Mara", "Masai Mara", "Amboseli", "Tsavo", "Samburu", "Kisumu", "Nanyuki",
	"Zanzibar", "Dar es Salaam", "Arusha", "Moshi", "Kilimanjaro", "Serengeti", "Ngorongoro",
	"Kampala", "Entebbe", "Jinja", "Kigali", "Addis Ababa",
	"Cape Town", "Johannesburg", "Durban", "Victoria Falls", "Windhoek", "Marrakech", "Cairo",
	"Mauritius", "Seychelles", "Dubai", "Abu Dhabi", "Doha", "Istanbul",
	"London", "Paris", "Rome", "Barcelona", "Lisbon", "Amsterdam",
	"Bali", "Bangkok", "Phuket", "Singapore", "Tokyo", "New York",
	"Sydney", "Melbourne", "Cairns", "Brisbane", "Perth", "Adelaide", "Darwin", "Hobart",
}

type keyword struct {
	display string
	folded  string
}

// KeywordDetector matches a fixed list of names case- and accent-insensitively
// on word boundaries. When names overlap, the longer name wins.
type KeywordDetector struct {
	keywords []keyword
}

func NewKeywordDetector(names []string) *KeywordDetector {
	kws := lo.Map(names, func(n string, _ int) keyword {
		n = strings.TrimSpace(n)
		return keyword{display: n, folded: fold(n)}
	})
	kws = lo.Filter(kws, func(k keyword, _ int) bool { return k.folded != "" })
	kws = lo.UniqBy(kws, func(k keyword) string { return k.folded })
	sort.SliceStable(kws, func(i, j int) bool { return len(kws[i].folded) > len(kws[j].folded) })
	return &KeywordDetector{keywords: kws}
}

func fold(s string) string {
	return strings.ToLower(foldDiacritics(s))
}

type hit struct {
	name string
	pos  int
}

func (d *KeywordDetector) Detect(text string) []string {
	haystack := fold(text)
	claimed := make([]bool, len(haystack))
	var hits []hit

	for _, kw := range d.keywords {
		first := -1
		for from := 0; from < len(haystack); {
			idx := strings.Index(haystack[from:], kw.folded)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(kw.folded)
			from = start + 1
			if !wordBoundary(haystack, start, end) || anyClaimed(claimed, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				claimed[i] = true
			}
			if first < 0 {
				first = start
			}
		}
		if first >= 0 {
			hits = append(hits, hit{name: kw.display, pos: first})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	return lo.Map(hits, func(h hit, _ int) string { return h.name })
}

func anyClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
