package itinerary

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultDayCount = 5
	MaxDayCount     = 60

	defaultDestination = "your trip"
)

var dayCountPattern = regexp.MustCompile(`(?i)(\d+)\s*days?`)

// ParseDayCount returns the first "<n> day(s)" count in text when it lies in 1..60.
func ParseDayCount(text string) (int, bool) {
	m := dayCountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > MaxDayCount {
		return 0, false
	}
	return n, true
}

// ExtractDayCount is ParseDayCount with DefaultDayCount for missing or
// out-of-range values.
func ExtractDayCount(text string) int {
	if n, ok := ParseDayCount(text); ok {
		return n
	}
	return DefaultDayCount
}

// ExtractBudget classifies a free-text budget as low, mid or luxury, or "".
func ExtractBudget(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "luxury"), strings.Contains(lower, "high-end"), strings.Contains(lower, "high end"):
		return "luxury"
	case strings.Contains(lower, "mid"), strings.Contains(lower, "moderate"):
		return "mid"
	case strings.Contains(lower, "low"), strings.Contains(lower, "cheap"),
		strings.Contains(lower, "backpack"), strings.Contains(lower, "budget"):
		return "low"
	}
	return ""
}

// Fallback renders a fixed multi-day draft without any external call.
func Fallback(destination, details string) string {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		destination = defaultDestination
	}
	days := ExtractDayCount(details)

	var b strings.Builder
	fmt.Fprintf(&b, "🧳 *Draft Itinerary for %s*\n", destination)
	b.WriteString("_This is a first draft based on the info you shared. We can tweak it during your edit window._\n\n")

	for d := 1; d <= days; d++ {
		fmt.Fprintf(&b, "*Day %d:*\n", d)
		if d == 1 {
			fmt.Fprintf(&b, "• Arrival in %s, transfer to your accommodation.\n", destination)
			b.WriteString("• Easy walk / rest, get familiar with the area.\n\n")
			continue
		}
		b.WriteString("• Morning: Flexible activity (city tour, safari, beach time, or cultural visit).\n")
		b.WriteString("• Afternoon: Another activity or free time.\n")
		b.WriteString("• Evening: Dinner at a recommended local spot or at your lodge.\n\n")
	}

	b.WriteString("📌 *Next steps:*\n")
	b.WriteString("• We can swap days around or add/remove activities.\n")
	b.WriteString("• Reply *EDIT ITINERARY* to tell me what to change.\n")
	return b.String()
}
