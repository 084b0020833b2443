package itinerary

import (
	"fmt"
	"strings"

	"github.com/huguadventures/travel-assistant-go/internal/llm"
)

const (
	itineraryMaxTokens   = 2500
	itineraryTemperature = 0.7
)

func systemPrompt(brand string) string {
	return fmt.Sprintf(`You are %s' trip designer. You write polished, friendly, professional travel itineraries for WhatsApp users.

Always:
- Write in clear paragraphs and bullet points with a warm, helpful tone that stays readable.
- Respect the traveller's budget (low / mid / luxury), trip length and who is travelling.
- Spread out sightseeing so days are not overloaded. Suggest 1-3 key activities per day.
- For road travel between stops, give approximate distance and driving time (e.g. "Approx 280 km / 3.5 hours").
- For flights between cities, give approximate flight duration (e.g. "Flight ~3 hours").
- Never write a URL. Where a booking link fits, use only the link tokens you are given, exactly as written, e.g. [Book Tour Here](TOKEN).
- Keep the total length suitable for a PDF: detailed enough to feel valuable, never padded.`, brand)
}

const formatRules = `Formatting rules:
- Start with a title on its own line, for example: **12-Day Kenya Safari & Coast (Mid Budget Couple)**
- For each day use exactly this structure:

*Day X: Short Day Title*
• Morning: ...
• Afternoon: ...
• Evening: ...

- Put inter-city travel distance or duration inside the bullet where the travel happens.
- Finish with one last line in this exact format, listing at most %d main destinations in visiting order:
%s: City One | City Two | City Three`

func tripContext(budget string, dayCount int) string {
	var parts []string
	if dayCount > 0 {
		parts = append(parts, fmt.Sprintf("Trip length: %d days.", dayCount))
	} else {
		parts = append(parts, "Trip length: not stated, choose a sensible length for the destinations.")
	}
	if budget != "" {
		parts = append(parts, fmt.Sprintf("Budget level: %s.", budget))
	}
	return strings.Join(parts, "\n")
}

func tokenSection(vocab Vocabulary) string {
	return "Link tokens (the only links you may use):\n" + vocab.PromptListing()
}

func draftPrompt(brand string, req Request, vocab Vocabulary) llm.Prompt {
	user := strings.Join([]string{
		"The traveller has paid for a custom itinerary.",
		"Traveller request:\n" + strings.TrimSpace(req.OriginalText),
		tripContext(req.Budget, req.DayCount),
		tokenSection(vocab),
		fmt.Sprintf(formatRules, MaxSentinelEntries, SentinelKeyword),
		"Now write the complete day-by-day itinerary.",
	}, "\n\n")

	return llm.Prompt{
		System:      systemPrompt(brand),
		User:        user,
		MaxTokens:   itineraryMaxTokens,
		Temperature: itineraryTemperature,
	}
}

func updatePrompt(brand string, req UpdateRequest, vocab Vocabulary) llm.Prompt {
	user := strings.Join([]string{
		"The traveller bought a custom itinerary and wants it updated.",
		"Current itinerary:\n" + strings.TrimSpace(req.OriginalItineraryText),
		"Requested changes:\n" + strings.TrimSpace(req.EditText),
		tripContext(req.Budget, req.DayCount),
		tokenSection(vocab),
		fmt.Sprintf(formatRules, MaxSentinelEntries, SentinelKeyword),
		"Write the revised full day-by-day itinerary. Apply the requested changes and keep the good parts of the current plan.",
	}, "\n\n")

	return llm.Prompt{
		System:      systemPrompt(brand),
		User:        user,
		MaxTokens:   itineraryMaxTokens,
		Temperature: itineraryTemperature,
	}
}
