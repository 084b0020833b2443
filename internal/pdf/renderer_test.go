package pdf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		titleSeen bool
		want      lineKind
	}{
		{"blank", "   ", false, kindBlank},
		{"bold title", "**7-Day Kenya Safari (Mid Budget)**", false, kindTitle},
		{"hash title", "# Diani Escape", false, kindTitle},
		{"second title is a paragraph", "**Another**", true, kindParagraph},
		{"day heading", "*Day 2: Maasai Mara*", false, kindDayHeading},
		{"plain day heading", "Day 10 - Fly home", true, kindDayHeading},
		{"bullet", "• Morning: game drive", true, kindBullet},
		{"dash bullet", "- Evening: dinner", true, kindBullet},
		{"booking", "• [Book Tour Here](https://www.viator.com/searchResults/all?text=Nairobi)", true, kindBooking},
		{"rule", "----------", true, kindRule},
		{"paragraph", "Pack light layers.", true, kindParagraph},
		{"daylight is not a heading", "Daylight hours are long.", true, kindParagraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.line, tt.titleSeen))
		})
	}
}

func TestParseInline(t *testing.T) {
	t.Run("bold and link", func(t *testing.T) {
		segs := parseInline("Visit *Nairobi* and [Book Tour Here](https://example.com/t?text=Nairobi%20City&x=1) today")

		require.Len(t, segs, 5)
		assert.Equal(t, segment{Text: "Visit "}, segs[0])
		assert.Equal(t, segment{Text: "Nairobi", Bold: true}, segs[1])
		assert.Equal(t, segment{Text: " and "}, segs[2])
		assert.Equal(t, "Book Tour Here", segs[3].Text)
		assert.Equal(t, "https://example.com/t?text=Nairobi%20City&x=1", segs[3].URL)
		assert.Equal(t, segment{Text: " today"}, segs[4])
	})

	t.Run("bare url", func(t *testing.T) {
		segs := parseInline("Pay here: https://checkout.example.com/abc")

		require.Len(t, segs, 2)
		assert.Equal(t, "https://checkout.example.com/abc", segs[1].URL)
	})

	t.Run("plain", func(t *testing.T) {
		assert.Equal(t, []segment{{Text: "Just text."}}, parseInline("Just text."))
	})

	t.Run("leading markers stay literal", func(t *testing.T) {
		assert.Equal(t, []segment{{Text: "1. Giraffe Centre"}}, parseInline("1. Giraffe Centre"))
		assert.Equal(t, []segment{{Text: "+ note"}}, parseInline("+ note"))
		assert.Equal(t, []segment{{Text: "- pack light"}}, parseInline("- pack light"))
		assert.Equal(t, []segment{{Text: "# 3 nights"}}, parseInline("# 3 nights"))
		assert.Equal(t, []segment{{Text: "> quoted"}}, parseInline("> quoted"))
	})

	t.Run("numbered line keeps emphasis", func(t *testing.T) {
		segs := parseInline("2) *Lamu* old town")

		require.Len(t, segs, 3)
		assert.Equal(t, segment{Text: "2) "}, segs[0])
		assert.Equal(t, segment{Text: "Lamu", Bold: true}, segs[1])
		assert.Equal(t, segment{Text: " old town"}, segs[2])
	})
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Nairobi -> Diani", sanitize("Nairobi → Diani"))
	assert.Equal(t, "Great  trip", sanitize("Great 🎉 trip"))
	assert.Equal(t, "\x93quoted\x94 \x95 caf\xe9", sanitize("“quoted” • café"))
}

func TestRender(t *testing.T) {
	links := affiliate.Links{}
	text := strings.Join([]string{
		"**5-Day Kenya Highlights**",
		"",
		"*Day 1: Nairobi*",
		"• Morning: Arrive 🛬 and rest",
		"• Afternoon: [Book Tour Here](" + links.TourSearch("Nairobi") + ")",
		"",
		"*Day 2: Maasai Mara*",
		"• Morning: Drive (Approx 270 km / 5 hours)",
		"----------",
		"Enjoy! https://example.com",
	}, "\n")

	out, err := NewRenderer("Hugu Adventures").Render("Itinerary: Kenya", text, []string{"Nairobi", "Maasai Mara"}, links)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "viator.com")
}

func TestRenderManyDays(t *testing.T) {
	var b strings.Builder
	for d := 1; d <= 40; d++ {
		b.WriteString("*Day 1: Somewhere*\n• Morning: x\n• Afternoon: y\n• Evening: z\n\n")
	}

	out, err := NewRenderer("Hugu").Render("Long trip", b.String(), nil, affiliate.Links{})

	require.NoError(t, err)
	assert.Greater(t, bytes.Count(out, []byte("/Type /Page\n")), 1)
}
