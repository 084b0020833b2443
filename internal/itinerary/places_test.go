package itinerary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordDetector(t *testing.T) {
	d := NewKeywordDetector([]string{"Cape", "Cape Town", "Nairobi", "São Paulo", "Diani", "nairobi", " "})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "orders by first appearance",
			text: "Fly into Diani, then back to Nairobi and Diani again",
			want: []string{"Diani", "Nairobi"},
		},
		{
			name: "longer name wins",
			text: "A week in Cape Town",
			want: []string{"Cape Town"},
		},
		{
			name: "both when separate",
			text: "Cape Town first, then the Cape peninsula",
			want: []string{"Cape Town", "Cape"},
		},
		{
			name: "case and accent insensitive",
			text: "NAIROBI and sao paulo",
			want: []string{"Nairobi", "São Paulo"},
		},
		{
			name: "word boundaries",
			text: "Nairobian food and Dianis",
			want: nil,
		},
		{
			name: "nothing",
			text: "somewhere warm",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.text)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultCitiesDetected(t *testing.T) {
	d := NewKeywordDetector(DefaultCities)

	got := d.Detect("10 days: Nairobi, Maasai Mara, then Zanzibar beach time")

	assert.Equal(t, []string{"Nairobi", "Maasai Mara", "Zanzibar"}, got)
}
