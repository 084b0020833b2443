package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 5, "hello"},
		{"multibyte", "🎉🎉🎉", 2, "🎉🎉"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.max))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "edit itinerary", Normalize("  EDIT Itinerary \n"))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "254712345678", Digits("whatsapp:+254 712-345-678"))
	assert.Equal(t, "", Digits("whatsapp:guest"))
	assert.Equal(t, 3, RuneLen("é🎉a"))
}
