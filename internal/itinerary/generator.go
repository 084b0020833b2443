package itinerary

import (
	"context"
	"fmt"
	"strings"

	"github.com/huguadventures/travel-assistant-go/internal/llm"
)

// Request describes a fresh itinerary.
type Request struct {
	OriginalText string
	Budget       string
	DayCount     int
}

// UpdateRequest describes an edit of an existing itinerary.
type UpdateRequest struct {
	OriginalItineraryText string
	EditText              string
	Budget                string
	DayCount              int
}

// Generator turns trip requests into raw model text. The text still carries
// link tokens and the trailing sentinel line.
type Generator struct {
	completer llm.Completer
	brand     string
}

func NewGenerator(completer llm.Completer, brand string) *Generator {
	return &Generator{completer: completer, brand: brand}
}

func (g *Generator) Generate(ctx context.Context, req Request, vocab Vocabulary) (string, error) {
	return g.complete(ctx, draftPrompt(g.brand, req, vocab))
}

func (g *Generator) GenerateUpdate(ctx context.Context, req UpdateRequest, vocab Vocabulary) (string, error) {
	return g.complete(ctx, updatePrompt(g.brand, req, vocab))
}

func (g *Generator) complete(ctx context.Context, p llm.Prompt) (string, error) {
	text, err := g.completer.Complete(ctx, p)
	if err != nil {
		return "", fmt.Errorf("generate itinerary: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyCompletion
	}
	return text, nil
}
