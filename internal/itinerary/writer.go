package itinerary

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
	"github.com/huguadventures/travel-assistant-go/internal/model"
)

const maxRevisionPlaces = 12

// Composition is a finished, user-facing itinerary.
type Composition struct {
	Text     string
	Cities   []string
	Fallback bool
}

// Writer composes final itinerary text: detect places, generate, then inject
// affiliate links. Generation failures degrade to the fixed template.
type Writer struct {
	gen      *Generator
	detector PlaceDetector
	links    affiliate.Links
}

func NewWriter(gen *Generator, detector PlaceDetector, links affiliate.Links) *Writer {
	return &Writer{gen: gen, detector: detector, links: links}
}

func (w *Writer) Links() affiliate.Links {
	return w.links
}

// Draft writes the first itinerary for a paid request.
func (w *Writer) Draft(ctx context.Context, req *model.ItineraryRequest) Composition {
	dest := req.Destination("")
	details := strings.TrimSpace(req.RawDetails)
	if details == "" {
		details = "Trip to " + req.Destination(defaultDestination)
	}

	vocab := BuildVocabulary(w.detector.Detect(dest+"\n"+details), w.links)
	dayCount, _ := ParseDayCount(details)

	start := time.Now()
	raw, err := w.gen.Generate(ctx, Request{
		OriginalText: details,
		Budget:       ExtractBudget(details),
		DayCount:     dayCount,
	}, vocab)
	if err != nil {
		log.Warn().Err(err).Int64("itinerary_id", req.ID).Msg("itinerary generation failed, using fallback")
		return w.finish(Fallback(dest, details), vocab, dest, true)
	}

	log.Debug().
		Int64("itinerary_id", req.ID).
		Int("places", vocab.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("itinerary generated")
	return w.finish(raw, vocab, dest, false)
}

// Revise rewrites the stored itinerary according to editText.
func (w *Writer) Revise(ctx context.Context, req *model.ItineraryRequest, editText string) Composition {
	dest := req.Destination("")
	editText = strings.TrimSpace(editText)

	places := w.detector.Detect(editText + "\n" + dest + "\n" + req.Text())
	if len(places) > maxRevisionPlaces {
		places = places[:maxRevisionPlaces]
	}
	vocab := BuildVocabulary(places, w.links)

	dayCount, ok := ParseDayCount(editText)
	if !ok {
		dayCount, _ = ParseDayCount(req.RawDetails)
	}
	budget := ExtractBudget(editText)
	if budget == "" {
		budget = ExtractBudget(req.RawDetails)
	}

	raw, err := w.gen.GenerateUpdate(ctx, UpdateRequest{
		OriginalItineraryText: req.Text(),
		EditText:              editText,
		Budget:                budget,
		DayCount:              dayCount,
	}, vocab)
	if err != nil {
		log.Warn().Err(err).Int64("itinerary_id", req.ID).Msg("itinerary revision failed, using fallback")
		return w.finish(Fallback(dest, editText), vocab, dest, true)
	}
	return w.finish(raw, vocab, dest, false)
}

// finish applies exactly one link strategy. Model text with a non-empty
// vocabulary gets in-body substitution; everything else gets the appended
// section.
func (w *Writer) finish(raw string, vocab Vocabulary, dest string, fallback bool) Composition {
	sentinel := ExtractDestinations(raw)
	body := vocab.Substitute(StripSentinelLine(raw))

	if vocab.Len() > 0 && !fallback {
		return Composition{Text: body, Cities: vocab.Cities()}
	}

	cities := vocab.Cities()
	if len(cities) == 0 {
		cities = sentinel
	}
	if len(cities) == 0 && dest != "" {
		cities = []string{dest}
	}
	return Composition{
		Text:     AppendLinksSection(body, cities, w.links),
		Cities:   cities,
		Fallback: fallback,
	}
}
