// Package assistant answers free-form travel questions and suggests trips.
// Replies are WhatsApp-sized and never fail: errors become fixed apologies.
package assistant

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/huguadventures/travel-assistant-go/internal/config"
	"github.com/huguadventures/travel-assistant-go/internal/llm"
	"github.com/huguadventures/travel-assistant-go/internal/util"
)

const (
	shortenedNotice = "\n\n(Shortened to fit WhatsApp limits.)"

	noAnswer = "I'm not sure how to answer that one. Could you rephrase your question?"

	answerError = "Sorry, I had trouble answering that question just now.\n\n" +
		"Please try rephrasing, or type *MENU* to go back."

	ideasError = "Sorry, I had trouble generating trip ideas just now. 😅\n\n" +
		"Please try again in a moment, or type *MENU* to go back."
)

type Assistant struct {
	completer llm.Completer
	brand     string
}

func New(completer llm.Completer, brand string) *Assistant {
	return &Assistant{completer: completer, brand: brand}
}

func (a *Assistant) qaSystemPrompt() string {
	return "You are a friendly travel assistant for " + a.brand + ", a travel company focused on Kenya and East Africa.\n" +
		"Answer travel questions clearly and briefly (WhatsApp-style). Use short paragraphs or bullets.\n" +
		"If the question is about visas, health or safety, give general guidance and recommend checking official sources.\n" +
		"Never write URLs. Keep answers under about 900 characters."
}

func (a *Assistant) inspirationSystemPrompt() string {
	return "You are a creative trip planner for " + a.brand + ".\n" +
		"Given a traveller's preferences, suggest 2-3 trip ideas. For each idea give a short bold title and 3-4 bullets " +
		"covering where to go, what to do and why it suits them.\n" +
		"Use WhatsApp formatting (*bold*, • bullets). Never write URLs."
}

// Answer returns a framed Q&A reply for question.
func (a *Assistant) Answer(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	text, err := a.completer.Complete(ctx, llm.Prompt{
		System:      a.qaSystemPrompt(),
		User:        question,
		MaxTokens:   350,
		Temperature: 0.7,
	})
	if err != nil {
		log.Warn().Err(err).Msg("travel answer failed")
		return answerError
	}
	answer := strings.TrimSpace(text)
	if answer == "" {
		answer = noAnswer
	}

	reply := "🧭 *Travel Q&A*\n\n*Your question:*\n" + question +
		"\n\n*My answer:*\n" + answer +
		"\n\nYou can ask another question, or type *MENU* to go back."
	return Cap(reply)
}

// Inspire returns trip ideas for the given preferences.
func (a *Assistant) Inspire(ctx context.Context, preferences string) string {
	text, err := a.completer.Complete(ctx, llm.Prompt{
		System: a.inspirationSystemPrompt(),
		User: "User preferences:\n" + strings.TrimSpace(preferences) +
			"\n\nReturn WhatsApp-friendly text under about 1200 characters.",
		MaxTokens:   450,
		Temperature: 0.9,
	})
	ideas := strings.TrimSpace(text)
	if err != nil || ideas == "" {
		log.Warn().Err(err).Msg("trip inspiration failed")
		return ideasError
	}

	reply := "🌍 *Trip inspiration for you*\n\n" + ideas +
		"\n\nIf one of these sounds good, reply with *5* and I'll build a detailed itinerary, or type *MENU* to go back."
	return Cap(reply)
}

// Cap shortens s to the assistant reply limit with a notice.
func Cap(s string) string {
	if util.RuneLen(s) <= config.AssistantReplyMaxChars {
		return s
	}
	return util.Truncate(s, config.AssistantReplyCutChars) + shortenedNotice
}
