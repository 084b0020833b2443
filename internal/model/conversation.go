package model

import (
	"time"
)

// ConversationSession is the per-sender chat state. It is kept in a session
// store with a TTL and never written to the relational database.
type ConversationSession struct {
	State              State     `json:"state"`
	LastDestination    *string   `json:"lastDestination,omitempty"`
	LastService        *Service  `json:"lastService,omitempty"`
	ItineraryDetails   *string   `json:"itineraryDetails,omitempty"`
	CurrentItineraryID *int64    `json:"currentItineraryId,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func NewConversationSession() *ConversationSession {
	return &ConversationSession{State: StateNew}
}

// Reset returns the session to the main menu and drops any in-progress edit.
func (s *ConversationSession) Reset() {
	s.State = StateMainMenu
	s.CurrentItineraryID = nil
}
