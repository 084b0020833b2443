package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
	"github.com/huguadventures/travel-assistant-go/internal/config"
	"github.com/huguadventures/travel-assistant-go/internal/messaging"
	"github.com/huguadventures/travel-assistant-go/internal/model"
	"github.com/huguadventures/travel-assistant-go/internal/payment"
	"github.com/huguadventures/travel-assistant-go/internal/queue"
	"github.com/huguadventures/travel-assistant-go/internal/repository"
	"github.com/huguadventures/travel-assistant-go/internal/session"
	"github.com/huguadventures/travel-assistant-go/internal/util"
)

type TravelAssistant interface {
	Answer(ctx context.Context, question string) string
	Inspire(ctx context.Context, preferences string) string
}

type CheckoutStarter interface {
	StartCheckout(ctx context.Context, sender string, sess *model.ConversationSession, details string) (*payment.Session, error)
}

var (
	viewCommands = []string{"itinerary", "my itinerary"}
	editCommands = []string{"edit itinerary", "edit trip"}
	menuCommands = []string{"menu", "hi", "hello", "start"}

	destinationField = regexp.MustCompile(`(?im)^[ \t*_]*destinations?(?:\(s\))?[ \t*_]*:[ \t*_]*(\S.*?)[ \t*_]*$`)
)

type ConversationService struct {
	store      session.Store
	locker     session.Locker
	repo       repository.ItineraryRequestRepository
	assistant  TravelAssistant
	checkout   CheckoutStarter
	dispatcher queue.Dispatcher
	sender     messaging.Sender
	links      affiliate.Links
	msgs       Messages
}

func NewConversationService(
	store session.Store,
	locker session.Locker,
	repo repository.ItineraryRequestRepository,
	assistant TravelAssistant,
	checkout CheckoutStarter,
	dispatcher queue.Dispatcher,
	sender messaging.Sender,
	links affiliate.Links,
	msgs Messages,
) *ConversationService {
	return &ConversationService{
		store:      store,
		locker:     locker,
		repo:       repo,
		assistant:  assistant,
		checkout:   checkout,
		dispatcher: dispatcher,
		sender:     sender,
		links:      links,
		msgs:       msgs,
	}
}

// HandleInbound advances the sender's conversation by one message. Step
// failures are answered with an apology and reset the session to the menu;
// only lock and session store failures are returned.
func (s *ConversationService) HandleInbound(ctx context.Context, from, body string) error {
	lockCtx, cancel := context.WithTimeout(ctx, config.SessionLockTimeout)
	unlock, err := s.locker.Lock(lockCtx, from)
	cancel()
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	sess, err := s.store.Get(ctx, from)
	if err != nil {
		s.replyQuietly(ctx, from, msgGlobalError)
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = model.NewConversationSession()
	}

	if err := s.step(ctx, from, sess, strings.TrimSpace(body)); err != nil {
		log.Error().
			Err(err).
			Str("from", from).
			Str("state", string(sess.State)).
			Msg("conversation step failed")
		sess.Reset()
		s.replyQuietly(ctx, from, msgGlobalError)
	}

	if err := s.store.Put(ctx, from, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *ConversationService) step(ctx context.Context, from string, sess *model.ConversationSession, body string) error {
	text := util.Normalize(body)

	switch {
	case lo.Contains(viewCommands, text):
		return s.showLatest(ctx, from)
	case lo.Contains(editCommands, text):
		return s.beginEdit(ctx, from, sess)
	case lo.Contains(menuCommands, text):
		sess.Reset()
		return s.reply(ctx, from, s.msgs.Menu())
	}

	switch sess.State {
	case model.StateNew:
		sess.State = model.StateMainMenu
		return s.reply(ctx, from, s.msgs.Menu())

	case model.StateMainMenu:
		return s.chooseFromMenu(ctx, from, sess, text)

	case model.StateAskTourDest:
		sess.LastDestination = &body
		sess.State = model.StateAfterLinks
		return s.reply(ctx, from, s.msgs.TourLinks(body, s.links.Tours(body)))

	case model.StateAskHotelDest:
		sess.LastDestination = &body
		sess.State = model.StateAfterLinks
		return s.reply(ctx, from, s.msgs.HotelLinks(body, s.links.Hotels(body)))

	case model.StateAskFlightRoute:
		sess.LastDestination = &body
		sess.State = model.StateAfterLinks
		return s.reply(ctx, from, s.msgs.FlightLinks(body, s.links.Flights(body)))

	case model.StateAskTravelQuestion:
		return s.reply(ctx, from, s.assistant.Answer(ctx, body))

	case model.StateAskTripInspiration:
		sess.State = model.StateMainMenu
		return s.reply(ctx, from, s.assistant.Inspire(ctx, body))

	case model.StateAfterLinks:
		switch text {
		case "yes", "y":
			sess.State = model.StateAskItineraryDetails
			return s.reply(ctx, from, s.msgs.AskDraftDetails())
		default:
			return s.reply(ctx, from, msgUpsellNudge)
		}

	case model.StateAskItineraryDetails:
		return s.requestItinerary(ctx, from, sess, body)

	case model.StateEditItineraryDetails:
		return s.submitEdit(ctx, from, sess, body)
	}

	log.Warn().Str("from", from).Str("state", string(sess.State)).Msg("unknown session state, resetting")
	sess.Reset()
	return s.reply(ctx, from, s.msgs.Menu())
}

func (s *ConversationService) chooseFromMenu(ctx context.Context, from string, sess *model.ConversationSession, choice string) error {
	switch choice {
	case "1":
		sess.State = model.StateAskTourDest
		sess.LastService = servicePtr(model.ServiceTours)
		return s.reply(ctx, from, msgAskTourDest)
	case "2":
		sess.State = model.StateAskHotelDest
		sess.LastService = servicePtr(model.ServiceHotels)
		return s.reply(ctx, from, msgAskHotelDest)
	case "3":
		sess.State = model.StateAskFlightRoute
		sess.LastService = servicePtr(model.ServiceFlights)
		return s.reply(ctx, from, msgAskFlightRoute)
	case "4":
		sess.State = model.StateAskTravelQuestion
		return s.reply(ctx, from, msgAskQuestion)
	case "5":
		sess.State = model.StateAskItineraryDetails
		return s.reply(ctx, from, s.msgs.AskItineraryDetails())
	case "6":
		sess.State = model.StateAskTripInspiration
		return s.reply(ctx, from, msgAskInspiration)
	}
	return s.reply(ctx, from, s.msgs.DidNotUnderstand())
}

// requestItinerary records the details and sends a payment link. The session
// returns to the menu whether or not checkout succeeds.
func (s *ConversationService) requestItinerary(ctx context.Context, from string, sess *model.ConversationSession, details string) error {
	sess.ItineraryDetails = &details
	sess.State = model.StateMainMenu
	if sess.LastDestination == nil {
		if dest := destinationFromDetails(details); dest != "" {
			sess.LastDestination = &dest
		}
	}

	checkout, err := s.checkout.StartCheckout(ctx, from, sess, details)
	if err != nil {
		log.Error().Err(err).Str("from", from).Msg("failed to start checkout")
		return s.reply(ctx, from, msgPaymentError)
	}
	return s.reply(ctx, from, s.msgs.PaymentLink(details, checkout.RedirectURL))
}

func (s *ConversationService) showLatest(ctx context.Context, from string) error {
	req, err := s.repo.FindLatestPaid(ctx, from)
	if err != nil {
		log.Error().Err(err).Str("from", from).Msg("failed to load latest itinerary")
		return s.reply(ctx, from, msgViewError)
	}
	if req == nil {
		return s.reply(ctx, from, msgNoPaidItinerary)
	}
	if !req.HasContent() {
		return s.redeliver(ctx, from, req)
	}

	if url := req.PDFURL(); url != "" {
		return s.replyMedia(ctx, from, s.msgs.ViewPDF(req.EditableUntil), url)
	}
	return s.reply(ctx, from, s.msgs.ViewText(req.Text(), req.EditableUntil))
}

// redeliver handles a paid request that never received its itinerary. A
// delivery still inside its pipeline budget is left alone.
func (s *ConversationService) redeliver(ctx context.Context, from string, req *model.ItineraryRequest) error {
	if req.PaidAt != nil && time.Since(*req.PaidAt) < config.PipelineTimeout {
		return s.reply(ctx, from, msgItineraryPreparing)
	}

	log.Warn().Int64("itinerary_id", req.ID).Str("from", from).Msg("paid itinerary without content, redispatching delivery")
	if err := s.dispatcher.DispatchDelivery(ctx, req.ID); err != nil {
		log.Error().Err(err).Int64("itinerary_id", req.ID).Msg("failed to redispatch delivery")
		return s.reply(ctx, from, msgViewError)
	}
	return s.reply(ctx, from, msgItineraryRetrying)
}

func (s *ConversationService) beginEdit(ctx context.Context, from string, sess *model.ConversationSession) error {
	req, err := s.repo.FindLatestPaid(ctx, from)
	if err != nil {
		log.Error().Err(err).Str("from", from).Msg("failed to prepare edit")
		return s.reply(ctx, from, msgEditPrepareError)
	}
	if req == nil {
		return s.reply(ctx, from, msgNoEditableItinerary)
	}
	if !req.EditWindowOpen {
		return s.reply(ctx, from, s.msgs.EditWindowExpired())
	}

	id := req.ID
	sess.State = model.StateEditItineraryDetails
	sess.CurrentItineraryID = &id
	return s.reply(ctx, from, msgEditPrompt)
}

func (s *ConversationService) submitEdit(ctx context.Context, from string, sess *model.ConversationSession, editText string) error {
	target := sess.CurrentItineraryID
	sess.Reset()

	if target == nil {
		return s.reply(ctx, from, msgEditNotFound)
	}

	err := s.dispatcher.DispatchEdit(ctx, queue.EditJob{
		ItineraryID: *target,
		Sender:      from,
		EditText:    editText,
	})
	if err != nil {
		log.Error().Err(err).Int64("itinerary_id", *target).Msg("failed to dispatch edit")
		return s.reply(ctx, from, msgEditUpdateError)
	}
	return s.reply(ctx, from, msgEditQueued)
}

func (s *ConversationService) reply(ctx context.Context, to, body string) error {
	ctx, cancel := context.WithTimeout(ctx, config.MessagingTimeout)
	defer cancel()
	return s.sender.SendText(ctx, to, body)
}

func (s *ConversationService) replyMedia(ctx context.Context, to, body, mediaURL string) error {
	ctx, cancel := context.WithTimeout(ctx, config.MessagingTimeout)
	defer cancel()
	return s.sender.SendMedia(ctx, to, body, mediaURL)
}

func (s *ConversationService) replyQuietly(ctx context.Context, to, body string) {
	if err := s.reply(ctx, to, body); err != nil {
		log.Error().Err(err).Str("to", to).Msg("failed to send message")
	}
}

func servicePtr(s model.Service) *model.Service {
	return &s
}

// destinationFromDetails reads the "Destination(s):" line of a details
// reply, or "" when there is none.
func destinationFromDetails(details string) string {
	m := destinationField.FindStringSubmatch(details)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
