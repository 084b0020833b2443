package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
	"github.com/huguadventures/travel-assistant-go/internal/audit"
	"github.com/huguadventures/travel-assistant-go/internal/config"
	apperrors "github.com/huguadventures/travel-assistant-go/internal/errors"
	"github.com/huguadventures/travel-assistant-go/internal/itinerary"
	"github.com/huguadventures/travel-assistant-go/internal/messaging"
	"github.com/huguadventures/travel-assistant-go/internal/model"
	"github.com/huguadventures/travel-assistant-go/internal/queue"
	"github.com/huguadventures/travel-assistant-go/internal/repository"
	"github.com/huguadventures/travel-assistant-go/internal/storage"
)

type ItineraryWriter interface {
	Draft(ctx context.Context, req *model.ItineraryRequest) itinerary.Composition
	Revise(ctx context.Context, req *model.ItineraryRequest, editText string) itinerary.Composition
	Links() affiliate.Links
}

type DocumentRenderer interface {
	Render(title, text string, cities []string, links affiliate.Links) ([]byte, error)
}

// FulfillmentService turns paid requests into delivered itineraries and
// applies edits inside the edit window. It implements queue.Handler.
type FulfillmentService struct {
	repo     repository.ItineraryRequestRepository
	writer   ItineraryWriter
	renderer DocumentRenderer
	uploader storage.Uploader
	sender   messaging.Sender
	msgs     Messages
}

var _ queue.Handler = (*FulfillmentService)(nil)

func NewFulfillmentService(
	repo repository.ItineraryRequestRepository,
	writer ItineraryWriter,
	renderer DocumentRenderer,
	uploader storage.Uploader,
	sender messaging.Sender,
	msgs Messages,
) *FulfillmentService {
	return &FulfillmentService{
		repo:     repo,
		writer:   writer,
		renderer: renderer,
		uploader: uploader,
		sender:   sender,
		msgs:     msgs,
	}
}

// run carries the artifacts that flow between pipeline stages.
type run struct {
	req  *model.ItineraryRequest
	comp itinerary.Composition
	pdf  []byte
	url  string
}

func (s *FulfillmentService) Deliver(ctx context.Context, itineraryID int64) error {
	req, err := s.repo.FindByID(ctx, itineraryID)
	if err != nil {
		return fmt.Errorf("find itinerary request: %w", err)
	}
	if req == nil || req.PaymentStatus != model.PaymentStatusPaid {
		log.Warn().Int64("itinerary_id", itineraryID).Msg("delivery requested for unknown or unpaid request")
		return nil
	}
	if req.HasContent() {
		log.Info().Int64("itinerary_id", itineraryID).Msg("itinerary already delivered, skipping")
		return nil
	}

	dest := req.Destination(defaultDestination)
	r := &run{req: req}

	stages := []Stage{
		{Name: "compose", Run: func(ctx context.Context) error {
			r.comp = s.writer.Draft(ctx, req)
			return nil
		}},
		{Name: "save-text", Run: func(ctx context.Context) error {
			return s.repo.SaveText(ctx, req.ID, r.comp.Text)
		}},
	}
	stages = append(stages, s.artifactStages(r, "Itinerary for "+dest)...)
	stages = append(stages, Stage{Name: "notify", Run: func(ctx context.Context) error {
		if r.url != "" {
			err := s.sendMedia(ctx, req.SenderIdentity, s.msgs.Delivered(dest), r.url)
			if err == nil {
				if err := s.sendText(ctx, req.SenderIdentity, msgPDFResent); err != nil {
					log.Warn().Err(err).Int64("itinerary_id", req.ID).Msg("failed to send delivery follow-up")
				}
				return nil
			}
			log.Warn().Err(err).Int64("itinerary_id", req.ID).Msg("failed to send itinerary PDF, falling back to text")
		}
		return s.sendText(ctx, req.SenderIdentity, s.msgs.DeliveredText(dest, r.comp.Text))
	}})

	outcome, err := NewPipeline("deliver", stages...).Run(ctx)
	if err != nil {
		s.notifyQuietly(ctx, req.SenderIdentity, msgDeliveryFailed)
		return err
	}

	s.auditOutcome(ctx, audit.EventItineraryDelivered, r, outcome)
	return nil
}

func (s *FulfillmentService) ApplyEdit(ctx context.Context, job queue.EditJob) error {
	req, err := s.repo.FindByID(ctx, job.ItineraryID)
	if err != nil {
		s.notifyQuietly(ctx, job.Sender, msgEditUpdateError)
		return fmt.Errorf("find itinerary request: %w", err)
	}
	if req == nil || req.SenderIdentity != job.Sender || req.PaymentStatus != model.PaymentStatusPaid {
		s.notifyQuietly(ctx, job.Sender, msgEditNotFound)
		return nil
	}
	if !req.EditWindowOpen {
		s.rejectEdit(ctx, req)
		return nil
	}

	r := &run{req: req}
	stages := []Stage{
		{Name: "revise", Run: func(ctx context.Context) error {
			r.comp = s.writer.Revise(ctx, req, job.EditText)
			return nil
		}},
		{Name: "apply", Run: func(ctx context.Context) error {
			applied, err := s.repo.ApplyEdit(ctx, req.ID, r.comp.Text, job.EditText)
			if err != nil {
				return apperrors.Database(err)
			}
			if !applied {
				return apperrors.EditWindowClosed()
			}
			return nil
		}},
	}
	stages = append(stages, s.artifactStages(r, "Updated itinerary for "+req.Destination(defaultDestination))...)
	stages = append(stages, Stage{Name: "notify", Run: func(ctx context.Context) error {
		if r.url != "" {
			err := s.sendMedia(ctx, req.SenderIdentity, s.msgs.Updated(), r.url)
			if err == nil {
				return nil
			}
			log.Warn().Err(err).Int64("itinerary_id", req.ID).Msg("failed to send updated PDF, falling back to text")
		}
		return s.sendText(ctx, req.SenderIdentity, s.msgs.UpdatedText(r.comp.Text))
	}})

	outcome, err := NewPipeline("edit", stages...).Run(ctx)
	if apperrors.HasCode(err, apperrors.ErrCodeEditWindowClosed) {
		s.rejectEdit(ctx, req)
		return nil
	}
	if err != nil {
		s.notifyQuietly(ctx, req.SenderIdentity, msgEditUpdateError)
		return err
	}

	s.auditOutcome(ctx, audit.EventItineraryEdited, r, outcome)
	return nil
}

// artifactStages render, store and record the PDF. Each is optional: a
// failure leaves the run to finish as text.
func (s *FulfillmentService) artifactStages(r *run, title string) []Stage {
	return []Stage{
		{Name: "render", Optional: true, Artifact: true, Run: func(ctx context.Context) error {
			doc, err := s.renderer.Render(title, r.comp.Text, r.comp.Cities, s.writer.Links())
			if err != nil {
				return err
			}
			r.pdf = doc
			return nil
		}},
		{Name: "upload", Optional: true, Artifact: true, Run: func(ctx context.Context) error {
			url, err := s.uploader.Upload(ctx, storage.ItineraryKey(r.req.ID), r.pdf, storage.ContentTypePDF)
			if err != nil {
				return err
			}
			r.url = url
			return nil
		}},
		{Name: "save-url", Optional: true, Artifact: true, Run: func(ctx context.Context) error {
			return s.repo.SavePDFURL(ctx, r.req.ID, r.url)
		}},
	}
}

func (s *FulfillmentService) rejectEdit(ctx context.Context, req *model.ItineraryRequest) {
	audit.Log(ctx, audit.Event{
		Type:        audit.EventItineraryEditDenied,
		Sender:      req.SenderIdentity,
		ItineraryID: req.ID,
	})
	s.notifyQuietly(ctx, req.SenderIdentity, s.msgs.EditWindowExpired())
}

func (s *FulfillmentService) auditOutcome(ctx context.Context, success audit.EventType, r *run, outcome Outcome) {
	event := audit.Event{
		Type:        success,
		Sender:      r.req.SenderIdentity,
		ItineraryID: r.req.ID,
		Details: map[string]any{
			"fallback": r.comp.Fallback,
			"pdf":      r.url != "",
		},
	}
	if outcome.Degraded {
		event.Type = audit.EventDeliveryDegraded
		event.Details["failed_stage"] = outcome.FailedStage
		event.Details["skipped"] = outcome.Skipped
		event.Details["operation"] = string(success)
	}
	audit.Log(ctx, event)
}

func (s *FulfillmentService) sendText(ctx context.Context, to, body string) error {
	ctx, cancel := context.WithTimeout(ctx, config.MessagingTimeout)
	defer cancel()
	return s.sender.SendText(ctx, to, body)
}

func (s *FulfillmentService) sendMedia(ctx context.Context, to, body, mediaURL string) error {
	ctx, cancel := context.WithTimeout(ctx, config.MessagingTimeout)
	defer cancel()
	return s.sender.SendMedia(ctx, to, body, mediaURL)
}

func (s *FulfillmentService) notifyQuietly(ctx context.Context, to, body string) {
	if err := s.sendText(ctx, to, body); err != nil {
		log.Error().Err(err).Str("to", to).Msg("failed to send message")
	}
}
