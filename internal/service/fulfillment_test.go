package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huguadventures/travel-assistant-go/internal/queue"
)

const traveller = "whatsapp:+254700000001"

type fulfillmentFixture struct {
	repo     *fakeRepo
	sender   *fakeSender
	renderer *stubRenderer
	uploader *stubUploader
	svc      *FulfillmentService
}

func newFulfillmentFixture(w stubWriter) *fulfillmentFixture {
	f := &fulfillmentFixture{
		repo:     newFakeRepo(),
		sender:   &fakeSender{},
		renderer: &stubRenderer{},
		uploader: &stubUploader{},
	}
	f.svc = NewFulfillmentService(f.repo, w, f.renderer, f.uploader, f.sender, testMessages)
	return f
}

// paidRow stores a request that was just paid for.
func (f *fulfillmentFixture) paidRow(t *testing.T) int64 {
	t.Helper()
	return f.repo.seedUndelivered(traveller, "Kenya", 0).ID
}

func TestFulfillmentService_Deliver(t *testing.T) {
	t.Run("delivers pdf with redundant confirmation", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		id := f.paidRow(t)

		require.NoError(t, f.svc.Deliver(context.Background(), id))

		row := f.repo.row(id)
		assert.Contains(t, row.Text(), "Trip to Kenya")
		assert.Equal(t, "https://cdn.example.com/itineraries/itinerary_1.pdf", row.PDFURL())
		assert.Equal(t, []string{"Itinerary for Kenya"}, f.renderer.titles)

		msgs := f.sender.messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, row.PDFURL(), msgs[0].MediaURL)
		assert.Contains(t, msgs[0].Body, "Payment received successfully")
		assert.Contains(t, msgs[0].Body, "*Kenya*")
		assert.Equal(t, msgPDFResent, msgs[1].Body)
	})

	t.Run("render failure degrades to text", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		f.renderer.err = errors.New("font missing")
		id := f.paidRow(t)

		require.NoError(t, f.svc.Deliver(context.Background(), id))

		row := f.repo.row(id)
		assert.NotEmpty(t, row.Text())
		assert.Empty(t, row.PDFURL())
		assert.Empty(t, f.uploader.keys)

		msgs := f.sender.messages()
		require.Len(t, msgs, 1)
		assert.Empty(t, msgs[0].MediaURL)
		assert.Contains(t, msgs[0].Body, "Here is your *draft itinerary* for *Kenya*")
		assert.Contains(t, msgs[0].Body, "Trip to Kenya")
	})

	t.Run("upload failure degrades to text", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		f.uploader.err = errors.New("s3 down")
		id := f.paidRow(t)

		require.NoError(t, f.svc.Deliver(context.Background(), id))

		assert.Empty(t, f.repo.row(id).PDFURL())
		assert.Empty(t, f.sender.last().MediaURL)
	})

	t.Run("media send failure falls back to text", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		f.sender.failMedia = errors.New("twilio 500")
		id := f.paidRow(t)

		require.NoError(t, f.svc.Deliver(context.Background(), id))

		msgs := f.sender.messages()
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Body, "draft itinerary")
	})

	t.Run("persist failure apologizes with a way to retry", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		f.repo.failSave = errors.New("db blip")
		id := f.paidRow(t)

		err := f.svc.Deliver(context.Background(), id)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "save-text")
		msgs := f.sender.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, traveller, msgs[0].To)
		assert.Equal(t, msgDeliveryFailed, msgs[0].Body)
		assert.Contains(t, msgs[0].Body, "*ITINERARY*")
		assert.True(t, f.repo.row(id).Undelivered())
	})

	t.Run("already delivered request is skipped", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		row := f.repo.seedPaid(traveller, "Kenya", "existing", time.Now().Add(time.Hour))

		require.NoError(t, f.svc.Deliver(context.Background(), row.ID))
		assert.Empty(t, f.sender.messages())
	})

	t.Run("unknown request is ignored", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})

		require.NoError(t, f.svc.Deliver(context.Background(), 42))
		assert.Empty(t, f.sender.messages())
	})

	t.Run("long text fallback is truncated with notice", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		f.renderer.err = errors.New("render")
		id := f.paidRow(t)
		f.repo.mu.Lock()
		long := strings.Repeat("safari ", 400)
		f.repo.rows[id].LastDestination = &long
		f.repo.mu.Unlock()

		require.NoError(t, f.svc.Deliver(context.Background(), id))

		body := f.sender.last().Body
		assert.True(t, strings.HasSuffix(body, shortenedNotice))
		assert.LessOrEqual(t, len([]rune(body)), 1500+len([]rune(shortenedNotice)))
	})
}

func TestFulfillmentService_ApplyEdit(t *testing.T) {
	t.Run("open window rewrites text and resends pdf", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		row := f.repo.seedPaid(traveller, "Kenya", "old plan", time.Now().Add(time.Hour))

		err := f.svc.ApplyEdit(context.Background(), queue.EditJob{
			ItineraryID: row.ID, Sender: traveller, EditText: "add a day in Lamu",
		})

		require.NoError(t, err)
		updated := f.repo.row(row.ID)
		assert.Equal(t, "Revised: add a day in Lamu", updated.Text())
		assert.Equal(t, "add a day in Lamu", updated.RawDetails)
		assert.Equal(t, []string{"Updated itinerary for Kenya"}, f.renderer.titles)
		assert.Equal(t, []string{"itineraries/itinerary_1.pdf"}, f.uploader.keys)

		last := f.sender.last()
		assert.NotEmpty(t, last.MediaURL)
		assert.Equal(t, testMessages.Updated(), last.Body)
	})

	t.Run("closed window mutates nothing", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		row := f.repo.seedPaid(traveller, "Kenya", "old plan", time.Now().Add(-time.Minute))
		before := f.repo.row(row.ID)

		err := f.svc.ApplyEdit(context.Background(), queue.EditJob{
			ItineraryID: row.ID, Sender: traveller, EditText: "make it longer",
		})

		require.NoError(t, err)
		assert.Equal(t, before, f.repo.row(row.ID))
		assert.Empty(t, f.renderer.titles)
		assert.Equal(t, testMessages.EditWindowExpired(), f.sender.last().Body)
	})

	t.Run("another sender cannot edit", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		row := f.repo.seedPaid(traveller, "Kenya", "old plan", time.Now().Add(time.Hour))

		err := f.svc.ApplyEdit(context.Background(), queue.EditJob{
			ItineraryID: row.ID, Sender: "whatsapp:+1999", EditText: "mine now",
		})

		require.NoError(t, err)
		assert.Equal(t, "old plan", f.repo.row(row.ID).Text())
		assert.Equal(t, msgEditNotFound, f.sender.last().Body)
	})

	t.Run("render failure after edit drops the old pdf", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		f.renderer.err = errors.New("font missing")
		row := f.repo.seedPaid(traveller, "Kenya", "old plan", time.Now().Add(time.Hour))
		require.NoError(t, f.repo.SavePDFURL(context.Background(), row.ID, "https://cdn.example.com/itineraries/itinerary_1.pdf?v=old"))

		err := f.svc.ApplyEdit(context.Background(), queue.EditJob{
			ItineraryID: row.ID, Sender: traveller, EditText: "swap day 2",
		})

		require.NoError(t, err)
		updated := f.repo.row(row.ID)
		assert.Equal(t, "Revised: swap day 2", updated.Text())
		assert.Empty(t, updated.PDFURL())
		assert.Contains(t, f.sender.last().Body, "Revised: swap day 2")
	})

	t.Run("storage failure sends updated text", func(t *testing.T) {
		f := newFulfillmentFixture(stubWriter{})
		f.uploader.err = errors.New("s3 down")
		row := f.repo.seedPaid(traveller, "Kenya", "old plan", time.Now().Add(time.Hour))

		err := f.svc.ApplyEdit(context.Background(), queue.EditJob{
			ItineraryID: row.ID, Sender: traveller, EditText: "slower pace",
		})

		require.NoError(t, err)
		last := f.sender.last()
		assert.Empty(t, last.MediaURL)
		assert.Contains(t, last.Body, "Revised: slower pace")
	})
}
