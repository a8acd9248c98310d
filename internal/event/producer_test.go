package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	pkgkafka "github.com/guibarbosadev/focus-badge/pkg/kafka"
	"github.com/guibarbosadev/focus-badge/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, evt *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: evt})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "focusbadge.user.logged_in", TopicUserLoggedIn)
	assert.Equal(t, "focusbadge.session.created", TopicSessionCreated)
	assert.Equal(t, "focusbadge.session.status_changed", TopicSessionStatusChanged)
}

func TestPublishUserLoggedIn(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, discardLogger())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, p.PublishUserLoggedIn(ctx, &domain.User{ID: "u-1", Provider: domain.ProviderGoogle}))

	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, TopicUserLoggedIn, msg.topic)
	assert.Equal(t, "u-1", msg.event.AggregateID)
	assert.Equal(t, AggregateTypeUser, msg.event.AggregateType)
	assert.Equal(t, "corr-1", msg.event.CorrelationID)

	var data UserLoggedInData
	require.NoError(t, msg.event.UnmarshalData(&data))
	assert.Equal(t, UserLoggedInData{UserID: "u-1", Provider: "google"}, data)
}

func TestPublishSessionStatusChanged(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, discardLogger())

	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &domain.Session{ID: "s-1", OwnerID: "u-1", Status: domain.StatusCompleted, EndDate: &end}

	require.NoError(t, p.PublishSessionStatusChanged(context.Background(), s, domain.StatusActive))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "s-1", pub.sent[0].event.AggregateID)

	var data SessionStatusChangedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, "active", data.From)
	assert.Equal(t, "completed", data.To)
	require.NotNil(t, data.EndDate)
	assert.True(t, end.Equal(*data.EndDate))
}

func TestPublishSessionCreated(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, discardLogger())
	s := &domain.Session{
		ID:      "s-2",
		OwnerID: "u-1",
		Status:  domain.StatusScheduled,
		Device:  domain.Device{DeviceID: "dev-9"},
	}

	require.NoError(t, p.PublishSessionCreated(context.Background(), s))

	var data SessionCreatedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, "dev-9", data.DeviceID)
	assert.Equal(t, "scheduled", data.Status)
	assert.Empty(t, pub.sent[0].event.CorrelationID)
}

func TestDisabledProducerDropsEvents(t *testing.T) {
	p := NewProducer(nil, discardLogger())
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishUserLoggedIn(context.Background(), &domain.User{ID: "u-1"}))

	var nilProducer *Producer
	assert.False(t, nilProducer.Enabled())
	assert.NoError(t, nilProducer.PublishSessionCreated(context.Background(), &domain.Session{ID: "s"}))
}

func TestPublishError(t *testing.T) {
	p := NewProducer(&fakePublisher{err: errors.New("broker down")}, discardLogger())

	err := p.PublishUserLoggedIn(context.Background(), &domain.User{ID: "u-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish focusbadge.user.logged_in event")
}
