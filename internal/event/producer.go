package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	pkgkafka "github.com/guibarbosadev/focus-badge/pkg/kafka"
	"github.com/guibarbosadev/focus-badge/pkg/logger"
)

// Topics written by the service.
var (
	TopicUserLoggedIn         = pkgkafka.Topic("user", "logged_in")
	TopicSessionCreated       = pkgkafka.Topic("session", "created")
	TopicSessionStatusChanged = pkgkafka.Topic("session", "status_changed")
)

const (
	AggregateTypeUser    = "user"
	AggregateTypeSession = "session"

	Source = "focusbadge-api"
)

// UserLoggedInData is the payload for user.logged_in.
type UserLoggedInData struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
}

// SessionCreatedData is the payload for session.created.
type SessionCreatedData struct {
	SessionID string    `json:"session_id"`
	OwnerID   string    `json:"owner_id"`
	Status    string    `json:"status"`
	DeviceID  string    `json:"device_id"`
	StartDate time.Time `json:"start_date"`
}

// SessionStatusChangedData is the payload for session.status_changed.
type SessionStatusChangedData struct {
	SessionID string     `json:"session_id"`
	OwnerID   string     `json:"owner_id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Publisher writes an envelope to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes FocusBadge domain events. A Producer built with a nil
// Publisher drops every event, which is how the service runs without Kafka.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// Enabled reports whether events leave the process.
func (p *Producer) Enabled() bool {
	return p != nil && p.publisher != nil
}

func (p *Producer) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	data := UserLoggedInData{
		UserID:   user.ID,
		Provider: user.Provider,
	}
	return p.publish(ctx, TopicUserLoggedIn, user.ID, AggregateTypeUser, data)
}

func (p *Producer) PublishSessionCreated(ctx context.Context, s *domain.Session) error {
	data := SessionCreatedData{
		SessionID: s.ID,
		OwnerID:   s.OwnerID,
		Status:    string(s.Status),
		DeviceID:  s.Device.DeviceID,
		StartDate: s.StartDate,
	}
	return p.publish(ctx, TopicSessionCreated, s.ID, AggregateTypeSession, data)
}

func (p *Producer) PublishSessionStatusChanged(ctx context.Context, s *domain.Session, from domain.SessionStatus) error {
	data := SessionStatusChangedData{
		SessionID: s.ID,
		OwnerID:   s.OwnerID,
		From:      string(from),
		To:        string(s.Status),
		EndDate:   s.EndDate,
	}
	return p.publish(ctx, TopicSessionStatusChanged, s.ID, AggregateTypeSession, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
