package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

// DomainEvent is what callers hand to Emit. OccurredAt defaults to now.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *Actor
	Data          any
	OccurredAt    time.Time
}

type Option func(*Service)

// WithSource stamps envelopes with the emitting process name.
func WithSource(source string) Option {
	return func(s *Service) { s.source = source }
}

type Service struct {
	repo   *Repository
	logg   *logger.Logger
	source string
	now    func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, logg: logg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit queues event inside tx; the row commits or rolls back with the change
// it announces. The row id and the envelope event id are the same value.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("outbox emit needs a transaction")
	}
	if !event.EventType.IsValid() {
		return fmt.Errorf("unknown outbox event type %q", event.EventType)
	}
	if event.AggregateID == uuid.Nil {
		return errors.New("outbox event needs an aggregate id")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	env := Envelope{
		Version:     EnvelopeVersion,
		EventID:     uuid.New(),
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Source:      s.source,
		OccurredAt:  occurred.UTC(),
		Actor:       event.Actor,
		Data:        data,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := s.repo.Insert(tx, models.OutboxEvent{
		ID:            env.EventID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"aggregate_id": event.AggregateID.String(),
			"event_id":     env.EventID.String(),
			"event_type":   event.EventType,
		}), "outbox event queued")
	}
	return nil
}
