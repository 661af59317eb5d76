package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/config"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/outbox"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			newEvent(t, enums.EventWarrantyDocumentsGenerated, eventOne, 0),
			newEvent(t, enums.EventWarrantyDocumentsFailed, eventTwo, 0),
		},
	}
	bus := &fakeBus{errs: []error{errors.New("transient")}}
	service := newTestService(t, repo, bus, config.OutboxConfig{})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestServicePublishesOnEventChannel(t *testing.T) {
	event := newEvent(t, enums.EventWarrantyDocumentsGenerated, eventOne, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	bus := &fakeBus{}
	service := newTestService(t, repo, bus, config.OutboxConfig{})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(bus.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(bus.sent))
	}
	sent := bus.sent[0]
	if sent.channel != "events:warranty_documents_generated" {
		t.Fatalf("unexpected channel %q", sent.channel)
	}
	var msg busMessage
	if err := json.Unmarshal(sent.body, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.EventID != eventOne.String() || msg.AggregateID != event.AggregateID.String() {
		t.Fatalf("unexpected message %+v", msg)
	}
	if string(msg.Envelope) != string(event.Payload) {
		t.Fatalf("expected envelope to be forwarded untouched")
	}
}

func TestServiceRetriesPublishBeforeFailing(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{newEvent(t, enums.EventWarrantyDocumentsGenerated, eventOne, 0)}}
	bus := &fakeBus{errs: []error{errors.New("blip")}}
	service := newTestService(t, repo, bus, config.OutboxConfig{PublishRetries: 1})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if bus.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", bus.calls)
	}
	if len(repo.published) != 1 || len(repo.failed) != 0 {
		t.Fatalf("expected retried publish to succeed, published=%d failed=%d", len(repo.published), len(repo.failed))
	}
}

func TestServiceMarksUndecodableEventsTerminal(t *testing.T) {
	event := newEvent(t, enums.EventWarrantyDocumentsGenerated, eventOne, 0)
	event.Payload = json.RawMessage(`not-json`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	bus := &fakeBus{}
	service := newTestService(t, repo, bus, config.OutboxConfig{MaxAttempts: 4})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if bus.calls != 0 {
		t.Fatalf("undecodable events must not be published")
	}
	if len(repo.terminal) != 1 || repo.terminalAttempts != 4 {
		t.Fatalf("expected terminal mark with 4 attempts, got %v attempts=%d", repo.terminal, repo.terminalAttempts)
	}
}

func TestServiceMarksLastAttemptTerminal(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{newEvent(t, enums.EventWarrantyDocumentsGenerated, eventOne, 2)}}
	bus := &fakeBus{errs: []error{errors.New("down")}}
	service := newTestService(t, repo, bus, config.OutboxConfig{MaxAttempts: 3})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 || len(repo.failed) != 0 {
		t.Fatalf("expected terminal mark, terminal=%d failed=%d", len(repo.terminal), len(repo.failed))
	}
}

func TestServiceEmptyBatch(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeBus{}, config.OutboxConfig{})
	processed, err := service.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, processed=%v err=%v", processed, err)
	}
}

func TestNextBackoffCaps(t *testing.T) {
	if got := nextBackoff(0, time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("unexpected backoff %s", got)
	}
	if got := nextBackoff(8*time.Second, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, bus eventBus, cfg config.OutboxConfig) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         &fakeDB{},
		Bus:        bus,
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

var (
	eventOne = uuid.MustParse("0b6c3a52-3f7e-4d8a-9c1e-5a2f7d9e1b01")
	eventTwo = uuid.MustParse("0b6c3a52-3f7e-4d8a-9c1e-5a2f7d9e1b02")
)

func newEvent(tb testing.TB, eventType enums.OutboxEventType, eventID uuid.UUID, attempts int) models.OutboxEvent {
	tb.Helper()
	aggregateID := uuid.New()
	envelope := outbox.Envelope{
		Version:     outbox.EnvelopeVersion,
		EventID:     eventID,
		EventType:   eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Data:        json.RawMessage(`{"warrantyId":"w-1"}`),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            eventID,
		EventType:     eventType,
		AggregateType: enums.AggregateWarranty,
		AggregateID:   aggregateID,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		AttemptCount:  attempts,
	}
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID, at time.Time) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type sentMessage struct {
	channel string
	body    []byte
}

// fakeBus fails the first len(errs) publishes with the queued errors.
type fakeBus struct {
	errs  []error
	calls int
	sent  []sentMessage
}

func (f *fakeBus) Ping(context.Context) error {
	return nil
}

func (f *fakeBus) EventChannel(eventType string) string {
	return "events:" + eventType
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload any) (int64, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return 0, err
	}
	body, _ := payload.([]byte)
	f.sent = append(f.sent, sentMessage{channel: channel, body: body})
	return 1, nil
}
