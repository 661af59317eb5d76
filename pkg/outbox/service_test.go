package outbox

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`).Error)
	return db
}

func TestEmitWritesEnvelopeInTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil, WithSource("api"))
	occurred := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	warrantyID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventWarrantyDocumentsGenerated,
			AggregateType: enums.AggregateWarranty,
			AggregateID:   warrantyID,
			Actor:         &Actor{Reference: "user-42"},
			Data:          map[string]string{"contract_number": "PPR-1"},
			OccurredAt:    occurred,
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListForAggregate(context.Background(), enums.AggregateWarranty, warrantyID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, rows[0].ID, env.EventID)
	assert.Equal(t, enums.EventWarrantyDocumentsGenerated, env.EventType)
	assert.Equal(t, warrantyID, env.AggregateID)
	assert.Equal(t, "api", env.Source)
	assert.True(t, occurred.Equal(env.OccurredAt))
	assert.Equal(t, "user-42", env.Actor.Reference)

	var data map[string]string
	require.NoError(t, env.DecodeData(&data))
	assert.Equal(t, "PPR-1", data["contract_number"])
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	warrantyID := uuid.New()

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventWarrantyDocumentsGenerated,
			AggregateType: enums.AggregateWarranty,
			AggregateID:   warrantyID,
		}))
		return fmt.Errorf("abort")
	})

	rows, err := repo.ListForAggregate(context.Background(), enums.AggregateWarranty, warrantyID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitValidation(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventWarrantyDocumentsGenerated}))

	db := setupOutboxTestDB(t)
	assert.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: "unknown", AggregateID: uuid.New()}))
	assert.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: enums.EventWarrantyDocumentsGenerated}))
}

func TestDecodeEnvelope(t *testing.T) {
	eventID := uuid.New()
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"current", fmt.Sprintf(`{"version":2,"eventId":%q,"eventType":"warranty_documents_failed","data":{}}`, eventID), false},
		{"legacy without type", fmt.Sprintf(`{"version":1,"eventId":%q,"data":{}}`, eventID), false},
		{"future version", fmt.Sprintf(`{"version":3,"eventId":%q,"data":{}}`, eventID), true},
		{"missing id", `{"version":2,"eventType":"warranty_documents_failed"}`, true},
		{"unknown type", fmt.Sprintf(`{"version":2,"eventId":%q,"eventType":"order_paid"}`, eventID), true},
		{"not json", `{`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tc.raw))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, eventID, env.EventID)
		})
	}

	var v any
	assert.Error(t, Envelope{}.DecodeData(&v))
}
