package generation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/repo"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/outbox"
	"gorm.io/gorm"
)

// Failure describes one pipeline failure for the error log.
type Failure struct {
	WarrantyID   uuid.UUID
	Phase        enums.GenerationPhase
	DocumentType enums.DocumentType
	Err          error
	Stack        string
}

// ErrorReporter records structured failure reports.
type ErrorReporter interface {
	Report(ctx context.Context, failure Failure) error
}

// FailedEvent is the payload of warranty_documents_failed.
type FailedEvent struct {
	WarrantyID   uuid.UUID          `json:"warrantyId"`
	Phase        string             `json:"phase"`
	DocumentType enums.DocumentType `json:"documentType,omitempty"`
	Kind         string             `json:"kind"`
	Message      string             `json:"message"`
	OccurredAt   time.Time          `json:"occurredAt"`
}

// ErrorLog writes failures to generation_errors and announces them on the
// outbox.
type ErrorLog struct {
	repo.Base
	outbox outboxEmitter
	now    func() time.Time
}

// NewErrorLog wires an ErrorLog. A nil emitter skips the outbox event.
func NewErrorLog(db *gorm.DB, emitter outboxEmitter) *ErrorLog {
	return &ErrorLog{Base: repo.NewBase(db), outbox: emitter, now: time.Now}
}

// Report stores failure.
func (l *ErrorLog) Report(ctx context.Context, failure Failure) error {
	kind := string(pkgerrors.CodeOf(failure.Err))
	message := "unknown failure"
	if failure.Err != nil {
		message = failure.Err.Error()
	}
	row := models.GenerationError{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   truncate(message, maxStatusMessageLen),
		EntityID:  failure.WarrantyID,
		Phase:     failure.Phase.String(),
		CreatedAt: l.now().UTC(),
	}
	if failure.Stack != "" {
		stack := failure.Stack
		row.Stack = &stack
	}
	if failure.DocumentType != "" {
		docType := failure.DocumentType.String()
		row.DocumentType = &docType
	}

	return l.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if l.outbox == nil {
			return nil
		}
		return l.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWarrantyDocumentsFailed,
			AggregateType: enums.AggregateWarranty,
			AggregateID:   failure.WarrantyID,
			OccurredAt:    row.CreatedAt,
			Data: FailedEvent{
				WarrantyID:   failure.WarrantyID,
				Phase:        row.Phase,
				DocumentType: failure.DocumentType,
				Kind:         kind,
				Message:      row.Message,
				OccurredAt:   row.CreatedAt,
			},
		})
	})
}

// DeleteBefore prunes reports older than cutoff. A nil tx uses the bound
// connection.
func (l *ErrorLog) DeleteBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := l.WithTx(tx).DB(ctx)
	result := conn.Where("created_at < ?", cutoff.UTC()).Delete(&models.GenerationError{})
	return result.RowsAffected, result.Error
}
