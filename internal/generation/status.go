package generation

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/repo"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxStatusMessageLen = 1024

// StatusTracker records per-document progress of a batch.
type StatusTracker interface {
	Reset(ctx context.Context, warrantyID uuid.UUID, types []enums.DocumentType) error
	Transition(ctx context.Context, warrantyID uuid.UUID, docType enums.DocumentType, next enums.GenerationStatus, message string) error
	List(ctx context.Context, warrantyID uuid.UUID) ([]models.DocumentGenerationStatus, error)
	FailAll(ctx context.Context, warrantyID uuid.UUID, message string) (int64, error)
}

// StatusRepository is the gorm StatusTracker.
type StatusRepository struct {
	repo.Base
	now func() time.Time
}

// NewStatusRepository returns a StatusRepository bound to db.
func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{Base: repo.NewBase(db), now: time.Now}
}

// Reset puts every listed document back to pending, creating rows as needed.
func (r *StatusRepository) Reset(ctx context.Context, warrantyID uuid.UUID, types []enums.DocumentType) error {
	now := r.now().UTC()
	rows := make([]models.DocumentGenerationStatus, 0, len(types))
	for _, t := range types {
		rows = append(rows, models.DocumentGenerationStatus{
			ID:           uuid.New(),
			WarrantyID:   warrantyID,
			DocumentType: t,
			Status:       enums.GenerationStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "warranty_id"}, {Name: "document_type"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":        enums.GenerationStatusPending,
			"error_message": nil,
			"started_at":    nil,
			"completed_at":  nil,
			"updated_at":    now,
		}),
	}).Create(&rows).Error
}

// Transition moves one document to next. Moves the state machine does not
// allow are rejected without touching the row.
func (r *StatusRepository) Transition(ctx context.Context, warrantyID uuid.UUID, docType enums.DocumentType, next enums.GenerationStatus, message string) error {
	allowedFrom := make([]enums.GenerationStatus, 0, 2)
	for _, from := range []enums.GenerationStatus{enums.GenerationStatusPending, enums.GenerationStatusGenerating} {
		if from.CanTransitionTo(next) {
			allowedFrom = append(allowedFrom, from)
		}
	}
	if len(allowedFrom) == 0 {
		return fmt.Errorf("no transition leads to %s", next)
	}

	now := r.now().UTC()
	updates := map[string]any{"status": next, "updated_at": now}
	switch next {
	case enums.GenerationStatusGenerating:
		updates["started_at"] = now
	case enums.GenerationStatusCompleted:
		updates["completed_at"] = now
		updates["error_message"] = nil
	case enums.GenerationStatusFailed:
		updates["completed_at"] = now
		updates["error_message"] = truncate(message, maxStatusMessageLen)
	}

	result := r.DB(ctx).Model(&models.DocumentGenerationStatus{}).
		Where("warranty_id = ? AND document_type = ? AND status IN ?", warrantyID, docType, allowedFrom).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s status of %s cannot move to %s", docType, warrantyID, next)
	}
	return nil
}

// List returns the warranty's statuses in generation order.
func (r *StatusRepository) List(ctx context.Context, warrantyID uuid.UUID) ([]models.DocumentGenerationStatus, error) {
	var rows []models.DocumentGenerationStatus
	if err := r.DB(ctx).Where("warranty_id = ?", warrantyID).Find(&rows).Error; err != nil {
		return nil, err
	}
	ordered := make([]models.DocumentGenerationStatus, 0, len(rows))
	for _, t := range enums.DocumentTypes {
		for _, row := range rows {
			if row.DocumentType == t {
				ordered = append(ordered, row)
			}
		}
	}
	return ordered, nil
}

// FailAll fails every row of the warranty that is not failed yet, completed
// ones included. It is used when a rendered set could not be stored.
func (r *StatusRepository) FailAll(ctx context.Context, warrantyID uuid.UUID, message string) (int64, error) {
	now := r.now().UTC()
	result := r.DB(ctx).Model(&models.DocumentGenerationStatus{}).
		Where("warranty_id = ? AND status <> ?", warrantyID, enums.GenerationStatusFailed).
		Updates(map[string]any{
			"status":        enums.GenerationStatusFailed,
			"error_message": truncate(message, maxStatusMessageLen),
			"completed_at":  now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

// FailStale fails documents left generating since before cutoff, which
// happens when a process dies mid-batch.
func (r *StatusRepository) FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	now := r.now().UTC()
	result := r.DB(ctx).Model(&models.DocumentGenerationStatus{}).
		Where("status = ? AND started_at < ?", enums.GenerationStatusGenerating, cutoff.UTC()).
		Updates(map[string]any{
			"status":        enums.GenerationStatusFailed,
			"error_message": truncate(message, maxStatusMessageLen),
			"completed_at":  now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

func truncate(message string, limit int) string {
	if len(message) <= limit {
		return message
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
