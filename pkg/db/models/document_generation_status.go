package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
)

// DocumentGenerationStatus tracks one document type of one warranty. Rows are
// reset on regeneration and never deleted.
type DocumentGenerationStatus struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	WarrantyID   uuid.UUID              `gorm:"column:warranty_id;type:uuid;not null;uniqueIndex:ux_generation_status_warranty_type"`
	DocumentType enums.DocumentType     `gorm:"column:document_type;not null;uniqueIndex:ux_generation_status_warranty_type"`
	Status       enums.GenerationStatus `gorm:"column:status;not null"`
	ErrorMessage *string                `gorm:"column:error_message"`
	StartedAt    *time.Time             `gorm:"column:started_at"`
	CompletedAt  *time.Time             `gorm:"column:completed_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (DocumentGenerationStatus) TableName() string {
	return "document_generation_statuses"
}
