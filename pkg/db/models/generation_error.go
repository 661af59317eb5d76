package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationError is an append-only operational record of a pipeline failure.
type GenerationError struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Kind         string    `gorm:"column:kind;not null"`
	Message      string    `gorm:"column:message;not null"`
	Stack        *string   `gorm:"column:stack"`
	EntityID     uuid.UUID `gorm:"column:entity_id;type:uuid;not null;index"`
	DocumentType *string   `gorm:"column:document_type"`
	Phase        string    `gorm:"column:phase;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (GenerationError) TableName() string {
	return "generation_errors"
}
