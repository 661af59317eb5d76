package models

import (
	"time"

	"github.com/google/uuid"
)

// ClaimToken is the public token printed on a contract's claim page.
type ClaimToken struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	WarrantyID uuid.UUID  `gorm:"column:warranty_id;type:uuid;not null;uniqueIndex"`
	Token      string     `gorm:"column:token;not null;uniqueIndex"`
	ExpiresAt  *time.Time `gorm:"column:expires_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (ClaimToken) TableName() string {
	return "claim_tokens"
}
