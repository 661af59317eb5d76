package models

import (
	"time"

	"github.com/google/uuid"
)

// WarrantyDocuments holds the encoded document set of a warranty. A warranty
// owns exactly one row; regeneration overwrites it.
type WarrantyDocuments struct {
	WarrantyID      uuid.UUID  `gorm:"column:warranty_id;type:uuid;primaryKey"`
	CustomerInvoice string     `gorm:"column:customer_invoice;not null"`
	MerchantInvoice string     `gorm:"column:merchant_invoice;not null"`
	Contract        string     `gorm:"column:contract;not null"`
	SignatureImage  *string    `gorm:"column:signature_image"`
	SignedAt        *time.Time `gorm:"column:signed_at"`
	GeneratedAt     time.Time  `gorm:"column:generated_at;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (WarrantyDocuments) TableName() string {
	return "warranty_documents"
}
