package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
)

// ContractTemplate stores an organization's contract body configuration.
// UploadedPayload is a base64 PDF for uploaded templates; Sections is a JSON
// array of {title, body} sections.
type ContractTemplate struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID  uuid.UUID          `gorm:"column:organization_id;type:uuid;not null;index"`
	Name            string             `gorm:"column:name;not null"`
	Kind            enums.TemplateKind `gorm:"column:kind;not null"`
	UploadedPayload *string            `gorm:"column:uploaded_payload"`
	Sections        json.RawMessage    `gorm:"column:sections;type:jsonb"`
	IsActive        bool               `gorm:"column:is_active;not null;default:false"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (ContractTemplate) TableName() string {
	return "contract_templates"
}
