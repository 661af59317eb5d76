package generation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/repo"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/outbox"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentSet is the encoded output of a successful batch.
type DocumentSet struct {
	WarrantyID      uuid.UUID
	OrganizationID  uuid.UUID
	CustomerInvoice string
	MerchantInvoice string
	Contract        string
	SignatureImage  *string
	SignedAt        *time.Time
	GeneratedAt     time.Time
}

// Document returns the encoded payload of docType.
func (s DocumentSet) Document(docType enums.DocumentType) string {
	switch docType {
	case enums.DocumentTypeCustomerInvoice:
		return s.CustomerInvoice
	case enums.DocumentTypeMerchantInvoice:
		return s.MerchantInvoice
	case enums.DocumentTypeContract:
		return s.Contract
	}
	return ""
}

// DocumentStore persists document sets.
type DocumentStore interface {
	Save(ctx context.Context, set DocumentSet) error
	Get(ctx context.Context, warrantyID uuid.UUID) (*DocumentSet, error)
}

// outboxEmitter is the part of outbox.Service the store uses.
type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// GeneratedEvent is the payload of warranty_documents_generated.
type GeneratedEvent struct {
	WarrantyID    uuid.UUID            `json:"warrantyId"`
	DocumentTypes []enums.DocumentType `json:"documentTypes"`
	Signed        bool                 `json:"signed"`
	GeneratedAt   time.Time            `json:"generatedAt"`
}

// DocumentRepository stores document sets with gorm and announces them on
// the outbox in the same transaction.
type DocumentRepository struct {
	repo.Base
	outbox outboxEmitter
}

// NewDocumentRepository wires a DocumentRepository. A nil emitter skips the
// outbox event.
func NewDocumentRepository(db *gorm.DB, emitter outboxEmitter) *DocumentRepository {
	return &DocumentRepository{Base: repo.NewBase(db), outbox: emitter}
}

// Save overwrites the warranty's document set.
func (r *DocumentRepository) Save(ctx context.Context, set DocumentSet) error {
	if set.WarrantyID == uuid.Nil {
		return errors.New("warranty id required")
	}
	row := models.WarrantyDocuments{
		WarrantyID:      set.WarrantyID,
		CustomerInvoice: set.CustomerInvoice,
		MerchantInvoice: set.MerchantInvoice,
		Contract:        set.Contract,
		SignatureImage:  set.SignatureImage,
		SignedAt:        set.SignedAt,
		GeneratedAt:     set.GeneratedAt.UTC(),
	}
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "warranty_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_invoice", "merchant_invoice", "contract",
				"signature_image", "signed_at", "generated_at", "updated_at",
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		if r.outbox == nil {
			return nil
		}
		var actor *outbox.Actor
		if set.OrganizationID != uuid.Nil {
			orgID := set.OrganizationID
			actor = &outbox.Actor{OrganizationID: &orgID}
		}
		return r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWarrantyDocumentsGenerated,
			AggregateType: enums.AggregateWarranty,
			AggregateID:   set.WarrantyID,
			Actor:         actor,
			Data: GeneratedEvent{
				WarrantyID:    set.WarrantyID,
				DocumentTypes: enums.DocumentTypes,
				Signed:        set.SignatureImage != nil,
				GeneratedAt:   row.GeneratedAt,
			},
		})
	})
}

// Get returns the stored set, or nil when the warranty has none.
func (r *DocumentRepository) Get(ctx context.Context, warrantyID uuid.UUID) (*DocumentSet, error) {
	var row models.WarrantyDocuments
	err := r.DB(ctx).Where("warranty_id = ?", warrantyID).First(&row).Error
	if repo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &DocumentSet{
		WarrantyID:      row.WarrantyID,
		CustomerInvoice: row.CustomerInvoice,
		MerchantInvoice: row.MerchantInvoice,
		Contract:        row.Contract,
		SignatureImage:  row.SignatureImage,
		SignedAt:        row.SignedAt,
		GeneratedAt:     row.GeneratedAt,
	}, nil
}
