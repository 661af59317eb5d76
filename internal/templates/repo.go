package templates

import (
	"context"

	"github.com/google/uuid"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/repo"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads contract templates.
type Repository interface {
	FindActive(ctx context.Context, organizationID uuid.UUID) (*models.ContractTemplate, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a contract template repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

// FindActive returns the most recently updated active template of the
// organization, or nil when none is active.
func (r *repositoryImpl) FindActive(ctx context.Context, organizationID uuid.UUID) (*models.ContractTemplate, error) {
	var tpl models.ContractTemplate
	err := r.DB(ctx).
		Where("organization_id = ? AND is_active = ?", organizationID, true).
		Order("updated_at DESC").
		First(&tpl).Error
	if repo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}
