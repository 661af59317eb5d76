package claims

import (
	"context"

	"github.com/google/uuid"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/repo"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists claim tokens.
type Repository interface {
	FindByWarranty(ctx context.Context, warrantyID uuid.UUID) (*models.ClaimToken, error)
	Save(ctx context.Context, token *models.ClaimToken) error
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a claim token repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

// FindByWarranty returns nil without error when the warranty has no token.
func (r *repositoryImpl) FindByWarranty(ctx context.Context, warrantyID uuid.UUID) (*models.ClaimToken, error) {
	var token models.ClaimToken
	err := r.DB(ctx).Where("warranty_id = ?", warrantyID).First(&token).Error
	if repo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Save inserts the token or replaces the warranty's existing one.
func (r *repositoryImpl) Save(ctx context.Context, token *models.ClaimToken) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "warranty_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "created_at"}),
	}).Create(token).Error
}
