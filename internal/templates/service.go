package templates

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/documents"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
)

// Service resolves the contract template an organization has switched on.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("contract template repository required")
	}
	return &Service{repo: repo}, nil
}

// ActiveTemplate returns the organization's active template, or the standard
// template when none is configured. Payload problems are left to the contract
// renderer, which falls back on its own.
func (s *Service) ActiveTemplate(ctx context.Context, organizationID uuid.UUID) (documents.Template, error) {
	if organizationID == uuid.Nil {
		return documents.StandardTemplate(), nil
	}
	tpl, err := s.repo.FindActive(ctx, organizationID)
	if err != nil {
		return documents.Template{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract template")
	}
	if tpl == nil {
		return documents.StandardTemplate(), nil
	}
	return toTemplate(tpl)
}

func toTemplate(tpl *models.ContractTemplate) (documents.Template, error) {
	var out documents.Template
	if len(tpl.Sections) > 0 && string(tpl.Sections) != "null" {
		if err := json.Unmarshal(tpl.Sections, &out.Sections); err != nil {
			return documents.Template{}, pkgerrors.Wrapf(pkgerrors.CodeTemplateDecode, err, "template %s has malformed sections", tpl.ID)
		}
	}

	switch tpl.Kind {
	case enums.TemplateKindUploaded:
		if tpl.UploadedPayload != nil {
			out.UploadedPDF = *tpl.UploadedPayload
		}
	case enums.TemplateKindCustom:
	default:
		return documents.StandardTemplate(), nil
	}
	return out, nil
}
