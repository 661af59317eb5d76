package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maximegiguere1one/garantiepro-sub004/api/responses"
	"github.com/maximegiguere1one/garantiepro-sub004/api/validators"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/documents"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/generation"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/warranties"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

const warrantyIDParam = "warrantyID"

// DocumentGenerator runs the generation pipeline.
type DocumentGenerator interface {
	Generate(ctx context.Context, req generation.Request) generation.Result
}

// StatusLister returns the per-document statuses of a warranty.
type StatusLister interface {
	List(ctx context.Context, warrantyID uuid.UUID) ([]models.DocumentGenerationStatus, error)
}

// DocumentReader loads a stored document set.
type DocumentReader interface {
	Get(ctx context.Context, warrantyID uuid.UUID) (*generation.DocumentSet, error)
}

type generateDocumentsRequest struct {
	Warranty          warranties.RawWarranty       `json:"warranty"`
	Customer          warranties.Party             `json:"customer"`
	Trailer           warranties.Asset             `json:"trailer"`
	Plan              warranties.Plan              `json:"plan"`
	Company           warranties.CompanyInfo       `json:"company"`
	EmployeeSignature *documents.EmployeeSignature `json:"employee_signature,omitempty"`
	SignatureImage    string                       `json:"signature_image,omitempty"`
	Template          *documents.Template          `json:"template,omitempty"`
}

type generateDocumentsResponse struct {
	WarrantyID  uuid.UUID                     `json:"warranty_id"`
	Phase       enums.GenerationPhase         `json:"phase"`
	Documents   map[enums.DocumentType]string `json:"documents"`
	Warnings    []warranties.Issue            `json:"warnings"`
	GeneratedAt time.Time                     `json:"generated_at"`
}

type documentStatusResponse struct {
	DocumentType enums.DocumentType     `json:"document_type"`
	Status       enums.GenerationStatus `json:"status"`
	Terminal     bool                   `json:"terminal"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// GenerateDocuments renders, encodes and stores the three documents of a
// warranty. The warranty id in the path wins over the body.
func GenerateDocuments(svc DocumentGenerator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warrantyID, err := validators.ParseUUIDParam(r, warrantyIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generateDocumentsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Warranty.ID = warrantyID

		result := svc.Generate(r.Context(), generation.Request{
			Draft: warranties.Draft{
				Warranty: body.Warranty,
				Customer: body.Customer,
				Trailer:  body.Trailer,
				Plan:     body.Plan,
				Company:  body.Company,
			},
			EmployeeSignature: body.EmployeeSignature,
			SignatureImage:    body.SignatureImage,
			Template:          body.Template,
		})
		if !result.Success {
			responses.WriteError(r.Context(), logg, w, resultError(result))
			return
		}

		warnings := result.Warnings
		if warnings == nil {
			warnings = []warranties.Issue{}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, generateDocumentsResponse{
			WarrantyID:  result.WarrantyID,
			Phase:       result.Phase,
			Documents:   result.Documents,
			Warnings:    warnings,
			GeneratedAt: result.GeneratedAt,
		})
	}
}

// DocumentStatuses lists the generation status of each document. An optional
// ?status= query keeps only rows in that status.
func DocumentStatuses(svc StatusLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warrantyID, err := validators.ParseUUIDParam(r, warrantyIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var only enums.GenerationStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			if only, err = enums.ParseGenerationStatus(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
		}

		rows, err := svc.List(r.Context(), warrantyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list document statuses"))
			return
		}
		if len(rows) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no documents generated for warranty"))
			return
		}

		out := make([]documentStatusResponse, 0, len(rows))
		for _, row := range rows {
			if only != "" && row.Status != only {
				continue
			}
			out = append(out, documentStatusResponse{
				DocumentType: row.DocumentType,
				Status:       row.Status,
				Terminal:     row.Status.IsTerminal(),
				ErrorMessage: row.ErrorMessage,
				StartedAt:    row.StartedAt,
				CompletedAt:  row.CompletedAt,
				UpdatedAt:    row.UpdatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// DownloadDocument streams one stored document as a PDF.
func DownloadDocument(svc DocumentReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warrantyID, err := validators.ParseUUIDParam(r, warrantyIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		docType, err := enums.ParseDocumentType(strings.TrimSpace(chi.URLParam(r, "documentType")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown document type").
				WithDetails(map[string]any{"field": "documentType"}))
			return
		}

		set, err := svc.Get(r.Context(), warrantyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load documents"))
			return
		}
		if set == nil || set.Document(docType) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "document not found"))
			return
		}

		content, err := documents.Decode(set.Document(docType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeEncoding, err, "stored document is unreadable"))
			return
		}
		responses.WriteBinary(w, "application/pdf", docType.String()+"-"+warrantyID.String()+".pdf", content)
	}
}

// resultError keeps the pipeline's error code and adds where it failed.
func resultError(result generation.Result) error {
	code := pkgerrors.CodeInternal
	var cause any
	if typed := pkgerrors.As(result.Error); typed != nil {
		code = typed.Code()
		cause = typed.Details()
	}

	details := map[string]any{"phase": result.FailedPhase.String()}
	if result.FailedDocument != "" {
		details["document_type"] = result.FailedDocument.String()
	}
	if len(result.Warnings) > 0 {
		details["warnings"] = result.Warnings
	}
	if cause != nil {
		details["cause"] = cause
	}
	return pkgerrors.Wrap(code, result.Error, result.Message()).WithDetails(details)
}
