package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maximegiguere1one/garantiepro-sub004/api/responses"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/documents"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/generation"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/warranties"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

type stubGenerator struct {
	result generation.Result
	got    generation.Request
	calls  int
}

func (s *stubGenerator) Generate(_ context.Context, req generation.Request) generation.Result {
	s.calls++
	s.got = req
	res := s.result
	res.WarrantyID = req.Draft.Warranty.ID
	return res
}

type stubStatuses struct {
	rows []models.DocumentGenerationStatus
	err  error
}

func (s stubStatuses) List(context.Context, uuid.UUID) ([]models.DocumentGenerationStatus, error) {
	return s.rows, s.err
}

type stubReader struct {
	set *generation.DocumentSet
	err error
}

func (s stubReader) Get(context.Context, uuid.UUID) (*generation.DocumentSet, error) {
	return s.set, s.err
}

func documentsRouter(gen DocumentGenerator, statuses StatusLister, reader DocumentReader) http.Handler {
	logg := testLogger()
	r := chi.NewRouter()
	r.Post("/warranties/{warrantyID}/documents", GenerateDocuments(gen, logg))
	r.Get("/warranties/{warrantyID}/documents/status", DocumentStatuses(statuses, logg))
	r.Get("/warranties/{warrantyID}/documents/{documentType}", DownloadDocument(reader, logg))
	return r
}

const generateBody = `{
  "warranty": {
    "id": "00000000-0000-0000-0000-000000000000",
    "contract_number": "PPR-2026-0001",
    "base_price": 6000,
    "options_price": "0",
    "taxes": 897.75,
    "total_price": "6 897,75",
    "margin": 1034.66,
    "deductible": 500
  },
  "customer": {"first_name": "Marie", "last_name": "Tremblay"},
  "trailer": {"vin": "1GRAA0621KB700001", "make": "Remorques Léger", "year": 2024},
  "plan": {"name_fr": "Plan Or"},
  "company": {"name": "Remorques du Nord"},
  "signature_image": "data:image/png;base64,AAAA"
}`

func decodeError(t *testing.T, body *bytes.Buffer) responses.ErrorEnvelope {
	t.Helper()
	var env responses.ErrorEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}

func TestGenerateDocumentsSuccess(t *testing.T) {
	warrantyID := uuid.New()
	generatedAt := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	gen := &stubGenerator{result: generation.Result{
		Success: true,
		Phase:   enums.GenerationPhasePersisted,
		Documents: map[enums.DocumentType]string{
			enums.DocumentTypeCustomerInvoice: "Y3VzdG9tZXI=",
			enums.DocumentTypeMerchantInvoice: "bWVyY2hhbnQ=",
			enums.DocumentTypeContract:        "Y29udHJhY3Q=",
		},
		GeneratedAt: generatedAt,
	}}

	req := httptest.NewRequest(http.MethodPost, "/warranties/"+warrantyID.String()+"/documents", strings.NewReader(generateBody))
	w := httptest.NewRecorder()
	documentsRouter(gen, stubStatuses{}, stubReader{}).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gen.got.Draft.Warranty.ID != warrantyID {
		t.Fatalf("expected path id to override body id, got %s", gen.got.Draft.Warranty.ID)
	}
	if gen.got.Draft.Warranty.TotalPrice != "6 897,75" {
		t.Fatalf("expected raw total to reach the pipeline, got %#v", gen.got.Draft.Warranty.TotalPrice)
	}
	if gen.got.SignatureImage == "" {
		t.Fatalf("expected signature to be forwarded")
	}

	var env struct {
		Data generateDocumentsResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Documents) != 3 {
		t.Fatalf("expected three documents, got %d", len(env.Data.Documents))
	}
	if env.Data.Warnings == nil {
		t.Fatalf("expected empty warnings list, got nil")
	}
	if !env.Data.GeneratedAt.Equal(generatedAt) {
		t.Fatalf("unexpected generated_at %s", env.Data.GeneratedAt)
	}
	if env.Data.Phase != enums.GenerationPhasePersisted {
		t.Fatalf("unexpected phase %q", env.Data.Phase)
	}
}

func TestGenerateDocumentsFailureCarriesPhase(t *testing.T) {
	gen := &stubGenerator{result: generation.Result{
		Error:          pkgerrors.New(pkgerrors.CodeRender, "merchant_invoice: table overflow"),
		FailedPhase:    enums.GenerationPhaseRendering,
		FailedDocument: enums.DocumentTypeMerchantInvoice,
	}}

	req := httptest.NewRequest(http.MethodPost, "/warranties/"+uuid.NewString()+"/documents", strings.NewReader(generateBody))
	w := httptest.NewRecorder()
	documentsRouter(gen, stubStatuses{}, stubReader{}).ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	env := decodeError(t, w.Body)
	if env.Error.Code != string(pkgerrors.CodeRender) {
		t.Fatalf("unexpected code %s", env.Error.Code)
	}
	if !strings.Contains(env.Error.Message, "rendering merchant_invoice") {
		t.Fatalf("expected message to name phase and document, got %q", env.Error.Message)
	}
	details, ok := env.Error.Details.(map[string]any)
	if !ok || details["phase"] != "rendering" || details["document_type"] != "merchant_invoice" {
		t.Fatalf("unexpected details %#v", env.Error.Details)
	}
}

func TestGenerateDocumentsValidationFailure(t *testing.T) {
	gen := &stubGenerator{result: generation.Result{
		Error:       pkgerrors.New(pkgerrors.CodeValidation, "validation failed: base_price: not a number"),
		FailedPhase: enums.GenerationPhaseValidating,
		Warnings:    []warranties.Issue{{Field: "margin", Message: "exceeds total"}},
	}}

	req := httptest.NewRequest(http.MethodPost, "/warranties/"+uuid.NewString()+"/documents", strings.NewReader(generateBody))
	w := httptest.NewRecorder()
	documentsRouter(gen, stubStatuses{}, stubReader{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	details, ok := decodeError(t, w.Body).Error.Details.(map[string]any)
	if !ok || details["warnings"] == nil {
		t.Fatalf("expected warnings in details, got %#v", details)
	}
}

func TestGenerateDocumentsRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		path string
		body string
	}{
		"bad id":        {path: "/warranties/not-a-uuid/documents", body: generateBody},
		"unknown field": {path: "/warranties/" + uuid.NewString() + "/documents", body: `{"warranty":{},"extra":true}`},
		"malformed":     {path: "/warranties/" + uuid.NewString() + "/documents", body: `{`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gen := &stubGenerator{}
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			documentsRouter(gen, stubStatuses{}, stubReader{}).ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if gen.calls != 0 {
				t.Fatalf("pipeline must not run on bad input")
			}
		})
	}
}

func TestDocumentStatuses(t *testing.T) {
	msg := "table overflow"
	rows := []models.DocumentGenerationStatus{
		{DocumentType: enums.DocumentTypeCustomerInvoice, Status: enums.GenerationStatusCompleted},
		{DocumentType: enums.DocumentTypeMerchantInvoice, Status: enums.GenerationStatusFailed, ErrorMessage: &msg},
		{DocumentType: enums.DocumentTypeContract, Status: enums.GenerationStatusPending},
	}

	req := httptest.NewRequest(http.MethodGet, "/warranties/"+uuid.NewString()+"/documents/status", nil)
	w := httptest.NewRecorder()
	documentsRouter(&stubGenerator{}, stubStatuses{rows: rows}, stubReader{}).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var env struct {
		Data []documentStatusResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 3 || env.Data[1].Status != enums.GenerationStatusFailed {
		t.Fatalf("unexpected statuses %#v", env.Data)
	}
	if env.Data[1].ErrorMessage == nil || *env.Data[1].ErrorMessage != msg {
		t.Fatalf("expected error message on failed row")
	}
	if !env.Data[0].Terminal || !env.Data[1].Terminal || env.Data[2].Terminal {
		t.Fatalf("unexpected terminal flags %#v", env.Data)
	}
}

func TestDocumentStatusesFilter(t *testing.T) {
	rows := []models.DocumentGenerationStatus{
		{DocumentType: enums.DocumentTypeCustomerInvoice, Status: enums.GenerationStatusCompleted},
		{DocumentType: enums.DocumentTypeMerchantInvoice, Status: enums.GenerationStatusFailed},
		{DocumentType: enums.DocumentTypeContract, Status: enums.GenerationStatusPending},
	}
	base := "/warranties/" + uuid.NewString() + "/documents/status"

	w := httptest.NewRecorder()
	documentsRouter(&stubGenerator{}, stubStatuses{rows: rows}, stubReader{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, base+"?status=failed", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var env struct {
		Data []documentStatusResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].DocumentType != enums.DocumentTypeMerchantInvoice {
		t.Fatalf("unexpected filtered rows %#v", env.Data)
	}

	w = httptest.NewRecorder()
	documentsRouter(&stubGenerator{}, stubStatuses{rows: rows}, stubReader{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, base+"?status=archived", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestDocumentStatusesNotFoundAndFailure(t *testing.T) {
	path := "/warranties/" + uuid.NewString() + "/documents/status"

	w := httptest.NewRecorder()
	documentsRouter(&stubGenerator{}, stubStatuses{}, stubReader{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	documentsRouter(&stubGenerator{}, stubStatuses{err: errors.New("db down")}, stubReader{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestDownloadDocument(t *testing.T) {
	warrantyID := uuid.New()
	pdf := []byte("%PDF-1.3 contract")
	encoded, err := documents.Encode(pdf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	reader := stubReader{set: &generation.DocumentSet{WarrantyID: warrantyID, Contract: encoded}}

	req := httptest.NewRequest(http.MethodGet, "/warranties/"+warrantyID.String()+"/documents/contract", nil)
	w := httptest.NewRecorder()
	documentsRouter(&stubGenerator{}, stubStatuses{}, reader).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "contract-"+warrantyID.String()+".pdf") {
		t.Fatalf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
	if !bytes.Equal(w.Body.Bytes(), pdf) {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestDownloadDocumentErrors(t *testing.T) {
	warrantyID := uuid.New()
	base := "/warranties/" + warrantyID.String() + "/documents/"
	cases := map[string]struct {
		path   string
		reader stubReader
		status int
	}{
		"unknown type": {path: base + "brochure", status: http.StatusBadRequest},
		"missing set":  {path: base + "contract", status: http.StatusNotFound},
		"load failure": {path: base + "contract", reader: stubReader{err: errors.New("db down")}, status: http.StatusServiceUnavailable},
		"corrupt": {
			path:   base + "customer_invoice",
			reader: stubReader{set: &generation.DocumentSet{CustomerInvoice: "%%%not base64"}},
			status: http.StatusUnprocessableEntity,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			documentsRouter(&stubGenerator{}, stubStatuses{}, tc.reader).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
		})
	}
}
