package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/maximegiguere1one/garantiepro-sub004/internal/documents"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/rendering"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/warranties"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

// EngineProvider hands out a verified rendering engine.
type EngineProvider interface {
	Ready(ctx context.Context) (*rendering.Engine, error)
}

// DocumentRenderer renders one document type.
type DocumentRenderer interface {
	Render(ctx context.Context, engine *rendering.Engine, docType enums.DocumentType, in documents.Input) (documents.Artifact, error)
}

// ClaimLinkProvider returns a claim URL and its QR code for a warranty.
type ClaimLinkProvider interface {
	ClaimLink(ctx context.Context, warrantyID uuid.UUID) (string, []byte, error)
}

// TemplateSource returns the organization's active contract template.
type TemplateSource interface {
	ActiveTemplate(ctx context.Context, organizationID uuid.UUID) (documents.Template, error)
}

// Metrics records batch and document outcomes.
type Metrics interface {
	ObserveBatch(outcome string, duration time.Duration)
	IncDocument(documentType, outcome string)
}

// Request is one generation request.
type Request struct {
	Draft             warranties.Draft
	EmployeeSignature *documents.EmployeeSignature
	// SignatureImage is the customer's signature, base64 or data URI encoded.
	SignatureImage string
	// Template overrides the organization's active template when set.
	Template *documents.Template
}

// Result is the outcome of Generate. Documents is populated only on success.
// Phase is persisted or failed; FailedPhase names the step that failed.
type Result struct {
	Success        bool
	WarrantyID     uuid.UUID
	Phase          enums.GenerationPhase
	Documents      map[enums.DocumentType]string
	Warnings       []warranties.Issue
	Error          error
	FailedPhase    enums.GenerationPhase
	FailedDocument enums.DocumentType
	GeneratedAt    time.Time
}

// Message is a human readable summary naming the failing phase and document.
func (r Result) Message() string {
	if r.Success {
		return fmt.Sprintf("generated %d documents", len(r.Documents))
	}
	where := r.FailedPhase.String()
	if r.FailedDocument != "" {
		where += " " + r.FailedDocument.String()
	}
	if r.Error == nil {
		return "generation failed during " + where
	}
	return fmt.Sprintf("generation failed during %s: %v", where, r.Error)
}

// ServiceParams wires a Service. Claims, Templates, Reporter, Locker and
// Metrics are optional.
type ServiceParams struct {
	Engine    EngineProvider
	Renderer  DocumentRenderer
	Statuses  StatusTracker
	Store     DocumentStore
	Reporter  ErrorReporter
	Claims    ClaimLinkProvider
	Templates TemplateSource
	Locker    Locker
	Metrics   Metrics
	Limits    warranties.Limits
	Logger    *logger.Logger
}

// Service orchestrates validation, engine bootstrap, rendering, encoding and
// persistence of a warranty's document set.
type Service struct {
	engine    EngineProvider
	renderer  DocumentRenderer
	statuses  StatusTracker
	store     DocumentStore
	reporter  ErrorReporter
	claims    ClaimLinkProvider
	templates TemplateSource
	locker    Locker
	metrics   Metrics
	limits    warranties.Limits
	logg      *logger.Logger
	now       func() time.Time
}

// NewService validates params and returns a Service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Engine == nil {
		return nil, errors.New("rendering engine provider required")
	}
	if params.Renderer == nil {
		return nil, errors.New("document renderer required")
	}
	if params.Statuses == nil {
		return nil, errors.New("status tracker required")
	}
	if params.Store == nil {
		return nil, errors.New("document store required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		engine:    params.Engine,
		renderer:  params.Renderer,
		statuses:  params.Statuses,
		store:     params.Store,
		reporter:  params.Reporter,
		claims:    params.Claims,
		templates: params.Templates,
		locker:    params.Locker,
		metrics:   params.Metrics,
		limits:    params.Limits,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// Generate runs one batch. Documents are rendered in order and the batch
// stops at the first failure; nothing is persisted unless all three encode.
// Caller cancellation is ignored once the batch starts.
func (s *Service) Generate(ctx context.Context, req Request) Result {
	started := s.now()
	ctx = context.WithoutCancel(ctx)
	warrantyID := req.Draft.Warranty.ID
	ctx = s.logg.WithWarrantyID(ctx, warrantyID.String())
	if orgID := req.Draft.Warranty.OrganizationID; orgID != uuid.Nil {
		ctx = s.logg.WithOrganizationID(ctx, orgID.String())
	}

	b := &batch{svc: s, req: req, res: Result{WarrantyID: warrantyID}}
	b.run(ctx)

	if b.reportErr != nil {
		fields := map[string]any{"reporting_failures": len(multierr.Errors(b.reportErr))}
		s.logg.Error(s.logg.WithFields(ctx, fields), "document status reporting incomplete", b.reportErr)
	}

	outcome := "success"
	if !b.res.Success {
		outcome = b.res.FailedPhase.String()
	}
	if s.metrics != nil {
		s.metrics.ObserveBatch(outcome, s.now().Sub(started))
	}
	return b.res
}

// batch carries the state of one Generate call.
type batch struct {
	svc       *Service
	req       Request
	res       Result
	reportErr error
}

func (b *batch) run(ctx context.Context) {
	s := b.svc
	warrantyID := b.res.WarrantyID

	bundle, ok := b.validate(ctx)
	if !ok {
		return
	}

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, warrantyID)
		if err != nil {
			b.fail(ctx, enums.GenerationPhaseLocking, "", err)
			return
		}
		defer func() {
			if err := release(ctx); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release generation lock")
			}
		}()
	}

	engine, err := s.engine.Ready(ctx)
	if err != nil {
		b.fail(ctx, enums.GenerationPhaseEngineReady, "", err)
		return
	}

	in := documents.Input{
		Bundle:            bundle,
		EmployeeSignature: b.req.EmployeeSignature,
		SignatureImage:    b.req.SignatureImage,
		Template:          b.template(ctx, bundle.Warranty.OrganizationID),
		Claim:             b.claimLink(ctx, warrantyID),
	}

	b.track(s.statuses.Reset(ctx, warrantyID, enums.DocumentTypes))

	encoded := make(map[enums.DocumentType]string, len(enums.DocumentTypes))
	for _, docType := range enums.DocumentTypes {
		payload, phase, err := b.produce(ctx, engine, docType, in)
		if err != nil {
			b.fail(ctx, phase, docType, err)
			return
		}
		encoded[docType] = payload
	}

	generatedAt := s.now().UTC()
	set := DocumentSet{
		WarrantyID:      warrantyID,
		OrganizationID:  bundle.Warranty.OrganizationID,
		CustomerInvoice: encoded[enums.DocumentTypeCustomerInvoice],
		MerchantInvoice: encoded[enums.DocumentTypeMerchantInvoice],
		Contract:        encoded[enums.DocumentTypeContract],
		GeneratedAt:     generatedAt,
	}
	if b.req.SignatureImage != "" {
		signature := b.req.SignatureImage
		set.SignatureImage = &signature
		set.SignedAt = &generatedAt
	}
	if err := s.store.Save(ctx, set); err != nil {
		code := pkgerrors.CodeDependency
		if pkgerrors.IsUniqueViolation(err) {
			code = pkgerrors.CodeConflict
		}
		b.fail(ctx, enums.GenerationPhasePersisting, "", pkgerrors.Wrap(code, err, "persist document set"))
		_, failErr := s.statuses.FailAll(ctx, warrantyID, "document set not stored: "+err.Error())
		b.track(failErr)
		return
	}

	b.res.Success = true
	b.res.Phase = enums.GenerationPhasePersisted
	b.res.Documents = encoded
	b.res.GeneratedAt = generatedAt
	s.logg.Info(ctx, "warranty documents generated")
}

func (b *batch) validate(ctx context.Context) (warranties.Bundle, bool) {
	s := b.svc
	if b.res.WarrantyID == uuid.Nil {
		b.fail(ctx, enums.GenerationPhaseValidating, "", pkgerrors.New(pkgerrors.CodeValidation, "validation failed: warranty.id: is required"))
		return warranties.Bundle{}, false
	}
	bundle, warnings, err := b.req.Draft.Validate(s.limits)
	b.res.Warnings = warnings
	for _, w := range warnings {
		s.logg.Warn(s.logg.WithField(ctx, "field", w.Field), "amount warning: "+w.Message)
	}
	if err != nil {
		b.fail(ctx, enums.GenerationPhaseValidating, "", err)
		return warranties.Bundle{}, false
	}
	return bundle, true
}

// produce renders and encodes one document, moving its status along.
func (b *batch) produce(ctx context.Context, engine *rendering.Engine, docType enums.DocumentType, in documents.Input) (string, enums.GenerationPhase, error) {
	s := b.svc
	warrantyID := b.res.WarrantyID
	docCtx := s.logg.WithDocumentType(ctx, docType.String())

	b.track(s.statuses.Transition(docCtx, warrantyID, docType, enums.GenerationStatusGenerating, ""))
	s.logg.Debug(docCtx, "rendering document")

	phase := enums.GenerationPhaseRendering
	art, err := s.renderer.Render(docCtx, engine, docType, in)
	var payload string
	if err == nil {
		phase = enums.GenerationPhaseEncoding
		payload, err = documents.Encode(art.Content)
	}
	if err != nil {
		b.track(s.statuses.Transition(docCtx, warrantyID, docType, enums.GenerationStatusFailed, err.Error()))
		b.countDocument(docType, "failure")
		return "", phase, err
	}

	b.track(s.statuses.Transition(docCtx, warrantyID, docType, enums.GenerationStatusCompleted, ""))
	b.countDocument(docType, "success")
	fields := map[string]any{"pages": art.PageCount, "bytes": len(art.Content)}
	s.logg.Info(s.logg.WithFields(docCtx, fields), "document rendered")
	return payload, phase, nil
}

// template resolves the contract template. Lookup problems fall back to the
// standard template.
func (b *batch) template(ctx context.Context, organizationID uuid.UUID) documents.Template {
	s := b.svc
	if b.req.Template != nil {
		return *b.req.Template
	}
	if s.templates == nil {
		return documents.StandardTemplate()
	}
	tpl, err := s.templates.ActiveTemplate(ctx, organizationID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "contract template unavailable, using standard template")
		return documents.StandardTemplate()
	}
	return tpl
}

// claimLink fetches the claim page inputs. Any failure omits the page.
func (b *batch) claimLink(ctx context.Context, warrantyID uuid.UUID) documents.ClaimLink {
	s := b.svc
	if s.claims == nil {
		return documents.ClaimLink{}
	}
	url, qr, err := s.claims.ClaimLink(ctx, warrantyID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "claim link unavailable, contract will omit the claim page")
		return documents.ClaimLink{}
	}
	return documents.ClaimLink{URL: url, QR: qr}
}

func (b *batch) fail(ctx context.Context, phase enums.GenerationPhase, docType enums.DocumentType, err error) {
	s := b.svc
	b.res.Success = false
	b.res.Phase = enums.GenerationPhaseFailed
	b.res.Error = err
	b.res.FailedPhase = phase
	b.res.FailedDocument = docType

	fields := map[string]any{"phase": phase.String()}
	if docType != "" {
		fields["document_type"] = docType.String()
	}
	s.logg.Error(s.logg.WithFields(ctx, fields), "warranty document generation failed", err)

	if s.reporter == nil || b.res.WarrantyID == uuid.Nil {
		return
	}
	failure := Failure{
		WarrantyID:   b.res.WarrantyID,
		Phase:        phase,
		DocumentType: docType,
		Err:          err,
		Stack:        pkgerrors.Dump(err).Trace(),
	}
	b.track(s.reporter.Report(ctx, failure))
}

// track collects reporting errors; they never abort the batch.
func (b *batch) track(err error) {
	b.reportErr = multierr.Append(b.reportErr, err)
}

func (b *batch) countDocument(docType enums.DocumentType, outcome string) {
	if b.svc.metrics != nil {
		b.svc.metrics.IncDocument(docType.String(), outcome)
	}
}
