package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
)

type signaturePayload struct {
	Name  string `json:"name" validate:"required"`
	Image string `json:"image,omitempty"`
}

type samplePayload struct {
	Contract  string            `json:"contract_number" validate:"required,max=20"`
	Signature *signaturePayload `json:"employee_signature,omitempty"`
}

func TestDecodeJSONBody(t *testing.T) {
	var dest samplePayload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"contract_number":"PPR-1"}`))
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Contract != "PPR-1" {
		t.Fatalf("unexpected payload %+v", dest)
	}
}

func TestDecodeJSONBodyErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field":  `{"contract_number":"PPR-1","extra":1}`,
		"trailing data":  `{"contract_number":"PPR-1"}{"contract_number":"PPR-2"}`,
		"missing field":  `{}`,
		"too long":       `{"contract_number":"PPR-0000000000000000000000"}`,
		"nested missing": `{"contract_number":"PPR-1","employee_signature":{"image":"x"}}`,
		"malformed":      `{"contract_number":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest samplePayload
			err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &dest)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDecodeJSONBodyReportsNestedFieldPath(t *testing.T) {
	var dest samplePayload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"contract_number":"PPR-1","employee_signature":{}}`))
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
	if details["employee_signature.name"] != "is required" {
		t.Fatalf("unexpected details %#v", details)
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	body := `{"contract_number":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	var dest samplePayload
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "request body too large" {
		t.Fatalf("expected body too large error, got %v", err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("warrantyID", value)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	got, err := ParseUUIDParam(withParam(id.String()), "warrantyID")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s err=%v", id, got, err)
	}
	for _, bad := range []string{"", "nope", uuid.Nil.String()} {
		if _, err := ParseUUIDParam(withParam(bad), "warrantyID"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %q, got %v", bad, err)
		}
	}
}
