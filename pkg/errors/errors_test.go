package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeExpired, status: http.StatusGone, publicMsg: "memorial expired", detailsOK: true},
		{code: CodeDuplicateAction, status: http.StatusConflict, publicMsg: "action already performed", detailsOK: true},
		{code: CodeStoreUnavailable, status: http.StatusServiceUnavailable, publicMsg: "Database is initializing. Please try again in a moment.", retryable: true},
		{code: CodeUpstream, status: http.StatusBadGateway, publicMsg: "payment processor unavailable", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestRetryableAndIs(t *testing.T) {
	store := Wrap(CodeStoreUnavailable, stdErrors.New("dial tcp"), "ping")
	wrapped := fmt.Errorf("load memorial: %w", store)

	if !IsRetryable(wrapped) {
		t.Fatal("store unavailable should be retryable")
	}
	if !Is(wrapped, CodeStoreUnavailable) {
		t.Fatal("expected code to be found through fmt wrapping")
	}
	if IsRetryable(New(CodeValidation, "bad")) {
		t.Fatal("validation should not be retryable")
	}
	if IsRetryable(stdErrors.New("plain")) {
		t.Fatal("untyped errors are not retryable")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodeNotFound, stdErrors.New("record not found"), "memorial"))
	dump := Dump(err)
	if dump.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected three chain entries, got %v", dump.Chain)
	}
	if dump.PG != nil {
		t.Fatalf("unexpected pg detail %+v", dump.PG)
	}
	if fields := dump.Fields(); fields["error_code"] != CodeNotFound {
		t.Fatalf("expected error_code field, got %v", fields)
	}
}

func TestDumpReadsPostgresDiagnostics(t *testing.T) {
	err := fmt.Errorf("insert candle: %w", &pgconn.PgError{Code: "23505", ConstraintName: "candles_memorial_visitor_uniq", TableName: "candles"})
	dump := Dump(err)
	if dump.PG == nil || dump.PG.Code != "23505" || dump.PG.Constraint != "candles_memorial_visitor_uniq" {
		t.Fatalf("expected pg diagnostics, got %+v", dump.PG)
	}
	if dump.Fields()["pg_table"] != "candles" {
		t.Fatalf("expected pg_table field, got %v", dump.Fields())
	}
}

func TestPublicMessageRespectsExposure(t *testing.T) {
	if got := New(CodeNotFound, "memorial not found").PublicMessage(); got != "memorial not found" {
		t.Fatalf("expected exposed message, got %q", got)
	}
	leaky := Wrap(CodeInternal, stdErrors.New("pq: relation missing"), "load memorial")
	if got := leaky.PublicMessage(); got != "internal server error" {
		t.Fatalf("internal message leaked: %q", got)
	}
	if got := New(CodeConflict, "").PublicMessage(); got != "conflict detected" {
		t.Fatalf("expected fallback public message, got %q", got)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeUpstream, stdErrors.New("timeout"), "create checkout")
	if err.Error() != "UPSTREAM_ERROR: create checkout: timeout" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}
