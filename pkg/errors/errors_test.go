package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataFor(t *testing.T) {
	if got := MetadataFor(CodeValidation).HTTPStatus; got != http.StatusBadRequest {
		t.Fatalf("validation status = %d", got)
	}
	if got := MetadataFor(CodeDependency); !got.Retryable || got.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("dependency metadata = %+v", got)
	}
	if got := MetadataFor(Code("bogus")).HTTPStatus; got != http.StatusInternalServerError {
		t.Fatalf("unknown code should fall back to internal, got %d", got)
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "store write")

	if err.Code() != CodeDependency {
		t.Fatalf("code = %s", err.Code())
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if got := err.Error(); got != "DEPENDENCY_ERROR: store write" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestAs(t *testing.T) {
	typed := New(CodeNotFound, "missing")
	wrapped := fmt.Errorf("outer: %w", typed)

	if got := As(wrapped); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As() = %v", got)
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain errors should not convert")
	}
	if As(nil) != nil {
		t.Fatal("nil should not convert")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(New(CodeValidation, "bad event")) {
		t.Fatal("validation errors must not be retryable")
	}
	if !IsRetryable(New(CodeDependency, "timeout")) {
		t.Fatal("dependency errors must be retryable")
	}
	if !IsRetryable(stdErrors.New("untyped")) {
		t.Fatal("untyped errors default to retryable")
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uq_enrollments_student_course",
		TableName:      "enrollments",
		Detail:         "Key (student_id, course_id) already exists.",
	}
	err := Wrap(CodeConflict, fmt.Errorf("insert enrollment: %w", pgErr), "create enrollment")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("dump code = %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "uq_enrollments_student_course" {
		t.Fatalf("pg fields not extracted: %+v", dump)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected unwrap chain, got %v", dump.Chain)
	}
}
