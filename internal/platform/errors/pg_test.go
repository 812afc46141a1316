package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code}
}

func TestDBErrorCodeMappings(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23502", ErrorCodeValidation},  // not null
		{"23514", ErrorCodeValidation},  // check
		{"42P01", ErrorCodeNotFound},    // ledger table missing
		{"42501", ErrorCodeForbidden},   // insufficient privilege
		{"25006", ErrorCodeUnavailable}, // read-only
		{"57P03", ErrorCodeUnavailable}, // cannot connect now
		{"23505", ErrorCodeDB},          // duplicate run id
		{"40001", ErrorCodeDB},          // serialization failure
		{"XXXXX", ErrorCodeDB},          // default branch
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pg(c.code))
		if !ok {
			t.Fatalf("expected ok for PgError code %s", c.code)
		}
		if got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v, want %v", c.code, got, c.want)
		}
	}

	if _, ok := DBErrorCode(stderrs.New("nope")); ok {
		t.Fatalf("DBErrorCode should return ok=false for non-pg error")
	}
}

func TestFromPostgresVariants(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) should be nil")
	}
	if FromPostgresf(nil, "x %d", 1) != nil {
		t.Fatalf("FromPostgresf(nil) should be nil")
	}
	if err := FromPostgres(pg("42P01"), "start run"); CodeOf(err) != ErrorCodeNotFound {
		t.Fatalf("FromPostgres map code = %v", CodeOf(err))
	}
	if err := FromPostgresf(stderrs.New("closed pool"), "finish run %s", "r1"); CodeOf(err) != ErrorCodeDB {
		t.Fatalf("FromPostgresf fallback code = %v", CodeOf(err))
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("ledger: %w", pg("23505"))
	if !IsDuplicateKey(wrapped) {
		t.Fatalf("IsDuplicateKey should see through wrapping")
	}
	if !IsUndefinedTable(pg("42P01")) || IsUndefinedTable(pg("23505")) {
		t.Fatalf("IsUndefinedTable mismatch")
	}
}

func TestIsRetryable(t *testing.T) {
	for _, c := range []string{"40001", "40P01", "55P03", "57P03"} {
		if !IsRetryable(pg(c)) {
			t.Fatalf("%s should be retryable", c)
		}
	}
	if IsRetryable(pg("23505")) {
		t.Fatalf("23505 should not be retryable")
	}
	if IsRetryable(stderrs.New("nope")) {
		t.Fatalf("plain error should not be retryable")
	}
	if IsRetryable(nil) {
		t.Fatalf("nil should not be retryable")
	}
	if IsRetryable(fmt.Errorf("wrap: %w", context.Canceled)) {
		t.Fatalf("cancellation should not be retryable")
	}
	if !IsRetryable(stderrs.New("commit unexpectedly resulted in rollback")) {
		t.Fatalf("commit rollback text should be retryable")
	}
	if !Retryable(pg("40P01")) {
		t.Fatalf("Retryable should delegate to pg helpers")
	}
}
