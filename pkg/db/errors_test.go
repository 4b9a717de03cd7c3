package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := fmt.Errorf("insert coupon: %w", &pgconn.PgError{Code: "23505", ConstraintName: "employee_coupons_code_key"})
	if !IsUniqueViolation(pgErr, "") {
		t.Fatal("expected pgconn unique violation")
	}
	if !IsUniqueViolation(pgErr, "employee_coupons_code_key") {
		t.Fatal("expected constraint match")
	}
	if IsUniqueViolation(pgErr, "profiles_email_key") {
		t.Fatal("did not expect a different constraint to match")
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "profiles_email_key"}
	if !IsUniqueViolation(pqErr, "profiles_email_key") {
		t.Fatal("expected pq unique violation")
	}

	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: employee_coupons.code"), "") {
		t.Fatal("expected sqlite unique violation")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatal("unexpected match for unrelated error")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil should never match")
	}
}
