package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgDup := &pgconn.PgError{Code: "23505", ConstraintName: "ux_partners_email"}

	if !IsUniqueViolation(pgDup, "ux_partners_email") {
		t.Fatalf("expected typed pg duplicate to match named constraint")
	}
	if !IsUniqueViolation(fmt.Errorf("create partner: %w", pgDup), "") {
		t.Fatalf("expected wrapped pg duplicate to match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation reported as unique")
	}

	sqliteDup := errors.New("UNIQUE constraint failed: partners.email")
	if !IsUniqueViolation(sqliteDup, "") {
		t.Fatalf("expected sqlite duplicate message to match")
	}

	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil error reported as unique violation")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatalf("unrelated error reported as unique violation")
	}
}
