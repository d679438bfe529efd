package db

import (
	"strings"

	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
)

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation, optionally scoped to one constraint. Postgres driver errors are
// matched by SQLSTATE; the message fallback covers the sqlite test driver,
// which reports constraint text instead of typed errors.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pkgerrors.PGConstraintViolated(err, constraintName) {
		return true
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
