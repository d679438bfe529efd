package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolationCode = "23505"

// ErrorDump flattens an error chain into loggable fields. Postgres driver
// errors (pgx or lib/pq) contribute the pg_* fields; everything this schema
// enforces is table or constraint level, so there is no column field.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode          string `json:"pg_code,omitempty"`
	PGConstraint    string `json:"pg_constraint,omitempty"`
	PGTable         string `json:"pg_table,omitempty"`
	PGDetail        string `json:"pg_detail,omitempty"`
	PGMessage       string `json:"pg_message,omitempty"`
	UniqueViolation bool   `json:"unique_violation,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		d.UniqueViolation = pgxErr.Code == pgUniqueViolationCode
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
		d.UniqueViolation = string(pqErr.Code) == pgUniqueViolationCode
		return d
	}

	return d
}

// PGConstraintViolated reports whether err is a Postgres unique violation,
// optionally scoped to one constraint name.
func PGConstraintViolated(err error, constraintName string) bool {
	d := Dump(err)
	if !d.UniqueViolation {
		return false
	}
	return constraintName == "" || d.PGConstraint == constraintName
}
