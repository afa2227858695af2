package pkg

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
)

// https://www.postgresql.org/docs/8.2/errcodes-appendix.html
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeForeignKeyViolation = "23503"
)

// IsUniqueViolationError checks if the error is a unique violation error
func IsUniqueViolationError(err error) bool {
	var pqErr *pgconn.PgError
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgCodeUniqueViolation
	}
	return false
}

// IsForeignKeyViolationError checks if the error is a foreign key violation error
func IsForeignKeyViolationError(err error) bool {
	var pqErr *pgconn.PgError
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgCodeForeignKeyViolation
	}
	return false
}

// postgres error details look like: Key (username)=(mladen) already exists.
var integrityDetailRegex = regexp.MustCompile(`Key \((.+?)\)=\((.+?)\)`)

// IntegrityError is a unique or foreign key violation with the offending
// column and value extracted from the postgres error detail, so handlers
// can tell the client exactly what conflicted.
type IntegrityError struct {
	Constraint string
	Column     string
	Value      string
	wrapped    error
}

func (e *IntegrityError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("integrity violation [%s]: %s=%s", e.Constraint, e.Column, e.Value)
	}
	return fmt.Sprintf("integrity violation [%s]", e.Constraint)
}

func (e *IntegrityError) Unwrap() error {
	return e.wrapped
}

// AsIntegrityError converts a pg unique/FK violation into an IntegrityError.
// Returns nil when the error is something else.
func AsIntegrityError(err error) *IntegrityError {
	var pqErr *pgconn.PgError
	if !errors.As(err, &pqErr) {
		return nil
	}
	if pqErr.Code != pgCodeUniqueViolation && pqErr.Code != pgCodeForeignKeyViolation {
		return nil
	}

	integrityErr := &IntegrityError{
		Constraint: pqErr.ConstraintName,
		wrapped:    err,
	}
	if matches := integrityDetailRegex.FindStringSubmatch(pqErr.Detail); len(matches) == 3 {
		integrityErr.Column = matches[1]
		integrityErr.Value = matches[2]
	}
	return integrityErr
}
