package document

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNotFoundOrUnauthorized hides whether a document is missing or owned by someone else.
var ErrNotFoundOrUnauthorized = errors.New("document not found")

// ValidationError is raised before any store mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError names the field whose uniqueness or version check failed.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransientError wraps connection, timeout and serialization failures.
// Resubmitting the same document converges to the same state.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// classify maps a store error onto the taxonomy. uniqueFields lists the
// columns that carry unique constraints for the table being written.
func classify(op string, err error, uniqueFields ...string) error {
	if err == nil {
		return nil
	}

	var (
		validationErr *ValidationError
		conflictErr   *ConflictError
		transientErr  *TransientError
	)
	switch {
	case errors.Is(err, ErrNotFoundOrUnauthorized),
		errors.As(err, &validationErr),
		errors.As(err, &conflictErr),
		errors.As(err, &transientErr):
		return err
	}

	if field, ok := uniqueViolation(err, uniqueFields); ok {
		return &ConflictError{Field: field, Message: field + " already taken"}
	}
	if isTransient(err) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func uniqueViolation(err error, fields []string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		return matchField(pgErr.ConstraintName+" "+pgErr.Detail, fields), true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return matchField(err.Error(), fields), true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return matchField(msg, fields), true
	}
	return "", false
}

func matchField(text string, fields []string) string {
	text = strings.ToLower(text)
	for _, f := range fields {
		if strings.Contains(text, f) {
			return f
		}
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return "document"
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
