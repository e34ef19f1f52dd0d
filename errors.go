package sqlsession

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorCode represents a database error classification
type ErrorCode string

const (
	CodePoolExhausted ErrorCode = "POOL_EXHAUSTED"
	CodePoolClosed    ErrorCode = "POOL_CLOSED"
	CodeSessionClosed ErrorCode = "SESSION_CLOSED"
	CodeFatalPool     ErrorCode = "FATAL_POOL"
	CodeStatement     ErrorCode = "STATEMENT"

	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeForeignKey       ErrorCode = "FOREIGN_KEY"
	CodeCheckViolation   ErrorCode = "CHECK_VIOLATION"
	CodeNotNullViolation ErrorCode = "NOT_NULL"
	CodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeSerialization    ErrorCode = "SERIALIZATION"
	CodeDeadlock         ErrorCode = "DEADLOCK"
	CodeUnknown          ErrorCode = "UNKNOWN"
)

// Sentinel errors for quick checks
var (
	ErrPoolExhausted = errors.New("sqlsession: no connection available within acquire timeout")
	ErrPoolClosed    = errors.New("sqlsession: pool is closed")
	ErrSessionClosed = errors.New("sqlsession: session is closed")
	ErrStatement     = errors.New("sqlsession: statement execution failed")
	ErrDuplicate     = errors.New("sqlsession: duplicate key violation")
	ErrForeignKey    = errors.New("sqlsession: foreign key violation")
	ErrConnection    = errors.New("sqlsession: connection failed")
	ErrTimeout       = errors.New("sqlsession: operation timeout")
)

// Error is a rich database error with context. Statement failures carry the
// normalized query text and arguments for diagnostics.
type Error struct {
	Code       ErrorCode // Error classification
	Message    string    // Human-readable message
	Op         string    // Operation that failed (e.g., "Run", "Acquire")
	Query      string    // Normalized query text, if a statement failed
	Args       []any     // Arguments passed with the query
	Constraint string    // Constraint name if applicable
	Detail     string    // Additional detail from PostgreSQL
	Cause      error     // Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("sqlsession: %s", e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("sqlsession.%s: %s", e.Op, e.Message)
	}
	if e.Query != "" {
		msg += fmt.Sprintf(" (query: %s)", e.Query)
	}
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" (args: %v)", e.Args)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for sentinel error matching. Every
// statement-level failure matches ErrStatement regardless of the finer
// backend classification.
func (e *Error) Is(target error) bool {
	if target == ErrStatement {
		return e.Query != "" || e.Code == CodeStatement
	}
	switch e.Code {
	case CodePoolExhausted:
		return target == ErrPoolExhausted
	case CodePoolClosed:
		return target == ErrPoolClosed
	case CodeSessionClosed:
		return target == ErrSessionClosed
	case CodeDuplicate:
		return target == ErrDuplicate
	case CodeForeignKey:
		return target == ErrForeignKey
	case CodeConnectionFailed:
		return target == ErrConnection
	case CodeTimeout:
		return target == ErrTimeout
	}
	return false
}

// wrapQueryError converts a backend error into a rich Error carrying the
// query text and arguments.
func wrapQueryError(err error, op, query string, args []any) error {
	if err == nil {
		return nil
	}

	var dbErr *Error
	if errors.As(err, &dbErr) {
		if dbErr.Query == "" {
			dbErr.Query = query
			dbErr.Args = args
		}
		return dbErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		e := wrapPgError(pgErr, op)
		e.Query = query
		e.Args = args
		return e
	}

	return &Error{
		Code:    CodeStatement,
		Message: err.Error(),
		Op:      op,
		Query:   query,
		Args:    args,
		Cause:   err,
	}
}

// wrapPgError classifies PostgreSQL errors by SQLSTATE
func wrapPgError(pgErr *pgconn.PgError, op string) *Error {
	e := &Error{
		Op:         op,
		Constraint: pgErr.ConstraintName,
		Detail:     pgErr.Detail,
		Cause:      pgErr,
	}

	// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
	switch pgErr.Code {
	case "23505": // unique_violation
		e.Code = CodeDuplicate
		e.Message = "duplicate key value violates unique constraint"
	case "23503": // foreign_key_violation
		e.Code = CodeForeignKey
		e.Message = "foreign key constraint violation"
	case "23502": // not_null_violation
		e.Code = CodeNotNullViolation
		e.Message = "null value in column violates not-null constraint"
	case "23514": // check_violation
		e.Code = CodeCheckViolation
		e.Message = "check constraint violation"
	case "40001": // serialization_failure
		e.Code = CodeSerialization
		e.Message = "serialization failure"
	case "40P01": // deadlock_detected
		e.Code = CodeDeadlock
		e.Message = "deadlock detected"
	case "57014": // query_canceled
		e.Code = CodeTimeout
		e.Message = "query was cancelled due to timeout"
	case "08000", "08003", "08006": // connection errors
		e.Code = CodeConnectionFailed
		e.Message = "database connection failed"
	default:
		e.Code = CodeStatement
		e.Message = pgErr.Message
	}

	return e
}

// IsPoolExhausted checks if error is an acquire-timeout error
func IsPoolExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}

// IsPoolClosed checks if error is a closed-pool error
func IsPoolClosed(err error) bool {
	return errors.Is(err, ErrPoolClosed)
}

// IsSessionClosed checks if error is a closed-session error
func IsSessionClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}

// IsStatement checks if error is a statement execution error
func IsStatement(err error) bool {
	return errors.Is(err, ErrStatement)
}

// IsDuplicate checks if error is a duplicate key error
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsTimeout checks if error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// GetErrorCode extracts the error code if it's a sqlsession error
func GetErrorCode(err error) (ErrorCode, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Code, true
	}
	return "", false
}

// GetQuery extracts the failed query text if available
func GetQuery(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Query != "" {
		return dbErr.Query, true
	}
	return "", false
}

// GetConstraint extracts the constraint name if available
func GetConstraint(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Constraint != "" {
		return dbErr.Constraint, true
	}
	return "", false
}
