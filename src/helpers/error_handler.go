package helpers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"market-structure/src/logger"

	"github.com/cenkalti/backoff/v4"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type StructureError struct {
	Message string
	Cause   error
}

func (e *StructureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StructureError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As
type ConfigurationError struct{ StructureError }
type DataSourceError struct{ StructureError }
type DatabaseError struct{ StructureError }

// ValidationError rejects a malformed or out-of-order input candle.
type ValidationError struct{ StructureError }

// InvariantError aborts processing of one key; it should be unreachable.
type InvariantError struct{ StructureError }

// SinkError is a failed persist or publish call.
type SinkError struct{ StructureError }

// -----------------------------------------------------------------------------

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{StructureError{Message: fmt.Sprintf(format, args...)}}
}

func NewInvariantError(format string, args ...interface{}) error {
	return &InvariantError{StructureError{Message: fmt.Sprintf(format, args...)}}
}

func NewSinkError(sink string, cause error) error {
	return &SinkError{StructureError{Message: fmt.Sprintf("sink %s failed", sink), Cause: cause}}
}

func NewDatabaseError(operation string, cause error) error {
	return &DatabaseError{StructureError{Message: operation, Cause: cause}}
}

func NewDataSourceError(source string, cause error) error {
	return &DataSourceError{StructureError{Message: fmt.Sprintf("source %s", source), Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn with exponential backoff until it succeeds,
// maxElapsed passes or ctx is cancelled. Used for startup connections only.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxElapsed time.Duration, fn func() error) error {
	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err != nil && log != nil {
			log.Warning("%s failed (attempt %d): %v", operation, attempt, err)
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(strategy, ctx)); err != nil {
		return fmt.Errorf("%s: after %d attempts: %w", operation, attempt, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	errorCount atomic.Int64
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ErrorCount() int64 {
	return e.errorCount.Load()
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.errorCount.Store(0)
}

// -----------------------------------------------------------------------------

// Handle logs a non-fatal error and counts it
func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.errorCount.Add(1)
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
