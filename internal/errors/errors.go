// Package errors provides the typed errors returned while fulfilling a
// webhook request.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeUnknownAssetType ErrorCode = "UNKNOWN_ASSET_TYPE"
	ErrCodeStoreReadFailed  ErrorCode = "STORE_READ_FAILED"
	ErrCodeStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED"
	ErrCodeQuoteCorrupt     ErrorCode = "QUOTE_CORRUPT"

	// ErrCodeInternal is reported by CodeOf for errors that are not a
	// *StandardError.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// StandardError is a structured application error.
type StandardError struct {
	Code    ErrorCode
	Message string
	Details string
	Cause   error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequestError reports a webhook body that could not be decoded.
func NewInvalidRequestError(err error) *StandardError {
	return &StandardError{
		Code:    ErrCodeInvalidRequest,
		Message: "Webhook request could not be decoded",
		Details: err.Error(),
		Cause:   err,
	}
}

// NewUnknownAssetTypeError reports an asset type missing from the product table.
func NewUnknownAssetTypeError(assetType string) *StandardError {
	return &StandardError{
		Code:    ErrCodeUnknownAssetType,
		Message: "Unknown asset type",
		Details: fmt.Sprintf("assetType: %q", assetType),
	}
}

// NewStoreReadFailedError wraps a failure to read a session quote.
func NewStoreReadFailedError(sessionID string, err error) *StandardError {
	return &StandardError{
		Code:    ErrCodeStoreReadFailed,
		Message: "Session quote lookup failed",
		Details: fmt.Sprintf("session: %s, error: %s", sessionID, err.Error()),
		Cause:   err,
	}
}

// NewStoreWriteFailedError wraps a failure to save a session quote.
func NewStoreWriteFailedError(sessionID string, err error) *StandardError {
	return &StandardError{
		Code:    ErrCodeStoreWriteFailed,
		Message: "Session quote save failed",
		Details: fmt.Sprintf("session: %s, error: %s", sessionID, err.Error()),
		Cause:   err,
	}
}

// NewQuoteCorruptError reports a stored quote whose fields cannot be used.
func NewQuoteCorruptError(quoteID string, err error) *StandardError {
	return &StandardError{
		Code:    ErrCodeQuoteCorrupt,
		Message: "Stored quote is corrupt",
		Details: fmt.Sprintf("quoteId: %s, error: %s", quoteID, err.Error()),
		Cause:   err,
	}
}

// CodeOf returns the code of the first *StandardError in err's chain.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
