package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrExtraction  = errors.New("extraction failed")
	ErrInference   = errors.New("inference failed")
	ErrUnavailable = errors.New("service unavailable")
	ErrValidation  = errors.New("invalid payload")
	ErrConflict    = errors.New("conflicting state")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Job error codes, written exactly once per failed run.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeExtraction = "EXTRACTION_FAILED"
	CodeAnalysis   = "ANALYSIS_FAILED"
	CodeProcessing = "PROCESSING_ERROR"
)

// ErrorCode maps an error to the job error code persisted on failure.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrExtraction):
		return CodeExtraction
	case errors.Is(err, ErrInference):
		return CodeAnalysis
	default:
		return CodeProcessing
	}
}
