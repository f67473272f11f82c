package types

import (
	"errors"
	"fmt"
	"strings"
)

// Lifecycle errors for the database manager.
var (
	ErrInitialization = errors.New("local database could not be initialized")
	ErrNotInitialized = errors.New("storage manager is not initialized")
	ErrSchemaTooNew   = errors.New("database schema is newer than this build")
)

// Operation errors.
var (
	ErrValidation         = errors.New("record failed validation")
	ErrImportParse        = errors.New("backup payload could not be parsed")
	ErrTransactionFailure = errors.New("transaction aborted")
	ErrUnknownKind        = errors.New("unknown entity kind")
	ErrUnknownIndex       = errors.New("unknown index")
	ErrKindMismatch       = errors.New("record does not belong to kind")
	ErrInvalidKey         = errors.New("invalid record key")
	ErrNotFound           = errors.New("record not found")
)

// Document category errors.
var (
	ErrCategoryNotFound  = errors.New("document category not found")
	ErrCategoryInUse     = errors.New("document category is referenced by documents")
	ErrDuplicateCategory = errors.New("document category already exists")
	ErrInvalidCategory   = errors.New("document category name must not be empty")
)

// FieldViolation describes one failed constraint on one field.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (v FieldViolation) String() string {
	if v.Param != "" {
		return fmt.Sprintf("%s: %s=%s", v.Field, v.Rule, v.Param)
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Rule)
}

// ValidationError lists every field-level violation of a candidate record.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Kind       Kind
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid %s record: %s", e.Kind, strings.Join(parts, "; "))
}

// Is reports ErrValidation as the sentinel for this error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Has reports whether a violation was recorded for field.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}
