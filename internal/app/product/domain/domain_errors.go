package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors as sentinel values
var (
	// Lookup errors
	ErrProductNotFound  = errors.New("product not found")
	ErrParentNotFound   = errors.New("parent product not found")
	ErrCategoryNotFound = errors.New("category not found")

	// Request errors
	ErrVariationThemeRequired = errors.New("variation theme is required for a product with variations")
	ErrNoVariations           = errors.New("product with variations needs at least one variation")
	ErrInvalidImage           = errors.New("invalid image payload")

	// Transactional phase
	ErrTransactionFailed = errors.New("transaction failed")
)

// FieldErrors is a nested, field-keyed error map. Leaves are messages or
// lists of messages, inner nodes are FieldErrors keyed by field name, code
// or list index.
type FieldErrors map[string]any

// Set records value under key.
func (f FieldErrors) Set(key string, value any) {
	f[key] = value
}

// Child returns the nested map under key, creating it when needed.
func (f FieldErrors) Child(key string) FieldErrors {
	if existing, ok := f[key].(FieldErrors); ok {
		return existing
	}
	child := FieldErrors{}
	f[key] = child
	return child
}

// Merge copies every entry of src under key when src is not empty.
func (f FieldErrors) Merge(key string, src map[string]string) {
	if len(src) == 0 {
		return
	}
	child := f.Child(key)
	for k, v := range src {
		child[k] = v
	}
}

// Empty reports whether no error was recorded.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// ValidationError is returned when business-rule validation fails.
// No write happens once it is raised.
type ValidationError struct {
	Fields FieldErrors
}

// NewValidationError wraps fields, or returns nil when fields is empty.
func NewValidationError(fields FieldErrors) error {
	if fields.Empty() {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("validation failed: %s", strings.Join(keys, ", "))
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransactionFailure wraps a failure of the transactional phase in
// ErrTransactionFailed. Lookup and validation errors raised inside the unit
// of work are returned unchanged.
func TransactionFailure(err error) error {
	switch {
	case err == nil,
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrParentNotFound),
		IsValidation(err):
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
}
