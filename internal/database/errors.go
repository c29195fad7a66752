package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// Error kinds. Callers match on these with errors.Is; the specific errors
// below wrap exactly one kind.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

var (
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrOrderNotFound        = fmt.Errorf("order %w", ErrNotFound)
	ErrStageNotFound        = fmt.Errorf("stage %w", ErrNotFound)
	ErrPartNotFound         = fmt.Errorf("part %w", ErrNotFound)
	ErrSuggestionNotFound   = fmt.Errorf("suggestion %w", ErrNotFound)
	ErrVehicleNotFound      = fmt.Errorf("vehicle %w", ErrNotFound)
	ErrTemplateNotFound     = fmt.Errorf("service template %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)

	ErrStageClaimed     = fmt.Errorf("stage is assigned to another mechanic: %w", ErrForbidden)
	ErrNotOrderCustomer = fmt.Errorf("order belongs to another customer: %w", ErrForbidden)

	ErrStageNotInOrder       = fmt.Errorf("stage does not belong to order: %w", ErrInvalidState)
	ErrInsufficientStock     = fmt.Errorf("insufficient stock: %w", ErrInvalidState)
	ErrPartInactive          = fmt.Errorf("part is not active: %w", ErrInvalidState)
	ErrRequiredNotRejectable = fmt.Errorf("required suggestion cannot be rejected: %w", ErrInvalidState)
	ErrVehicleUnknown        = fmt.Errorf("order has no vehicle: %w", ErrInvalidState)
)

// Validationf builds an ErrValidation-kind error with a message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
