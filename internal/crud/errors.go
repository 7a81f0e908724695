package crud

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a primary key or lookup key matches nothing.
var ErrNotFound = errors.New("not found")

// ValidationError rejects a request before anything is written.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// translate maps store constraint errors onto the validation taxonomy.
// Requires gorm.Config.TranslateError.
func translate(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Invalid("a %s with the same unique key already exists", resource)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Invalid("%s is referenced by other records or references a missing record", resource)
	default:
		return err
	}
}
