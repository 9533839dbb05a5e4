package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a serialized chain cannot be decoded.
var ErrMalformed = errors.New("malformed chain data")

// InvalidInputError reports content or settings a brick cannot accept.
// It is the expected, user-facing failure class: propagation records it on
// the brick and carries on.
type InvalidInputError struct {
	Message string
	Fields  []string
}

func (e *InvalidInputError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid input: %s (fields: %s)", e.Message, strings.Join(e.Fields, ", "))
	}
	return "invalid input: " + e.Message
}

// InvalidInput creates an InvalidInputError with a formatted message.
func InvalidInput(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// InvalidFields creates an InvalidInputError listing offending settings.
func InvalidFields(fields []string) *InvalidInputError {
	return &InvalidInputError{
		Message: "settings are invalid",
		Fields:  append([]string(nil), fields...),
	}
}

// IsInvalidInput reports whether err is or wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
