package mapper

import (
	"errors"
	"fmt"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
)

// UnmappableFieldError reports a shared field with no native target and no
// degradation rule for a system. It is a configuration error: cycles abort
// before any writes when the table fails validation.
type UnmappableFieldError struct {
	Field  string
	System adapter.System
}

func (e *UnmappableFieldError) Error() string {
	return fmt.Sprintf("field %q has no mapping and no degradation rule for system %q", e.Field, e.System)
}

// IsUnmappable reports whether err is an UnmappableFieldError.
func IsUnmappable(err error) bool {
	var ue *UnmappableFieldError
	return errors.As(err, &ue)
}
