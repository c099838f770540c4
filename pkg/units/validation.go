package units

import (
	"fmt"
	"strings"

	"github.com/craft-tools/mcman-go/pkg/errors"
)

// ValidateUnitID validates a unit identifier. Unit ids become registry
// keys and PID file names, so path separators and whitespace are rejected.
func ValidateUnitID(id string) error {
	if id == "" {
		return errors.NewValidationError("unit id cannot be empty", nil)
	}
	if strings.ContainsAny(id, `/\`) {
		return errors.NewValidationError(
			fmt.Sprintf("unit id '%s' contains path separators", id), nil)
	}
	if strings.ContainsAny(id, " \t\r\n") {
		return errors.NewValidationError(
			fmt.Sprintf("unit id '%s' contains whitespace", id), nil)
	}
	return nil
}
