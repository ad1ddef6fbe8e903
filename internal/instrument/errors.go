package instrument

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration marks a defect in fixed configuration: an item map that
// does not partition the survey, or input whose schema cannot be mapped onto
// it. It is fatal for whatever was being loaded.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError describes a configuration defect
type ConfigurationError struct {
	Reason  string
	Details []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Details) == 0 {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Reason, strings.Join(e.Details, "; "))
}

// Is reports whether target is ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ConfigErrorf builds a ConfigurationError from a format string
func ConfigErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
