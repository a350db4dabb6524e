package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/mirror/internal/ir"
)

// ConfigError reports every problem found while building a registry.
// A registry with any problem is never returned.
type ConfigError struct {
	Type     string
	Problems []ir.ValidationError
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "registry %s: %d problem(s)", e.Type, len(e.Problems))
	for _, p := range e.Problems {
		sb.WriteString("; ")
		sb.WriteString(p.Error())
	}
	return sb.String()
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
