package features

import (
	"fmt"
	"strings"
)

// SchemaError reports input that does not carry the required columns.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}
