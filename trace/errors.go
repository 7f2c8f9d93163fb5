package trace

import "fmt"

// ValidationError reports a rejected lifetime update.
type ValidationError struct {
	Line  string
	Bound string // "create" or "delete"
	Value Time
	Limit Time
}

func (err *ValidationError) Error() string {
	switch err.Bound {
	case "create":
		return fmt.Sprintf("line %q: creation time %v is after deletion time %v", err.Line, err.Value, err.Limit)
	default:
		return fmt.Sprintf("line %q: deletion time %v is before creation time %v", err.Line, err.Value, err.Limit)
	}
}
