package locale

import "fmt"

// NormalizationError reports a captured token that could not be converted
// to its target type. It is local to one field.
type NormalizationError struct {
	Kind string // integer, float, timestamp, date, duration, enum
	Raw  string
	Err  error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s %q: %v", e.Kind, e.Raw, e.Err)
	}
	return fmt.Sprintf("normalize %s %q", e.Kind, e.Raw)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

func normErr(kind, raw string, err error) error {
	return &NormalizationError{Kind: kind, Raw: raw, Err: err}
}
