package screen

import (
	"errors"
)

// Record is the typed result of one screen parser.
type Record interface {
	Type() string
}

// Outcome is what every parse produces.
type Outcome struct {
	Identifier string   `json:"identifier"`
	Success    bool     `json:"success"`
	Record     Record   `json:"record,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`

	// Err is the failure cause for errors.Is checks. Nil on success.
	Err error `json:"-"`
}

// Succeeded builds a successful outcome. Diagnostics become warnings.
func Succeeded(id string, rec Record, diagnostics []error) *Outcome {
	o := &Outcome{Identifier: id, Success: true, Record: rec}
	for _, d := range diagnostics {
		o.Warnings = append(o.Warnings, d.Error())
	}
	return o
}

// NoMatch is the outcome of a structural pattern that did not match. The
// errors hold the reason followed by the offending text.
func NoMatch(id, reason, text string) *Outcome {
	return &Outcome{
		Identifier: id,
		Errors:     []string{reason, text},
		Err:        ErrStructuralNoMatch,
	}
}

// Failed records err as the failure cause.
func Failed(id string, err error, text string) *Outcome {
	return &Outcome{
		Identifier: id,
		Errors:     []string{err.Error(), text},
		Err:        err,
	}
}

// ErrStructuralNoMatch is the cause of a NoMatch outcome.
var ErrStructuralNoMatch = errors.New("structural pattern did not match")
