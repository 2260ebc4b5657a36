package training

import "fmt"

// InsufficientDataError reports a dataset that cannot be trained on.
type InsufficientDataError struct {
	Reason string
	Err    error
}

func (e *InsufficientDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("insufficient data: %s: %v", e.Reason, e.Err)
	}
	return "insufficient data: " + e.Reason
}

func (e *InsufficientDataError) Unwrap() error {
	return e.Err
}
