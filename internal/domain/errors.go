package domain

import (
	"errors"
	"fmt"
)

// TransportError means the upstream could not be reached or answered
// outside 2xx. Retryable on the next cycle.
type TransportError struct {
	Source SourceID
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream returned status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError means the upstream answered but the payload did not match
// the expected shape. Not retryable within the cycle.
type SchemaError struct {
	Source SourceID
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: bad upstream payload: %s", e.Source, e.Reason)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ComputeError means a derived metric was asked to evaluate an invalid
// input. Calculators guard against these and emit nil fields instead,
// so seeing one escalate is a seed-data bug.
type ComputeError struct {
	Metric string
	Reason string
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("compute %s: %s", e.Metric, e.Reason)
}

// ErrAllSourcesFailed marks a refresh cycle in which no adapter produced
// data. The scheduler keeps the previous snapshot and counts the failure.
var ErrAllSourcesFailed = errors.New("all feed sources failed")

// IsSchemaError reports whether err carries a SchemaError anywhere in its
// chain.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsTransportError reports whether err carries a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
