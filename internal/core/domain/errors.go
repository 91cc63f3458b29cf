package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoData means a query succeeded but returned nothing for the range.
	ErrNoData = errors.New("no data for range")

	// ErrNoContainer is returned when a map host is initialised without a mount point.
	ErrNoContainer = errors.New("map container is required")

	// ErrUnsupported is returned when an operation does not apply to a view kind.
	ErrUnsupported = errors.New("operation not supported by view")
)

// UpstreamStatusError is a non-success HTTP status from an external service.
type UpstreamStatusError struct {
	Service    string
	StatusCode int
	Status     string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.Service, e.StatusCode, e.Status)
}

// DecodeError is a response body that could not be parsed.
type DecodeError struct {
	Service string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: invalid response: %v", e.Service, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParamError lists the missing or invalid fields of a view payload.
type ParamError struct {
	Kind   string
	Fields []string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: invalid parameters: %s", e.Kind, strings.Join(e.Fields, ", "))
}
