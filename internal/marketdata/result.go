package marketdata

import (
	"context"
	"errors"
	"fmt"
)

// Status is the outcome of a per-symbol market data lookup.
type Status int

const (
	// StatusOK means Value holds data.
	StatusOK Status = iota
	// StatusNoData means the source answered but has nothing for the symbol.
	StatusNoData
	// StatusSourceError means the source failed; Reason says why.
	StatusSourceError
)

var statusNames = map[Status]string{
	StatusOK:          "ok",
	StatusNoData:      "no_data",
	StatusSourceError: "source_error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Result is the typed outcome of a lookup: Ok(value), NoData, or SourceError(reason).
type Result[T any] struct {
	Status Status `json:"status"`
	Value  T      `json:"value"`
	Reason string `json:"reason,omitempty"`
}

// OK wraps a successful value.
func OK[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

// NoData reports that the source has nothing for the symbol.
func NoData[T any]() Result[T] {
	return Result[T]{Status: StatusNoData}
}

// SourceError reports a failed lookup.
func SourceError[T any](reason string) Result[T] {
	return Result[T]{Status: StatusSourceError, Reason: reason}
}

// IsOK reports whether the result carries a value.
func (r Result[T]) IsOK() bool {
	return r.Status == StatusOK
}

// Err converts a non-OK result back into an error.
func (r Result[T]) Err() error {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusNoData:
		return ErrNoData
	default:
		return fmt.Errorf("source error: %s", r.Reason)
	}
}

// Classify turns an adapter call into a Result. ErrNoData becomes NoData;
// cancellation and every other error become SourceError.
func Classify[T any](v T, err error) Result[T] {
	switch {
	case err == nil:
		return OK(v)
	case errors.Is(err, ErrNoData):
		return NoData[T]()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SourceError[T]("request cancelled: " + err.Error())
	default:
		return SourceError[T](err.Error())
	}
}
