package scoring

import (
	"errors"
	"fmt"

	"github.com/dotcommander/mbiscore/internal/instrument"
)

var (
	// ErrInvalidResponseShape is returned when a response vector does not have exactly 22 entries
	ErrInvalidResponseShape = errors.New("invalid response shape")
	// ErrInvalidResponseValue is returned when an entry is outside the response scale
	ErrInvalidResponseValue = errors.New("invalid response value")
)

// ResponseError describes why a response vector was refused
type ResponseError struct {
	Kind  error // ErrInvalidResponseShape or ErrInvalidResponseValue
	Count int   // number of entries supplied, for shape errors
	Item  int   // 1-based item position, for value errors
	Value int
}

func (e *ResponseError) Error() string {
	if e.Kind == ErrInvalidResponseShape {
		return fmt.Sprintf("%v: want %d responses, got %d", e.Kind, instrument.ItemCount, e.Count)
	}
	return fmt.Sprintf("%v: item %d is %d, want %d..%d",
		e.Kind, e.Item, e.Value, instrument.MinValue, instrument.MaxValue)
}

func (e *ResponseError) Unwrap() error {
	return e.Kind
}

// KindName returns the stable name of the error category, as used in API payloads
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidResponseShape):
		return "InvalidResponseShape"
	case errors.Is(err, ErrInvalidResponseValue):
		return "InvalidResponseValue"
	case errors.Is(err, instrument.ErrConfiguration):
		return "ConfigurationError"
	default:
		return ""
	}
}
