package bus

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/nfrund/rxbus/internal/topic"
)

var (
	// ErrNullEvent is returned when Send is called with a nil event.
	ErrNullEvent = errors.New("bus: event is null")
	// ErrInvalidCast is returned when the event is not assignable to the cast type.
	ErrInvalidCast = errors.New("bus: event cannot be cast")
	// ErrNullKey is returned when an unset routing key is supplied.
	ErrNullKey = topic.ErrNullKey
)

// CastError describes a failed cast. It matches ErrInvalidCast with errors.Is.
type CastError struct {
	From reflect.Type
	To   reflect.Type
}

func (e *CastError) Error() string {
	return fmt.Sprintf("bus: event of type %s cannot be cast to %s", e.From, e.To)
}

// Unwrap returns ErrInvalidCast.
func (e *CastError) Unwrap() error {
	return ErrInvalidCast
}
