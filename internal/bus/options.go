package bus

import (
	"reflect"

	"github.com/nfrund/rxbus/internal/topic"
)

// SendOptions controls how a single event is routed. It is an immutable
// value: every With method returns a modified copy, so one SendOptions can be
// shared between goroutines and reused across sends.
type SendOptions struct {
	castTo        reflect.Type
	key           topic.Key
	sendToDefault bool
}

// NewOptions returns options that route to the bare topic of the event's
// own type.
func NewOptions() SendOptions {
	return SendOptions{}
}

// WithCast delivers the event as type t, so observers of t receive it.
// Sending an event that is not assignable to t fails with ErrInvalidCast.
// A nil t clears the cast.
func (o SendOptions) WithCast(t reflect.Type) SendOptions {
	o.castTo = t
	return o
}

// WithKey routes the event to the keyed topic only. An unset key is
// rejected immediately with ErrNullKey.
func (o SendOptions) WithKey(k topic.Key) (SendOptions, error) {
	if !k.IsSet() {
		return o, ErrNullKey
	}
	o.key = k
	return o, nil
}

// WithIntKey routes the event to the topic keyed by integer k.
func (o SendOptions) WithIntKey(k int64) SendOptions {
	o.key = topic.IntKey(k)
	return o
}

// WithStringKey routes the event to the topic keyed by string k.
func (o SendOptions) WithStringKey(k string) SendOptions {
	o.key = topic.StringKey(k)
	return o
}

// WithSendToDefault also delivers keyed events to the bare topic.
func (o SendOptions) WithSendToDefault() SendOptions {
	o.sendToDefault = true
	return o
}

// CastTo returns the cast type, or nil.
func (o SendOptions) CastTo() reflect.Type {
	return o.castTo
}

// Key returns the routing key; unset when none was given.
func (o SendOptions) Key() topic.Key {
	return o.key
}

// SendToDefault reports whether keyed events also go to the bare topic.
func (o SendOptions) SendToDefault() bool {
	return o.sendToDefault
}
