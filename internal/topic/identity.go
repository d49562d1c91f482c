package topic

import (
	"fmt"
	"reflect"
)

// Identity names one delivery stream. Build it with Bare or Keyed.
type Identity struct {
	typ reflect.Type
	key Key
}

// Bare returns the identity of the stream for events of type t.
func Bare(t reflect.Type) Identity {
	return Identity{typ: t}
}

// Keyed returns the identity of the stream for events of type t routed
// with key k.
func Keyed(t reflect.Type, k Key) Identity {
	return Identity{typ: t, key: k}
}

// TypeFor returns the type descriptor for T. Unlike reflect.TypeOf on a
// value, it also works for interface types.
func TypeFor[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Type returns the event type descriptor.
func (id Identity) Type() reflect.Type {
	return id.typ
}

// Key returns the routing key; unset for bare identities.
func (id Identity) Key() Key {
	return id.key
}

// IsKeyed reports whether the identity carries a routing key.
func (id Identity) IsKeyed() bool {
	return id.key.IsSet()
}

// Default returns the bare identity for the same type.
func (id Identity) Default() Identity {
	return Bare(id.typ)
}

// Validate checks that the identity can be used for lookups.
func (id Identity) Validate() error {
	if id.typ == nil {
		return fmt.Errorf("topic: identity has no type")
	}
	return nil
}

// String renders the identity as "pkg.Type" or "pkg.Type#i:5".
func (id Identity) String() string {
	name := "<nil>"
	if id.typ != nil {
		name = id.typ.String()
	}
	if !id.key.IsSet() {
		return name
	}
	return name + "#" + id.key.String()
}
