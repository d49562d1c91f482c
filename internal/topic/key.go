package topic

import (
	"errors"
	"strconv"
)

// ErrNullKey is returned when a routing key is requested from a nil source
// or an unset Key is used where a routing key is required.
var ErrNullKey = errors.New("topic: routing key is null")

// KeyKind tags which variant a Key holds.
type KeyKind uint8

const (
	KindNone KeyKind = iota
	KindInt
	KindString
)

// String returns a short name for the kind.
func (k KeyKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "none"
	}
}

// Key is a routing key: either an integer or a string.
// The zero value holds no key.
type Key struct {
	kind KeyKind
	i    int64
	s    string
}

// IntKey returns an integer routing key.
func IntKey(v int64) Key {
	return Key{kind: KindInt, i: v}
}

// StringKey returns a string routing key. The empty string is a valid key.
func StringKey(v string) Key {
	return Key{kind: KindString, s: v}
}

// IntKeyOf returns an integer key from an optional value.
func IntKeyOf(v *int64) (Key, error) {
	if v == nil {
		return Key{}, ErrNullKey
	}
	return IntKey(*v), nil
}

// StringKeyOf returns a string key from an optional value.
func StringKeyOf(v *string) (Key, error) {
	if v == nil {
		return Key{}, ErrNullKey
	}
	return StringKey(*v), nil
}

// Kind reports which variant the key holds.
func (k Key) Kind() KeyKind {
	return k.kind
}

// IsSet reports whether the key holds a value.
func (k Key) IsSet() bool {
	return k.kind != KindNone
}

// Int returns the integer value and whether the key is an integer key.
func (k Key) Int() (int64, bool) {
	return k.i, k.kind == KindInt
}

// Str returns the string value and whether the key is a string key.
func (k Key) Str() (string, bool) {
	return k.s, k.kind == KindString
}

// String renders the key with its variant prefix, e.g. "i:5" or "s:5".
func (k Key) String() string {
	switch k.kind {
	case KindInt:
		return "i:" + strconv.FormatInt(k.i, 10)
	case KindString:
		return "s:" + k.s
	default:
		return "<none>"
	}
}
