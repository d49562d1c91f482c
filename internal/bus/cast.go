package bus

import "reflect"

// Cast returns v as a value of type target, or false when v's dynamic type
// is not assignable to target.
//
// For interface targets the dynamic value is returned unchanged; for
// concrete targets the value is converted so its dynamic type is target.
func Cast(v any, target reflect.Type) (any, bool) {
	if v == nil || target == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(target) {
		return nil, false
	}
	if target.Kind() == reflect.Interface {
		return v, true
	}
	return rv.Convert(target).Interface(), true
}

// isNil reports whether v is nil or a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
