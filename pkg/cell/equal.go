package cell

import "reflect"

// defaultEquals reports whether a and b hold the same value. Values of
// different dynamic types are never equal, which matters when T is an
// interface. Scalars and pointers compare with ==; composite values fall
// back to reflect.DeepEqual.
func defaultEquals[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}
	ta := reflect.TypeOf(av)
	if ta != reflect.TypeOf(bv) {
		return false
	}
	switch ta.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return av == bv
	}
	return reflect.DeepEqual(av, bv)
}
