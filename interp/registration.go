package interp

import "unsafe"

// ---------------------------------------------------------------------------
// Host value helpers
// ---------------------------------------------------------------------------
//
// Hosts read and write Value buffers through these typed accessors; the
// layout contract is the registered type's size and the member offsets the
// host supplied.

// ValueAs reinterprets the value's buffer as T.
func ValueAs[T any](v *Value) T {
	var zero T
	if len(v.Buffer) < int(unsafe.Sizeof(zero)) {
		panic("interp: value buffer smaller than requested type")
	}
	return *(*T)(unsafe.Pointer(&v.Buffer[0]))
}

// SetValueAs writes data into the value's buffer as T.
func SetValueAs[T any](v *Value, data T) {
	if len(v.Buffer) < int(unsafe.Sizeof(data)) {
		panic("interp: value buffer smaller than written type")
	}
	*(*T)(unsafe.Pointer(&v.Buffer[0])) = data
}

// NewValue returns a heap-backed zero value of the given usage.
func (e *Environment) NewValue(typeUsage TypeUsage) Value {
	var v Value
	v.InitOnHeap(typeUsage)
	return v
}

// NewBuiltInValue builds a heap-backed value of a registered type usage
// (e.g. "int", "float", "Vec3") holding the given data.
func NewBuiltInValue[T any](e *Environment, typeName string, data T) Value {
	v := e.NewValue(e.GetTypeUsage(typeName))
	SetValueAs(&v, data)
	return v
}

// ThisAs reinterprets a method's receiver pointer as *T. The receiver
// value holds the instance's address.
func ThisAs[T any](this *Value) *T {
	return (*T)(this.Pointer())
}

// readCString reads the NUL-terminated bytes at p, the layout of interned
// string literals.
func readCString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	var out []byte
	for i := 0; ; i++ {
		c := *(*byte)(unsafe.Add(p, i))
		if c == 0 {
			break
		}
		out = append(out, c)
	}
	return string(out)
}

// StringValueAs reads a `const char*` value as a Go string.
func StringValueAs(v *Value) string {
	return readCString(v.Pointer())
}
