package interp

import "testing"

func testEnv(t *testing.T) *Environment {
	t.Helper()
	return NewEnvironment()
}

func TestValueHeapMode(t *testing.T) {
	e := testEnv(t)

	var v Value
	v.InitOnHeap(e.builtinUsage("int"))

	if v.BufferType != BufferHeap {
		t.Fatalf("buffer type = %v, want heap", v.BufferType)
	}
	if len(v.Buffer) != 4 {
		t.Fatalf("buffer size = %d, want 4", len(v.Buffer))
	}

	SetValueAs(&v, int32(1234))
	if got := ValueAs[int32](&v); got != 1234 {
		t.Errorf("round trip = %d, want 1234", got)
	}
}

func TestValueHeapReinitKeepsFittingBuffer(t *testing.T) {
	e := testEnv(t)

	var v Value
	v.InitOnHeap(e.builtinUsage("int"))
	buffer := &v.Buffer[0]

	v.InitOnHeap(e.builtinUsage("float"))
	if &v.Buffer[0] != buffer {
		t.Errorf("same-size reinit reallocated the buffer")
	}

	v.InitOnHeap(e.builtinUsage("double"))
	if len(v.Buffer) != 8 {
		t.Errorf("buffer size = %d, want 8", len(v.Buffer))
	}
}

func TestValueStackMode(t *testing.T) {
	e := testEnv(t)
	pool := NewStackPool(64)

	var a, b Value
	a.InitOnStack(e.builtinUsage("int"), pool)
	b.InitOnStack(e.builtinUsage("double"), pool)

	if a.BufferType != BufferStack || b.BufferType != BufferStack {
		t.Fatalf("buffer types = %v, %v, want stack", a.BufferType, b.BufferType)
	}
	if pool.Mark() != 12 {
		t.Errorf("pool fill = %d, want 12", pool.Mark())
	}
}

func TestStackPoolRewind(t *testing.T) {
	pool := NewStackPool(32)

	mark := pool.Mark()
	pool.Push(8)
	pool.Push(8)
	pool.Rewind(mark)

	if pool.Mark() != 0 {
		t.Errorf("fill after rewind = %d, want 0", pool.Mark())
	}

	// rewound bytes are zeroed on reuse
	buf := pool.Push(8)
	for i, c := range buf {
		if c != 0 {
			t.Errorf("reused byte %d = %d, want 0", i, c)
		}
	}
}

func TestStackPoolOverflowPanics(t *testing.T) {
	pool := NewStackPool(8)
	defer func() {
		if recover() == nil {
			t.Errorf("overflow did not panic")
		}
	}()
	pool.Push(16)
}

func TestValueExternalModeWritesThrough(t *testing.T) {
	e := testEnv(t)

	storage := make([]byte, 4)

	var v Value
	v.InitExternal(e.builtinUsage("int"))
	v.Set(storage)

	SetValueAs(&v, int32(77))

	var reader Value
	reader.InitExternal(e.builtinUsage("int"))
	reader.Set(storage)
	if got := ValueAs[int32](&reader); got != 77 {
		t.Errorf("external write did not reach the owner's storage: %v", storage)
	}
}

func TestValueShallowCopySharesBuffer(t *testing.T) {
	e := testEnv(t)

	var a Value
	a.InitOnHeap(e.builtinUsage("int"))
	SetValueAs(&a, int32(5))

	b := a
	SetValueAs(&b, int32(9))
	if got := ValueAs[int32](&a); got != 9 {
		t.Errorf("copy did not share the buffer: a = %d, want 9", got)
	}
}

func TestTypeUsageSize(t *testing.T) {
	e := testEnv(t)
	intType := e.GetType("int")

	tests := []struct {
		name  string
		usage TypeUsage
		want  int
	}{
		{"plain", NewTypeUsage(intType), 4},
		{"pointer", TypeUsage{Type: intType, ArraySize: 1, PointerLevel: 1}, PointerSize},
		{"reference", TypeUsage{Type: intType, ArraySize: 1, Flags: FlagReference}, PointerSize},
		{"array", TypeUsage{Type: intType, ArraySize: 4}, 16},
		{"void", TypeUsage{ArraySize: 1}, 0},
	}

	for _, tc := range tests {
		if got := tc.usage.Size(); got != tc.want {
			t.Errorf("%s: size = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestTypeUsageEquality(t *testing.T) {
	e := testEnv(t)
	intType := e.GetType("int")

	base := NewTypeUsage(intType)
	same := NewTypeUsage(intType)
	if !base.Equals(same) {
		t.Errorf("identical usages not equal")
	}

	pointer := base
	pointer.PointerLevel = 1
	constant := base
	constant.Flags = FlagConst
	array := base
	array.ArraySize = 2
	other := NewTypeUsage(e.GetType("float"))

	for name, usage := range map[string]TypeUsage{
		"pointer": pointer, "const": constant, "array": array, "other type": other,
	} {
		if base.Equals(usage) {
			t.Errorf("%s usage compared equal", name)
		}
	}
}

func TestIdentifierHash(t *testing.T) {
	// FNV-1a reference values
	if got := HashName(""); got != 2166136261 {
		t.Errorf("hash(\"\") = %d, want 2166136261", got)
	}
	if HashName("foo") == HashName("bar") {
		t.Errorf("distinct names hashed equal")
	}
	if !NewIdentifier("x").Equals(NewIdentifier("x")) {
		t.Errorf("same-name identifiers not equal")
	}
}

func TestGetTypeUsageParsing(t *testing.T) {
	e := testEnv(t)

	tests := []struct {
		text      string
		typeName  string
		pointer   bool
		reference bool
		constant  bool
	}{
		{"int", "int", false, false, false},
		{"int*", "int", true, false, false},
		{"int&", "int", false, true, false},
		{"const char*", "char", true, false, true},
		{"const float", "float", false, false, true},
	}

	for _, tc := range tests {
		usage := e.GetTypeUsage(tc.text)
		if usage.Type == nil || usage.Type.Name != tc.typeName {
			t.Errorf("GetTypeUsage(%q): type = %v, want %q", tc.text, usage.Type, tc.typeName)
			continue
		}
		if usage.IsPointer() != tc.pointer {
			t.Errorf("GetTypeUsage(%q): pointer = %v", tc.text, usage.IsPointer())
		}
		if usage.IsReference() != tc.reference {
			t.Errorf("GetTypeUsage(%q): reference = %v", tc.text, usage.IsReference())
		}
		if usage.IsConst() != tc.constant {
			t.Errorf("GetTypeUsage(%q): const = %v", tc.text, usage.IsConst())
		}
	}
}
