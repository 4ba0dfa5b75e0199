package interp

import (
	"strings"
	"testing"
)

func TestHostVariableRead(t *testing.T) {
	e := NewEnvironment()

	speed := NewBuiltInValue(e, "int", int32(30))
	e.SetVariable(e.GetTypeUsage("int"), "speed", speed)

	loadOK(t, e, "test", "int doubled = speed + speed;")

	if got := intVariable(t, e, "doubled"); got != 60 {
		t.Errorf("doubled = %d, want 60", got)
	}
}

func TestHostVariableMutation(t *testing.T) {
	e := NewEnvironment()

	counter := NewBuiltInValue(e, "int", int32(10))
	e.SetVariable(e.GetTypeUsage("int"), "counter", counter)

	loadOK(t, e, "test", "counter = counter + 5;")

	if got := ValueAs[int32](e.GetVariable("counter")); got != 15 {
		t.Errorf("counter = %d, want 15", got)
	}
}

func TestHostVariableSurvivesRuns(t *testing.T) {
	e := NewEnvironment()

	base := NewBuiltInValue(e, "int", int32(7))
	e.SetVariable(e.GetTypeUsage("int"), "base", base)

	loadOK(t, e, "first", "int a = base + 1;")
	loadOK(t, e, "second", "int b = base + 2;")

	if got := ValueAs[int32](e.GetVariable("base")); got != 7 {
		t.Errorf("base = %d, want 7", got)
	}
	if got := intVariable(t, e, "b"); got != 9 {
		t.Errorf("b = %d, want 9", got)
	}
}

func TestSetVariableKeepsHostBuffer(t *testing.T) {
	e := NewEnvironment()

	hostValue := NewBuiltInValue(e, "int", int32(1))
	e.SetVariable(e.GetTypeUsage("int"), "shared", hostValue)

	// mutating the script-side variable must not touch the host's value
	loadOK(t, e, "test", "shared = 99;")

	if got := ValueAs[int32](&hostValue); got != 1 {
		t.Errorf("host buffer mutated: %d, want 1", got)
	}
	if got := ValueAs[int32](e.GetVariable("shared")); got != 99 {
		t.Errorf("shared = %d, want 99", got)
	}
}

func TestGetVariableMissing(t *testing.T) {
	e := NewEnvironment()
	if e.GetVariable("nope") != nil {
		t.Errorf("unknown variable resolved")
	}
}

func TestBuiltInTypes(t *testing.T) {
	e := NewEnvironment()

	tests := []struct {
		name string
		size int
	}{
		{"int", 4}, {"uint32_t", 4}, {"size_t", 8}, {"char", 1}, {"bool", 1},
		{"uint8_t", 1}, {"short", 2}, {"uint16_t", 2}, {"float", 4}, {"double", 8},
	}

	for _, tc := range tests {
		typ := e.GetType(tc.name)
		if typ == nil {
			t.Errorf("built-in %q not registered", tc.name)
			continue
		}
		if typ.Size != tc.size {
			t.Errorf("%s size = %d, want %d", tc.name, typ.Size, tc.size)
		}
		if !typ.IsBuiltIn() {
			t.Errorf("%s category = %v, want built-in", tc.name, typ.Category)
		}
	}
}

func TestFunctionOverloadList(t *testing.T) {
	e := NewEnvironment()

	first := e.RegisterFunction("f")
	second := e.RegisterFunction("f")

	overloads := e.GetFunctions("f")
	if len(overloads) != 2 {
		t.Fatalf("overload count = %d, want 2", len(overloads))
	}
	if overloads[0] != first || overloads[1] != second {
		t.Errorf("overload list order broken")
	}
	if e.GetFunction("f") != first {
		t.Errorf("GetFunction does not return the first overload")
	}
}

func TestProgramRegistry(t *testing.T) {
	e := NewEnvironment()

	loadOK(t, e, "alpha", "int a = 1;")
	loadOK(t, e, "beta", "int b = 2;")
	loadOK(t, e, "alpha", "int a = 3;") // replace

	names := e.ProgramNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("program names = %v, want [alpha beta]", names)
	}

	program := e.GetProgram("alpha")
	if program == nil {
		t.Fatalf("program 'alpha' not retained")
	}
	if !strings.Contains(program.Code, "= 3") {
		t.Errorf("re-load did not replace the retained source: %q", program.Code)
	}
	if len(program.Statements) != 1 {
		t.Errorf("statement count = %d, want 1", len(program.Statements))
	}
}

func TestErrorMessageClearedOnSuccess(t *testing.T) {
	e := NewEnvironment()

	if e.Load("bad", "y = 1;") {
		t.Fatalf("expected failure")
	}
	if e.ErrorMessage() == "" {
		t.Fatalf("no error recorded")
	}

	loadOK(t, e, "good", "int y = 1;")
	if e.ErrorMessage() != "" {
		t.Errorf("stale error message: %q", e.ErrorMessage())
	}
}

func TestNamespaceRegistries(t *testing.T) {
	ns := NewNamespace("")

	child := ns.Child("game")
	if ns.Child("game") != child {
		t.Errorf("Child created a duplicate namespace")
	}

	intUsage := TypeUsage{ArraySize: 1}
	a := ns.RegisterInstance(intUsage, NewIdentifier("a"))
	a.ScopeLevel = 0
	b := ns.RegisterInstance(intUsage, NewIdentifier("b"))
	b.ScopeLevel = 1
	shadow := ns.RegisterInstance(intUsage, NewIdentifier("a"))
	shadow.ScopeLevel = 2

	if got := ns.RetrieveInstance(NewIdentifier("a")); got != shadow {
		t.Errorf("most recent registration does not win")
	}

	ns.ReleaseInstances(1)
	if ns.InstanceCount() != 1 {
		t.Errorf("instance count = %d, want 1", ns.InstanceCount())
	}
	if got := ns.RetrieveInstance(NewIdentifier("a")); got != a {
		t.Errorf("scope-0 instance lost on release")
	}
}

func TestStringLiteralInterning(t *testing.T) {
	e := NewEnvironment()

	var observed string
	print := e.RegisterFunction("print")
	print.Parameters = []TypeUsage{e.GetTypeUsage("const char*")}
	print.Execute = func(args []Value, ret *Value) {
		p := args[0].Pointer()
		observed = readCString(p)
	}

	loadOK(t, e, "test", "print(\"hello\");")

	if observed != "hello" {
		t.Errorf("observed %q, want %q", observed, "hello")
	}
}

func TestUsingNamespaceTypeResolution(t *testing.T) {
	e := NewEnvironment()

	point := e.RegisterStruct("game::Point", 8)
	intUsage := e.GetTypeUsage("int")
	e.RegisterStructMember(point, "x", intUsage, 0, 1)
	e.RegisterStructMember(point, "y", intUsage, 4, 1)
	constructor := e.RegisterMethod(point, "game::Point")
	constructor.Execute = func(this Value, args []Value, ret *Value) {
		buf := bufferAt(this.Pointer(), 8)
		for i := range buf {
			buf[i] = 0
		}
	}

	loadOK(t, e, "test",
		"using namespace game;\n"+
			"Point p;\n"+
			"p.x = 4;")

	v := e.GetVariable("p")
	if v == nil {
		t.Fatalf("variable 'p' not found")
	}
	if got := ValueAs[int32](v); got != 4 {
		t.Errorf("p.x = %d, want 4", got)
	}
}
