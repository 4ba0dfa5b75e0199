package interp

import "testing"

func parseProgram(t *testing.T, e *Environment, code string) *Program {
	t.Helper()

	program := &Program{Name: "test", Code: code}
	pc := newParsingContext(DefaultConfig().StackCapacity)
	pc.preprocessedCode = Preprocess(code)
	pc.tokens = Tokenize(pc.preprocessedCode)
	e.parse(pc, program)

	if pc.hasError() {
		t.Fatalf("parse failed: %s", pc.errorMessage)
	}
	e.rootNamespace.ReleaseInstances(scriptScopeLevel)
	return program
}

func TestParseVariableDeclaration(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, "int a = 1;")

	if len(program.Statements) != 1 {
		t.Fatalf("statement count = %d, want 1", len(program.Statements))
	}
	decl, ok := program.Statements[0].(*VariableDeclarationStatement)
	if !ok {
		t.Fatalf("statement = %T, want *VariableDeclarationStatement", program.Statements[0])
	}
	if decl.Variable.Name != "a" || decl.TypeUsage.Type.Name != "int" {
		t.Errorf("declared %s %s", decl.TypeUsage.Type.Name, decl.Variable.Name)
	}
	if _, ok := decl.InitialValue.(*LiteralExpression); !ok {
		t.Errorf("initializer = %T, want *LiteralExpression", decl.InitialValue)
	}
	if decl.Line() != 1 {
		t.Errorf("line = %d, want 1", decl.Line())
	}
}

func TestParseLeftAssociativeBinaryTree(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, "int a = 1; int b = 2; int c = a + b * 2;")

	decl := program.Statements[2].(*VariableDeclarationStatement)
	mul, ok := decl.InitialValue.(*BinaryOperationExpression)
	if !ok {
		t.Fatalf("initializer = %T, want binary op", decl.InitialValue)
	}
	if mul.Operator != "*" {
		t.Fatalf("top operator = %q, want %q (left-associative split)", mul.Operator, "*")
	}
	add, ok := mul.Left.(*BinaryOperationExpression)
	if !ok || add.Operator != "+" {
		t.Errorf("left subtree = %T, want a+b", mul.Left)
	}
}

func TestParseStatementLines(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, "int a = 1;\n\nint b = 2;\nwhile (a < b) { a = a + 1; }")

	wantLines := []int{1, 3, 4}
	if len(program.Statements) != len(wantLines) {
		t.Fatalf("statement count = %d, want %d", len(program.Statements), len(wantLines))
	}
	for i, want := range wantLines {
		if got := program.Statements[i].Line(); got != want {
			t.Errorf("statement[%d] line = %d, want %d", i, got, want)
		}
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, "int add(int a, int b) { return a + b; }")

	decl, ok := program.Statements[0].(*FunctionDeclarationStatement)
	if !ok {
		t.Fatalf("statement = %T, want *FunctionDeclarationStatement", program.Statements[0])
	}
	if decl.Function.Name != "add" {
		t.Errorf("name = %q, want add", decl.Function.Name)
	}
	if len(decl.ParameterTypes) != 2 || len(decl.ParameterNames) != 2 {
		t.Fatalf("parameters = %d/%d, want 2/2", len(decl.ParameterTypes), len(decl.ParameterNames))
	}
	if decl.ReturnType.Type == nil || decl.ReturnType.Type.Name != "int" {
		t.Errorf("return type = %v, want int", decl.ReturnType.Type)
	}
	if decl.Body == nil || len(decl.Body.Statements) != 1 {
		t.Fatalf("body missing")
	}
	if _, ok := decl.Body.Statements[0].(*ReturnStatement); !ok {
		t.Errorf("body statement = %T, want *ReturnStatement", decl.Body.Statements[0])
	}
}

func TestParseVoidFunctionDeclaration(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, "void noop() { }")

	decl, ok := program.Statements[0].(*FunctionDeclarationStatement)
	if !ok {
		t.Fatalf("statement = %T, want *FunctionDeclarationStatement", program.Statements[0])
	}
	if decl.ReturnType.Type != nil {
		t.Errorf("void return resolved to %v", decl.ReturnType.Type)
	}
	if decl.Body == nil {
		t.Errorf("body missing")
	}
}

func TestParsePointerAndReferenceTypes(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, "int a = 1; int* p = &a;")

	decl := program.Statements[1].(*VariableDeclarationStatement)
	if !decl.TypeUsage.IsPointer() {
		t.Errorf("p not parsed as a pointer")
	}
	if _, ok := decl.InitialValue.(*AddressOfExpression); !ok {
		t.Errorf("initializer = %T, want *AddressOfExpression", decl.InitialValue)
	}
}

func TestParseMemberAccessChain(t *testing.T) {
	e := NewEnvironment()
	registerVec3(e)

	program := parseProgram(t, e, "Vec3 v; v.x = 1.0f;")

	assignment, ok := program.Statements[1].(*AssignmentStatement)
	if !ok {
		t.Fatalf("statement = %T, want *AssignmentStatement", program.Statements[1])
	}
	member, ok := assignment.Target.(*MemberAccessExpression)
	if !ok {
		t.Fatalf("target = %T, want *MemberAccessExpression", assignment.Target)
	}
	if len(member.Identifiers) != 2 || member.Identifiers[0].Name != "v" || member.Identifiers[1].Name != "x" {
		t.Errorf("identifiers = %v", member.Identifiers)
	}
}

func TestParseCompoundAssignmentOperator(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, "int a = 1; a += 2;")

	assignment, ok := program.Statements[1].(*AssignmentStatement)
	if !ok {
		t.Fatalf("statement = %T, want *AssignmentStatement", program.Statements[1])
	}
	if assignment.Operator != "+=" {
		t.Errorf("operator = %q, want +=", assignment.Operator)
	}
}

func TestParseUsingDirective(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, "using namespace game::math;")

	using, ok := program.Statements[0].(*UsingDirectiveStatement)
	if !ok {
		t.Fatalf("statement = %T, want *UsingDirectiveStatement", program.Statements[0])
	}
	if using.Namespace != "game::math" {
		t.Errorf("namespace = %q, want game::math", using.Namespace)
	}
}

func TestParseStraySemicolons(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e, ";;int a = 1;;")

	if len(program.Statements) != 1 {
		t.Errorf("statement count = %d, want 1", len(program.Statements))
	}
}

func TestParseNumericLiteralTypes(t *testing.T) {
	e := NewEnvironment()
	program := parseProgram(t, e,
		"int a = 5; uint32_t b = 5u; float c = 5.0f; double d = 5.0;")

	wantTypes := []string{"int", "uint32_t", "float", "double"}
	for i, want := range wantTypes {
		decl := program.Statements[i].(*VariableDeclarationStatement)
		literal, ok := decl.InitialValue.(*LiteralExpression)
		if !ok {
			t.Fatalf("statement[%d] initializer = %T, want literal", i, decl.InitialValue)
		}
		if got := literal.Value.TypeUsage.Type.Name; got != want {
			t.Errorf("literal[%d] type = %q, want %q", i, got, want)
		}
		if literal.Value.BufferType != BufferHeap {
			t.Errorf("literal[%d] buffer mode = %v, want heap", i, literal.Value.BufferType)
		}
	}
}
