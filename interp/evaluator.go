package interp

import (
	"math"
	"strings"
	"unsafe"
)

// ---------------------------------------------------------------------------
// Evaluator: tree walk over statements and expressions
// ---------------------------------------------------------------------------
//
// Break, continue, return and runtime errors all propagate through scalar
// state on the execution context rather than through control-flow
// primitives; statement loops poll both and short-circuit.

func isIntegerType(t *Type) bool {
	return t != nil && t.IsBuiltIn() && !isDecimalType(t)
}

func isDecimalType(t *Type) bool {
	return t != nil && t.IsBuiltIn() &&
		(strings.HasPrefix(t.Name, "float") || t.Name == "double")
}

// getValueAsInteger reads a built-in value sign-extended to 64 bits.
// Pointer values read as their full address.
func getValueAsInteger(v *Value) int64 {
	if len(v.Buffer) == 0 {
		return 0
	}
	if v.TypeUsage.IsPointer() && len(v.Buffer) >= PointerSize {
		return int64(uintptr(v.Pointer()))
	}
	if v.TypeUsage.Type == nil {
		return 0
	}
	p := unsafe.Pointer(&v.Buffer[0])
	switch v.TypeUsage.Type.Size {
	case 1:
		return int64(*(*int8)(p))
	case 2:
		return int64(*(*int16)(p))
	case 4:
		return int64(*(*int32)(p))
	case 8:
		return *(*int64)(p)
	}
	return 0
}

// getValueAsDecimal reads a built-in value widened to double.
func getValueAsDecimal(v *Value) float64 {
	if v.TypeUsage.Type == nil || len(v.Buffer) == 0 {
		return 0
	}
	p := unsafe.Pointer(&v.Buffer[0])
	switch v.TypeUsage.Type.Size {
	case 4:
		return float64(*(*float32)(p))
	case 8:
		return *(*float64)(p)
	}
	return 0
}

// setValueAsInteger narrows a 64-bit intermediate to the value's type size.
func setValueAsInteger(number int64, out *Value) {
	if out.TypeUsage.Type == nil || len(out.Buffer) == 0 {
		return
	}
	p := unsafe.Pointer(&out.Buffer[0])
	switch out.TypeUsage.Type.Size {
	case 1:
		*(*int8)(p) = int8(number)
	case 2:
		*(*int16)(p) = int16(number)
	case 4:
		*(*int32)(p) = int32(number)
	case 8:
		*(*int64)(p) = number
	}
}

// setValueAsDecimal narrows a double intermediate to the value's type size.
func setValueAsDecimal(number float64, out *Value) {
	if out.TypeUsage.Type == nil || len(out.Buffer) == 0 {
		return
	}
	p := unsafe.Pointer(&out.Buffer[0])
	switch out.TypeUsage.Type.Size {
	case 4:
		*(*float32)(p) = float32(number)
	case 8:
		*(*float64)(p) = number
	}
}

func valueAsBool(v *Value) bool {
	return len(v.Buffer) > 0 && v.Buffer[0] != 0
}

func isNullPointer(v *Value) bool {
	return len(v.Buffer) >= PointerSize && v.Pointer() == nil
}

// assertValueInitialization gives the output slot a heap buffer of the
// given usage unless its existing buffer already fits.
func (e *Environment) assertValueInitialization(typeUsage TypeUsage, out *Value) {
	if out.BufferType == BufferUninitialized || !out.TypeUsage.CompatibleWith(typeUsage) {
		out.InitOnHeap(typeUsage)
	}
}

func (e *Environment) incrementScopeLevel(c *context) {
	c.scopeLevel++
	c.stackMarks = append(c.stackMarks, c.stack.Mark())
}

func (e *Environment) decrementScopeLevel(c *context) {
	e.rootNamespace.ReleaseInstances(c.scopeLevel)
	if n := len(c.stackMarks); n > 0 {
		c.stack.Rewind(c.stackMarks[n-1])
		c.stackMarks = c.stackMarks[:n-1]
	}
	c.scopeLevel--
}

// registerInstance appends a named storage slot at the context's current
// scope level. References borrow their storage; everything else is carved
// from the context's stack pool.
func (e *Environment) registerInstance(c *context, typeUsage TypeUsage, id Identifier) *Instance {
	instance := e.rootNamespace.RegisterInstance(typeUsage, id)
	instance.ScopeLevel = c.scopeLevel

	if typeUsage.IsReference() {
		instance.Value.InitExternal(typeUsage)
	} else {
		instance.Value.InitOnStack(typeUsage, c.stack)
	}
	return instance
}

func (e *Environment) retrieveInstance(id Identifier) *Instance {
	return e.rootNamespace.RetrieveInstance(id)
}

// ---------------------------------------------------------------------------
// Statement execution
// ---------------------------------------------------------------------------

func (e *Environment) executeProgram(ec *executionContext, program *Program) {
	for _, statement := range program.Statements {
		e.executeStatement(ec, statement)
		if ec.hasError() {
			break
		}
	}
}

func (e *Environment) executeStatement(ec *executionContext, statement Statement) {
	if statement == nil {
		return
	}
	ec.currentLine = statement.Line()

	switch s := statement.(type) {
	case *ExpressionStatement:
		var unused Value
		e.getValue(ec, s.Expression, &unused)

	case *BlockStatement:
		e.incrementScopeLevel(&ec.context)
		for _, child := range s.Statements {
			e.executeStatement(ec, child)
			if ec.jump != jumpNone || ec.hasError() {
				break
			}
		}
		e.decrementScopeLevel(&ec.context)

	case *UsingDirectiveStatement:
		// recorded at parse time; nothing to evaluate

	case *NamespaceDeclarationStatement:
		// not built by the parser; nothing to evaluate

	case *VariableDeclarationStatement:
		e.executeVariableDeclaration(ec, s)

	case *FunctionDeclarationStatement:
		e.executeFunctionDeclaration(ec, s)

	case *AssignmentStatement:
		var instanceData Value
		e.getInstanceDataValue(ec, s.Target, &instanceData)
		if ec.hasError() {
			return
		}
		var rightValue Value
		e.getValue(ec, s.Value, &rightValue)
		if ec.hasError() {
			return
		}
		e.performAssignment(ec, &rightValue, s.Operator, &instanceData)

	case *IncrementStatement:
		instance := e.retrieveInstance(s.Variable)
		setValueAsInteger(getValueAsInteger(&instance.Value)+1, &instance.Value)

	case *DecrementStatement:
		instance := e.retrieveInstance(s.Variable)
		setValueAsInteger(getValueAsInteger(&instance.Value)-1, &instance.Value)

	case *IfStatement:
		var conditionValue Value
		e.getValue(ec, s.Condition, &conditionValue)
		if ec.hasError() {
			return
		}
		if valueAsBool(&conditionValue) {
			e.executeStatement(ec, s.Then)
		} else if s.Else != nil {
			e.executeStatement(ec, s.Else)
		}

	case *WhileStatement:
		e.executeWhile(ec, s)

	case *ForStatement:
		e.executeFor(ec, s)

	case *BreakStatement:
		ec.jump = jumpBreak

	case *ContinueStatement:
		ec.jump = jumpContinue

	case *ReturnStatement:
		if s.Expression != nil {
			e.getValue(ec, s.Expression, &ec.returnValue)
		}
		ec.jump = jumpReturn
	}
}

func (e *Environment) executeVariableDeclaration(ec *executionContext, s *VariableDeclarationStatement) {
	instance := e.registerInstance(&ec.context, s.TypeUsage, s.Variable)

	if s.InitialValue != nil {
		var initialValue Value
		e.getValue(ec, s.InitialValue, &initialValue)
		if ec.hasError() || initialValue.Buffer == nil {
			return
		}
		instance.Value.Set(initialValue.Buffer)
		return
	}

	// no initializer: default-construct aggregates
	if !instance.TypeUsage.Type.IsBuiltIn() && !instance.TypeUsage.IsPointer() {
		constructor := instance.TypeUsage.Type.DefaultConstructor()
		if constructor == nil {
			return // rejected at parse time
		}
		var thisPtr Value
		e.getAddressOfValue(ec, &instance.Value, &thisPtr)
		constructor.Execute(thisPtr, nil, nil)
	}
}

// executeFunctionDeclaration registers the function and binds its body: the
// closure registers parameter instances one scope in, runs the body, copies
// the context's return slot into the output, then clears the jump flag.
func (e *Environment) executeFunctionDeclaration(ec *executionContext, s *FunctionDeclarationStatement) {
	function := e.rootNamespace.RegisterFunction(s.Function)
	function.ReturnTypeUsage = s.ReturnType
	function.Parameters = append([]TypeUsage(nil), s.ParameterTypes...)

	if s.Body == nil {
		return
	}

	function.Execute = func(args []Value, ret *Value) {
		if len(args) != len(s.ParameterTypes) {
			panic("interp: argument count mismatch calling '" + s.Function.Name + "'")
		}

		for i := range args {
			instance := e.registerInstance(&ec.context, s.ParameterTypes[i], s.ParameterNames[i])
			instance.ScopeLevel++
			instance.Value.Set(args[i].Buffer)
		}

		e.executeStatement(ec, s.Body)

		if function.ReturnTypeUsage.Type != nil && ret != nil {
			e.assertValueInitialization(ec.returnValue.TypeUsage, ret)
			ret.Set(ec.returnValue.Buffer)
		}
		ec.jump = jumpNone
	}
}

func (e *Environment) executeWhile(ec *executionContext, s *WhileStatement) {
	var conditionValue Value
	e.getValue(ec, s.Condition, &conditionValue)
	if ec.hasError() {
		return
	}

	for valueAsBool(&conditionValue) {
		if ec.jump == jumpContinue {
			ec.jump = jumpNone
		}

		e.executeStatement(ec, s.Body)
		if ec.hasError() {
			return
		}
		if ec.jump == jumpBreak {
			ec.jump = jumpNone
			break
		}
		if ec.jump == jumpReturn {
			break
		}

		e.getValue(ec, s.Condition, &conditionValue)
		if ec.hasError() {
			return
		}
	}
}

func (e *Environment) executeFor(ec *executionContext, s *ForStatement) {
	e.incrementScopeLevel(&ec.context)
	defer e.decrementScopeLevel(&ec.context)

	if s.Initialization != nil {
		e.executeStatement(ec, s.Initialization)
		if ec.hasError() {
			return
		}
	}

	conditionMet := true // omitted condition defaults to true
	var conditionValue Value
	if s.Condition != nil {
		e.getValue(ec, s.Condition, &conditionValue)
		if ec.hasError() {
			return
		}
		conditionMet = valueAsBool(&conditionValue)
	}

	for conditionMet {
		if ec.jump == jumpContinue {
			ec.jump = jumpNone
		}

		e.executeStatement(ec, s.Body)
		if ec.hasError() {
			return
		}
		if ec.jump == jumpBreak {
			ec.jump = jumpNone
			break
		}
		if ec.jump == jumpReturn {
			break
		}

		if s.Increment != nil {
			e.executeStatement(ec, s.Increment)
			if ec.hasError() {
				return
			}
		}

		if s.Condition != nil {
			e.getValue(ec, s.Condition, &conditionValue)
			if ec.hasError() {
				return
			}
			conditionMet = valueAsBool(&conditionValue)
		}
	}
}

// ---------------------------------------------------------------------------
// Expression evaluation
// ---------------------------------------------------------------------------

func (e *Environment) getValue(ec *executionContext, expression Expression, out *Value) {
	switch x := expression.(type) {
	case *LiteralExpression:
		e.assertValueInitialization(x.Value.TypeUsage, out)
		out.Set(x.Value.Buffer)

	case *NullPointerExpression:
		if out.BufferType == BufferUninitialized {
			out.InitOnHeap(TypeUsage{ArraySize: 1, PointerLevel: 1})
		}
		for i := range out.Buffer {
			out.Buffer[i] = 0
		}

	case *VariableAccessExpression:
		instance := e.retrieveInstance(x.Variable)
		if instance == nil {
			panic("interp: unresolved variable '" + x.Variable.Name + "'")
		}
		*out = instance.Value

	case *MemberAccessExpression:
		e.getInstanceDataValue(ec, x, out)

	case *UnaryOperationExpression:
		e.applyUnaryOperator(ec, x, out)

	case *BinaryOperationExpression:
		var leftValue Value
		e.getValue(ec, x.Left, &leftValue)
		if ec.hasError() {
			return
		}
		var rightValue Value
		e.getValue(ec, x.Right, &rightValue)
		if ec.hasError() {
			return
		}
		e.applyBinaryOperator(ec, &leftValue, &rightValue, x.Operator, out)

	case *ParenthesizedExpression:
		e.getValue(ec, x.Inner, out)

	case *AddressOfExpression:
		if variableAccess, ok := x.Inner.(*VariableAccessExpression); ok {
			instance := e.retrieveInstance(variableAccess.Variable)
			if instance == nil {
				panic("interp: unresolved variable '" + variableAccess.Variable.Name + "'")
			}
			e.getAddressOfValue(ec, &instance.Value, out)
		}

	case *ConditionalExpression:
		var conditionValue Value
		e.getValue(ec, x.Condition, &conditionValue)
		if ec.hasError() {
			return
		}
		if valueAsBool(&conditionValue) {
			e.getValue(ec, x.TrueBranch, out)
		} else {
			e.getValue(ec, x.FalseBranch, out)
		}

	case *FunctionCallExpression:
		e.executeFunctionCall(ec, x, out)

	case *MethodCallExpression:
		e.executeMethodCall(ec, x)
	}
}

// getInstanceDataValue resolves an expression to addressable storage: the
// output aliases the instance's buffer (or a member window into it), so
// writes reach the instance.
func (e *Environment) getInstanceDataValue(ec *executionContext, expression Expression, out *Value) {
	switch x := expression.(type) {
	case *VariableAccessExpression:
		instance := e.retrieveInstance(x.Variable)
		if instance == nil {
			panic("interp: unresolved variable '" + x.Variable.Name + "'")
		}
		*out = instance.Value

	case *MemberAccessExpression:
		instance := e.retrieveInstance(x.Identifiers[0])
		if instance == nil {
			panic("interp: unresolved variable '" + x.Identifiers[0].Name + "'")
		}
		*out = instance.Value

		if out.TypeUsage.IsPointer() && isNullPointer(out) {
			e.throwRuntimeError(ec, RuntimeErrorNullPointerAccess, x.Identifiers[0].Name)
			return
		}

		for i := 1; i < len(x.Identifiers); i++ {
			var member *Member
			if out.TypeUsage.Type != nil {
				member = out.TypeUsage.Type.FindMember(x.Identifiers[i].Name)
			}
			if member == nil {
				// the identifier names a method; the receiver stands
				break
			}

			var base unsafe.Pointer
			if out.TypeUsage.IsPointer() {
				base = out.Pointer()
			} else {
				base = unsafe.Pointer(&out.Buffer[0])
			}

			out.TypeUsage = member.TypeUsage
			out.BufferType = BufferExternal
			out.Buffer = bufferAt(unsafe.Add(base, member.Offset), member.TypeUsage.Size())

			if out.TypeUsage.IsPointer() && isNullPointer(out) {
				e.throwRuntimeError(ec, RuntimeErrorNullPointerAccess, member.Name)
				return
			}
		}
	}
}

// getAddressOfValue writes the address of the source value's storage into
// the output, with pointer level one deeper.
func (e *Environment) getAddressOfValue(ec *executionContext, source *Value, out *Value) {
	pointerTypeUsage := source.TypeUsage
	pointerTypeUsage.PointerLevel++

	e.assertValueInitialization(pointerTypeUsage, out)
	out.SetPointer(unsafe.Pointer(&source.Buffer[0]))
}

// getArgumentValues evaluates call arguments left to right and coerces each
// buffer mode to the parameter's pass mode: reference parameters get an
// external buffer wrapping the argument's storage so callee mutations write
// back; value parameters get an owned heap copy so they do not.
func (e *Environment) getArgumentValues(ec *executionContext, parameters []TypeUsage, expressions []Expression) []Value {
	if len(parameters) != len(expressions) {
		panic("interp: argument count mismatch")
	}

	values := make([]Value, len(expressions))
	for i := range expressions {
		e.getValue(ec, expressions[i], &values[i])
		if ec.hasError() {
			return values
		}

		if parameters[i].IsReference() {
			if values[i].BufferType != BufferExternal {
				cachedTypeUsage := values[i].TypeUsage
				cachedBuffer := values[i].Buffer
				values[i] = Value{}
				values[i].InitExternal(cachedTypeUsage)
				values[i].Set(cachedBuffer)
			}
			values[i].TypeUsage.Flags |= FlagReference
		} else {
			// an evaluated value may still alias instance storage
			cachedTypeUsage := values[i].TypeUsage
			cachedBuffer := values[i].Buffer
			values[i] = Value{}
			values[i].InitOnHeap(cachedTypeUsage)
			if cachedBuffer != nil {
				values[i].Set(cachedBuffer)
			}
		}
	}
	return values
}

func (e *Environment) executeFunctionCall(ec *executionContext, x *FunctionCallExpression, out *Value) {
	function := e.getFunction(x.Function)
	if function == nil {
		panic("interp: undefined function '" + x.Function.Name + "'")
	}

	args := e.getArgumentValues(ec, function.Parameters, x.Arguments)
	if ec.hasError() {
		return
	}

	// the caller's const qualifier survives the call
	returnIsConst := function.ReturnTypeUsage.IsConst()
	outIsConst := out.TypeUsage.IsConst()
	if outIsConst && !returnIsConst {
		out.TypeUsage.Flags &^= FlagConst
	}

	function.Execute(args, out)

	if outIsConst && !returnIsConst {
		out.TypeUsage.Flags |= FlagConst
	}
}

// executeMethodCall resolves the receiver chain to addressable storage,
// computes the "this" pointer, and stashes the return in the context's
// return slot.
func (e *Environment) executeMethodCall(ec *executionContext, x *MethodCallExpression) {
	memberAccess, ok := x.MemberAccess.(*MemberAccessExpression)
	if !ok {
		return
	}

	var instanceData Value
	e.getInstanceDataValue(ec, memberAccess, &instanceData)
	if ec.hasError() {
		return
	}

	methodName := memberAccess.Identifiers[len(memberAccess.Identifiers)-1]
	if instanceData.TypeUsage.Type == nil {
		panic("interp: method call on untyped receiver")
	}
	method := instanceData.TypeUsage.Type.FindMethod(methodName.Name)
	if method == nil {
		panic("interp: undefined method '" + methodName.Name + "' on type '" + instanceData.TypeUsage.Type.Name + "'")
	}

	var thisPtr Value
	if instanceData.TypeUsage.IsPointer() {
		thisPtr.InitOnStack(instanceData.TypeUsage, ec.stack)
		thisPtr.Set(instanceData.Buffer)
	} else {
		e.getAddressOfValue(ec, &instanceData, &thisPtr)
	}

	ec.returnValue = Value{}
	ec.returnValue.InitOnHeap(method.ReturnTypeUsage)

	args := e.getArgumentValues(ec, method.Parameters, x.Arguments)
	if ec.hasError() {
		return
	}

	method.Execute(thisPtr, args, &ec.returnValue)
}

func (e *Environment) applyUnaryOperator(ec *executionContext, x *UnaryOperationExpression, out *Value) {
	var operand Value
	e.getValue(ec, x.Operand, &operand)
	if ec.hasError() {
		return
	}

	switch x.Operator {
	case "!":
		var result bool
		if isDecimalType(operand.TypeUsage.Type) {
			result = getValueAsDecimal(&operand) == 0
		} else {
			result = getValueAsInteger(&operand) == 0
		}
		e.assertValueInitialization(e.builtinUsage("bool"), out)
		SetValueAs(out, result)

	case "-":
		e.assertValueInitialization(operand.TypeUsage, out)
		if isDecimalType(operand.TypeUsage.Type) {
			setValueAsDecimal(-getValueAsDecimal(&operand), out)
		} else {
			setValueAsInteger(-getValueAsInteger(&operand), out)
		}
	}
}

// applyBinaryOperator implements the built-in operator table for built-in
// left operands: comparisons and logical operators produce bool, the
// arithmetic operators produce the left operand's type. Integer operands
// are sign-extended to 64 bits for the arithmetic and narrowed back;
// decimals are computed in double. Non-built-in left operands dispatch to
// an `operator<op>` method with the right operand as its single argument.
func (e *Environment) applyBinaryOperator(ec *executionContext, left, right *Value, operator string, out *Value) {
	leftType := left.TypeUsage.Type

	if leftType == nil || leftType.IsBuiltIn() || left.TypeUsage.IsPointer() {
		integerValues := isIntegerType(leftType)

		leftInteger := getValueAsInteger(left)
		rightInteger := getValueAsInteger(right)
		leftDecimal := getValueAsDecimal(left)
		rightDecimal := getValueAsDecimal(right)

		setBool := func(result bool) {
			e.assertValueInitialization(e.builtinUsage("bool"), out)
			SetValueAs(out, result)
		}

		switch operator {
		case "==":
			setBool(leftInteger == rightInteger)
		case "!=":
			setBool(leftInteger != rightInteger)
		case "<":
			if integerValues {
				setBool(leftInteger < rightInteger)
			} else {
				setBool(leftDecimal < rightDecimal)
			}
		case ">":
			if integerValues {
				setBool(leftInteger > rightInteger)
			} else {
				setBool(leftDecimal > rightDecimal)
			}
		case "<=":
			if integerValues {
				setBool(leftInteger <= rightInteger)
			} else {
				setBool(leftDecimal <= rightDecimal)
			}
		case ">=":
			if integerValues {
				setBool(leftInteger >= rightInteger)
			} else {
				setBool(leftDecimal >= rightDecimal)
			}
		case "&&":
			// both sides are already evaluated; no short-circuit
			setBool(leftInteger != 0 && rightInteger != 0)
		case "||":
			setBool(leftInteger != 0 || rightInteger != 0)
		case "+":
			e.assertValueInitialization(left.TypeUsage, out)
			if integerValues {
				setValueAsInteger(leftInteger+rightInteger, out)
			} else {
				setValueAsDecimal(leftDecimal+rightDecimal, out)
			}
		case "-":
			e.assertValueInitialization(left.TypeUsage, out)
			if integerValues {
				setValueAsInteger(leftInteger-rightInteger, out)
			} else {
				setValueAsDecimal(leftDecimal-rightDecimal, out)
			}
		case "*":
			e.assertValueInitialization(left.TypeUsage, out)
			if integerValues {
				setValueAsInteger(leftInteger*rightInteger, out)
			} else {
				setValueAsDecimal(leftDecimal*rightDecimal, out)
			}
		case "/":
			e.assertValueInitialization(left.TypeUsage, out)
			if integerValues {
				if rightInteger == 0 {
					e.throwRuntimeError(ec, RuntimeErrorDivisionByZero, "")
					return
				}
				setValueAsInteger(leftInteger/rightInteger, out)
			} else {
				if math.Abs(rightDecimal) < 1e-9 {
					e.throwRuntimeError(ec, RuntimeErrorDivisionByZero, "")
					return
				}
				setValueAsDecimal(leftDecimal/rightDecimal, out)
			}
		case "&":
			e.assertValueInitialization(left.TypeUsage, out)
			if integerValues {
				setValueAsInteger(leftInteger&rightInteger, out)
			}
		case "|":
			e.assertValueInitialization(left.TypeUsage, out)
			if integerValues {
				setValueAsInteger(leftInteger|rightInteger, out)
			}
		case "^":
			e.assertValueInitialization(left.TypeUsage, out)
			if integerValues {
				setValueAsInteger(leftInteger^rightInteger, out)
			}
		}
		return
	}

	// user type: dispatch to operator<op>
	operatorMethod := leftType.FindMethod("operator" + operator)
	if operatorMethod == nil {
		panic("interp: no operator" + operator + " on type '" + leftType.Name + "'")
	}

	var thisPtr Value
	e.getAddressOfValue(ec, left, &thisPtr)

	e.assertValueInitialization(operatorMethod.ReturnTypeUsage, out)
	operatorMethod.Execute(thisPtr, []Value{*right}, out)
}

// performAssignment stores the evaluated value into addressable storage.
// Compound operators are recognized by the parser but only plain `=`
// executes at this revision.
func (e *Environment) performAssignment(ec *executionContext, value *Value, operator string, instanceData *Value) {
	if operator == "=" {
		size := value.TypeUsage.Size()
		if size > len(value.Buffer) {
			size = len(value.Buffer)
		}
		if size > len(instanceData.Buffer) {
			size = len(instanceData.Buffer)
		}
		copy(instanceData.Buffer, value.Buffer[:size])
	}
}
