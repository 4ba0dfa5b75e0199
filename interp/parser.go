package interp

import (
	"strconv"
	"strings"
	"unsafe"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over the token vector
// ---------------------------------------------------------------------------
//
// Expression parsing uses a flat precedence model: a slice is split at its
// last top-level operator, which makes chains strictly left-associative
// (`a + b * c` evaluates as `(a+b)*c`). This is intentional for the current
// revision.
//
// Convention: parseExpression consumes exactly the slice
// [pc.tokenIndex, lastIndex] and leaves the cursor at lastIndex+1.
// parseStatement leaves the cursor at the statement's last consumed token.

// parse consumes the whole token stream into the program's statement list,
// stopping at the first compile error.
func (e *Environment) parse(pc *parsingContext, program *Program) {
	for pc.tokenIndex = 0; pc.tokenIndex < len(pc.tokens); pc.tokenIndex++ {
		statement := e.parseStatement(pc)
		if statement != nil {
			program.Statements = append(program.Statements, statement)
		}
		if pc.hasError() {
			break
		}
	}
}

func (pc *parsingContext) currentTokenText() string {
	if pc.tokenIndex < len(pc.tokens) {
		return pc.tokens[pc.tokenIndex].Text
	}
	if n := len(pc.tokens); n > 0 {
		return pc.tokens[n-1].Text
	}
	return ""
}

// findClosureTokenIndex scans forward from the cursor for the closing token,
// tracking nesting of the opening token when one is given. Returns 0 when no
// closure is found. A cursor already standing on the closing token counts.
func (pc *parsingContext) findClosureTokenIndex(opening, closure string) int {
	tokens := pc.tokens
	if pc.tokenIndex < len(tokens) && tokens[pc.tokenIndex].Text == closure {
		return pc.tokenIndex
	}

	scopeLevel := 0
	for i := pc.tokenIndex + 1; i < len(tokens); i++ {
		if tokens[i].Text == closure {
			if scopeLevel == 0 {
				return i
			}
			scopeLevel--
		} else if opening != "" && tokens[i].Text == opening {
			scopeLevel++
		}
	}
	return 0
}

// parseTypeUsage tries to resolve a type usage starting at the cursor:
// a `::`-joined name, retried against each using-namespace prefix, with a
// preceding `const` and a trailing `*` or `&` folded in. On failure the
// cursor is restored and a zero usage returned.
func (e *Environment) parseTypeUsage(pc *parsingContext) TypeUsage {
	tokens := pc.tokens
	cachedTokenIndex := pc.tokenIndex

	name := tokens[pc.tokenIndex].Text
	for pc.tokenIndex+2 < len(tokens) && tokens[pc.tokenIndex+1].Text == "::" {
		pc.tokenIndex += 2
		name += "::" + tokens[pc.tokenIndex].Text
	}

	baseType := e.getTypeByName(name)
	if baseType == nil {
		for _, ns := range pc.usingNamespaces {
			baseType = e.getTypeByName(ns + "::" + name)
			if baseType != nil {
				break
			}
		}
	}
	if baseType == nil {
		pc.tokenIndex = cachedTokenIndex
		return TypeUsage{}
	}

	typeUsage := NewTypeUsage(baseType)
	if cachedTokenIndex > 0 && tokens[cachedTokenIndex-1].Text == "const" {
		typeUsage.Flags |= FlagConst
	}
	if pc.tokenIndex+1 < len(tokens) {
		switch tokens[pc.tokenIndex+1].Text {
		case "*":
			typeUsage.PointerLevel++
			pc.tokenIndex++
		case "&":
			typeUsage.Flags |= FlagReference
			pc.tokenIndex++
		}
	}
	return typeUsage
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// parseExpression parses the token slice [cursor, lastIndex] and leaves the
// cursor at lastIndex+1.
func (e *Environment) parseExpression(pc *parsingContext, lastIndex int) Expression {
	expression := e.parseExpressionSlice(pc, lastIndex)
	pc.tokenIndex = lastIndex + 1
	return expression
}

func (e *Environment) parseExpressionSlice(pc *parsingContext, lastIndex int) Expression {
	tokens := pc.tokens
	if pc.tokenIndex > lastIndex || lastIndex >= len(tokens) {
		return nil
	}
	token := tokens[pc.tokenIndex]

	if lastIndex == pc.tokenIndex {
		return e.parseSingleTokenExpression(pc, token)
	}

	// binary operator: the last operator token in binary position at
	// paren depth 0 splits the slice, giving left associativity
	operatorTokenIndex := 0
	parenthesisLevel := 0
	for i := pc.tokenIndex; i <= lastIndex; i++ {
		t := tokens[i]
		switch {
		case t.Text == "(":
			parenthesisLevel++
		case t.Text == ")":
			parenthesisLevel--
		case t.Type == TokenOperator && parenthesisLevel == 0 && i > pc.tokenIndex:
			if t.Text == "!" || t.Text == "~" || t.Text == "++" || t.Text == "--" {
				continue
			}
			previous := tokens[i-1]
			if previous.Type == TokenOperator || previous.Text == "(" || previous.Text == "," {
				continue // unary position
			}
			operatorTokenIndex = i
		}
	}

	if operatorTokenIndex > 0 {
		left := e.parseExpression(pc, operatorTokenIndex-1)
		if pc.hasError() || left == nil {
			return nil
		}

		operatorStr := tokens[operatorTokenIndex].Text
		leftUsage := e.expressionTypeUsage(pc, left)
		if leftUsage.Type != nil && !leftUsage.Type.IsBuiltIn() && !leftUsage.IsPointer() {
			if leftUsage.Type.FindMethod("operator"+operatorStr) == nil {
				e.throwCompileError(pc, CompileErrorInvalidOperator, leftUsage.Type.Name)
				return nil
			}
		}

		pc.tokenIndex = operatorTokenIndex + 1
		right := e.parseExpression(pc, lastIndex)
		if pc.hasError() {
			return nil
		}
		return &BinaryOperationExpression{Left: left, Right: right, Operator: operatorStr}
	}

	// parenthesized expression
	if token.Text == "(" {
		closure := pc.findClosureTokenIndex("(", ")")
		if closure == 0 || closure > lastIndex {
			e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
			return nil
		}
		pc.tokenIndex++
		inner := e.parseExpression(pc, closure-1)
		return &ParenthesizedExpression{Inner: inner}
	}

	if token.Type == TokenIdentifier {
		next := tokens[pc.tokenIndex+1]

		// function call
		if next.Text == "(" {
			function := NewIdentifier(token.Text)
			pc.tokenIndex++
			arguments := e.parseFunctionCallArguments(pc)
			if pc.hasError() {
				return nil
			}
			return &FunctionCallExpression{Function: function, Arguments: arguments}
		}

		// member access, possibly ending in a method call
		if next.Text == "." || next.Text == "->" {
			identifiers, ok := e.parseMemberAccessIdentifiers(pc)
			if !ok {
				return nil
			}
			memberAccess := &MemberAccessExpression{Identifiers: identifiers}
			if pc.tokenIndex < len(tokens) && tokens[pc.tokenIndex].Text == "(" {
				arguments := e.parseFunctionCallArguments(pc)
				if pc.hasError() {
					return nil
				}
				return &MethodCallExpression{MemberAccess: memberAccess, Arguments: arguments}
			}
			return memberAccess
		}

		// static access through a `::` chain
		if next.Text == "::" {
			name := token.Text
			for pc.tokenIndex+2 < len(tokens) && tokens[pc.tokenIndex+1].Text == "::" {
				pc.tokenIndex += 2
				name += "::" + tokens[pc.tokenIndex].Text
			}
			if pc.tokenIndex+1 < len(tokens) && tokens[pc.tokenIndex+1].Text == "(" {
				pc.tokenIndex++
				arguments := e.parseFunctionCallArguments(pc)
				if pc.hasError() {
					return nil
				}
				return &FunctionCallExpression{Function: NewIdentifier(name), Arguments: arguments}
			}
			return &VariableAccessExpression{Variable: NewIdentifier(name)}
		}
	}

	if token.Type == TokenOperator {
		switch token.Text {
		case "&":
			pc.tokenIndex++
			inner := e.parseExpression(pc, lastIndex)
			if pc.hasError() {
				return nil
			}
			return &AddressOfExpression{Inner: inner}
		case "!", "-":
			pc.tokenIndex++
			inner := e.parseExpression(pc, lastIndex)
			if pc.hasError() {
				return nil
			}
			return &UnaryOperationExpression{Operator: token.Text, Operand: inner}
		}
	}

	e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
	return nil
}

func (e *Environment) parseSingleTokenExpression(pc *parsingContext, token Token) Expression {
	switch token.Type {
	case TokenNumber:
		return e.parseNumberLiteral(pc, token)

	case TokenString:
		return e.parseStringLiteral(pc, token)

	case TokenIdentifier:
		identifier := NewIdentifier(token.Text)
		if e.retrieveInstance(identifier) == nil {
			e.throwCompileError(pc, CompileErrorUndefinedVariable, identifier.Name)
			return nil
		}
		return &VariableAccessExpression{Variable: identifier}

	case TokenKeyword:
		switch token.Text {
		case "nullptr":
			return &NullPointerExpression{}
		case "true", "false":
			var value Value
			value.InitOnStack(e.builtinUsage("bool"), pc.stack)
			SetValueAs(&value, token.Text == "true")
			return NewLiteralExpression(value)
		}
	}
	return nil
}

// parseNumberLiteral resolves the final numeric type by suffix: trailing
// `f` makes a float, a bare decimal point a double, trailing `u` a
// uint32_t, anything else an int.
func (e *Environment) parseNumberLiteral(pc *parsingContext, token Token) Expression {
	text := token.Text
	var value Value

	if text[len(text)-1] == 'f' {
		value.InitOnStack(e.builtinUsage("float"), pc.stack)
		SetValueAs(&value, float32(parseDecimalLiteral(text[:len(text)-1])))
	} else if strings.Contains(text, ".") {
		value.InitOnStack(e.builtinUsage("double"), pc.stack)
		SetValueAs(&value, parseDecimalLiteral(text))
	} else {
		if text[len(text)-1] == 'u' {
			value.InitOnStack(e.builtinUsage("uint32_t"), pc.stack)
			SetValueAs(&value, uint32(parseIntegerLiteral(text[:len(text)-1])))
		} else {
			value.InitOnStack(e.builtinUsage("int"), pc.stack)
			SetValueAs(&value, int32(parseIntegerLiteral(text)))
		}
	}
	return NewLiteralExpression(value)
}

func parseDecimalLiteral(text string) float64 {
	number, err := strconv.ParseFloat(strings.TrimRight(text, "f"), 64)
	if err != nil {
		return 0
	}
	return number
}

// parseIntegerLiteral reads the leading digit run, matching atoi semantics
// for the permissive number tokens the lexer produces.
func parseIntegerLiteral(text string) int64 {
	end := 0
	for end < len(text) && isDigit(text[end]) {
		end++
	}
	number, err := strconv.ParseInt(text[:end], 10, 64)
	if err != nil {
		return 0
	}
	return number
}

// parseStringLiteral interns the literal's bytes (NUL-terminated) into the
// environment's bounded literal pool and yields a `const char*` value
// pointing at the pooled copy.
func (e *Environment) parseStringLiteral(pc *parsingContext, token Token) Expression {
	content := token.Text
	if len(content) >= 2 {
		content = content[1 : len(content)-1]
	}
	stored := e.literalPool.PushBytes(append([]byte(content), 0))

	typeUsage := TypeUsage{
		Type:         e.getTypeByName("char"),
		ArraySize:    1,
		PointerLevel: 1,
		Flags:        FlagConst,
	}

	var value Value
	value.InitOnStack(typeUsage, pc.stack)
	value.SetPointer(unsafe.Pointer(&stored[0]))
	return NewLiteralExpression(value)
}

// parseFunctionCallArguments parses the comma-separated expressions between
// the '(' at the cursor and its matching ')'. Each argument slice ends at
// the next ',' or the closing ')' at paren depth 0. Returns with the cursor
// on the closing ')'.
func (e *Environment) parseFunctionCallArguments(pc *parsingContext) []Expression {
	tokens := pc.tokens
	closure := pc.findClosureTokenIndex("(", ")")
	if closure == 0 {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, pc.currentTokenText())
		return nil
	}

	pc.tokenIndex++ // past '('
	var arguments []Expression
	for pc.tokenIndex < closure {
		separator := closure
		parenthesisLevel := 0
		for i := pc.tokenIndex; i < closure; i++ {
			switch tokens[i].Text {
			case "(":
				parenthesisLevel++
			case ")":
				parenthesisLevel--
			case ",":
				if parenthesisLevel == 0 {
					separator = i
				}
			}
			if separator != closure {
				break
			}
		}

		argument := e.parseExpression(pc, separator-1)
		if pc.hasError() {
			return arguments
		}
		if argument != nil {
			arguments = append(arguments, argument)
		}
		pc.tokenIndex = separator + 1
	}

	pc.tokenIndex = closure
	return arguments
}

// parseMemberAccessIdentifiers consumes a `.`/`->` chain, type-tracking the
// resulting usage through each member lookup and enforcing that `.` is used
// on non-pointer receivers and `->` on pointer receivers. A chain ending at
// '(' leaves the final identifier unresolved; the caller handles it as a
// method call. Returns with the cursor just past the last identifier.
func (e *Environment) parseMemberAccessIdentifiers(pc *parsingContext) ([]Identifier, bool) {
	tokens := pc.tokens

	var identifiers []Identifier
	var typeUsage TypeUsage

	remaining := true
	for remaining {
		if pc.tokenIndex >= len(tokens) {
			e.throwCompileError(pc, CompileErrorUnexpectedSymbol, pc.currentTokenText())
			return nil, false
		}

		var next Token
		if pc.tokenIndex+1 < len(tokens) {
			next = tokens[pc.tokenIndex+1]
		}
		memberAccess := next.Text == "."
		ptrMemberAccess := !memberAccess && next.Text == "->"
		remaining = memberAccess || ptrMemberAccess

		identifiers = append(identifiers, NewIdentifier(tokens[pc.tokenIndex].Text))
		last := identifiers[len(identifiers)-1]

		if len(identifiers) == 1 {
			instance := e.retrieveInstance(last)
			if instance == nil {
				e.throwCompileError(pc, CompileErrorUndefinedVariable, last.Name)
				return nil, false
			}
			typeUsage = instance.TypeUsage
		} else if next.Text == "(" {
			// method call: the final identifier resolves at evaluation
			typeUsage = TypeUsage{}
		} else if typeUsage.Type != nil && !typeUsage.Type.IsBuiltIn() {
			member := typeUsage.Type.FindMember(last.Name)
			if member == nil {
				e.throwCompileError(pc, CompileErrorMissingMember, last.Name)
				return nil, false
			}
			typeUsage = member.TypeUsage
		} else {
			// pointee is a built-in; nothing to validate statically
			typeUsage = TypeUsage{}
		}

		if remaining {
			if typeUsage.IsPointer() {
				if !ptrMemberAccess {
					e.throwCompileError(pc, CompileErrorInvalidMemberAccessOperatorPtr, last.Name)
					return nil, false
				}
			} else if ptrMemberAccess {
				e.throwCompileError(pc, CompileErrorInvalidMemberAccessOperatorNonPtr, last.Name)
				return nil, false
			}
		}

		pc.tokenIndex++
		if remaining {
			pc.tokenIndex++
		}
	}

	return identifiers, true
}

// expressionTypeUsage tracks an expression's type at parse time, for
// operator classification.
func (e *Environment) expressionTypeUsage(pc *parsingContext, expression Expression) TypeUsage {
	switch x := expression.(type) {
	case *LiteralExpression:
		return x.Value.TypeUsage
	case *VariableAccessExpression:
		if instance := e.retrieveInstance(x.Variable); instance != nil {
			return instance.TypeUsage
		}
	case *MemberAccessExpression:
		return e.memberChainTypeUsage(x)
	case *UnaryOperationExpression:
		if x.Operator == "!" {
			return e.builtinUsage("bool")
		}
		return e.expressionTypeUsage(pc, x.Operand)
	case *BinaryOperationExpression:
		return e.expressionTypeUsage(pc, x.Left)
	case *ParenthesizedExpression:
		return e.expressionTypeUsage(pc, x.Inner)
	case *AddressOfExpression:
		usage := e.expressionTypeUsage(pc, x.Inner)
		usage.PointerLevel++
		return usage
	case *FunctionCallExpression:
		if function := e.getFunction(x.Function); function != nil {
			return function.ReturnTypeUsage
		}
	}
	return TypeUsage{}
}

func (e *Environment) memberChainTypeUsage(x *MemberAccessExpression) TypeUsage {
	if len(x.Identifiers) == 0 {
		return TypeUsage{}
	}
	instance := e.retrieveInstance(x.Identifiers[0])
	if instance == nil {
		return TypeUsage{}
	}
	usage := instance.TypeUsage
	for i := 1; i < len(x.Identifiers); i++ {
		if usage.Type == nil {
			return TypeUsage{}
		}
		member := usage.Type.FindMember(x.Identifiers[i].Name)
		if member == nil {
			return TypeUsage{}
		}
		usage = member.TypeUsage
	}
	return usage
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseStatement dispatches on the leading token. Returns nil for tokens
// that do not start a statement (stray ';', '}').
func (e *Environment) parseStatement(pc *parsingContext) Statement {
	tokens := pc.tokens
	if pc.tokenIndex >= len(tokens) {
		return nil
	}
	token := tokens[pc.tokenIndex]
	statementLine := token.Line

	var statement Statement

	switch token.Type {
	case TokenPunctuation:
		if token.Text == "{" {
			if block := e.parseStatementBlock(pc); block != nil {
				statement = block
			}
		}

	case TokenKeyword:
		switch token.Text {
		case "using":
			statement = e.parseUsingDirective(pc)
		case "if":
			pc.tokenIndex++
			statement = e.parseStatementIf(pc)
		case "while":
			pc.tokenIndex++
			statement = e.parseStatementWhile(pc)
		case "for":
			pc.tokenIndex++
			statement = e.parseStatementFor(pc)
		case "break":
			pc.tokenIndex++
			statement = e.parseStatementBreak(pc)
		case "continue":
			pc.tokenIndex++
			statement = e.parseStatementContinue(pc)
		case "void":
			pc.tokenIndex++
			statement = e.parseStatementFunctionDeclaration(pc)
		case "return":
			pc.tokenIndex++
			statement = e.parseStatementReturn(pc)
		}

	case TokenIdentifier:
		statement = e.parseIdentifierStatement(pc, token)
	}

	if statement != nil {
		statement.setLine(statementLine)
	}
	return statement
}

func (e *Environment) parseUsingDirective(pc *parsingContext) Statement {
	tokens := pc.tokens
	pc.tokenIndex++
	if pc.tokenIndex >= len(tokens) || tokens[pc.tokenIndex].Text != "namespace" {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "using")
		return nil
	}

	pc.tokenIndex++
	var name strings.Builder
	for pc.tokenIndex < len(tokens) && tokens[pc.tokenIndex].Text != ";" {
		name.WriteString(tokens[pc.tokenIndex].Text)
		pc.tokenIndex++
	}

	pc.usingNamespaces = append(pc.usingNamespaces, name.String())
	return &UsingDirectiveStatement{Namespace: name.String()}
}

// parseIdentifierStatement handles statements led by an identifier: a
// declaration when a type usage resolves there, otherwise an assignment,
// call, member/method call or increment/decrement determined by lookahead.
func (e *Environment) parseIdentifierStatement(pc *parsingContext, token Token) Statement {
	tokens := pc.tokens

	typeUsage := e.parseTypeUsage(pc)
	if typeUsage.Type != nil {
		return e.parseDeclaration(pc, token, typeUsage)
	}

	// scan at paren depth 0 for a top-level assignment operator
	operatorTokenIndex := 0
	parenthesisLevel := 0
	for i := pc.tokenIndex; i < len(tokens) && tokens[i].Text != ";"; i++ {
		switch {
		case tokens[i].Text == "(":
			parenthesisLevel++
		case tokens[i].Text == ")":
			parenthesisLevel--
		case parenthesisLevel == 0 && isAssignmentOperator(tokens[i]):
			operatorTokenIndex = i
		}
		if operatorTokenIndex > 0 {
			break
		}
	}
	if operatorTokenIndex > 0 {
		return e.parseStatementAssignment(pc, operatorTokenIndex)
	}

	if pc.tokenIndex+1 >= len(tokens) {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
		return nil
	}
	next := tokens[pc.tokenIndex+1]

	switch next.Type {
	case TokenPunctuation:
		if next.Text == "(" {
			function := NewIdentifier(token.Text)
			pc.tokenIndex++
			arguments := e.parseFunctionCallArguments(pc)
			if pc.hasError() {
				return nil
			}
			return &ExpressionStatement{
				Expression: &FunctionCallExpression{Function: function, Arguments: arguments},
			}
		}

		// member access, method call or static access
		closure := pc.findClosureTokenIndex("", ";")
		if closure == 0 {
			e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
			return nil
		}
		expression := e.parseExpression(pc, closure-1)
		if pc.hasError() || expression == nil {
			return nil
		}
		return &ExpressionStatement{Expression: expression}

	case TokenOperator:
		identifier := NewIdentifier(token.Text)
		instance := e.retrieveInstance(identifier)
		if instance == nil {
			e.throwCompileError(pc, CompileErrorUndefinedVariable, identifier.Name)
			return nil
		}

		switch next.Text {
		case "++", "--":
			if !isIntegerType(instance.TypeUsage.Type) {
				e.throwCompileError(pc, CompileErrorNonIntegerValue, identifier.Name)
				return nil
			}
			pc.tokenIndex += 2
			if next.Text == "++" {
				return &IncrementStatement{Variable: identifier}
			}
			return &DecrementStatement{Variable: identifier}
		}
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
		return nil
	}

	e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
	return nil
}

// parseDeclaration handles `T name [= expr];` and `T name(params) {body}`
// once a type usage has resolved at the statement head.
func (e *Environment) parseDeclaration(pc *parsingContext, token Token, typeUsage TypeUsage) Statement {
	tokens := pc.tokens

	pc.tokenIndex++
	if pc.tokenIndex >= len(tokens) {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
		return nil
	}
	identifier := NewIdentifier(tokens[pc.tokenIndex].Text)

	pc.tokenIndex++
	if pc.tokenIndex >= len(tokens) {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
		return nil
	}
	next := tokens[pc.tokenIndex]

	if next.Type != TokenOperator && next.Type != TokenPunctuation {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
		return nil
	}

	switch next.Text {
	case "=", ";":
		// re-declaring at the same scope is an error; shadowing an outer
		// scope's binding is not
		if existing := e.retrieveInstance(identifier); existing != nil && existing.ScopeLevel == pc.scopeLevel {
			e.throwCompileError(pc, CompileErrorVariableRedefinition, identifier.Name)
			return nil
		}

		var initialValue Expression
		if next.Text == "=" {
			pc.tokenIndex++
			closure := pc.findClosureTokenIndex("", ";")
			if closure == 0 {
				e.throwCompileError(pc, CompileErrorUnexpectedSymbol, next.Text)
				return nil
			}
			initialValue = e.parseExpression(pc, closure-1)
			if pc.hasError() {
				return nil
			}
		} else if !typeUsage.Type.IsBuiltIn() && !typeUsage.IsPointer() {
			if typeUsage.Type.DefaultConstructor() == nil {
				e.throwCompileError(pc, CompileErrorNoDefaultConstructor, typeUsage.Type.Name)
				return nil
			}
		}

		e.registerInstance(&pc.context, typeUsage, identifier)
		return &VariableDeclarationStatement{
			TypeUsage:    typeUsage,
			Variable:     identifier,
			InitialValue: initialValue,
		}

	case "(":
		pc.tokenIndex-- // back at the function name
		return e.parseStatementFunctionDeclaration(pc)
	}

	e.throwCompileError(pc, CompileErrorUnexpectedSymbol, token.Text)
	return nil
}

func (e *Environment) parseStatementBlock(pc *parsingContext) *BlockStatement {
	tokens := pc.tokens
	if pc.tokenIndex >= len(tokens) || tokens[pc.tokenIndex].Text != "{" {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, pc.currentTokenText())
		return nil
	}

	block := &BlockStatement{}
	block.setLine(tokens[pc.tokenIndex].Line)

	e.incrementScopeLevel(&pc.context)
	defer e.decrementScopeLevel(&pc.context)

	for pc.tokenIndex < len(tokens) && tokens[pc.tokenIndex].Text != "}" {
		pc.tokenIndex++
		if pc.tokenIndex >= len(tokens) || tokens[pc.tokenIndex].Text == "}" {
			break
		}
		statement := e.parseStatement(pc)
		if pc.hasError() {
			return nil
		}
		if statement != nil {
			block.Statements = append(block.Statements, statement)
		}
	}

	if pc.tokenIndex >= len(tokens) {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "{")
		return nil
	}
	return block
}

// parseStatementFunctionDeclaration parses `T name(params) {body}` with the
// cursor on the function name; the return type is the preceding token
// (`void` yields no return type). Parameters are registered one scope in so
// the body can resolve them.
func (e *Environment) parseStatementFunctionDeclaration(pc *parsingContext) Statement {
	tokens := pc.tokens
	if pc.tokenIndex >= len(tokens) {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, pc.currentTokenText())
		return nil
	}

	var returnType TypeUsage
	if pc.tokenIndex > 0 {
		returnType = e.GetTypeUsage(tokens[pc.tokenIndex-1].Text)
	}

	statement := &FunctionDeclarationStatement{
		ReturnType: returnType,
		Function:   NewIdentifier(tokens[pc.tokenIndex].Text),
	}

	pc.tokenIndex++
	if pc.tokenIndex >= len(tokens) || tokens[pc.tokenIndex].Text != "(" {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, statement.Function.Name)
		return nil
	}

	pc.tokenIndex++
	for pc.tokenIndex < len(tokens) && tokens[pc.tokenIndex].Text != ")" {
		parameterType := e.parseTypeUsage(pc)
		if parameterType.Type == nil {
			e.throwCompileError(pc, CompileErrorUnexpectedSymbol, tokens[pc.tokenIndex].Text)
			return nil
		}

		pc.tokenIndex++
		if pc.tokenIndex >= len(tokens) {
			e.throwCompileError(pc, CompileErrorUnexpectedSymbol, statement.Function.Name)
			return nil
		}
		parameterName := NewIdentifier(tokens[pc.tokenIndex].Text)

		statement.ParameterTypes = append(statement.ParameterTypes, parameterType)
		statement.ParameterNames = append(statement.ParameterNames, parameterName)

		// visible while the body parses; released by the block's scope exit
		instance := e.registerInstance(&pc.context, parameterType, parameterName)
		instance.ScopeLevel++

		pc.tokenIndex++
		if pc.tokenIndex < len(tokens) && tokens[pc.tokenIndex].Text == "," {
			pc.tokenIndex++
		}
	}
	if pc.tokenIndex >= len(tokens) {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, statement.Function.Name)
		return nil
	}

	pc.tokenIndex++ // past ')'
	statement.Body = e.parseStatementBlock(pc)
	if pc.hasError() {
		return nil
	}
	return statement
}

func (e *Environment) parseStatementAssignment(pc *parsingContext, operatorTokenIndex int) Statement {
	tokens := pc.tokens

	target := e.parseExpression(pc, operatorTokenIndex-1)
	if pc.hasError() {
		return nil
	}

	operatorStr := tokens[operatorTokenIndex].Text
	pc.tokenIndex = operatorTokenIndex + 1

	closure := pc.findClosureTokenIndex("", ";")
	if closure == 0 {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, operatorStr)
		return nil
	}
	value := e.parseExpression(pc, closure-1)
	if pc.hasError() {
		return nil
	}

	return &AssignmentStatement{Target: target, Operator: operatorStr, Value: value}
}

func (e *Environment) parseStatementIf(pc *parsingContext) Statement {
	tokens := pc.tokens
	if pc.tokenIndex >= len(tokens) || tokens[pc.tokenIndex].Text != "(" {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "if")
		return nil
	}

	pc.tokenIndex++
	conditionClosure := pc.findClosureTokenIndex("(", ")")
	if conditionClosure == 0 {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "if")
		return nil
	}
	condition := e.parseExpression(pc, conditionClosure-1)
	if pc.hasError() {
		return nil
	}
	pc.tokenIndex = conditionClosure + 1

	thenStatement := e.parseStatement(pc)
	if pc.hasError() {
		return nil
	}

	var elseStatement Statement
	pc.tokenIndex++
	if pc.tokenIndex < len(tokens) &&
		pc.tokens[pc.tokenIndex].Type == TokenKeyword &&
		pc.tokens[pc.tokenIndex].Text == "else" {
		pc.tokenIndex++
		elseStatement = e.parseStatement(pc)
		if pc.hasError() {
			return nil
		}
	} else {
		pc.tokenIndex--
	}

	return &IfStatement{Condition: condition, Then: thenStatement, Else: elseStatement}
}

func (e *Environment) parseStatementWhile(pc *parsingContext) Statement {
	tokens := pc.tokens
	if pc.tokenIndex >= len(tokens) || tokens[pc.tokenIndex].Text != "(" {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "while")
		return nil
	}

	pc.tokenIndex++
	conditionClosure := pc.findClosureTokenIndex("(", ")")
	if conditionClosure == 0 {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "while")
		return nil
	}
	condition := e.parseExpression(pc, conditionClosure-1)
	if pc.hasError() {
		return nil
	}
	pc.tokenIndex = conditionClosure + 1

	body := e.parseStatement(pc)
	if pc.hasError() {
		return nil
	}

	return &WhileStatement{Condition: condition, Body: body}
}

// parseStatementFor opens a scope that also contains the init statement.
// The step statement is bounded by the for's closing ')' rather than a ';'.
func (e *Environment) parseStatementFor(pc *parsingContext) Statement {
	tokens := pc.tokens
	if pc.tokenIndex >= len(tokens) || tokens[pc.tokenIndex].Text != "(" {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "for")
		return nil
	}

	e.incrementScopeLevel(&pc.context)
	defer e.decrementScopeLevel(&pc.context)

	pc.tokenIndex++
	initClosure := pc.findClosureTokenIndex("", ";")
	if initClosure == 0 {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "for")
		return nil
	}
	var initialization Statement
	if pc.tokenIndex < initClosure {
		initialization = e.parseStatement(pc)
		if pc.hasError() {
			return nil
		}
	}
	pc.tokenIndex = initClosure + 1

	conditionClosure := pc.findClosureTokenIndex("", ";")
	if conditionClosure == 0 {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "for")
		return nil
	}
	var condition Expression
	if pc.tokenIndex < conditionClosure {
		condition = e.parseExpression(pc, conditionClosure-1)
		if pc.hasError() {
			return nil
		}
	}
	pc.tokenIndex = conditionClosure + 1

	incrementClosure := pc.findClosureTokenIndex("(", ")")
	if incrementClosure == 0 {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "for")
		return nil
	}
	var increment Statement
	if pc.tokenIndex < incrementClosure {
		increment = e.parseLoopIncrement(pc, incrementClosure)
		if pc.hasError() {
			return nil
		}
	}
	pc.tokenIndex = incrementClosure + 1

	body := e.parseStatement(pc)
	if pc.hasError() {
		return nil
	}

	return &ForStatement{
		Initialization: initialization,
		Condition:      condition,
		Increment:      increment,
		Body:           body,
	}
}

// parseLoopIncrement parses a for-loop step, which ends at the loop's
// closing ')' instead of a ';'.
func (e *Environment) parseLoopIncrement(pc *parsingContext, closure int) Statement {
	tokens := pc.tokens
	token := tokens[pc.tokenIndex]

	operatorTokenIndex := 0
	parenthesisLevel := 0
	for i := pc.tokenIndex; i < closure; i++ {
		switch {
		case tokens[i].Text == "(":
			parenthesisLevel++
		case tokens[i].Text == ")":
			parenthesisLevel--
		case parenthesisLevel == 0 && isAssignmentOperator(tokens[i]):
			operatorTokenIndex = i
		}
		if operatorTokenIndex > 0 {
			break
		}
	}

	var statement Statement
	switch {
	case operatorTokenIndex > 0:
		target := e.parseExpression(pc, operatorTokenIndex-1)
		if pc.hasError() {
			return nil
		}
		operatorStr := tokens[operatorTokenIndex].Text
		pc.tokenIndex = operatorTokenIndex + 1
		value := e.parseExpression(pc, closure-1)
		if pc.hasError() {
			return nil
		}
		statement = &AssignmentStatement{Target: target, Operator: operatorStr, Value: value}

	case pc.tokenIndex+1 < closure && (tokens[pc.tokenIndex+1].Text == "++" || tokens[pc.tokenIndex+1].Text == "--"):
		identifier := NewIdentifier(token.Text)
		instance := e.retrieveInstance(identifier)
		if instance == nil {
			e.throwCompileError(pc, CompileErrorUndefinedVariable, identifier.Name)
			return nil
		}
		if !isIntegerType(instance.TypeUsage.Type) {
			e.throwCompileError(pc, CompileErrorNonIntegerValue, identifier.Name)
			return nil
		}
		if tokens[pc.tokenIndex+1].Text == "++" {
			statement = &IncrementStatement{Variable: identifier}
		} else {
			statement = &DecrementStatement{Variable: identifier}
		}
		pc.tokenIndex += 2

	default:
		expression := e.parseExpression(pc, closure-1)
		if pc.hasError() || expression == nil {
			return nil
		}
		statement = &ExpressionStatement{Expression: expression}
	}

	statement.setLine(token.Line)
	return statement
}

func (e *Environment) parseStatementBreak(pc *parsingContext) Statement {
	if pc.tokenIndex >= len(pc.tokens) || pc.tokens[pc.tokenIndex].Text != ";" {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "break")
		return nil
	}
	return &BreakStatement{}
}

func (e *Environment) parseStatementContinue(pc *parsingContext) Statement {
	if pc.tokenIndex >= len(pc.tokens) || pc.tokens[pc.tokenIndex].Text != ";" {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "continue")
		return nil
	}
	return &ContinueStatement{}
}

func (e *Environment) parseStatementReturn(pc *parsingContext) Statement {
	closure := pc.findClosureTokenIndex("", ";")
	if closure == 0 {
		e.throwCompileError(pc, CompileErrorUnexpectedSymbol, "return")
		return nil
	}

	var expression Expression
	if pc.tokenIndex < closure {
		expression = e.parseExpression(pc, closure-1)
		if pc.hasError() {
			return nil
		}
	}
	pc.tokenIndex = closure

	return &ReturnStatement{Expression: expression}
}
