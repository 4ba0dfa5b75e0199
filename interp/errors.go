package interp

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Error taxonomies
// ---------------------------------------------------------------------------

// CompileError identifies a parse-time failure.
type CompileError uint8

const (
	CompileErrorUnexpectedSymbol CompileError = iota
	CompileErrorUndefinedVariable
	CompileErrorVariableRedefinition
	CompileErrorNoDefaultConstructor
	CompileErrorInvalidMemberAccessOperatorPtr
	CompileErrorInvalidMemberAccessOperatorNonPtr
	CompileErrorInvalidOperator
	CompileErrorMissingMember
	CompileErrorNonIntegerValue
)

var compileErrorStrings = [...]string{
	"unexpected symbol after '%s'",
	"undefined variable ('%s')",
	"variable redefinition ('%s')",
	"no default constructor defined for the '%s' type",
	"invalid member access operator ('%s' is a pointer)",
	"invalid member access operator ('%s' is not a pointer)",
	"invalid operator for the '%s' type",
	"no member named '%s'",
	"'%s' must be an integer value",
}

// RuntimeError identifies an evaluation-time failure.
type RuntimeError uint8

const (
	RuntimeErrorNullPointerAccess RuntimeError = iota
	// RuntimeErrorInvalidArrayIndex is reserved; nothing raises it at this
	// revision.
	RuntimeErrorInvalidArrayIndex
	RuntimeErrorDivisionByZero
)

var runtimeErrorStrings = [...]string{
	"null pointer access ('%s')",
	"invalid array index ('%s')",
	"division by zero",
}

// throwCompileError formats an error into the parsing context's message
// buffer, decorated with the current token's line. Parsing short-circuits
// once the buffer is non-empty.
func (e *Environment) throwCompileError(pc *parsingContext, err CompileError, arg string) {
	line := 0
	if pc.tokenIndex < len(pc.tokens) {
		line = pc.tokens[pc.tokenIndex].Line
	} else if n := len(pc.tokens); n > 0 {
		line = pc.tokens[n-1].Line
	}

	message := fmt.Sprintf(compileErrorStrings[err], arg)
	pc.errorMessage = "[Compile Error] Line " + strconv.Itoa(line) + ": " + message
}

// throwRuntimeError formats an error into the execution context's message
// buffer, decorated with the current statement's line. The evaluator
// short-circuits once the buffer is non-empty.
func (e *Environment) throwRuntimeError(ec *executionContext, err RuntimeError, arg string) {
	message := runtimeErrorStrings[err]
	if err != RuntimeErrorDivisionByZero {
		message = fmt.Sprintf(message, arg)
	}

	ec.errorMessage = "[Runtime Error] Line " + strconv.Itoa(ec.currentLine) + ": " + message
}
