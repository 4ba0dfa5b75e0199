package interp

// ---------------------------------------------------------------------------
// Parsing and execution contexts
// ---------------------------------------------------------------------------

// jumpStatement is the execution context's one-shot control signal.
type jumpStatement uint8

const (
	jumpNone jumpStatement = iota
	jumpBreak
	jumpContinue
	jumpReturn
)

// context carries the state shared by parsing and execution: the current
// scope level, a byte pool for stack-mode values, and the error buffer that
// both phases poll instead of throwing.
type context struct {
	scopeLevel   uint32
	stack        *StackPool
	stackMarks   []int
	errorMessage string
}

func (c *context) hasError() bool {
	return c.errorMessage != ""
}

// parsingContext tracks the token cursor and the using-namespace list
// consulted by type resolution.
type parsingContext struct {
	context
	preprocessedCode string
	usingNamespaces  []string
	tokens           []Token
	tokenIndex       int
}

func newParsingContext(stackCapacity int) *parsingContext {
	return &parsingContext{
		context: context{scopeLevel: scriptScopeLevel, stack: NewStackPool(stackCapacity)},
	}
}

// executionContext carries the evaluator's mutable state: the current line
// for error decoration, the return-value slot, and the jump flag.
type executionContext struct {
	context
	currentLine int
	returnValue Value
	jump        jumpStatement
}

func newExecutionContext(stackCapacity int) *executionContext {
	return &executionContext{
		context: context{scopeLevel: scriptScopeLevel, stack: NewStackPool(stackCapacity)},
	}
}

// reset prepares the context for a fresh program run.
func (c *executionContext) reset() {
	c.scopeLevel = scriptScopeLevel
	c.stack.Reset()
	c.stackMarks = c.stackMarks[:0]
	c.errorMessage = ""
	c.currentLine = 0
	c.returnValue = Value{}
	c.jump = jumpNone
}
