package interp

import (
	"strings"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// scriptScopeLevel is the scope level of a program's top-level statements.
// Host-registered variables sit below it at level 0 and survive runs;
// everything at or above it is rewound between runs.
const scriptScopeLevel = 1

// Config bounds the environment's fixed-size arenas.
type Config struct {
	// StackCapacity is the byte capacity of each context's stack pool.
	StackCapacity int
	// LiteralPoolCapacity is the byte capacity of the literal string
	// arena. Overflowing it is a fatal condition.
	LiteralPoolCapacity int
}

// DefaultConfig returns the default arena sizes.
func DefaultConfig() Config {
	return Config{
		StackCapacity:       8192,
		LiteralPoolCapacity: 1024,
	}
}

// Environment owns the symbol registries, the program registry and the
// execution state. It is single-threaded and non-reentrant; embedders that
// need parallelism own one Environment per worker.
type Environment struct {
	rootNamespace *Namespace
	programs      map[uint32]*Program
	programNames  []string
	literalPool   *StackPool
	execution     *executionContext
	config        Config
	errorMessage  string

	log commonlog.Logger
}

// NewEnvironment creates an environment with default limits and the
// built-in types registered.
func NewEnvironment() *Environment {
	return NewEnvironmentWithConfig(DefaultConfig())
}

// NewEnvironmentWithConfig creates an environment with explicit limits.
// Non-positive limits fall back to the defaults.
func NewEnvironmentWithConfig(config Config) *Environment {
	defaults := DefaultConfig()
	if config.StackCapacity <= 0 {
		config.StackCapacity = defaults.StackCapacity
	}
	if config.LiteralPoolCapacity <= 0 {
		config.LiteralPoolCapacity = defaults.LiteralPoolCapacity
	}

	e := &Environment{
		rootNamespace: NewNamespace(""),
		programs:      make(map[uint32]*Program),
		literalPool:   NewStackPool(config.LiteralPoolCapacity),
		execution:     newExecutionContext(config.StackCapacity),
		config:        config,
		log:           commonlog.GetLogger("cflat.environment"),
	}
	e.registerBuiltInTypes()
	return e
}

func (e *Environment) registerBuiltInTypes() {
	for _, builtin := range []struct {
		name string
		size int
	}{
		{"int", 4},
		{"uint32_t", 4},
		{"size_t", 8},
		{"char", 1},
		{"bool", 1},
		{"uint8_t", 1},
		{"short", 2},
		{"uint16_t", 2},
		{"float", 4},
		{"double", 8},
	} {
		e.RegisterBuiltInType(builtin.name, builtin.size)
	}
}

// ---------------------------------------------------------------------------
// Registration surface
// ---------------------------------------------------------------------------

// RegisterBuiltInType inserts a built-in type descriptor.
func (e *Environment) RegisterBuiltInType(name string, size int) *Type {
	return e.registerType(name, size, TypeCategoryBuiltIn)
}

// RegisterStruct inserts a struct type descriptor.
func (e *Environment) RegisterStruct(name string, size int) *Type {
	return e.registerType(name, size, TypeCategoryStruct)
}

// RegisterClass inserts a class type descriptor.
func (e *Environment) RegisterClass(name string, size int) *Type {
	return e.registerType(name, size, TypeCategoryClass)
}

func (e *Environment) registerType(name string, size int, category TypeCategory) *Type {
	t := &Type{Identifier: NewIdentifier(name), Size: size, Category: category}
	e.rootNamespace.RegisterType(t)
	return t
}

// RegisterStructMember appends a member to an aggregate type at the given
// byte offset.
func (e *Environment) RegisterStructMember(t *Type, name string, typeUsage TypeUsage, offset, arraySize int) {
	member := Member{
		Identifier: NewIdentifier(name),
		TypeUsage:  typeUsage,
		Offset:     offset,
	}
	if arraySize > 1 {
		member.TypeUsage.ArraySize = uint16(arraySize)
	}
	t.Members = append(t.Members, member)
}

// RegisterFunction appends a function to the name's overload list and
// returns the descriptor for the host to fill in (parameters, return type,
// Execute callback).
func (e *Environment) RegisterFunction(name string) *Function {
	return e.rootNamespace.RegisterFunction(NewIdentifier(name))
}

// RegisterMethod appends a method to the type and returns the descriptor
// for the host to fill in. A method named like the type with no parameters
// acts as the default constructor.
func (e *Environment) RegisterMethod(t *Type, name string) *Method {
	method := &Method{Identifier: NewIdentifier(name)}
	t.Methods = append(t.Methods, method)
	return method
}

// GetType returns the registered type with the given name, or nil.
func (e *Environment) GetType(name string) *Type {
	return e.getTypeByName(name)
}

func (e *Environment) getTypeByName(name string) *Type {
	return e.rootNamespace.GetType(NewIdentifier(name))
}

func (e *Environment) builtinUsage(name string) TypeUsage {
	return NewTypeUsage(e.getTypeByName(name))
}

// GetFunction returns the first overload registered under the name, or nil.
func (e *Environment) GetFunction(name string) *Function {
	return e.rootNamespace.GetFunction(NewIdentifier(name))
}

// GetFunctions returns the full overload list for the name, or nil.
func (e *Environment) GetFunctions(name string) []*Function {
	return e.rootNamespace.GetFunctions(NewIdentifier(name))
}

func (e *Environment) getFunction(id Identifier) *Function {
	return e.rootNamespace.GetFunction(id)
}

// GetTypeUsage parses a textual type usage such as `const char*` or
// `Vec3&` against the registered types.
func (e *Environment) GetTypeUsage(text string) TypeUsage {
	typeUsage := TypeUsage{ArraySize: 1}

	base := text
	if index := strings.Index(base, "const"); index >= 0 {
		typeUsage.Flags |= FlagConst
		base = base[index+len("const"):]
	}

	if index := strings.IndexByte(base, '*'); index >= 0 {
		typeUsage.PointerLevel++
		base = base[:index]
	} else if index := strings.IndexByte(base, '&'); index >= 0 {
		typeUsage.Flags |= FlagReference
		base = base[:index]
	}

	typeUsage.Type = e.getTypeByName(strings.TrimSpace(base))
	return typeUsage
}

// SetVariable binds a host value to a name at scope 0; the stored instance
// keeps a heap copy of the host bytes.
func (e *Environment) SetVariable(typeUsage TypeUsage, name string, value Value) {
	e.rootNamespace.SetVariable(typeUsage, NewIdentifier(name), value)
}

// GetVariable returns the named variable's value, or nil. Top-level script
// variables of the last loaded program remain readable here.
func (e *Environment) GetVariable(name string) *Value {
	return e.rootNamespace.GetVariable(NewIdentifier(name))
}

// GlobalNamespace exposes the root namespace.
func (e *Environment) GlobalNamespace() *Namespace {
	return e.rootNamespace
}

// GetProgram returns a previously loaded program by name, or nil.
func (e *Environment) GetProgram(name string) *Program {
	return e.programs[HashName(name)]
}

// ProgramNames returns the names of all loaded programs in load order.
func (e *Environment) ProgramNames() []string {
	return append([]string(nil), e.programNames...)
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

// Load preprocesses, tokenizes, parses and executes the program. On
// failure it returns false and ErrorMessage carries the first formatted
// compile or runtime error. Instances above scope 0 are rewound between
// runs, so host-registered variables persist and re-loading is clean.
func (e *Environment) Load(programName, code string) bool {
	id := NewIdentifier(programName)
	program := e.programs[id.Hash]
	if program == nil {
		program = &Program{}
		e.programs[id.Hash] = program
		e.programNames = append(e.programNames, programName)
	}
	program.Name = programName
	program.Code = code
	program.Statements = nil

	e.errorMessage = ""
	e.log.Debugf("loading program '%s' (%d bytes)", programName, len(code))

	// clear whatever the previous run left above the host scope
	e.rootNamespace.ReleaseInstances(scriptScopeLevel)

	pc := newParsingContext(e.config.StackCapacity)
	pc.preprocessedCode = Preprocess(code)
	pc.tokens = Tokenize(pc.preprocessedCode)
	e.parse(pc, program)

	if pc.hasError() {
		e.errorMessage = pc.errorMessage
		e.log.Errorf("program '%s': %s", programName, e.errorMessage)
		return false
	}

	// parse-time instance registrations are scratch state
	e.rootNamespace.ReleaseInstances(scriptScopeLevel)

	ec := e.execution
	ec.reset()
	e.executeProgram(ec, program)

	if ec.hasError() {
		e.errorMessage = ec.errorMessage
		e.log.Errorf("program '%s': %s", programName, e.errorMessage)
		return false
	}

	e.log.Infof("program '%s' loaded: %d statements", programName, len(program.Statements))
	return true
}

// ErrorMessage returns the first error of the last Load, or "".
func (e *Environment) ErrorMessage() string {
	return e.errorMessage
}
