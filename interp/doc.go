// Package interp implements an embeddable tree-walking interpreter for a
// strict subset of a C-like statically-typed language.
//
// A host registers native types, variables, functions and methods into an
// Environment, then feeds it source text; the interpreter tokenizes, parses
// into a typed AST, and evaluates statements directly against the shared
// symbol table. Scripts can call native functions, read and mutate native
// variables, and construct instances of native-registered aggregate types.
//
//	e := interp.NewEnvironment()
//	speed := interp.NewBuiltInValue(e, "int", int32(30))
//	e.SetVariable(e.GetTypeUsage("int"), "speed", speed)
//	if !e.Load("boot", "int doubled = speed + speed;") {
//		log.Fatal(e.ErrorMessage())
//	}
//
// The Environment is single-threaded and non-reentrant: Load runs to
// completion or error before returning. Hosts that need parallelism own one
// Environment per worker.
package interp
