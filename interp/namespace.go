package interp

// ---------------------------------------------------------------------------
// Namespace: symbol registries and the instance stack
// ---------------------------------------------------------------------------

// Namespace owns its registered types and function overload lists, its
// child namespaces, and a stack-like vector of Instances tagged with scope
// levels. Instance lookup scans back to front, so the most recent
// registration of a name shadows older ones.
type Namespace struct {
	Identifier

	namespaces map[uint32]*Namespace
	types      map[uint32]*Type
	functions  map[uint32][]*Function
	instances  []*Instance
}

// NewNamespace creates an empty namespace with the given name.
func NewNamespace(name string) *Namespace {
	return &Namespace{
		Identifier: NewIdentifier(name),
		namespaces: make(map[uint32]*Namespace),
		types:      make(map[uint32]*Type),
		functions:  make(map[uint32][]*Function),
	}
}

// Child returns the named child namespace, creating it on first use.
func (ns *Namespace) Child(name string) *Namespace {
	id := NewIdentifier(name)
	if child, ok := ns.namespaces[id.Hash]; ok {
		return child
	}
	child := NewNamespace(name)
	ns.namespaces[id.Hash] = child
	return child
}

// GetType returns the registered type with the given identifier, or nil.
func (ns *Namespace) GetType(id Identifier) *Type {
	return ns.types[id.Hash]
}

// RegisterType inserts a type descriptor. Registering a name twice replaces
// the previous descriptor.
func (ns *Namespace) RegisterType(t *Type) {
	ns.types[t.Hash] = t
}

// GetFunction returns the first registered overload for the identifier, or
// nil.
func (ns *Namespace) GetFunction(id Identifier) *Function {
	overloads := ns.functions[id.Hash]
	if len(overloads) == 0 {
		return nil
	}
	return overloads[0]
}

// GetFunctions returns the full overload list for the identifier, or nil.
func (ns *Namespace) GetFunctions(id Identifier) []*Function {
	return ns.functions[id.Hash]
}

// RegisterFunction appends a new function to the identifier's overload
// list and returns it for the caller to fill in.
func (ns *Namespace) RegisterFunction(id Identifier) *Function {
	function := &Function{Identifier: id}
	ns.functions[id.Hash] = append(ns.functions[id.Hash], function)
	return function
}

// RegisterInstance appends a named storage slot to the instance stack.
func (ns *Namespace) RegisterInstance(typeUsage TypeUsage, id Identifier) *Instance {
	instance := &Instance{Identifier: id, TypeUsage: typeUsage}
	ns.instances = append(ns.instances, instance)
	return instance
}

// RetrieveInstance finds the most recent instance with the given
// identifier, or nil. The back-to-front scan implements lexical shadowing.
func (ns *Namespace) RetrieveInstance(id Identifier) *Instance {
	for i := len(ns.instances) - 1; i >= 0; i-- {
		if ns.instances[i].Identifier.Equals(id) {
			return ns.instances[i]
		}
	}
	return nil
}

// ReleaseInstances pops every instance whose scope level is at or above the
// given level, then recurses into child namespaces.
func (ns *Namespace) ReleaseInstances(scopeLevel uint32) {
	for len(ns.instances) > 0 && ns.instances[len(ns.instances)-1].ScopeLevel >= scopeLevel {
		ns.instances[len(ns.instances)-1] = nil
		ns.instances = ns.instances[:len(ns.instances)-1]
	}

	for _, child := range ns.namespaces {
		child.ReleaseInstances(scopeLevel)
	}
}

// SetVariable binds a host value to a name. The stored instance always owns
// a heap buffer holding a copy of the host bytes; the host buffer itself is
// never adopted. New host instances go to the bottom of the stack, below
// any script instances, so the between-runs rewind still pops a clean
// suffix.
func (ns *Namespace) SetVariable(typeUsage TypeUsage, id Identifier, value Value) {
	instance := ns.RetrieveInstance(id)
	if instance == nil {
		instance = &Instance{Identifier: id, TypeUsage: typeUsage}
		ns.instances = append([]*Instance{instance}, ns.instances...)
	}
	instance.Value.InitOnHeap(typeUsage)
	instance.Value.Set(value.Buffer)
}

// GetVariable returns the named instance's value, or nil.
func (ns *Namespace) GetVariable(id Identifier) *Value {
	instance := ns.RetrieveInstance(id)
	if instance == nil {
		return nil
	}
	return &instance.Value
}

// InstanceCount returns the current depth of the instance stack.
func (ns *Namespace) InstanceCount() int {
	return len(ns.instances)
}
