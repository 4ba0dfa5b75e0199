package interp

// ---------------------------------------------------------------------------
// Type descriptors
// ---------------------------------------------------------------------------

// TypeCategory distinguishes the three kinds of registered types.
type TypeCategory uint8

const (
	TypeCategoryBuiltIn TypeCategory = iota
	TypeCategoryStruct
	TypeCategoryClass
)

func (c TypeCategory) String() string {
	switch c {
	case TypeCategoryBuiltIn:
		return "built-in"
	case TypeCategoryStruct:
		return "struct"
	case TypeCategoryClass:
		return "class"
	}
	return "unknown"
}

// Visibility tags members and methods of aggregate types.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPrivate
)

// PointerSize is the byte size of pointer and reference values.
const PointerSize = 8

// Type describes a registered type: a built-in (numeric/bool/char), a
// struct, or a class. Structs and classes additionally carry their members
// and methods; the two differ only by category tag.
type Type struct {
	Identifier
	Size     int
	Category TypeCategory
	Members  []Member
	Methods  []*Method
}

// IsBuiltIn reports whether the type is a built-in.
func (t *Type) IsBuiltIn() bool {
	return t.Category == TypeCategoryBuiltIn
}

// FindMember returns the member with the given name, or nil.
func (t *Type) FindMember(name string) *Member {
	for i := range t.Members {
		if t.Members[i].Name == name {
			return &t.Members[i]
		}
	}
	return nil
}

// FindMethod returns the first method with the given name, or nil.
func (t *Type) FindMethod(name string) *Method {
	for _, method := range t.Methods {
		if method.Name == name {
			return method
		}
	}
	return nil
}

// DefaultConstructor returns the zero-argument method named after the type
// itself, or nil if the type does not define one.
func (t *Type) DefaultConstructor() *Method {
	for _, method := range t.Methods {
		if len(method.Parameters) == 0 && method.Identifier.Equals(t.Identifier) {
			return method
		}
	}
	return nil
}

// Member is a named field of a struct or class, located by its byte offset
// within the owning aggregate.
type Member struct {
	Identifier
	TypeUsage  TypeUsage
	Offset     int
	Visibility Visibility
}

// TypeUsage flag bits.
const (
	FlagConst uint8 = 1 << iota
	FlagReference
)

// TypeUsage is a use-site annotation over a Type: const-ness,
// reference-ness, pointer depth and array extent.
type TypeUsage struct {
	Type         *Type
	ArraySize    uint16
	PointerLevel uint8
	Flags        uint8
}

// NewTypeUsage returns a plain usage of the given type.
func NewTypeUsage(t *Type) TypeUsage {
	return TypeUsage{Type: t, ArraySize: 1}
}

// Size returns the effective byte size of the usage: the pointer size for
// pointers and references, the element size times the array extent
// otherwise.
func (tu TypeUsage) Size() int {
	if tu.IsPointer() || tu.IsReference() {
		return PointerSize
	}
	if tu.Type == nil {
		return 0
	}
	return tu.Type.Size * int(tu.ArraySize)
}

// IsPointer reports whether the usage has pointer depth greater than zero.
func (tu TypeUsage) IsPointer() bool {
	return tu.PointerLevel > 0
}

// IsReference reports whether the usage is a reference.
func (tu TypeUsage) IsReference() bool {
	return tu.Flags&FlagReference != 0
}

// IsConst reports whether the usage is const-qualified.
func (tu TypeUsage) IsConst() bool {
	return tu.Flags&FlagConst != 0
}

// Equals reports whether all four components of two usages match.
func (tu TypeUsage) Equals(other TypeUsage) bool {
	return tu.Type == other.Type &&
		tu.ArraySize == other.ArraySize &&
		tu.PointerLevel == other.PointerLevel &&
		tu.Flags == other.Flags
}

// CompatibleWith reports whether a value of this usage can hold data of the
// other usage without reallocation. Qualifiers are ignored; the storage
// shape must match.
func (tu TypeUsage) CompatibleWith(other TypeUsage) bool {
	return tu.Type == other.Type &&
		tu.ArraySize == other.ArraySize &&
		tu.PointerLevel == other.PointerLevel
}

// Function is a callable registered under a name: return and parameter
// usages plus an executable body. Host-registered functions supply Execute
// directly; script-declared functions get a closure over their parsed body.
type Function struct {
	Identifier
	ReturnTypeUsage TypeUsage
	Parameters      []TypeUsage
	Execute         func(args []Value, ret *Value)
}

// Method is a function bound to an aggregate type. Execute additionally
// receives the receiver as a pointer Value.
type Method struct {
	Identifier
	ReturnTypeUsage TypeUsage
	Visibility      Visibility
	Parameters      []TypeUsage
	Execute         func(this Value, args []Value, ret *Value)
}

// Instance is a named storage cell within a scope. The owning namespace
// releases it when its scope level unwinds.
type Instance struct {
	Identifier
	TypeUsage  TypeUsage
	ScopeLevel uint32
	Value      Value
}
