package interp

// ---------------------------------------------------------------------------
// Identifier: registry keys
// ---------------------------------------------------------------------------

// FNV-1a constants used for identifier hashing.
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// HashName returns the FNV-1a 32-bit hash of a name.
func HashName(name string) uint32 {
	h := fnvOffsetBasis
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= fnvPrime
	}
	return h
}

// Identifier is a name paired with its hash. The hash is the key under
// which types, functions and namespaces are registered.
type Identifier struct {
	Name string
	Hash uint32
}

// NewIdentifier creates an Identifier for the given name.
func NewIdentifier(name string) Identifier {
	return Identifier{Name: name, Hash: HashName(name)}
}

// Equals reports whether two identifiers name the same symbol.
func (id Identifier) Equals(other Identifier) bool {
	return id.Hash == other.Hash && id.Name == other.Name
}
