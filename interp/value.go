package interp

import (
	"unsafe"
)

// ---------------------------------------------------------------------------
// Value: runtime carrier of a TypeUsage and a byte buffer
// ---------------------------------------------------------------------------

// ValueBufferType is the ownership mode of a Value's buffer.
type ValueBufferType uint8

const (
	// BufferUninitialized marks a Value that has no buffer yet.
	BufferUninitialized ValueBufferType = iota
	// BufferExternal marks a borrowed buffer; the interpreter never frees
	// it and writes through it into the owner's storage.
	BufferExternal
	// BufferStack marks a buffer carved from a context's stack pool,
	// reclaimed by pool rewind when the owning scope ends.
	BufferStack
	// BufferHeap marks an exclusively owned buffer.
	BufferHeap
)

func (t ValueBufferType) String() string {
	switch t {
	case BufferUninitialized:
		return "uninitialized"
	case BufferExternal:
		return "external"
	case BufferStack:
		return "stack"
	case BufferHeap:
		return "heap"
	}
	return "unknown"
}

// Value carries a TypeUsage and a raw byte buffer in one of three ownership
// modes. Copying a Value is shallow: the copy shares the buffer.
type Value struct {
	TypeUsage  TypeUsage
	BufferType ValueBufferType
	Buffer     []byte
}

// InitOnHeap gives the value an owned buffer of the usage's size. An
// existing heap buffer of the right size is reused; any other buffer is
// replaced.
func (v *Value) InitOnHeap(typeUsage TypeUsage) {
	size := typeUsage.Size()
	if v.BufferType != BufferHeap || len(v.Buffer) != size {
		v.Buffer = make([]byte, size)
	}
	v.BufferType = BufferHeap
	v.TypeUsage = typeUsage
}

// InitOnStack carves the value's buffer from the given pool. The bytes are
// reclaimed when the pool rewinds past them, not per value.
func (v *Value) InitOnStack(typeUsage TypeUsage, pool *StackPool) {
	v.Buffer = pool.Push(typeUsage.Size())
	v.BufferType = BufferStack
	v.TypeUsage = typeUsage
}

// InitExternal marks the value as a borrow. The buffer is bound by the next
// Set call and is never freed by the interpreter.
func (v *Value) InitExternal(typeUsage TypeUsage) {
	v.Buffer = nil
	v.BufferType = BufferExternal
	v.TypeUsage = typeUsage
}

// Set stores source data into the value.
//
// External values adopt the source buffer itself, so later writes reach the
// owner's storage. Reference-typed values record the address of the source
// bytes. Everything else copies the usage's size worth of bytes.
func (v *Value) Set(source []byte) {
	switch {
	case v.BufferType == BufferExternal:
		size := v.TypeUsage.Size()
		if size > len(source) {
			size = len(source)
		}
		v.Buffer = source[:size:size]
	case v.TypeUsage.IsReference():
		v.SetPointer(unsafe.Pointer(&source[0]))
	default:
		size := v.TypeUsage.Size()
		if size > len(source) {
			size = len(source)
		}
		copy(v.Buffer, source[:size])
	}
}

// SetPointer writes a raw address into the value's buffer.
func (v *Value) SetPointer(p unsafe.Pointer) {
	*(*uintptr)(unsafe.Pointer(&v.Buffer[0])) = uintptr(p)
}

// Pointer reads the raw address stored in the value's buffer.
func (v *Value) Pointer() unsafe.Pointer {
	return unsafe.Pointer(*(*uintptr)(unsafe.Pointer(&v.Buffer[0])))
}

// bufferAt returns a byte window of the given size over raw memory.
func bufferAt(p unsafe.Pointer, size int) []byte {
	return unsafe.Slice((*byte)(p), size)
}

// ---------------------------------------------------------------------------
// StackPool: rewindable byte arena
// ---------------------------------------------------------------------------

// StackPool is a fixed-capacity byte arena. Buffers are pushed in LIFO
// order and reclaimed in bulk by rewinding to a recorded mark. Overflow is
// a fatal condition.
type StackPool struct {
	memory []byte
	offset int
}

// NewStackPool creates a pool with the given capacity in bytes.
func NewStackPool(capacity int) *StackPool {
	return &StackPool{memory: make([]byte, capacity)}
}

// Push carves size bytes from the pool and returns them zeroed.
func (p *StackPool) Push(size int) []byte {
	if p.offset+size > len(p.memory) {
		panic("interp: stack pool overflow")
	}
	buf := p.memory[p.offset : p.offset+size : p.offset+size]
	for i := range buf {
		buf[i] = 0
	}
	p.offset += size
	return buf
}

// PushBytes copies data into the pool and returns the pooled copy.
func (p *StackPool) PushBytes(data []byte) []byte {
	buf := p.Push(len(data))
	copy(buf, data)
	return buf
}

// Mark returns the current fill level for a later Rewind.
func (p *StackPool) Mark() int {
	return p.offset
}

// Rewind releases every buffer pushed after the mark.
func (p *StackPool) Rewind(mark int) {
	if mark < 0 || mark > p.offset {
		panic("interp: invalid stack pool mark")
	}
	p.offset = mark
}

// Reset releases the whole pool.
func (p *StackPool) Reset() {
	p.offset = 0
}

// Capacity returns the pool's total capacity in bytes.
func (p *StackPool) Capacity() int {
	return len(p.memory)
}
