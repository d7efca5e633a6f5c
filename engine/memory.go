package engine

import (
	"encoding/binary"

	errs "github.com/wippyai/wasm-interp/errors"
	"github.com/wippyai/wasm-interp/wasm"
)

// GrowFailed is the in-band value memory.grow leaves on the stack when the
// memory cannot grow.
const GrowFailed = 0xFFFFFFFF

// Memory is a linear memory paged in 64 KiB units. The byte length is
// always a multiple of wasm.PageSize and never shrinks. All multi-byte
// transfers are little-endian. Every access is bounds-checked; an access
// whose span exceeds the byte length traps.
type Memory struct {
	data []byte
	min  uint32
	max  uint32 // resolved: declared max, or wasm.MaxPages
}

// NewMemory allocates a memory at its declared minimum size.
func NewMemory(mt wasm.MemoryType) *Memory {
	max := uint32(wasm.MaxPages)
	if mt.Limits.Max != nil {
		max = *mt.Limits.Max
	}
	return &Memory{
		data: make([]byte, uint64(mt.Limits.Min)*wasm.PageSize),
		min:  mt.Limits.Min,
		max:  max,
	}
}

// SizePages returns the current size in pages.
func (m *Memory) SizePages() uint32 {
	return uint32(len(m.data) / wasm.PageSize)
}

// Len returns the current size in bytes.
func (m *Memory) Len() uint64 {
	return uint64(len(m.data))
}

// Grow appends n zero pages and returns the previous page count, or
// GrowFailed when the new size would exceed the maximum. Failure leaves the
// memory unchanged; it is reported in-band, never as a trap.
func (m *Memory) Grow(n uint32) uint32 {
	old := m.SizePages()
	if n == 0 {
		return old
	}
	if uint64(old)+uint64(n) > uint64(m.max) {
		return GrowFailed
	}
	m.data = append(m.data, make([]byte, uint64(n)*wasm.PageSize)...)
	return old
}

// CheckBounds traps unless [offset, offset+length) lies inside the memory.
// Arguments are 64-bit so overflowing effective addresses cannot wrap.
func (m *Memory) CheckBounds(offset, length uint64) {
	if offset+length > uint64(len(m.data)) {
		panic(errs.Trap(errs.KindOutOfBounds,
			"memory access at %d..%d exceeds %d bytes", offset, offset+length, len(m.data)))
	}
}

// Read copies len(buf) bytes starting at offset.
func (m *Memory) Read(offset uint64, buf []byte) {
	m.CheckBounds(offset, uint64(len(buf)))
	copy(buf, m.data[offset:])
}

// Write copies data into the memory starting at offset.
func (m *Memory) Write(offset uint64, data []byte) {
	m.CheckBounds(offset, uint64(len(data)))
	copy(m.data[offset:], data)
}

func (m *Memory) ReadU8(offset uint64) uint8 {
	m.CheckBounds(offset, 1)
	return m.data[offset]
}

func (m *Memory) ReadU16(offset uint64) uint16 {
	m.CheckBounds(offset, 2)
	return binary.LittleEndian.Uint16(m.data[offset:])
}

func (m *Memory) ReadU32(offset uint64) uint32 {
	m.CheckBounds(offset, 4)
	return binary.LittleEndian.Uint32(m.data[offset:])
}

func (m *Memory) ReadU64(offset uint64) uint64 {
	m.CheckBounds(offset, 8)
	return binary.LittleEndian.Uint64(m.data[offset:])
}

func (m *Memory) WriteU8(offset uint64, v uint8) {
	m.CheckBounds(offset, 1)
	m.data[offset] = v
}

func (m *Memory) WriteU16(offset uint64, v uint16) {
	m.CheckBounds(offset, 2)
	binary.LittleEndian.PutUint16(m.data[offset:], v)
}

func (m *Memory) WriteU32(offset uint64, v uint32) {
	m.CheckBounds(offset, 4)
	binary.LittleEndian.PutUint32(m.data[offset:], v)
}

func (m *Memory) WriteU64(offset uint64, v uint64) {
	m.CheckBounds(offset, 8)
	binary.LittleEndian.PutUint64(m.data[offset:], v)
}
