package wasm

import (
	"bytes"
	enc "encoding/binary"
	"io"
	"math"

	"github.com/wippyai/wasm-interp/wasm/internal/binary"
)

// LEB128 encoding/decoding utilities for the WebAssembly binary format.
// The decoders are thin wrappers over the single implementation in
// internal/binary, shared with the section reader.

// ErrOverflow is returned when a LEB128 value exceeds the maximum bit width.
var ErrOverflow = binary.ErrOverflow

// ReadLEB128u reads an unsigned LEB128 value
func ReadLEB128u(r io.ByteReader) (uint32, error) {
	return binary.ReadU32(r)
}

// ReadLEB128u64 reads an unsigned 64-bit LEB128 value
func ReadLEB128u64(r io.ByteReader) (uint64, error) {
	return binary.ReadU64(r)
}

// ReadLEB128s reads a signed LEB128 value (32-bit)
func ReadLEB128s(r io.ByteReader) (int32, error) {
	return binary.ReadS32(r)
}

// ReadLEB128s64 reads a signed LEB128 value (64-bit)
func ReadLEB128s64(r io.ByteReader) (int64, error) {
	return binary.ReadS64(r)
}

// ReadFloat32 reads a little-endian IEEE-754 single
func ReadFloat32(r io.ByteReader) (float32, error) {
	var buf [4]byte
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}
	return math.Float32frombits(enc.LittleEndian.Uint32(buf[:])), nil
}

// ReadFloat64 reads a little-endian IEEE-754 double
func ReadFloat64(r io.ByteReader) (float64, error) {
	var buf [8]byte
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}
	return math.Float64frombits(enc.LittleEndian.Uint64(buf[:])), nil
}

// WriteLEB128u writes an unsigned LEB128 value
func WriteLEB128u(buf *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// WriteLEB128u64 writes an unsigned 64-bit LEB128 value
func WriteLEB128u64(buf *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// WriteLEB128s writes a signed LEB128 value (32-bit)
func WriteLEB128s(buf *bytes.Buffer, v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

// WriteLEB128s64 writes a signed LEB128 value (64-bit)
func WriteLEB128s64(buf *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

// WriteFloat32 writes a little-endian IEEE-754 single
func WriteFloat32(buf *bytes.Buffer, v float32) {
	var b [4]byte
	enc.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	buf.Write(b[:])
}

// WriteFloat64 writes a little-endian IEEE-754 double
func WriteFloat64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	enc.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}
