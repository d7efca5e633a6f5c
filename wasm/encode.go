package wasm

import (
	"bytes"
	"encoding/binary"
)

// Encode serialises the module back to the binary format. Non-custom
// sections are emitted in tag order and custom sections after them; empty
// sections are omitted. The inverse of
// ParseModule for modules within this profile.
func (m *Module) Encode() []byte {
	var buf bytes.Buffer

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:], Magic)
	binary.LittleEndian.PutUint32(header[4:], Version)
	buf.Write(header[:])

	if len(m.Types) > 0 {
		writeSection(&buf, SectionType, m.encodeTypeSection())
	}
	if len(m.Imports) > 0 {
		writeSection(&buf, SectionImport, m.encodeImportSection())
	}
	if len(m.Funcs) > 0 {
		writeSection(&buf, SectionFunction, m.encodeFunctionSection())
	}
	if len(m.Tables) > 0 {
		writeSection(&buf, SectionTable, m.encodeTableSection())
	}
	if len(m.Memories) > 0 {
		writeSection(&buf, SectionMemory, m.encodeMemorySection())
	}
	if len(m.Globals) > 0 {
		writeSection(&buf, SectionGlobal, m.encodeGlobalSection())
	}
	if len(m.Exports) > 0 {
		writeSection(&buf, SectionExport, m.encodeExportSection())
	}
	if m.Start != nil {
		var b bytes.Buffer
		WriteLEB128u(&b, *m.Start)
		writeSection(&buf, SectionStart, b.Bytes())
	}
	if len(m.Elements) > 0 {
		writeSection(&buf, SectionElement, m.encodeElementSection())
	}
	if len(m.Code) > 0 {
		writeSection(&buf, SectionCode, m.encodeCodeSection())
	}
	if len(m.Data) > 0 {
		writeSection(&buf, SectionData, m.encodeDataSection())
	}
	for _, cs := range m.CustomSections {
		var b bytes.Buffer
		writeName(&b, cs.Name)
		b.Write(cs.Data)
		writeSection(&buf, SectionCustom, b.Bytes())
	}

	return buf.Bytes()
}

func writeSection(buf *bytes.Buffer, id byte, payload []byte) {
	buf.WriteByte(id)
	WriteLEB128u(buf, uint32(len(payload)))
	buf.Write(payload)
}

func writeName(buf *bytes.Buffer, name string) {
	WriteLEB128u(buf, uint32(len(name)))
	buf.WriteString(name)
}

func writeLimits(buf *bytes.Buffer, l Limits) {
	if l.Max != nil {
		buf.WriteByte(LimitsMinMax)
		WriteLEB128u(buf, l.Min)
		WriteLEB128u(buf, *l.Max)
	} else {
		buf.WriteByte(LimitsMin)
		WriteLEB128u(buf, l.Min)
	}
}

func writeGlobalType(buf *bytes.Buffer, gt GlobalType) {
	buf.WriteByte(byte(gt.Type))
	if gt.Mutable {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func (m *Module) encodeTypeSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Types)))
	for _, ft := range m.Types {
		buf.WriteByte(0x60)
		WriteLEB128u(&buf, uint32(len(ft.Params)))
		for _, p := range ft.Params {
			buf.WriteByte(byte(p))
		}
		WriteLEB128u(&buf, uint32(len(ft.Results)))
		for _, r := range ft.Results {
			buf.WriteByte(byte(r))
		}
	}
	return buf.Bytes()
}

func (m *Module) encodeImportSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		writeName(&buf, imp.Module)
		writeName(&buf, imp.Name)
		buf.WriteByte(imp.Desc.Kind)
		switch imp.Desc.Kind {
		case KindFunc:
			WriteLEB128u(&buf, imp.Desc.Func)
		case KindTable:
			buf.WriteByte(byte(imp.Desc.Table.Elem))
			writeLimits(&buf, imp.Desc.Table.Limits)
		case KindMemory:
			writeLimits(&buf, imp.Desc.Memory.Limits)
		case KindGlobal:
			writeGlobalType(&buf, imp.Desc.Global)
		}
	}
	return buf.Bytes()
}

func (m *Module) encodeFunctionSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Funcs)))
	for _, typeIdx := range m.Funcs {
		WriteLEB128u(&buf, typeIdx)
	}
	return buf.Bytes()
}

func (m *Module) encodeTableSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Tables)))
	for _, t := range m.Tables {
		buf.WriteByte(byte(t.Elem))
		writeLimits(&buf, t.Limits)
	}
	return buf.Bytes()
}

func (m *Module) encodeMemorySection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Memories)))
	for _, mem := range m.Memories {
		writeLimits(&buf, mem.Limits)
	}
	return buf.Bytes()
}

func (m *Module) encodeGlobalSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		writeGlobalType(&buf, g.Type)
		buf.Write(EncodeExpr(g.Init))
	}
	return buf.Bytes()
}

func (m *Module) encodeExportSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Exports)))
	for _, exp := range m.Exports {
		writeName(&buf, exp.Name)
		buf.WriteByte(exp.Kind)
		WriteLEB128u(&buf, exp.Index)
	}
	return buf.Bytes()
}

func (m *Module) encodeElementSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Elements)))
	for _, elem := range m.Elements {
		WriteLEB128u(&buf, elem.TableIdx)
		buf.Write(EncodeExpr(elem.Offset))
		WriteLEB128u(&buf, uint32(len(elem.Init)))
		for _, funcIdx := range elem.Init {
			WriteLEB128u(&buf, funcIdx)
		}
	}
	return buf.Bytes()
}

func (m *Module) encodeCodeSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Code)))
	for _, body := range m.Code {
		var b bytes.Buffer
		WriteLEB128u(&b, uint32(len(body.Locals)))
		for _, g := range body.Locals {
			WriteLEB128u(&b, g.Count)
			b.WriteByte(byte(g.Type))
		}
		b.Write(EncodeExpr(body.Body))

		WriteLEB128u(&buf, uint32(b.Len()))
		buf.Write(b.Bytes())
	}
	return buf.Bytes()
}

func (m *Module) encodeDataSection() []byte {
	var buf bytes.Buffer
	WriteLEB128u(&buf, uint32(len(m.Data)))
	for _, seg := range m.Data {
		WriteLEB128u(&buf, seg.MemIdx)
		buf.Write(EncodeExpr(seg.Offset))
		WriteLEB128u(&buf, uint32(len(seg.Init)))
		buf.Write(seg.Init)
	}
	return buf.Bytes()
}
