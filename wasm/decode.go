package wasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/wasm-interp/wasm/internal/binary"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// ParseModule parses a WebAssembly binary module
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(bytes.NewReader(data))

	// Check magic number
	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	// Check version
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}

	// Non-custom sections must appear in strictly ascending tag order.
	var lastSection byte

	for {
		sectionID, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, r.WrapError("section header", err)
		}

		if sectionID != SectionCustom {
			if sectionID <= lastSection {
				return nil, fmt.Errorf("section %d appears out of order", sectionID)
			}
			lastSection = sectionID
		}

		sectionSize, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}

		sectionData, err := r.ReadBytes(int(sectionSize))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}

		sr := binary.NewReader(bytes.NewReader(sectionData))

		switch sectionID {
		case SectionCustom:
			if err := parseCustomSection(sr, m); err != nil {
				return nil, fmt.Errorf("custom section: %w", err)
			}
		case SectionType:
			if err := parseTypeSection(sr, m); err != nil {
				return nil, fmt.Errorf("type section: %w", err)
			}
		case SectionImport:
			if err := parseImportSection(sr, m); err != nil {
				return nil, fmt.Errorf("import section: %w", err)
			}
		case SectionFunction:
			if err := parseFunctionSection(sr, m); err != nil {
				return nil, fmt.Errorf("function section: %w", err)
			}
		case SectionTable:
			if err := parseTableSection(sr, m); err != nil {
				return nil, fmt.Errorf("table section: %w", err)
			}
		case SectionMemory:
			if err := parseMemorySection(sr, m); err != nil {
				return nil, fmt.Errorf("memory section: %w", err)
			}
		case SectionGlobal:
			if err := parseGlobalSection(sr, m); err != nil {
				return nil, fmt.Errorf("global section: %w", err)
			}
		case SectionExport:
			if err := parseExportSection(sr, m); err != nil {
				return nil, fmt.Errorf("export section: %w", err)
			}
		case SectionStart:
			if err := parseStartSection(sr, m); err != nil {
				return nil, fmt.Errorf("start section: %w", err)
			}
		case SectionElement:
			if err := parseElementSection(sr, m); err != nil {
				return nil, fmt.Errorf("element section: %w", err)
			}
		case SectionCode:
			if err := parseCodeSection(sr, m); err != nil {
				return nil, fmt.Errorf("code section: %w", err)
			}
		case SectionData:
			if err := parseDataSection(sr, m); err != nil {
				return nil, fmt.Errorf("data section: %w", err)
			}
		default:
			return nil, fmt.Errorf("unknown section ID: 0x%02x", sectionID)
		}

		if n := sr.Len(); n > 0 {
			return nil, fmt.Errorf("section %d: size mismatch, %d trailing bytes", sectionID, n)
		}
	}

	return m, nil
}

func parseCustomSection(r *binary.Reader, m *Module) error {
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	rest, err := r.ReadRemaining()
	if err != nil {
		return err
	}
	m.CustomSections = append(m.CustomSections, CustomSection{
		Name: name,
		Data: rest,
	})
	return nil
}

func parseValType(r *binary.Reader) (ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch ValType(b) {
	case ValI32, ValI64, ValF32, ValF64:
		return ValType(b), nil
	}
	return 0, fmt.Errorf("invalid value type 0x%02x", b)
}

func parseFuncType(r *binary.Reader) (FuncType, error) {
	form, err := r.ReadByte()
	if err != nil {
		return FuncType{}, err
	}
	if form != 0x60 {
		return FuncType{}, fmt.Errorf("invalid function type form 0x%02x", form)
	}

	var ft FuncType
	paramCount, err := r.ReadU32()
	if err != nil {
		return FuncType{}, err
	}
	for i := uint32(0); i < paramCount; i++ {
		vt, err := parseValType(r)
		if err != nil {
			return FuncType{}, err
		}
		ft.Params = append(ft.Params, vt)
	}

	resultCount, err := r.ReadU32()
	if err != nil {
		return FuncType{}, err
	}
	for i := uint32(0); i < resultCount; i++ {
		vt, err := parseValType(r)
		if err != nil {
			return FuncType{}, err
		}
		ft.Results = append(ft.Results, vt)
	}
	return ft, nil
}

func parseTypeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		ft, err := parseFuncType(r)
		if err != nil {
			return fmt.Errorf("type %d: %w", i, err)
		}
		m.Types = append(m.Types, ft)
	}
	return nil
}

func parseLimits(r *binary.Reader) (Limits, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	var l Limits
	l.Min, err = r.ReadU32()
	if err != nil {
		return Limits{}, err
	}
	switch flag {
	case LimitsMin:
	case LimitsMinMax:
		max, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		l.Max = &max
	default:
		return Limits{}, fmt.Errorf("invalid limits flag 0x%02x", flag)
	}
	return l, nil
}

func parseTableType(r *binary.Reader) (TableType, error) {
	elem, err := r.ReadByte()
	if err != nil {
		return TableType{}, err
	}
	if ValType(elem) != ValFuncRef {
		return TableType{}, fmt.Errorf("invalid table element type 0x%02x", elem)
	}
	limits, err := parseLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{Elem: ValType(elem), Limits: limits}, nil
}

func parseGlobalType(r *binary.Reader) (GlobalType, error) {
	vt, err := parseValType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, fmt.Errorf("invalid mutability flag 0x%02x", mut)
	}
	return GlobalType{Type: vt, Mutable: mut == 1}, nil
}

func parseImportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Imports = make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.ReadName()
		if err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		name, err := r.ReadName()
		if err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		kind, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}

		imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}
		switch kind {
		case KindFunc:
			imp.Desc.Func, err = r.ReadU32()
		case KindTable:
			imp.Desc.Table, err = parseTableType(r)
		case KindMemory:
			var limits Limits
			limits, err = parseLimits(r)
			imp.Desc.Memory = MemoryType{Limits: limits}
		case KindGlobal:
			imp.Desc.Global, err = parseGlobalType(r)
		default:
			return fmt.Errorf("import %d: invalid descriptor tag 0x%02x", i, kind)
		}
		if err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		m.Imports = append(m.Imports, imp)
	}
	return nil
}

func parseFunctionSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		typeIdx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Funcs = append(m.Funcs, typeIdx)
	}
	return nil
}

func parseTableSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		tt, err := parseTableType(r)
		if err != nil {
			return fmt.Errorf("table %d: %w", i, err)
		}
		m.Tables = append(m.Tables, tt)
	}
	return nil
}

func parseMemorySection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		limits, err := parseLimits(r)
		if err != nil {
			return fmt.Errorf("memory %d: %w", i, err)
		}
		m.Memories = append(m.Memories, MemoryType{Limits: limits})
	}
	return nil
}

func parseGlobalSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		gt, err := parseGlobalType(r)
		if err != nil {
			return fmt.Errorf("global %d: %w", i, err)
		}
		init, err := DecodeExpr(r)
		if err != nil {
			return fmt.Errorf("global %d init: %w", i, err)
		}
		m.Globals = append(m.Globals, Global{Type: gt, Init: init})
	}
	return nil
}

func parseExportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Exports = make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		kind, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		if kind > KindGlobal {
			return fmt.Errorf("export %d: invalid descriptor tag 0x%02x", i, kind)
		}
		index, err := r.ReadU32()
		if err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Index: index})
	}
	return nil
}

func parseStartSection(r *binary.Reader, m *Module) error {
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Start = &idx
	return nil
}

func parseElementSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		tableIdx, err := r.ReadU32()
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		offset, err := DecodeExpr(r)
		if err != nil {
			return fmt.Errorf("element %d offset: %w", i, err)
		}
		n, err := r.ReadU32()
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		init := make([]uint32, n)
		for j := uint32(0); j < n; j++ {
			init[j], err = r.ReadU32()
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		m.Elements = append(m.Elements, Element{TableIdx: tableIdx, Offset: offset, Init: init})
	}
	return nil
}

func parseCodeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Code = make([]FuncBody, 0, count)
	for i := uint32(0); i < count; i++ {
		bodySize, err := r.ReadU32()
		if err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}
		bodyData, err := r.ReadBytes(int(bodySize))
		if err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}

		br := binary.NewReader(bytes.NewReader(bodyData))
		localGroups, err := br.ReadU32()
		if err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}
		var body FuncBody
		for j := uint32(0); j < localGroups; j++ {
			n, err := br.ReadU32()
			if err != nil {
				return fmt.Errorf("code %d locals: %w", i, err)
			}
			vt, err := parseValType(br)
			if err != nil {
				return fmt.Errorf("code %d locals: %w", i, err)
			}
			body.Locals = append(body.Locals, LocalGroup{Count: n, Type: vt})
		}
		body.Body, err = DecodeExpr(br)
		if err != nil {
			return fmt.Errorf("code %d body: %w", i, err)
		}
		if n := br.Len(); n > 0 {
			return fmt.Errorf("code %d: body size mismatch, %d trailing bytes", i, n)
		}
		m.Code = append(m.Code, body)
	}
	return nil
}

func parseDataSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		memIdx, err := r.ReadU32()
		if err != nil {
			return fmt.Errorf("data %d: %w", i, err)
		}
		offset, err := DecodeExpr(r)
		if err != nil {
			return fmt.Errorf("data %d offset: %w", i, err)
		}
		n, err := r.ReadU32()
		if err != nil {
			return fmt.Errorf("data %d: %w", i, err)
		}
		init, err := r.ReadBytes(int(n))
		if err != nil {
			return fmt.Errorf("data %d: %w", i, err)
		}
		m.Data = append(m.Data, DataSegment{MemIdx: memIdx, Offset: offset, Init: init})
	}
	return nil
}
