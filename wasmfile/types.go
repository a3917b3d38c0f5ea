package wasmfile

// SymbolsModule is the import-module name whose entries are fulfilled by
// the linker's symbols object. LLVM-style toolchains group their
// JS-provided imports under this name.
const SymbolsModule = "env"

// CallCtorsSymbol is the conventional export that runs C++-style static
// constructors after instantiation.
const CallCtorsSymbol = "__wasm_call_ctors"

// Binary format constants.
const (
	Magic   uint32 = 0x6d736100 // "\0asm"
	Version uint32 = 1
)

// Section IDs.
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
)

// ValType is a WebAssembly value type byte.
type ValType byte

const (
	I32       ValType = 0x7f
	I64       ValType = 0x7e
	F32       ValType = 0x7d
	F64       ValType = 0x7c
	V128      ValType = 0x7b
	FuncRef   ValType = 0x70
	ExternRef ValType = 0x6f
)

// String returns the WAT spelling of a value type.
func (v ValType) String() string {
	switch v {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	}
	return "unknown"
}

// Kind classifies imports and exports.
type Kind byte

const (
	KindFunc   Kind = 0
	KindTable  Kind = 1
	KindMemory Kind = 2
	KindGlobal Kind = 3
)

// String returns the WAT spelling of an import/export kind.
func (k Kind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	}
	return "unknown"
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Limits are memory or table size bounds in pages or entries.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// Matches reports whether a provided definition with limits l satisfies an
// import requiring limits want, per the wasm import-matching rules.
func (l Limits) Matches(want Limits) bool {
	if l.Min < want.Min {
		return false
	}
	if want.HasMax && (!l.HasMax || l.Max > want.Max) {
		return false
	}
	return true
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	Type    ValType
	Mutable bool
}

// Import is one entry of the import section.
type Import struct {
	Module  string
	Name    string
	Kind    Kind
	TypeIdx uint32      // Kind == KindFunc
	Table   *Limits     // Kind == KindTable
	Memory  *Limits     // Kind == KindMemory
	Global  *GlobalType // Kind == KindGlobal
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  Kind
	Index uint32
}

// Module is the decoded structural view of a wasm binary.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type indices of defined functions
	Memories []Limits
	Globals  []GlobalType
	Exports  []Export
	Start    *uint32
}

// File pairs a decoded module with the file name it was read from. The
// name is embedded in the generated output's fetch call, so it must be
// the on-disk base name.
type File struct {
	Name   string
	Module *Module
}

// New decodes data into a File.
func New(name string, data []byte) (*File, error) {
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return &File{Name: name, Module: m}, nil
}

// NeedsExternalCallCtors reports whether the generated loader must invoke
// the static-constructor export after instantiation: the export exists and
// no start section already runs it.
func (f *File) NeedsExternalCallCtors() bool {
	if f.Module.Start != nil {
		return false
	}
	for _, e := range f.Module.Exports {
		if e.Name == CallCtorsSymbol && e.Kind == KindFunc {
			return true
		}
	}
	return false
}

// SymbolImports returns the imports grouped under SymbolsModule, in
// declaration order.
func (f *File) SymbolImports() []Import {
	var out []Import
	for _, imp := range f.Module.Imports {
		if imp.Module == SymbolsModule {
			out = append(out, imp)
		}
	}
	return out
}

// ImportModules returns the distinct import-module names other than
// SymbolsModule, in order of first appearance.
func (f *File) ImportModules() []string {
	seen := map[string]bool{}
	var out []string
	for _, imp := range f.Module.Imports {
		if imp.Module == SymbolsModule || seen[imp.Module] {
			continue
		}
		seen[imp.Module] = true
		out = append(out, imp.Module)
	}
	return out
}

// TypeOf returns the signature for a type index.
func (f *File) TypeOf(idx uint32) (FuncType, bool) {
	if int(idx) >= len(f.Module.Types) {
		return FuncType{}, false
	}
	return f.Module.Types[idx], true
}
