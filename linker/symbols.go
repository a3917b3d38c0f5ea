package linker

import (
	"sort"

	"github.com/wasmlink/jsld/errors"
	"github.com/wasmlink/jsld/wasmfile"
)

// SymbolKind classifies a symbol crossing the JS/wasm boundary.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolValue
	SymbolMemory
)

// String returns the kind's display name.
func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolValue:
		return "value"
	case SymbolMemory:
		return "memory"
	}
	return "unknown"
}

// Origin records where a symbol's single definition lives.
type Origin int

const (
	OriginSymbolsFile Origin = iota
	OriginWasmExport
	OriginMemory
)

// String returns the origin's display name.
func (o Origin) String() string {
	switch o {
	case OriginSymbolsFile:
		return "symbols file"
	case OriginWasmExport:
		return "wasm export"
	case OriginMemory:
		return "memory definition"
	}
	return "unknown"
}

// Symbol is a named binding crossing the JS/wasm boundary.
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Origin Origin
	Where  string // file or input that defined it, for diagnostics
}

// MemoryDefinition declares a WebAssembly.Memory the generated module
// constructs at runtime and supplies to the wasm instance.
type MemoryDefinition struct {
	Name   string
	Limits wasmfile.Limits
}

// SymbolTable is the per-link registry of symbols. Every symbol imported
// by any input must have exactly one definition across all inputs;
// Seal enforces resolution after all inputs are registered.
type SymbolTable struct {
	symbols    map[string]*Symbol
	order      []string
	referenced map[string]bool
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		symbols:    map[string]*Symbol{},
		referenced: map[string]bool{},
	}
}

// Define registers a symbol definition. A second definition of the same
// name is a duplicate-symbol error.
func (t *SymbolTable) Define(name string, kind SymbolKind, origin Origin, where string) error {
	if existing, ok := t.symbols[name]; ok {
		return errors.DuplicateSymbol(name, existing.Where)
	}
	t.symbols[name] = &Symbol{Name: name, Kind: kind, Origin: origin, Where: where}
	t.order = append(t.order, name)
	return nil
}

// Reference records that some input imports the named symbol.
func (t *SymbolTable) Reference(name string) {
	t.referenced[name] = true
}

// Get returns the symbol with the given name, or nil.
func (t *SymbolTable) Get(name string) *Symbol {
	return t.symbols[name]
}

// All returns the defined symbols in definition order.
func (t *SymbolTable) All() []*Symbol {
	out := make([]*Symbol, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.symbols[name])
	}
	return out
}

// Seal verifies that every referenced symbol has a definition.
func (t *SymbolTable) Seal() error {
	var missing []string
	for name := range t.referenced {
		if _, ok := t.symbols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.UnresolvedSymbols(missing)
	}
	return nil
}
