package wasmfile

import (
	"context"
	"reflect"
	"testing"
)

// fixture builds an encoded module with one imported function under the
// symbols module, one imported memory, one defined+exported function, and
// an exported global.
func fixture() *Module {
	return &Module{
		Types: []FuncType{
			{},
			{Params: []ValType{I32, I32}},
		},
		Imports: []Import{
			{Module: SymbolsModule, Name: "bar", Kind: KindFunc, TypeIdx: 0},
			{Module: SymbolsModule, Name: "memory", Kind: KindMemory, Memory: &Limits{Min: 1}},
			{Module: "host", Name: "log", Kind: KindFunc, TypeIdx: 1},
		},
		Funcs:   []uint32{0},
		Globals: []GlobalType{{Type: I32, Mutable: true}},
		Exports: []Export{
			{Name: "foo", Kind: KindFunc, Index: 2},
			{Name: "counter", Kind: KindGlobal, Index: 0},
		},
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	m := fixture()
	data := Encode(m)

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if !reflect.DeepEqual(parsed.Types, m.Types) {
		t.Errorf("Types = %+v, want %+v", parsed.Types, m.Types)
	}
	if !reflect.DeepEqual(parsed.Imports, m.Imports) {
		t.Errorf("Imports = %+v, want %+v", parsed.Imports, m.Imports)
	}
	if !reflect.DeepEqual(parsed.Funcs, m.Funcs) {
		t.Errorf("Funcs = %v, want %v", parsed.Funcs, m.Funcs)
	}
	if !reflect.DeepEqual(parsed.Globals, m.Globals) {
		t.Errorf("Globals = %+v, want %+v", parsed.Globals, m.Globals)
	}
	if !reflect.DeepEqual(parsed.Exports, m.Exports) {
		t.Errorf("Exports = %+v, want %+v", parsed.Exports, m.Exports)
	}
	if parsed.Start != nil {
		t.Errorf("Start = %v, want nil", parsed.Start)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte{0x00, 0x61, 0x73, 0x6e, 0x01, 0x00, 0x00, 0x00}},
		{"bad version", []byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00}},
		{"truncated section", []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x10}},
		{"out of order sections", append(
			// header, then export section followed by type section
			[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
			0x07, 0x01, 0x00, // empty export section
			0x01, 0x01, 0x00, // empty type section
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}
}

func TestFileHelpers(t *testing.T) {
	f := &File{Name: "app.wasm", Module: fixture()}

	syms := f.SymbolImports()
	if len(syms) != 2 || syms[0].Name != "bar" || syms[1].Name != "memory" {
		t.Errorf("SymbolImports = %+v", syms)
	}

	mods := f.ImportModules()
	if !reflect.DeepEqual(mods, []string{"host"}) {
		t.Errorf("ImportModules = %v, want [host]", mods)
	}

	if f.NeedsExternalCallCtors() {
		t.Error("NeedsExternalCallCtors = true without a ctors export")
	}

	f.Module.Exports = append(f.Module.Exports, Export{Name: CallCtorsSymbol, Kind: KindFunc, Index: 3})
	if !f.NeedsExternalCallCtors() {
		t.Error("NeedsExternalCallCtors = false with a ctors export and no start section")
	}

	start := uint32(2)
	f.Module.Start = &start
	if f.NeedsExternalCallCtors() {
		t.Error("NeedsExternalCallCtors = true despite a start section")
	}
}

func TestLimitsMatches(t *testing.T) {
	tests := []struct {
		name string
		have Limits
		want Limits
		ok   bool
	}{
		{"exact", Limits{Min: 1}, Limits{Min: 1}, true},
		{"larger min", Limits{Min: 2}, Limits{Min: 1}, true},
		{"smaller min", Limits{Min: 1}, Limits{Min: 2}, false},
		{"import wants max, have none", Limits{Min: 1}, Limits{Min: 1, Max: 4, HasMax: true}, false},
		{"max within bound", Limits{Min: 1, Max: 2, HasMax: true}, Limits{Min: 1, Max: 4, HasMax: true}, true},
		{"max above bound", Limits{Min: 1, Max: 8, HasMax: true}, Limits{Min: 1, Max: 4, HasMax: true}, false},
		{"have max, import unbounded", Limits{Min: 1, Max: 2, HasMax: true}, Limits{Min: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.have.Matches(tt.want); got != tt.ok {
				t.Errorf("Matches = %v, want %v", got, tt.ok)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	if err := Validate(ctx, Encode(fixture())); err != nil {
		t.Errorf("Validate rejected a well-formed module: %v", err)
	}

	if err := Validate(ctx, []byte{0x00, 0x61, 0x73, 0x6d}); err == nil {
		t.Error("Validate accepted a truncated module")
	}
}
