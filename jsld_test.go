package jsld

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wasmlink/jsld/errors"
	"github.com/wasmlink/jsld/js"
	"github.com/wasmlink/jsld/linker"
	"github.com/wasmlink/jsld/wasmfile"
)

// writeFixture encodes a wasm module and the given JS sources into a temp
// directory and returns ready-to-use Options.
func writeFixture(t *testing.T, mod *wasmfile.Module, symbols, exports map[string]string) (Options, string) {
	t.Helper()
	dir := t.TempDir()

	wasmPath := filepath.Join(dir, "app.wasm")
	if err := os.WriteFile(wasmPath, wasmfile.Encode(mod), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := Options{
		WasmPath: wasmPath,
		Output:   filepath.Join(dir, "app.js"),
	}
	for name, src := range symbols {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		opts.SymbolsFiles = append(opts.SymbolsFiles, path)
	}
	for name, src := range exports {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		opts.ExportsFiles = append(opts.ExportsFiles, path)
	}
	return opts, dir
}

func TestLinkEmptyModule(t *testing.T) {
	opts, _ := writeFixture(t, &wasmfile.Module{}, nil, nil)

	result, err := Link(context.Background(), opts)
	if err != nil {
		t.Fatalf("Link error: %v", err)
	}

	if result.ModuleName != "app" {
		t.Errorf("ModuleName = %q, want app", result.ModuleName)
	}

	written, err := os.ReadFile(opts.Output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if string(written) != result.Source {
		t.Error("written output differs from Result.Source")
	}
	if !strings.HasPrefix(result.Source, "\"use strict\";") {
		t.Error("output does not begin with the strict directive")
	}
	if _, err := js.Parse("app.js", result.Source); err != nil {
		t.Errorf("output does not parse: %v", err)
	}
}

func TestLinkFullRound(t *testing.T) {
	mod := &wasmfile.Module{
		Types: []wasmfile.FuncType{{}},
		Imports: []wasmfile.Import{
			{Module: wasmfile.SymbolsModule, Name: "notify", Kind: wasmfile.KindFunc, TypeIdx: 0},
			{Module: wasmfile.SymbolsModule, Name: "memory", Kind: wasmfile.KindMemory, Memory: &wasmfile.Limits{Min: 1}},
		},
		Funcs: []uint32{0, 0},
		Exports: []wasmfile.Export{
			{Name: "step", Kind: wasmfile.KindFunc, Index: 1},
			{Name: wasmfile.CallCtorsSymbol, Kind: wasmfile.KindFunc, Index: 2},
		},
	}
	opts, _ := writeFixture(t, mod,
		map[string]string{
			"runtime_symbols.js": `import { step } from "__symbols";
export function notify(code) { return step(code); }`,
		},
		map[string]string{
			"api_exports.js": `import { step as run } from "__symbols";
export { run };`,
		})
	opts.Memories = []linker.MemoryDefinition{
		{Name: "memory", Limits: wasmfile.Limits{Min: 1}},
	}

	result, err := Link(context.Background(), opts)
	if err != nil {
		t.Fatalf("Link error: %v", err)
	}

	src := strings.Join(strings.Fields(result.Source), " ")
	for _, want := range []string{
		`"env":`,
		"new WebAssembly.Memory({ initial: 1 })",
		`wrapExport("step")`,
		`["__wasm_call_ctors"]();`,
		`__exports["run"] = run;`,
		"return Object.freeze(__exports);",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("output missing %q", want)
		}
	}

	var names []string
	for _, s := range result.Symbols {
		names = append(names, s.Name)
	}
	for _, want := range []string{"memory", "notify", "step"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("symbol %q missing from result (have %v)", want, names)
		}
	}
}

func TestLinkErrors(t *testing.T) {
	t.Run("unresolved symbol", func(t *testing.T) {
		mod := &wasmfile.Module{
			Types: []wasmfile.FuncType{{}},
			Imports: []wasmfile.Import{
				{Module: wasmfile.SymbolsModule, Name: "missing", Kind: wasmfile.KindFunc, TypeIdx: 0},
			},
		}
		opts, _ := writeFixture(t, mod, nil, nil)
		_, err := Link(context.Background(), opts)
		if !errors.Is(err, errors.KindUnresolvedSymbol) {
			t.Errorf("error = %v, want unresolved_symbol", err)
		}
	})

	t.Run("duplicate symbol", func(t *testing.T) {
		mod := &wasmfile.Module{
			Types:   []wasmfile.FuncType{{}},
			Funcs:   []uint32{0},
			Exports: []wasmfile.Export{{Name: "f", Kind: wasmfile.KindFunc, Index: 0}},
		}
		opts, _ := writeFixture(t, mod, map[string]string{
			"dup_symbols.js": "export function f() {}",
		}, nil)
		_, err := Link(context.Background(), opts)
		if !errors.Is(err, errors.KindDuplicateSymbol) {
			t.Errorf("error = %v, want duplicate_symbol", err)
		}
	})

	t.Run("unbound variable", func(t *testing.T) {
		opts, _ := writeFixture(t, &wasmfile.Module{}, map[string]string{
			"leak_symbols.js": "export function f() { return window; }",
		}, nil)
		_, err := Link(context.Background(), opts)
		if !errors.Is(err, errors.KindUnboundVariable) {
			t.Errorf("error = %v, want unbound_variable", err)
		}
		if err != nil && !strings.Contains(err.Error(), "window") {
			t.Errorf("error %q does not name window", err)
		}
	})

	t.Run("invalid memory limits", func(t *testing.T) {
		opts, _ := writeFixture(t, &wasmfile.Module{}, nil, nil)
		opts.Memories = []linker.MemoryDefinition{
			{Name: "m", Limits: wasmfile.Limits{Min: 4, Max: 2, HasMax: true}},
		}
		_, err := Link(context.Background(), opts)
		if !errors.Is(err, errors.KindInvalidInput) {
			t.Errorf("error = %v, want invalid_input", err)
		}
	})

	t.Run("memory import without definition has kind mismatch", func(t *testing.T) {
		mod := &wasmfile.Module{
			Imports: []wasmfile.Import{
				{Module: wasmfile.SymbolsModule, Name: "buf", Kind: wasmfile.KindMemory, Memory: &wasmfile.Limits{Min: 1}},
			},
		}
		opts, _ := writeFixture(t, mod, map[string]string{
			"buf_symbols.js": "export const buf = 1;",
		}, nil)
		_, err := Link(context.Background(), opts)
		if !errors.Is(err, errors.KindWasmShape) {
			t.Errorf("error = %v, want wasm_shape", err)
		}
	})

	t.Run("missing wasm file", func(t *testing.T) {
		_, err := Link(context.Background(), Options{WasmPath: "no-such.wasm", Output: "out.js"})
		if !errors.Is(err, errors.KindIO) {
			t.Errorf("error = %v, want io", err)
		}
	})

	t.Run("malformed wasm", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.wasm")
		if err := os.WriteFile(path, []byte("not wasm"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Link(context.Background(), Options{WasmPath: path, Output: filepath.Join(dir, "out.js")})
		if !errors.Is(err, errors.KindWasmShape) {
			t.Errorf("error = %v, want wasm_shape", err)
		}
	})
}

func TestLinkExternsFile(t *testing.T) {
	opts, dir := writeFixture(t, &wasmfile.Module{}, map[string]string{
		"dom_symbols.js": "export function f() { return document.title; }",
	}, nil)

	// Without externs the reference to document fails the link.
	if _, err := Link(context.Background(), opts); !errors.Is(err, errors.KindUnboundVariable) {
		t.Fatalf("error = %v, want unbound_variable", err)
	}

	externs := filepath.Join(dir, "externs.js")
	if err := os.WriteFile(externs, []byte("var document;"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts.ExternsFile = externs
	if _, err := Link(context.Background(), opts); err != nil {
		t.Errorf("Link with externs failed: %v", err)
	}
}

func TestDefaultModuleName(t *testing.T) {
	tests := []struct {
		output string
		wasm   string
		want   string
	}{
		{"dist/app.js", "in.wasm", "app"},
		{"", "module.wasm", "module"},
		{"bundle.umd.js", "in.wasm", "bundle.umd"},
	}
	for _, tt := range tests {
		got := defaultModuleName(Options{Output: tt.output, WasmPath: tt.wasm})
		if got != tt.want {
			t.Errorf("defaultModuleName(%q, %q) = %q, want %q", tt.output, tt.wasm, got, tt.want)
		}
	}
}
