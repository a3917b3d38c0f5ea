package linker

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	lderrors "github.com/wasmlink/jsld/errors"
	"github.com/wasmlink/jsld/js"
	"github.com/wasmlink/jsld/wasmfile"
)

// The deterministic mangler used by these tests suffixes every name with
// 000000000000.
const sfx = "_000000000000"

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// runGenerate drives a full generation the way the link driver does,
// with a deterministic mangler.
func runGenerate(t *testing.T, symbolsSrcs, exportsSrcs []string, mod *wasmfile.Module, memories []MemoryDefinition, extraExterns ...string) (string, error) {
	t.Helper()

	mangler := newManglerWithRand(zeroReader{})
	symbols := NewSymbolTable()
	reqs := NewRequirementsTable(mangler)

	for _, md := range memories {
		if err := symbols.Define(md.Name, SymbolMemory, OriginMemory, "memory definition"); err != nil {
			t.Fatal(err)
		}
	}

	var symbolsFiles []*SymbolsFile
	for i, src := range symbolsSrcs {
		f, err := ParseSymbolsFile(fmt.Sprintf("s%d.js", i), src, symbols, reqs)
		if err != nil {
			t.Fatal(err)
		}
		symbolsFiles = append(symbolsFiles, f)
	}
	var exportsFiles []*ExportsFile
	for i, src := range exportsSrcs {
		f, err := ParseExportsFile(fmt.Sprintf("e%d.js", i), src, symbols, reqs)
		if err != nil {
			t.Fatal(err)
		}
		exportsFiles = append(exportsFiles, f)
	}

	if mod == nil {
		mod = &wasmfile.Module{}
	}
	wf := &wasmfile.File{Name: "app.wasm", Module: mod}
	for _, e := range mod.Exports {
		if e.Name == wasmfile.CallCtorsSymbol {
			continue
		}
		kind := SymbolValue
		switch e.Kind {
		case wasmfile.KindFunc:
			kind = SymbolFunction
		case wasmfile.KindMemory:
			kind = SymbolMemory
		}
		if err := symbols.Define(e.Name, kind, OriginWasmExport, wf.Name); err != nil {
			t.Fatal(err)
		}
	}
	for _, imp := range wf.SymbolImports() {
		symbols.Reference(imp.Name)
	}
	for _, m := range wf.ImportModules() {
		reqs.Lookup(m)
	}
	if err := symbols.Seal(); err != nil {
		t.Fatal(err)
	}

	externs := DefaultExterns()
	for _, name := range extraExterns {
		externs[name] = true
	}

	gen := NewGenerator(GeneratorConfig{
		SymbolsFiles: symbolsFiles,
		ExportsFiles: exportsFiles,
		WasmFile:     wf,
		Memories:     memories,
		ModuleName:   "app",
		Externs:      externs,
		Symbols:      symbols,
		Requirements: reqs,
		Mangler:      mangler,
	})
	prog, err := gen.Generate()
	if err != nil {
		return "", err
	}
	return js.Print(prog), nil
}

func mustGenerate(t *testing.T, symbolsSrcs, exportsSrcs []string, mod *wasmfile.Module, memories []MemoryDefinition) string {
	t.Helper()
	src, err := runGenerate(t, symbolsSrcs, exportsSrcs, mod, memories)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	// Whatever the generator emits must re-parse.
	if _, err := js.Parse("generated.js", src); err != nil {
		t.Fatalf("generated module does not parse: %v\n%s", err, src)
	}
	return src
}

func TestGenerateEmptyLink(t *testing.T) {
	src := mustGenerate(t, nil, nil, nil, nil)

	if !strings.HasPrefix(src, "\"use strict\";") {
		t.Errorf("output does not begin with the strict directive:\n%s", src[:40])
	}

	n := normalize(src)
	for _, want := range []string{
		"const __exports = {};",
		"const __symbols" + sfx + " = {};",
		`WebAssembly.instantiateStreaming(__fetcher` + sfx + `("app.wasm"), { "env": __symbols` + sfx + ` })`,
		"return Object.freeze(__exports);",
		`define("app", [], factory)`,
		"module.exports = factory();",
		`root["app"] = factory();`,
	} {
		if !strings.Contains(n, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestGenerateMemoryPrePopulation(t *testing.T) {
	mod := &wasmfile.Module{
		Imports: []wasmfile.Import{{
			Module: wasmfile.SymbolsModule,
			Name:   "memory",
			Kind:   wasmfile.KindMemory,
			Memory: &wasmfile.Limits{Min: 1},
		}},
	}
	src := mustGenerate(t, nil, nil, mod, []MemoryDefinition{
		{Name: "memory", Limits: wasmfile.Limits{Min: 1}},
	})
	n := normalize(src)

	assignment := `__symbols` + sfx + `["memory"] = new WebAssembly.Memory({ initial: 1 });`
	if !strings.Contains(n, assignment) {
		t.Fatalf("output missing %q in:\n%s", assignment, n)
	}
	if strings.Contains(n, "maximum") {
		t.Error("memory without max emitted a maximum key")
	}
	if strings.Index(n, assignment) > strings.Index(n, "instantiateStreaming") {
		t.Error("memory assignment does not precede instantiateStreaming")
	}
}

func TestGenerateMemoryMaximum(t *testing.T) {
	src := mustGenerate(t, nil, nil, nil, []MemoryDefinition{
		{Name: "heap", Limits: wasmfile.Limits{Min: 2, Max: 16, HasMax: true}},
	})
	n := normalize(src)
	want := `__symbols` + sfx + `["heap"] = new WebAssembly.Memory({ initial: 2, maximum: 16 });`
	if !strings.Contains(n, want) {
		t.Errorf("output missing %q", want)
	}
}

func TestGenerateCircularBindings(t *testing.T) {
	mod := &wasmfile.Module{
		Types: []wasmfile.FuncType{{}},
		Imports: []wasmfile.Import{{
			Module: wasmfile.SymbolsModule, Name: "bar", Kind: wasmfile.KindFunc,
		}},
		Funcs:   []uint32{0},
		Exports: []wasmfile.Export{{Name: "foo", Kind: wasmfile.KindFunc, Index: 1}},
	}
	src := mustGenerate(t, []string{
		`import { foo } from "__symbols";
export function bar() { return foo(); }`,
	}, nil, mod, nil)
	n := normalize(src)

	for _, want := range []string{
		"let foo;",
		`foo = __lateBind` + sfx + `(() => foo = __symbols` + sfx + `["foo"], true);`,
		`__symbols` + sfx + `["bar"] = bar;`,
		`__symbols` + sfx + `["foo"] = wrapExport("foo");`,
	} {
		if !strings.Contains(n, want) {
			t.Errorf("output missing %q in:\n%s", want, n)
		}
	}
}

func TestGenerateLateBindCallableFlag(t *testing.T) {
	src := mustGenerate(t, []string{
		`export const table = [];
export function fn() {}`,
		`import { table as t, fn as f } from "__symbols";
export function probe() { return f(t); }`,
	}, nil, nil, nil)
	n := normalize(src)

	if !strings.Contains(n, `t = __lateBind`+sfx+`(() => t = __symbols`+sfx+`["table"], false);`) {
		t.Error("value symbol did not late-bind with false")
	}
	if !strings.Contains(n, `f = __lateBind`+sfx+`(() => f = __symbols`+sfx+`["fn"], true);`) {
		t.Error("function symbol did not late-bind with true")
	}
}

func TestGenerateRequirementRenamedBinding(t *testing.T) {
	src := mustGenerate(t, nil, []string{
		`import $ from "jQuery";
export const ajax = $.ajax;`,
	}, nil, nil)
	n := normalize(src)

	for _, want := range []string{
		"const $ = jQuery" + sfx + ";",
		"const ajax = $.ajax;",
		`__exports["ajax"] = ajax;`,
		`define("app", ["jQuery"], factory)`,
		`module.exports = factory(require("jQuery"));`,
		`root["app"] = factory(root["jQuery"]);`,
		"function(__root, __fetcher" + sfx + ", jQuery" + sfx + ") {",
	} {
		if !strings.Contains(n, want) {
			t.Errorf("output missing %q in:\n%s", want, n)
		}
	}
}

func TestGeneratePositionalCorrespondence(t *testing.T) {
	src := mustGenerate(t, []string{
		`import B from "bmod";
import A from "amod";
export function use() { return A(B); }`,
	}, nil, nil, nil)
	n := normalize(src)

	for _, want := range []string{
		`define("app", ["bmod", "amod"], factory)`,
		`module.exports = factory(require("bmod"), require("amod"));`,
		`root["app"] = factory(root["bmod"], root["amod"]);`,
		"function(__root, __fetcher" + sfx + ", bmod" + sfx + ", amod" + sfx + ") {",
	} {
		if !strings.Contains(n, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestGenerateLeakDetection(t *testing.T) {
	_, err := runGenerate(t, []string{
		`export function f() { return window.location; }`,
	}, nil, nil, nil)
	if err == nil {
		t.Fatal("Generate succeeded despite a free reference to window")
	}
	if !lderrors.Is(err, lderrors.KindUnboundVariable) {
		t.Errorf("error = %v, want unbound_variable", err)
	}
	if !strings.Contains(err.Error(), "window") {
		t.Errorf("error %q does not name the leaking identifier", err)
	}

	// The same input links once window is a declared extern.
	if _, err := runGenerate(t, []string{
		`export function f() { return window.location; }`,
	}, nil, nil, nil, "window"); err != nil {
		t.Errorf("Generate with extern failed: %v", err)
	}
}

func TestGenerateReentryGuard(t *testing.T) {
	mod := &wasmfile.Module{
		Types:   []wasmfile.FuncType{{}},
		Funcs:   []uint32{0},
		Exports: []wasmfile.Export{{Name: "run", Kind: wasmfile.KindFunc, Index: 0}},
	}
	src := mustGenerate(t, nil, nil, mod, nil)
	n := normalize(src)

	for _, want := range []string{
		"let wasmEx;",
		`throw new Error("WebAssembly previously threw: " + wasmEx);`,
		"wasmEx = e; throw e;",
		`__symbols` + sfx + `["run"] = wrapExport("run");`,
	} {
		if !strings.Contains(n, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestGenerateCallCtorsOrdering(t *testing.T) {
	mod := &wasmfile.Module{
		Types: []wasmfile.FuncType{{}},
		Funcs: []uint32{0, 0},
		Exports: []wasmfile.Export{
			{Name: wasmfile.CallCtorsSymbol, Kind: wasmfile.KindFunc, Index: 0},
			{Name: "work", Kind: wasmfile.KindFunc, Index: 1},
		},
	}
	src := mustGenerate(t, nil, nil, mod, nil)
	n := normalize(src)

	ctors := `es["__wasm_call_ctors"]();`
	wrapDef := "function wrapExport(name)"
	freeze := "return Object.freeze(__exports);"

	iCtors := strings.Index(n, ctors)
	iWrap := strings.Index(n, wrapDef)
	iFreeze := strings.Index(n, freeze)
	if iCtors < 0 || iWrap < 0 || iFreeze < 0 {
		t.Fatalf("output missing expected statements:\n%s", n)
	}
	if !(iWrap < iCtors && iCtors < iFreeze) {
		t.Errorf("ctors call out of order: wrap=%d ctors=%d freeze=%d", iWrap, iCtors, iFreeze)
	}
	if strings.Contains(n, `__symbols`+sfx+`["__wasm_call_ctors"]`) {
		t.Error("ctors export leaked into the symbols object")
	}
}

func TestGenerateNoCallCtorsWithStart(t *testing.T) {
	start := uint32(0)
	mod := &wasmfile.Module{
		Types: []wasmfile.FuncType{{}},
		Funcs: []uint32{0},
		Exports: []wasmfile.Export{
			{Name: wasmfile.CallCtorsSymbol, Kind: wasmfile.KindFunc, Index: 0},
		},
		Start: &start,
	}
	src := mustGenerate(t, nil, nil, mod, nil)
	if strings.Contains(normalize(src), `es["__wasm_call_ctors"]();`) {
		t.Error("ctors invoked despite a start section")
	}
}

func TestGenerateWasmRequirementImports(t *testing.T) {
	mod := &wasmfile.Module{
		Types: []wasmfile.FuncType{{}},
		Imports: []wasmfile.Import{
			{Module: "host", Name: "now", Kind: wasmfile.KindFunc},
		},
	}
	src := mustGenerate(t, nil, nil, mod, nil)
	n := normalize(src)
	want := `{ "env": __symbols` + sfx + `, "host": host` + sfx + ` }`
	if !strings.Contains(n, want) {
		t.Errorf("import object missing requirement module: want %q in\n%s", want, n)
	}
	if !strings.Contains(n, `define("app", ["host"], factory)`) {
		t.Error("implicit wasm requirement missing from AMD dependency list")
	}
}

func TestGenerateManglingStability(t *testing.T) {
	gen := func() string {
		symbols := NewSymbolTable()
		mangler := NewMangler()
		reqs := NewRequirementsTable(mangler)
		wf := &wasmfile.File{Name: "app.wasm", Module: &wasmfile.Module{}}
		g := NewGenerator(GeneratorConfig{
			WasmFile:     wf,
			ModuleName:   "app",
			Externs:      DefaultExterns(),
			Symbols:      symbols,
			Requirements: reqs,
			Mangler:      mangler,
		})
		prog, err := g.Generate()
		if err != nil {
			t.Fatal(err)
		}
		return js.Print(prog)
	}

	first := gen()
	second := gen()

	re := regexp.MustCompile(`__fetcher_([0-9a-f]{12})`)
	firstMatches := re.FindAllStringSubmatch(first, -1)
	if len(firstMatches) < 2 {
		t.Fatalf("expected multiple fetcher references, got %d", len(firstMatches))
	}
	for _, m := range firstMatches {
		if m[1] != firstMatches[0][1] {
			t.Errorf("fetcher suffix varies within one run: %q vs %q", m[1], firstMatches[0][1])
		}
	}

	secondMatches := re.FindAllStringSubmatch(second, -1)
	if len(secondMatches) == 0 {
		t.Fatal("second run has no fetcher references")
	}
	if firstMatches[0][1] == secondMatches[0][1] {
		t.Error("two runs drew the same fetcher suffix")
	}
}

func TestGenerateUMDDetection(t *testing.T) {
	src := mustGenerate(t, nil, nil, nil, nil)
	n := normalize(src)

	for _, want := range []string{
		`if (typeof define === "function" && define.amd) {`,
		`} else if (typeof module === "object" && module.exports) {`,
		`throw new Error("Unable to detect global object");`,
		"const currentScript = isNode ? __dirname : root.document.currentScript.src;",
		"factory = factory.bind(null, root, fetcher);",
	} {
		if !strings.Contains(n, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
