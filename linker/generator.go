package linker

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/wasmlink/jsld/errors"
	"github.com/wasmlink/jsld/js"
	"github.com/wasmlink/jsld/wasmfile"
)

// The two identifiers below are the public contract with user modules and
// are never mangled. Everything else internal to the generated script
// carries a per-build random suffix.
const (
	// RootVar is bound to the detected global object inside the factory.
	RootVar = "__root"
	// ExportsVar accumulates the module's public surface.
	ExportsVar = "__exports"
)

// GeneratorConfig carries the collaborators and inputs of one generation.
type GeneratorConfig struct {
	SymbolsFiles []*SymbolsFile
	ExportsFiles []*ExportsFile
	WasmFile     *wasmfile.File
	Memories     []MemoryDefinition
	ModuleName   string
	Externs      map[string]bool
	Symbols      *SymbolTable
	Requirements *RequirementsTable
	Mangler      *Mangler
}

// Generator synthesises the output module in six phases: preamble,
// symbols-file bodies, exports-file bodies, wasm instantiation, UMD
// wrapper, and finally scope verification of the whole script.
type Generator struct {
	symbolsFiles []*SymbolsFile
	exportsFiles []*ExportsFile
	wasmFile     *wasmfile.File
	memories     []MemoryDefinition
	moduleName   string
	externs      map[string]bool
	symbols      *SymbolTable
	reqs         *RequirementsTable

	// Mangled names, drawn once at construction and reused for every
	// emission.
	fetcherVar  string
	symbolsVar  string
	lateBindVar string

	stmts []js.Stmt
}

// NewGenerator creates a Generator, drawing its mangled internal names.
func NewGenerator(cfg GeneratorConfig) *Generator {
	m := cfg.Mangler
	if m == nil {
		m = NewMangler()
	}
	return &Generator{
		symbolsFiles: cfg.SymbolsFiles,
		exportsFiles: cfg.ExportsFiles,
		wasmFile:     cfg.WasmFile,
		memories:     cfg.Memories,
		moduleName:   cfg.ModuleName,
		externs:      cfg.Externs,
		symbols:      cfg.Symbols,
		reqs:         cfg.Requirements,
		fetcherVar:   m.Mangle("__fetcher"),
		symbolsVar:   m.Mangle("__symbols"),
		lateBindVar:  m.Mangle("__lateBind"),
	}
}

// SymbolsVar returns the mangled name of the symbols object.
func (g *Generator) SymbolsVar() string {
	return g.symbolsVar
}

// Generate runs all emission phases and the final scope check.
func (g *Generator) Generate() (*js.Program, error) {
	g.generatePreamble()
	g.generateJsSymbols()
	g.generateJsExports()
	g.generatePostamble()
	g.generateWrapper()
	prog := g.generateScript()
	if err := g.analyzeExterns(prog); err != nil {
		return nil, err
	}
	Logger().Debug("generated module",
		zap.String("module", g.moduleName),
		zap.Int("requirements", len(g.reqs.All())),
		zap.Int("symbols", len(g.symbols.All())))
	return prog, nil
}

// analyzeExterns rejects any free variable outside the externs allowlist.
// It catches both user errors (fragments referencing unknown globals) and
// generator bugs that leak an internal name.
func (g *Generator) analyzeExterns(prog *js.Program) error {
	scope := js.Analyze(prog)
	var banned []string
	for _, name := range scope.Free {
		if !g.externs[name] {
			banned = append(banned, name)
		}
	}
	if len(banned) > 0 {
		return errors.UnboundVariables(banned)
	}
	return nil
}

func (g *Generator) generatePreamble() {
	g.appendFragment(fmt.Sprintf(
		"const %s = {};const %s = {};",
		ExportsVar, g.symbolsVar,
	))

	// Modules in general have circular dependencies (wasm imports symbols
	// from JS, JS imports from wasm), so every imported symbol starts out
	// bound to a proxy and is rebound to the real definition on first
	// use. The fake target must be callable when the symbol is, because a
	// proxy's IsCallable slot immutably copies its target's and cannot be
	// forwarded through a trap.
	g.appendFragment(fmt.Sprintf(
		"function %s(binder, isCallable) {"+
			"  const fakeTarget = isCallable ? (function(){}) : {};"+
			"  const reflectingHandler = new Proxy({}, {"+
			"    get(reflectingTarget_, prop, reflectingHandler_) {"+
			"      return function(fakeTarget_, ...otherArgs) {"+
			"        const realTarget = binder();"+
			"        if (prop == 'get' || prop == 'set')"+
			"          otherArgs[prop == 'get' ? 1 : 2] = realTarget;"+
			"        return Reflect[prop](realTarget, ...otherArgs);"+
			"      };"+
			"    }"+
			"  });"+
			"  return new Proxy(fakeTarget, reflectingHandler);"+
			"}",
		g.lateBindVar,
	))
}

func (g *Generator) generateJsSymbols() {
	for _, f := range g.symbolsFiles {
		f.AppendModule(g, &g.stmts)
	}
}

func (g *Generator) generateJsExports() {
	for _, f := range g.exportsFiles {
		f.AppendModule(g, &g.stmts)
	}
}

// AppendImports emits the binding declarations for one file's imports:
// requirement renames and member reads first, then one uninitialised let
// declaring every symbol import, then the late-bind assignments.
func (g *Generator) AppendImports(out *[]js.Stmt, symbolImports []ImportSpec, reqImports []requirementImport) {
	var reqDecls []*js.VarDecl
	for _, ri := range reqImports {
		req := g.reqs.Get(ri.Specifier)
		if ri.Default != "" && ri.Default != req.Variable {
			reqDecls = append(reqDecls, &js.VarDecl{
				Target: ident(ri.Default),
				Init:   ident(req.Variable),
			})
		}
		for _, is := range ri.Named {
			reqDecls = append(reqDecls, &js.VarDecl{
				Target: ident(is.Binding),
				Init:   index(ident(req.Variable), is.Effective()),
			})
		}
	}
	if len(reqDecls) > 0 {
		*out = append(*out, &js.VarStmt{Kind: "const", Decls: reqDecls})
	}

	if len(symbolImports) > 0 {
		decls := make([]*js.VarDecl, len(symbolImports))
		for i, is := range symbolImports {
			decls[i] = &js.VarDecl{Target: ident(is.Binding)}
		}
		*out = append(*out, &js.VarStmt{Kind: "let", Decls: decls})
	}

	for _, is := range symbolImports {
		symbolName := is.Effective()
		symbol := g.symbols.Get(symbolName)
		isCallable := symbol == nil || symbol.Kind == SymbolFunction

		// <NAME> = __lateBind(() => (<NAME> = __symbols['<SYMBOL>']), isCallable)
		binder := &js.FuncLit{
			Arrow: true,
			ExprBody: &js.AssignExpr{
				Op:     "=",
				Target: ident(is.Binding),
				Value:  index(ident(g.symbolsVar), symbolName),
			},
		}
		*out = append(*out, exprStmt(&js.AssignExpr{
			Op:     "=",
			Target: ident(is.Binding),
			Value:  call(ident(g.lateBindVar), binder, &js.BoolLit{Value: isCallable}),
		}))
	}
}

// AppendExports emits one file's export assignments onto the target
// identifier.
func (g *Generator) AppendExports(out *[]js.Stmt, exports []ExportSpec, exportIdentifier string) {
	for _, es := range exports {
		// <TARGET>['<EXPORTED>'] = <NAME>
		*out = append(*out, exprStmt(&js.AssignExpr{
			Op:     "=",
			Target: index(ident(exportIdentifier), es.Exported),
			Value:  ident(es.Effective()),
		}))
	}
}

func (g *Generator) generatePostamble() {
	// ( function() { <MEMORIES>; return WebAssembly.instantiateStreaming(...) } )()
	ce := call(g.generateInstantiation())

	var thenBody []js.Stmt
	appendFragmentTo(&thenBody,
		"const es = wasmInstance.instance.exports;"+
			"let wasmEx;"+
			"function wrapExport(name) {"+
			"  const fn = es[name];"+
			"  return function(...args) {"+
			// Should not re-enter WebAssembly after something fails within!
			"    if (wasmEx !== undefined)"+
			"      throw new Error('WebAssembly previously threw: ' + wasmEx);"+
			"    try { return fn(...args); } catch (e) {"+
			"      wasmEx = e; throw e;"+
			"    }"+
			"  }"+
			"}",
	)
	g.appendWasmExports(&thenBody)
	if g.wasmFile.NeedsExternalCallCtors() {
		thenBody = append(thenBody, exprStmt(call(index(ident("es"), wasmfile.CallCtorsSymbol))))
	}
	appendFragmentTo(&thenBody, fmt.Sprintf("return Object.freeze(%s);", ExportsVar))

	then := call(
		&js.MemberExpr{Obj: ce, Prop: ident("then")},
		&js.FuncLit{
			Params: []js.Pattern{ident("wasmInstance")},
			Body:   &js.BlockStmt{Body: thenBody},
		},
	)
	g.stmts = append(g.stmts, &js.ReturnStmt{Arg: then})
}

// appendWasmExports wires the wasm instance's exports into the symbols
// object. Functions go through wrapExport so a trapped instance refuses
// re-entry; globals and memories are handed over as-is.
func (g *Generator) appendWasmExports(out *[]js.Stmt) {
	for _, e := range g.wasmFile.Module.Exports {
		if e.Name == wasmfile.CallCtorsSymbol {
			continue
		}
		var value js.Expr
		switch e.Kind {
		case wasmfile.KindFunc:
			value = call(ident("wrapExport"), str(e.Name))
		default:
			value = index(ident("es"), e.Name)
		}
		*out = append(*out, exprStmt(&js.AssignExpr{
			Op:     "=",
			Target: index(ident(g.symbolsVar), e.Name),
			Value:  value,
		}))
	}
}

// generateInstantiation builds the function whose call produces the
// instantiation promise. Memories must be constructed before the
// instantiateStreaming call so they are present in the import object.
func (g *Generator) generateInstantiation() *js.FuncLit {
	var stmts []js.Stmt
	for _, md := range g.memories {
		props := []*js.Property{{
			Key:   ident("initial"),
			Value: num(md.Limits.Min),
		}}
		if md.Limits.HasMax {
			props = append(props, &js.Property{
				Key:   ident("maximum"),
				Value: num(md.Limits.Max),
			})
		}
		// __symbols['<MEMORY>'] = new WebAssembly.Memory({...})
		stmts = append(stmts, exprStmt(&js.AssignExpr{
			Op:     "=",
			Target: index(ident(g.symbolsVar), md.Name),
			Value: &js.NewExpr{
				Callee: member(ident("WebAssembly"), "Memory"),
				Args:   []js.Expr{&js.ObjectLit{Props: props}},
			},
		}))
	}

	importProps := []*js.Property{{
		Key:   str(wasmfile.SymbolsModule),
		Value: ident(g.symbolsVar),
	}}
	for _, mod := range g.wasmFile.ImportModules() {
		req := g.reqs.Get(mod)
		importProps = append(importProps, &js.Property{
			Key:   str(mod),
			Value: ident(req.Variable),
		})
	}

	stmts = append(stmts, &js.ReturnStmt{
		Arg: call(
			member(ident("WebAssembly"), "instantiateStreaming"),
			call(ident(g.fetcherVar), str(g.wasmFile.Name)),
			&js.ObjectLit{Props: importProps},
		),
	})
	return &js.FuncLit{Body: &js.BlockStmt{Body: stmts}}
}

// generateWrapper replaces the accumulated factory body with the single
// UMD runner statement.
func (g *Generator) generateWrapper() {
	requirements := g.reqs.All()

	var umdBody []js.Stmt
	// document.currentScript is only valid synchronously during script
	// execution; the fetcher has to capture it now, not inside the
	// promise chain.
	appendFragmentTo(&umdBody,
		"let root, isNode = false;"+
			"if (typeof global === 'object' && "+
			"    global.toString() == '[object global]') {"+
			"  root = global; isNode = true;"+
			"} else if (typeof self === 'object' && self.Object !== undefined && "+
			"           self.Array !== undefined) {"+
			"  root = self;"+
			"} else throw new Error('Unable to detect global object');"+
			"const define = root.define;"+
			"const currentScript = isNode ? __dirname "+
			"                             : root.document.currentScript.src;"+
			"const fetcher = isNode ? function(name) {"+
			"  const fs = require('fs'), path = require('path');"+
			"  const buf = fs.readFileSync(path.join(currentScript, name));"+
			// Node buffers can be re-used from a pool, so hand out a copy.
			"  const copy = buf.buffer.slice(buf.byteOffset, buf.byteOffset + buf.byteLength);"+
			"  return Promise.resolve(copy);"+
			"} : function(name) {"+
			"  const url = new root.URL(name, currentScript);"+
			"  return root.fetch(url.toString());"+
			"};"+
			"factory = factory.bind(null, root, fetcher);",
	)

	// define("<MODULE>", ["<REQ>", ...], factory)
	deps := &js.ArrayLit{}
	for _, r := range requirements {
		deps.Elems = append(deps.Elems, str(r.Specifier))
	}
	amdBranch := exprStmt(call(ident("define"), str(g.moduleName), deps, ident("factory")))

	// module.exports = factory(require("<REQ>"), ...)
	var requireArgs []js.Expr
	for _, r := range requirements {
		requireArgs = append(requireArgs, call(ident("require"), str(r.Specifier)))
	}
	nodeBranch := exprStmt(&js.AssignExpr{
		Op:     "=",
		Target: member(ident("module"), "exports"),
		Value:  call(ident("factory"), requireArgs...),
	})

	// root["<MODULE>"] = factory(root["<REQ>"], ...)
	var rootArgs []js.Expr
	for _, r := range requirements {
		rootArgs = append(rootArgs, index(ident("root"), r.Specifier))
	}
	fallbackBranch := exprStmt(&js.AssignExpr{
		Op:     "=",
		Target: index(ident("root"), g.moduleName),
		Value:  call(ident("factory"), rootArgs...),
	})

	umdBody = append(umdBody, &js.IfStmt{
		Cond: fragmentExpr("typeof define === 'function' && define.amd"),
		Then: amdBranch,
		Else: &js.IfStmt{
			Cond: fragmentExpr("typeof module === 'object' && module.exports"),
			Then: nodeBranch,
			Else: fallbackBranch,
		},
	})

	// function(__root, __fetcher, <REQ_VARS>) { <FACTORY BODY> }
	factoryParams := []js.Pattern{ident(RootVar), ident(g.fetcherVar)}
	for _, r := range requirements {
		factoryParams = append(factoryParams, ident(r.Variable))
	}
	factory := &js.FuncLit{
		Params: factoryParams,
		Body:   &js.BlockStmt{Body: g.stmts},
	}

	// (function(factory) { <UMD BODY> })(<FACTORY>)
	runner := call(
		&js.FuncLit{
			Params: []js.Pattern{ident("factory")},
			Body:   &js.BlockStmt{Body: umdBody},
		},
		factory,
	)
	g.stmts = []js.Stmt{exprStmt(runner)}
}

func (g *Generator) generateScript() *js.Program {
	return &js.Program{
		Directives: []string{"use strict"},
		Body:       g.stmts,
	}
}

func (g *Generator) appendFragment(src string) {
	appendFragmentTo(&g.stmts, src)
}

// appendFragmentTo parses a generator-owned source fragment. Fragments are
// compile-time constants, so a parse failure is a bug in this package.
func appendFragmentTo(out *[]js.Stmt, src string) {
	prog, err := js.Parse("fragment", src)
	if err != nil {
		panic("linker: bad generator fragment: " + err.Error())
	}
	*out = append(*out, prog.Body...)
}

func fragmentExpr(src string) js.Expr {
	expr, err := js.ParseExpr("fragment", src)
	if err != nil {
		panic("linker: bad generator fragment: " + err.Error())
	}
	return expr
}

// Small AST construction helpers.

func ident(name string) *js.Ident {
	return &js.Ident{Name: name}
}

func str(v string) *js.StringLit {
	return &js.StringLit{Value: v}
}

func num(v uint32) *js.NumberLit {
	return &js.NumberLit{Raw: strconv.FormatUint(uint64(v), 10)}
}

func member(obj js.Expr, name string) *js.MemberExpr {
	return &js.MemberExpr{Obj: obj, Prop: ident(name)}
}

func index(obj js.Expr, key string) *js.MemberExpr {
	return &js.MemberExpr{Obj: obj, Prop: str(key), Computed: true}
}

func call(callee js.Expr, args ...js.Expr) *js.CallExpr {
	return &js.CallExpr{Callee: callee, Args: args}
}

func exprStmt(e js.Expr) *js.ExprStmt {
	return &js.ExprStmt{X: e}
}
