// Package jsld is a link editor that combines a WebAssembly object module
// with hand-written JavaScript symbols and exports files and emits a
// single self-contained JavaScript module. The output loads the wasm
// binary at runtime, wires circular JS-wasm symbol bindings through
// reflective proxies, and exposes a UMD surface usable under AMD loaders,
// CommonJS, and plain browser globals.
//
// # Architecture Overview
//
// The repository is organized into packages with distinct
// responsibilities:
//
//	jsld/         Root package: link orchestration (Options, Link)
//	├── cmd/jsld/ CLI driver
//	├── linker/   Module generator, symbol and requirements tables
//	├── js/       JavaScript AST, parser, printer, scope analyzer
//	├── wasmfile/ Wasm binary structural reader and fixture encoder
//	└── errors/   Structured link-error types
//
// # Quick Start
//
// Link a wasm module with a symbols file:
//
//	result, err := jsld.Link(context.Background(), jsld.Options{
//	    WasmPath:     "module.wasm",
//	    Output:       "module.js",
//	    SymbolsFiles: []string{"runtime_symbols.js"},
//	    ExportsFiles: []string{"api_exports.js"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.ModuleName)
//
// All link failures are fatal and carry a structured *errors.Error; no
// operation is retried. The tables built during a link live only for that
// invocation.
package jsld
