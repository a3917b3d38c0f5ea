// Package wasmfile reads the structure of a WebAssembly binary module:
// imports grouped by module name, exports, memory definitions with their
// page limits, global types, function signatures, and start-section
// presence. It does not decode function bodies; the linker only needs the
// module's outer shape.
//
// The package also owns the two names that form the contract between the
// linker and the wasm toolchain: SymbolsModule, the import-module name
// whose entries are fulfilled by the linker's symbols object, and
// CallCtorsSymbol, the conventional static-constructor export.
//
//	f, err := wasmfile.New("module.wasm", data)
//	if err != nil {
//	    return err
//	}
//	for _, imp := range f.SymbolImports() {
//	    ...
//	}
//
// Validate compiles the binary with wazero, catching malformed modules
// with better diagnostics than the structural decode can produce.
//
// A minimal encoder is provided for building fixture binaries in tests.
package wasmfile
