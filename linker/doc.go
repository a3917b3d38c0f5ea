// Package linker implements the jsld module generator: it combines a
// WebAssembly object module with user-written JavaScript symbols and
// exports files and produces a single self-contained UMD JavaScript
// module that loads the wasm binary at runtime.
//
// # Main Types
//
//   - SymbolTable: registry of every named symbol crossing the JS/wasm
//     boundary
//   - RequirementsTable: registry of external JS modules the output
//     depends on
//   - SymbolsFile, ExportsFile: parsed user JS fragments with their
//     import/export declarations
//   - Generator: the six-phase emitter (preamble, symbols files, exports
//     files, wasm instantiation, UMD wrapper, scope verification)
//
// # Circular Bindings
//
// A wasm import may need a JS symbol while a JS symbol's body needs a
// wasm export. The generated module breaks the circle with a reflective
// proxy: every imported symbol is initialised to a proxy that, on first
// use, looks up the real target in the symbols object and rebinds the
// variable so later accesses bypass the proxy entirely.
//
// # Safety
//
// After emission the whole script is scope-analyzed; any free identifier
// outside the externs allowlist fails the link. Internal names carry a
// per-build random 48-bit hex suffix so user code cannot collide with
// them; only __root and __exports are stable, as they are the public
// contract with user modules.
//
// Tables are plain values passed to the Generator explicitly; one set per
// link invocation. Nothing persists across links.
package linker
