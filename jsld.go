package jsld

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wasmlink/jsld/errors"
	"github.com/wasmlink/jsld/js"
	"github.com/wasmlink/jsld/linker"
	"github.com/wasmlink/jsld/wasmfile"
)

// Options configures one link invocation.
type Options struct {
	// WasmPath names the input WebAssembly object module.
	WasmPath string
	// Output names the JavaScript file to write. When empty, the
	// generated source is only returned in the Result.
	Output string
	// SymbolsFiles are JS fragments whose exports define link-time
	// symbols, in link order.
	SymbolsFiles []string
	// ExportsFiles are JS fragments whose exports form the module's
	// public surface, in link order.
	ExportsFiles []string
	// ExternsFile optionally names a JS file whose top-level declarations
	// extend the allowed free identifiers.
	ExternsFile string
	// Memories declares the WebAssembly.Memory instances the generated
	// module constructs and supplies to the wasm instance.
	Memories []linker.MemoryDefinition
	// ModuleName overrides the UMD module name; defaults to the output
	// file's base name without extension.
	ModuleName string
	// Logger, when set, is installed as the linker package logger.
	Logger *zap.Logger
}

// Result carries the outcome of a successful link.
type Result struct {
	Source       string
	ModuleName   string
	Symbols      []*linker.Symbol
	Requirements []*linker.Requirement
}

// Link runs one complete link: it reads and validates the wasm module,
// parses the JS inputs, resolves symbols and requirements, generates the
// UMD module, verifies its scope, and writes the output.
func Link(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger != nil {
		linker.SetLogger(opts.Logger)
	}
	log := linker.Logger()

	moduleName := opts.ModuleName
	if moduleName == "" {
		moduleName = defaultModuleName(opts)
	}

	wasmData, err := os.ReadFile(opts.WasmPath)
	if err != nil {
		return nil, errors.IO(opts.WasmPath, err)
	}
	if err := wasmfile.Validate(ctx, wasmData); err != nil {
		return nil, errors.WasmShape("module failed validation", err)
	}
	wasmFile, err := wasmfile.New(filepath.Base(opts.WasmPath), wasmData)
	if err != nil {
		return nil, errors.WasmShape("cannot read module structure", err)
	}
	log.Debug("read wasm module",
		zap.String("path", opts.WasmPath),
		zap.Int("imports", len(wasmFile.Module.Imports)),
		zap.Int("exports", len(wasmFile.Module.Exports)))

	mangler := linker.NewMangler()
	symbols := linker.NewSymbolTable()
	requirements := linker.NewRequirementsTable(mangler)

	for _, md := range opts.Memories {
		if md.Name == "" {
			return nil, errors.Invalid("memory definition requires a name")
		}
		if md.Limits.HasMax && md.Limits.Max < md.Limits.Min {
			return nil, errors.Invalid(fmt.Sprintf(
				"memory %s: maximum %d below minimum %d",
				md.Name, md.Limits.Max, md.Limits.Min))
		}
		if err := symbols.Define(md.Name, linker.SymbolMemory, linker.OriginMemory, "memory definition"); err != nil {
			return nil, err
		}
	}

	var symbolsFiles []*linker.SymbolsFile
	for _, path := range opts.SymbolsFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.IO(path, err)
		}
		f, err := linker.ParseSymbolsFile(path, string(src), symbols, requirements)
		if err != nil {
			return nil, err
		}
		symbolsFiles = append(symbolsFiles, f)
	}

	var exportsFiles []*linker.ExportsFile
	for _, path := range opts.ExportsFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.IO(path, err)
		}
		f, err := linker.ParseExportsFile(path, string(src), symbols, requirements)
		if err != nil {
			return nil, err
		}
		exportsFiles = append(exportsFiles, f)
	}

	if err := registerWasm(wasmFile, symbols, requirements, opts.Memories); err != nil {
		return nil, err
	}
	if err := symbols.Seal(); err != nil {
		return nil, err
	}

	externs := linker.DefaultExterns()
	if opts.ExternsFile != "" {
		src, err := os.ReadFile(opts.ExternsFile)
		if err != nil {
			return nil, errors.IO(opts.ExternsFile, err)
		}
		extra, err := linker.ExternsFromSource(opts.ExternsFile, string(src))
		if err != nil {
			return nil, err
		}
		for name := range extra {
			externs[name] = true
		}
	}

	gen := linker.NewGenerator(linker.GeneratorConfig{
		SymbolsFiles: symbolsFiles,
		ExportsFiles: exportsFiles,
		WasmFile:     wasmFile,
		Memories:     opts.Memories,
		ModuleName:   moduleName,
		Externs:      externs,
		Symbols:      symbols,
		Requirements: requirements,
		Mangler:      mangler,
	})
	prog, err := gen.Generate()
	if err != nil {
		return nil, err
	}
	source := js.Print(prog)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(source), 0o644); err != nil {
			return nil, errors.IO(opts.Output, err)
		}
		log.Info("wrote module",
			zap.String("output", opts.Output),
			zap.Int("bytes", len(source)))
	}

	return &Result{
		Source:       source,
		ModuleName:   moduleName,
		Symbols:      symbols.All(),
		Requirements: requirements.All(),
	}, nil
}

// registerWasm folds the wasm module's imports and exports into the
// symbol and requirements tables, checking that its shape is linkable.
func registerWasm(f *wasmfile.File, symbols *linker.SymbolTable, requirements *linker.RequirementsTable, memories []linker.MemoryDefinition) error {
	for _, e := range f.Module.Exports {
		if e.Name == wasmfile.CallCtorsSymbol {
			continue
		}
		var kind linker.SymbolKind
		switch e.Kind {
		case wasmfile.KindFunc:
			kind = linker.SymbolFunction
		case wasmfile.KindGlobal:
			kind = linker.SymbolValue
		case wasmfile.KindMemory:
			kind = linker.SymbolMemory
		default:
			return errors.WasmShape(
				fmt.Sprintf("export %q: table exports are not supported", e.Name), nil)
		}
		if err := symbols.Define(e.Name, kind, linker.OriginWasmExport, f.Name); err != nil {
			return err
		}
	}

	for _, imp := range f.SymbolImports() {
		switch imp.Kind {
		case wasmfile.KindMemory:
			sym := symbols.Get(imp.Name)
			if sym == nil {
				symbols.Reference(imp.Name)
				continue
			}
			if sym.Kind != linker.SymbolMemory {
				return errors.WasmShape(fmt.Sprintf(
					"import %q: wasm imports a memory but the symbol is a %s",
					imp.Name, sym.Kind), nil)
			}
			for _, md := range memories {
				if md.Name == imp.Name && !md.Limits.Matches(*imp.Memory) {
					return errors.WasmShape(fmt.Sprintf(
						"import %q: memory limits {min:%d} do not satisfy the module's requirements",
						imp.Name, md.Limits.Min), nil)
				}
			}
			symbols.Reference(imp.Name)
		case wasmfile.KindFunc, wasmfile.KindGlobal:
			if sym := symbols.Get(imp.Name); sym != nil && sym.Origin == linker.OriginWasmExport {
				return errors.WasmShape(fmt.Sprintf(
					"import %q is defined by a wasm export and would not exist at instantiation time",
					imp.Name), nil)
			}
			symbols.Reference(imp.Name)
		default:
			return errors.WasmShape(fmt.Sprintf(
				"import %q: table imports are not supported", imp.Name), nil)
		}
	}

	// Import modules other than the symbols module become requirements,
	// resolved at load time through the UMD machinery.
	for _, mod := range f.ImportModules() {
		requirements.Lookup(mod)
	}
	return nil
}

func defaultModuleName(opts Options) string {
	base := opts.Output
	if base == "" {
		base = opts.WasmPath
	}
	name := filepath.Base(base)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
