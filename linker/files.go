package linker

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wasmlink/jsld/errors"
	"github.com/wasmlink/jsld/js"
)

// SymbolsImportSpecifier is the reserved module specifier that user files
// import link-time symbols from. Imports from any other specifier declare
// a requirement on an external JS module.
const SymbolsImportSpecifier = "__symbols"

// requirementImport is one import declaration consuming an external
// module.
type requirementImport struct {
	Specifier string
	Default   string
	Named     []ImportSpec
}

// moduleFile is the common shape of symbols and exports files: a user JS
// fragment partitioned into its import declarations, export specifiers,
// and remaining body statements.
type moduleFile struct {
	Path          string
	symbolImports []ImportSpec
	reqImports    []requirementImport
	exports       []ExportSpec
	body          []js.Stmt
}

// SymbolsFile is a user fragment whose exports define link-time symbols
// and are published into the generated symbols object.
type SymbolsFile struct {
	moduleFile
}

// ExportsFile is a user fragment whose exports form the generated module's
// public surface.
type ExportsFile struct {
	moduleFile
}

// ParseSymbolsFile parses a symbols file, registering its exported symbols
// as definitions and its symbol imports as references.
func ParseSymbolsFile(path, src string, symbols *SymbolTable, reqs *RequirementsTable) (*SymbolsFile, error) {
	mf, err := parseModuleFile(path, src, reqs)
	if err != nil {
		return nil, err
	}
	f := &SymbolsFile{moduleFile: *mf}
	for _, spec := range f.exports {
		kind := f.exportKind(spec)
		if err := symbols.Define(spec.Exported, kind, OriginSymbolsFile, path); err != nil {
			return nil, err
		}
	}
	for _, imp := range f.symbolImports {
		symbols.Reference(imp.Effective())
	}
	Logger().Debug("parsed symbols file",
		zap.String("path", path),
		zap.Int("exports", len(f.exports)),
		zap.Int("symbol_imports", len(f.symbolImports)))
	return f, nil
}

// ParseExportsFile parses an exports file. Its exports populate the
// module's public object and do not define link-time symbols.
func ParseExportsFile(path, src string, symbols *SymbolTable, reqs *RequirementsTable) (*ExportsFile, error) {
	mf, err := parseModuleFile(path, src, reqs)
	if err != nil {
		return nil, err
	}
	f := &ExportsFile{moduleFile: *mf}
	for _, imp := range f.symbolImports {
		symbols.Reference(imp.Effective())
	}
	Logger().Debug("parsed exports file",
		zap.String("path", path),
		zap.Int("exports", len(f.exports)))
	return f, nil
}

func parseModuleFile(path, src string, reqs *RequirementsTable) (*moduleFile, error) {
	prog, err := js.Parse(filepath.Base(path), src)
	if err != nil {
		return nil, errors.Parse(path, err)
	}

	f := &moduleFile{Path: path}
	for _, stmt := range prog.Body {
		switch stmt := stmt.(type) {
		case *js.ImportDecl:
			if err := f.addImport(path, stmt, reqs); err != nil {
				return nil, err
			}
		case *js.ExportDecl:
			if err := f.addExport(path, stmt); err != nil {
				return nil, err
			}
		default:
			f.body = append(f.body, stmt)
		}
	}
	return f, nil
}

func (f *moduleFile) addImport(path string, decl *js.ImportDecl, reqs *RequirementsTable) error {
	if decl.From == SymbolsImportSpecifier {
		if decl.Default != "" {
			return errors.Unsupported(path, "default import from "+SymbolsImportSpecifier)
		}
		for _, spec := range decl.Named {
			f.symbolImports = append(f.symbolImports, ImportSpec{
				Name:    spec.Name,
				Binding: spec.Binding,
			})
		}
		return nil
	}

	req := reqs.Lookup(decl.From)
	ri := requirementImport{Specifier: decl.From, Default: decl.Default}
	if decl.Default != "" {
		req.Imports = append(req.Imports, ImportSpec{Binding: decl.Default})
	}
	for _, spec := range decl.Named {
		is := ImportSpec{Name: spec.Name, Binding: spec.Binding}
		ri.Named = append(ri.Named, is)
		req.Imports = append(req.Imports, is)
	}
	f.reqImports = append(f.reqImports, ri)
	return nil
}

func (f *moduleFile) addExport(path string, decl *js.ExportDecl) error {
	if decl.Decl == nil {
		for _, spec := range decl.Specs {
			f.exports = append(f.exports, ExportSpec{
				Local:    spec.Local,
				Exported: spec.Exported,
			})
		}
		return nil
	}

	// Exported declarations stay in the body; each declared name becomes
	// an export specifier.
	switch d := decl.Decl.(type) {
	case *js.VarStmt:
		for _, vd := range d.Decls {
			for _, name := range js.PatternNames(vd.Target) {
				f.exports = append(f.exports, ExportSpec{Exported: name})
			}
		}
	case *js.FuncDecl:
		f.exports = append(f.exports, ExportSpec{Exported: d.Fn.Name})
	case *js.ClassDecl:
		f.exports = append(f.exports, ExportSpec{Exported: d.Class.Name})
	default:
		return errors.Unsupported(path, "export declaration form")
	}
	f.body = append(f.body, decl.Decl)
	return nil
}

// exportKind derives a symbol kind from the exported binding's
// declaration: function declarations, class declarations, and
// function-valued initializers are callable, everything else is a plain
// value.
func (f *moduleFile) exportKind(spec ExportSpec) SymbolKind {
	local := spec.Effective()
	for _, stmt := range f.body {
		switch stmt := stmt.(type) {
		case *js.FuncDecl:
			if stmt.Fn.Name == local {
				return SymbolFunction
			}
		case *js.ClassDecl:
			if stmt.Class.Name == local {
				return SymbolFunction
			}
		case *js.VarStmt:
			for _, d := range stmt.Decls {
				ident, ok := d.Target.(*js.Ident)
				if !ok || ident.Name != local {
					continue
				}
				if _, isFn := d.Init.(*js.FuncLit); isFn {
					return SymbolFunction
				}
				return SymbolValue
			}
		}
	}
	return SymbolValue
}

// appendModule emits the file's contribution: requirement and symbol
// import bindings, then the body, then the export assignments onto
// exportTarget.
func (f *moduleFile) appendModule(g *Generator, out *[]js.Stmt, exportTarget string) {
	g.AppendImports(out, f.symbolImports, f.reqImports)
	*out = append(*out, f.body...)
	g.AppendExports(out, f.exports, exportTarget)
}

// AppendModule emits a symbols file; its exports land in the symbols
// object.
func (f *SymbolsFile) AppendModule(g *Generator, out *[]js.Stmt) {
	f.appendModule(g, out, g.SymbolsVar())
}

// AppendModule emits an exports file; its exports land in the public
// exports object.
func (f *ExportsFile) AppendModule(g *Generator, out *[]js.Stmt) {
	f.appendModule(g, out, ExportsVar)
}
