// Package js is a small JavaScript source toolkit: an AST with
// constructors, a lexer and recursive-descent parser for the ES subset the
// linker emits and accepts in user fragments, a printer that serialises the
// AST back to source, and a scope analyzer that computes the free variables
// of a program.
//
// The subset covers ES5 plus the ES2015+ features the link editor needs:
// let/const, arrow functions, template literals, destructuring, spread and
// rest, classes, async functions and generators, and top-level import and
// export declarations. Namespace imports, default exports, and re-export
// forms are not part of the input grammar; the parser rejects them with a
// syntax error.
//
// Parse a fragment and find its free variables:
//
//	prog, err := js.Parse("lib.js", src)
//	if err != nil {
//	    return err
//	}
//	scope := js.Analyze(prog)
//	for _, name := range scope.Free {
//	    ...
//	}
//
// Print an AST:
//
//	src := js.Print(prog)
package js
