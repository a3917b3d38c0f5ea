package js

import (
	"strings"
	"testing"
)

// reprint parses src and prints it back, failing the test on any error.
func reprint(t *testing.T, src string) string {
	t.Helper()
	prog, err := Parse("test.js", src)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", src, err)
	}
	return Print(prog)
}

// normalize collapses all whitespace so tests are independent of the
// printer's layout.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"var decl", "var x = 1;"},
		{"let multi", "let a, b = 2;"},
		{"const func", "const f = function(a, b) { return a + b; };"},
		{"arrow", "const f = (a, b) => a + b;"},
		{"arrow block", "const f = x => { return x * 2; };"},
		{"async arrow", "const f = async x => x;"},
		{"nested calls", "f(g(1), h(2, 3));"},
		{"member chain", "a.b.c[d].e();"},
		{"new", "const m = new WebAssembly.Memory({initial: 1});"},
		{"new no args", "const x = new Thing;"},
		{"conditional", "const v = a ? b : c;"},
		{"logical", "const v = a && b || c;"},
		{"template", "const s = `a${b}c${d + 1}e`;"},
		{"tagged template", "const s = tag`x${y}z`;"},
		{"regex", "const r = /ab+c/gi;"},
		{"regex after operator", "const r = x / y / z;"},
		{"spread call", "f(...args);"},
		{"rest params", "function f(a, ...rest) { return rest; }"},
		{"destructuring array", "const [a, , b = 1, ...rest] = xs;"},
		{"destructuring object", "const {a, b: c, d = 2} = o;"},
		{"for classic", "for (let i = 0; i < 10; i++) { f(i); }"},
		{"for in", "for (const k in o) { f(k); }"},
		{"for of", "for (const v of xs) { f(v); }"},
		{"while", "while (x) { x--; }"},
		{"do while", "do { f(); } while (x);"},
		{"switch", "switch (x) { case 1: f(); break; default: g(); }"},
		{"try catch", "try { f(); } catch (e) { g(e); } finally { h(); }"},
		{"throw", "throw new Error('boom');"},
		{"labeled", "outer: for (;;) { break outer; }"},
		{"object literal", "const o = {a: 1, 'b c': 2, [k]: 3, d, m() { return 1; }};"},
		{"getter setter", "const o = {get x() { return 1; }, set x(v) { f(v); }};"},
		{"class", "class A extends B { constructor(x) { super(); this.x = x; } static make() { return new A(1); } get size() { return this.x; } }"},
		{"generator", "function* gen() { yield 1; yield* rest; }"},
		{"async function", "async function f() { return await g(); }"},
		{"iife", "(function() { f(); })();"},
		{"sequence", "a = (b, c);"},
		{"typeof chain", "const t = typeof x === 'object' && x.y !== undefined;"},
		{"asi", "const a = 1\nconst b = 2\nf(a, b)"},
		{"import named", "import { a, b as c } from \"mod\";"},
		{"import default", "import dflt, { x } from \"mod\";"},
		{"export named", "export { a, b as c };"},
		{"export decl", "export function f() { return 1; }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := reprint(t, tt.src)
			// The printed form must itself parse, and printing it again
			// must be a fixed point.
			prog, err := Parse("printed.js", out)
			if err != nil {
				t.Fatalf("printed output does not re-parse: %v\noutput:\n%s", err, out)
			}
			again := Print(prog)
			if again != out {
				t.Errorf("print is not a fixed point:\nfirst:\n%s\nsecond:\n%s", out, again)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated string", "const s = 'abc"},
		{"unterminated template", "const s = `abc"},
		{"unterminated block comment", "/* nope"},
		{"bad token", "const x = 1 @ 2;"},
		{"namespace import", "import * as ns from \"mod\";"},
		{"default export", "export default f;"},
		{"re-export", "export { a } from \"mod\";"},
		{"nested import", "function f() { import { a } from \"m\"; }"},
		{"missing semicolon same line", "const a = 1 const b = 2"},
		{"newline after throw", "throw\nnew Error('x');"},
		{"bare try", "try { f(); }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse("test.js", tt.src); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.src)
			}
		})
	}
}

func TestParseDirectives(t *testing.T) {
	prog, err := Parse("test.js", "\"use strict\";\nconst x = 1;")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Directives) != 1 || prog.Directives[0] != "use strict" {
		t.Errorf("Directives = %v, want [use strict]", prog.Directives)
	}
	if len(prog.Body) != 1 {
		t.Errorf("Body length = %d, want 1", len(prog.Body))
	}
	out := Print(prog)
	if !strings.HasPrefix(out, "\"use strict\";") {
		t.Errorf("printed program does not start with the directive:\n%s", out)
	}
}

func TestParseImportShapes(t *testing.T) {
	prog, err := Parse("test.js", "import dflt, { a, b as c } from \"mod\";")
	if err != nil {
		t.Fatal(err)
	}
	decl, ok := prog.Body[0].(*ImportDecl)
	if !ok {
		t.Fatalf("Body[0] = %T, want *ImportDecl", prog.Body[0])
	}
	if decl.Default != "dflt" || decl.From != "mod" {
		t.Errorf("got default %q from %q", decl.Default, decl.From)
	}
	if len(decl.Named) != 2 {
		t.Fatalf("Named length = %d, want 2", len(decl.Named))
	}
	if decl.Named[0].Binding != "a" || decl.Named[0].Name != "" {
		t.Errorf("Named[0] = %+v", decl.Named[0])
	}
	if decl.Named[1].Name != "b" || decl.Named[1].Binding != "c" {
		t.Errorf("Named[1] = %+v", decl.Named[1])
	}
}

func TestPrintPrecedence(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{
			"iife gets parens",
			&CallExpr{Callee: &FuncLit{Body: &BlockStmt{}}},
			"(function() {})()",
		},
		{
			"binary nesting",
			&BinaryExpr{Op: "*", L: &BinaryExpr{Op: "+", L: &Ident{Name: "a"}, R: &Ident{Name: "b"}}, R: &Ident{Name: "c"}},
			"(a + b) * c",
		},
		{
			"member of new",
			&MemberExpr{Obj: &NewExpr{Callee: &Ident{Name: "A"}}, Prop: &Ident{Name: "x"}},
			"new A().x",
		},
		{
			"assign in arrow body",
			&FuncLit{Arrow: true, ExprBody: &AssignExpr{Op: "=", Target: &Ident{Name: "x"}, Value: &Ident{Name: "y"}}},
			"() => x = y",
		},
		{
			"object arrow body parenthesized",
			&FuncLit{Arrow: true, ExprBody: &ObjectLit{}},
			"() => ({})",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(PrintExpr(tt.expr))
			if got != tt.want {
				t.Errorf("PrintExpr = %q, want %q", got, tt.want)
			}
		})
	}
}
