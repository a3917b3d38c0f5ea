package js

import (
	"fmt"
	"strings"
)

// Print serialises a program back to JavaScript source. The output is
// deterministic and re-parseable; parenthesization is conservative.
func Print(prog *Program) string {
	p := &printer{}
	for _, d := range prog.Directives {
		p.line(quoteString(d) + ";")
	}
	for _, s := range prog.Body {
		p.stmt(s)
	}
	return p.sb.String()
}

// PrintExpr serialises a single expression.
func PrintExpr(e Expr) string {
	p := &printer{}
	p.expr(e, 0)
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
	atLine bool // true when at the start of an unwritten line
}

func (p *printer) emit(s string) {
	if !p.atLine {
		p.sb.WriteString(strings.Repeat("  ", p.indent))
		p.atLine = true
	}
	p.sb.WriteString(s)
}

func (p *printer) nl() {
	p.sb.WriteByte('\n')
	p.atLine = false
}

func (p *printer) line(s string) {
	p.emit(s)
	p.nl()
}

// ---- Statements ----

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *VarStmt:
		p.varStmt(s)
		p.line(";")
	case *ExprStmt:
		if startsAmbiguously(s.X) {
			p.emit("(")
			p.expr(s.X, 0)
			p.line(");")
		} else {
			p.expr(s.X, 0)
			p.line(";")
		}
	case *BlockStmt:
		p.block(s)
		p.nl()
	case *FuncDecl:
		p.funcLit(s.Fn)
		p.nl()
	case *ClassDecl:
		p.classLit(s.Class)
		p.nl()
	case *ReturnStmt:
		if s.Arg == nil {
			p.line("return;")
		} else {
			p.emit("return ")
			p.expr(s.Arg, 0)
			p.line(";")
		}
	case *IfStmt:
		p.emit("if (")
		p.expr(s.Cond, 0)
		p.emit(") ")
		p.block(asBlock(s.Then))
		if s.Else != nil {
			p.emit(" else ")
			if elif, ok := s.Else.(*IfStmt); ok {
				p.stmt(elif)
				return
			}
			p.block(asBlock(s.Else))
		}
		p.nl()
	case *ForStmt:
		p.emit("for (")
		if vs, ok := s.Init.(*VarStmt); ok {
			p.varStmt(vs)
		} else if es, ok := s.Init.(*ExprStmt); ok {
			p.expr(es.X, 0)
		}
		p.emit("; ")
		if s.Cond != nil {
			p.expr(s.Cond, 0)
		}
		p.emit("; ")
		if s.Post != nil {
			p.expr(s.Post, 0)
		}
		p.emit(") ")
		p.block(asBlock(s.Body))
		p.nl()
	case *ForInStmt:
		p.emit("for (")
		if vs, ok := s.Left.(*VarStmt); ok {
			p.varStmt(vs)
		} else if es, ok := s.Left.(*ExprStmt); ok {
			p.expr(es.X, 16)
		}
		if s.Of {
			p.emit(" of ")
		} else {
			p.emit(" in ")
		}
		p.expr(s.Right, 2)
		p.emit(") ")
		p.block(asBlock(s.Body))
		p.nl()
	case *WhileStmt:
		p.emit("while (")
		p.expr(s.Cond, 0)
		p.emit(") ")
		p.block(asBlock(s.Body))
		p.nl()
	case *DoWhileStmt:
		p.emit("do ")
		p.block(asBlock(s.Body))
		p.emit(" while (")
		p.expr(s.Cond, 0)
		p.line(");")
	case *SwitchStmt:
		p.emit("switch (")
		p.expr(s.Disc, 0)
		p.emit(") {")
		p.nl()
		p.indent++
		for _, c := range s.Cases {
			if c.Test != nil {
				p.emit("case ")
				p.expr(c.Test, 0)
				p.line(":")
			} else {
				p.line("default:")
			}
			p.indent++
			for _, st := range c.Body {
				p.stmt(st)
			}
			p.indent--
		}
		p.indent--
		p.line("}")
	case *TryStmt:
		p.emit("try ")
		p.block(s.Body)
		if s.Catch != nil {
			p.emit(" catch ")
			if s.CatchParam != nil {
				p.emit("(")
				p.pattern(s.CatchParam)
				p.emit(") ")
			}
			p.block(s.Catch)
		}
		if s.Finally != nil {
			p.emit(" finally ")
			p.block(s.Finally)
		}
		p.nl()
	case *ThrowStmt:
		p.emit("throw ")
		p.expr(s.Arg, 0)
		p.line(";")
	case *BreakStmt:
		if s.Label != "" {
			p.line("break " + s.Label + ";")
		} else {
			p.line("break;")
		}
	case *ContinueStmt:
		if s.Label != "" {
			p.line("continue " + s.Label + ";")
		} else {
			p.line("continue;")
		}
	case *LabeledStmt:
		p.emit(s.Label + ": ")
		p.stmt(s.Stmt)
	case *EmptyStmt:
		p.line(";")
	case *DebuggerStmt:
		p.line("debugger;")
	case *ImportDecl:
		p.importDecl(s)
	case *ExportDecl:
		p.exportDecl(s)
	default:
		panic(fmt.Sprintf("js: cannot print statement %T", s))
	}
}

// asBlock wraps non-block substatements so loop and branch bodies are
// always braced.
func asBlock(s Stmt) *BlockStmt {
	if b, ok := s.(*BlockStmt); ok {
		return b
	}
	return &BlockStmt{Body: []Stmt{s}}
}

func (p *printer) block(b *BlockStmt) {
	if len(b.Body) == 0 {
		p.emit("{}")
		return
	}
	p.emit("{")
	p.nl()
	p.indent++
	for _, s := range b.Body {
		p.stmt(s)
	}
	p.indent--
	p.emit("}")
}

// varStmt prints a declaration without the terminating semicolon.
func (p *printer) varStmt(s *VarStmt) {
	p.emit(s.Kind + " ")
	for i, d := range s.Decls {
		if i > 0 {
			p.emit(", ")
		}
		p.pattern(d.Target)
		if d.Init != nil {
			p.emit(" = ")
			p.expr(d.Init, 2)
		}
	}
}

func (p *printer) importDecl(s *ImportDecl) {
	p.emit("import ")
	wrote := false
	if s.Default != "" {
		p.emit(s.Default)
		wrote = true
	}
	if len(s.Named) > 0 {
		if wrote {
			p.emit(", ")
		}
		p.emit("{ ")
		for i, spec := range s.Named {
			if i > 0 {
				p.emit(", ")
			}
			if spec.Name != "" {
				p.emit(spec.Name + " as " + spec.Binding)
			} else {
				p.emit(spec.Binding)
			}
		}
		p.emit(" }")
		wrote = true
	}
	if wrote {
		p.emit(" from ")
	}
	p.line(quoteString(s.From) + ";")
}

func (p *printer) exportDecl(s *ExportDecl) {
	p.emit("export ")
	if s.Decl != nil {
		p.stmt(s.Decl)
		return
	}
	p.emit("{ ")
	for i, spec := range s.Specs {
		if i > 0 {
			p.emit(", ")
		}
		if spec.Local != "" {
			p.emit(spec.Local + " as " + spec.Exported)
		} else {
			p.emit(spec.Exported)
		}
	}
	p.line(" };")
}

// ---- Patterns ----

func (p *printer) pattern(pat Pattern) {
	switch pat := pat.(type) {
	case *Ident:
		p.emit(pat.Name)
	case *ArrayPattern:
		p.emit("[")
		for i, el := range pat.Elems {
			if i > 0 {
				p.emit(", ")
			}
			if el != nil {
				p.pattern(el)
			}
		}
		if pat.Rest != nil {
			if len(pat.Elems) > 0 {
				p.emit(", ")
			}
			p.emit("...")
			p.pattern(pat.Rest)
		}
		p.emit("]")
	case *ObjectPattern:
		p.emit("{")
		for i, prop := range pat.Props {
			if i > 0 {
				p.emit(", ")
			}
			if prop.Computed {
				p.emit("[")
				p.expr(prop.Key, 2)
				p.emit("]: ")
				p.pattern(prop.Value)
			} else if prop.Shorthand {
				p.pattern(prop.Value)
			} else {
				p.propertyKey(prop.Key, false)
				p.emit(": ")
				p.pattern(prop.Value)
			}
		}
		if pat.Rest != nil {
			if len(pat.Props) > 0 {
				p.emit(", ")
			}
			p.emit("...")
			p.pattern(pat.Rest)
		}
		p.emit("}")
	case *AssignPattern:
		p.pattern(pat.Target)
		p.emit(" = ")
		p.expr(pat.Default, 2)
	case *RestParam:
		p.emit("...")
		p.pattern(pat.Target)
	default:
		panic(fmt.Sprintf("js: cannot print pattern %T", pat))
	}
}

// ---- Expressions ----

// exprPrec returns the binding strength of an expression; higher binds
// tighter. Children printed in a context requiring minPrec get wrapped in
// parentheses when their own precedence is lower.
func exprPrec(e Expr) int {
	switch e := e.(type) {
	case *SeqExpr:
		return 1
	case *AssignExpr, *YieldExpr, *CondExpr:
		return 2
	case *FuncLit:
		return 2
	case *BinaryExpr:
		return 2 + binaryPrec[e.Op]
	case *UnaryExpr:
		if e.Postfix {
			return 16
		}
		return 15
	case *AwaitExpr:
		return 15
	case *CallExpr, *TemplateLit:
		if t, ok := e.(*TemplateLit); ok && t.Tag == nil {
			return 20
		}
		return 18
	case *NewExpr:
		return 19
	case *MemberExpr:
		if memberChainHasCall(e) {
			return 18
		}
		return 19
	case *SpreadExpr:
		return 2
	default:
		return 20
	}
}

func memberChainHasCall(e Expr) bool {
	for {
		switch x := e.(type) {
		case *MemberExpr:
			e = x.Obj
		case *CallExpr:
			return true
		default:
			return false
		}
	}
}

// startsAmbiguously reports whether the leftmost token of an expression
// would be misparsed at statement start ("{", "function", "class").
func startsAmbiguously(e Expr) bool {
	for {
		switch x := e.(type) {
		case *ObjectLit, *ClassLit:
			return true
		case *FuncLit:
			return !x.Arrow
		case *CallExpr:
			e = x.Callee
		case *MemberExpr:
			e = x.Obj
		case *BinaryExpr:
			e = x.L
		case *CondExpr:
			e = x.Test
		case *AssignExpr:
			t, ok := x.Target.(Expr)
			if !ok {
				return false
			}
			e = t
		case *SeqExpr:
			e = x.Exprs[0]
		case *UnaryExpr:
			if x.Postfix {
				e = x.X
				continue
			}
			return false
		case *TemplateLit:
			if x.Tag == nil {
				return false
			}
			e = x.Tag
		default:
			return false
		}
	}
}

func (p *printer) expr(e Expr, minPrec int) {
	prec := exprPrec(e)
	if prec < minPrec {
		p.emit("(")
		p.exprInner(e)
		p.emit(")")
		return
	}
	p.exprInner(e)
}

func (p *printer) exprInner(e Expr) {
	switch e := e.(type) {
	case *Ident:
		p.emit(e.Name)
	case *StringLit:
		p.emit(quoteString(e.Value))
	case *NumberLit:
		p.emit(e.Raw)
	case *BoolLit:
		if e.Value {
			p.emit("true")
		} else {
			p.emit("false")
		}
	case *NullLit:
		p.emit("null")
	case *RegexLit:
		p.emit(e.Raw)
	case *ThisExpr:
		p.emit("this")
	case *SuperExpr:
		p.emit("super")
	case *TemplateLit:
		if e.Tag != nil {
			p.expr(e.Tag, 18)
		}
		p.emit("`")
		for i, q := range e.Quasis {
			p.emit(q)
			if i < len(e.Exprs) {
				p.emit("${")
				p.expr(e.Exprs[i], 0)
				p.emit("}")
			}
		}
		p.emit("`")
	case *ArrayLit:
		p.emit("[")
		for i, el := range e.Elems {
			if i > 0 {
				p.emit(", ")
			}
			if el != nil {
				p.expr(el, 2)
			}
		}
		p.emit("]")
	case *ObjectLit:
		if len(e.Props) == 0 {
			p.emit("{}")
			return
		}
		p.emit("{")
		p.nl()
		p.indent++
		for i, prop := range e.Props {
			p.property(prop)
			if i < len(e.Props)-1 {
				p.emit(",")
			}
			p.nl()
		}
		p.indent--
		p.emit("}")
	case *FuncLit:
		p.funcLit(e)
	case *ClassLit:
		p.classLit(e)
	case *CallExpr:
		p.expr(e.Callee, 18)
		p.args(e.Args)
	case *NewExpr:
		p.emit("new ")
		p.expr(e.Callee, 19)
		p.args(e.Args)
	case *MemberExpr:
		p.expr(e.Obj, 18)
		if e.Computed {
			p.emit("[")
			p.expr(e.Prop, 0)
			p.emit("]")
		} else {
			p.emit(".")
			p.emit(e.Prop.(*Ident).Name)
		}
	case *AssignExpr:
		if t, ok := e.Target.(Expr); ok {
			p.expr(t, 16)
		} else {
			p.pattern(e.Target.(Pattern))
		}
		p.emit(" " + e.Op + " ")
		p.expr(e.Value, 2)
	case *BinaryExpr:
		prec := 2 + binaryPrec[e.Op]
		leftMin, rightMin := prec, prec+1
		if e.Op == "**" {
			leftMin, rightMin = prec+1, prec
		}
		if mixedLogical(e.Op, e.L) {
			leftMin = 21
		}
		if mixedLogical(e.Op, e.R) {
			rightMin = 21
		}
		p.expr(e.L, leftMin)
		p.emit(" " + e.Op + " ")
		p.expr(e.R, rightMin)
	case *UnaryExpr:
		if e.Postfix {
			p.expr(e.X, 16)
			p.emit(e.Op)
			return
		}
		p.emit(e.Op)
		if isWordOp(e.Op) {
			p.emit(" ")
		}
		p.expr(e.X, 16)
	case *AwaitExpr:
		p.emit("await ")
		p.expr(e.X, 16)
	case *YieldExpr:
		p.emit("yield")
		if e.Delegate {
			p.emit("*")
		}
		if e.X != nil {
			p.emit(" ")
			p.expr(e.X, 2)
		}
	case *CondExpr:
		p.expr(e.Test, 3)
		p.emit(" ? ")
		p.expr(e.Cons, 2)
		p.emit(" : ")
		p.expr(e.Alt, 2)
	case *SeqExpr:
		for i, x := range e.Exprs {
			if i > 0 {
				p.emit(", ")
			}
			p.expr(x, 2)
		}
	case *SpreadExpr:
		p.emit("...")
		p.expr(e.X, 2)
	default:
		panic(fmt.Sprintf("js: cannot print expression %T", e))
	}
}

// mixedLogical reports whether JS requires explicit parentheses between ??
// and ||/&& operands.
func mixedLogical(op string, child Expr) bool {
	b, ok := child.(*BinaryExpr)
	if !ok {
		return false
	}
	if op == "??" {
		return b.Op == "||" || b.Op == "&&"
	}
	if op == "||" || op == "&&" {
		return b.Op == "??"
	}
	return false
}

func isWordOp(op string) bool {
	switch op {
	case "typeof", "void", "delete":
		return true
	}
	return false
}

func (p *printer) args(args []Expr) {
	p.emit("(")
	for i, a := range args {
		if i > 0 {
			p.emit(", ")
		}
		p.expr(a, 2)
	}
	p.emit(")")
}

func (p *printer) funcLit(fn *FuncLit) {
	if fn.Arrow {
		if fn.Async {
			p.emit("async ")
		}
		p.emit("(")
		p.params(fn.Params)
		p.emit(") => ")
		if fn.Body != nil {
			p.block(fn.Body)
		} else if _, isObj := fn.ExprBody.(*ObjectLit); isObj {
			p.emit("(")
			p.expr(fn.ExprBody, 2)
			p.emit(")")
		} else {
			p.expr(fn.ExprBody, 2)
		}
		return
	}
	if fn.Async {
		p.emit("async ")
	}
	p.emit("function")
	if fn.Generator {
		p.emit("*")
	}
	if fn.Name != "" {
		p.emit(" " + fn.Name)
	}
	p.emit("(")
	p.params(fn.Params)
	p.emit(") ")
	p.block(fn.Body)
}

func (p *printer) params(params []Pattern) {
	for i, param := range params {
		if i > 0 {
			p.emit(", ")
		}
		p.pattern(param)
	}
}

func (p *printer) classLit(class *ClassLit) {
	p.emit("class")
	if class.Name != "" {
		p.emit(" " + class.Name)
	}
	if class.SuperClass != nil {
		p.emit(" extends ")
		p.expr(class.SuperClass, 18)
	}
	p.emit(" {")
	p.nl()
	p.indent++
	for _, m := range class.Methods {
		if m.Static {
			p.emit("static ")
		}
		p.methodHead(m.Kind, m.Fn)
		p.propertyKey(m.Key, m.Computed)
		p.emit("(")
		p.params(m.Fn.Params)
		p.emit(") ")
		p.block(m.Fn.Body)
		p.nl()
	}
	p.indent--
	p.emit("}")
}

func (p *printer) methodHead(kind PropKind, fn *FuncLit) {
	if fn.Async {
		p.emit("async ")
	}
	if fn.Generator {
		p.emit("*")
	}
	switch kind {
	case PropGet:
		p.emit("get ")
	case PropSet:
		p.emit("set ")
	}
}

func (p *printer) property(prop *Property) {
	if sp, ok := prop.Value.(*SpreadExpr); ok && prop.Key == nil {
		p.emit("...")
		p.expr(sp.X, 2)
		return
	}
	switch prop.Kind {
	case PropGet, PropSet, PropMethod:
		fn := prop.Value.(*FuncLit)
		p.methodHead(prop.Kind, fn)
		p.propertyKey(prop.Key, prop.Computed)
		p.emit("(")
		p.params(fn.Params)
		p.emit(") ")
		p.block(fn.Body)
	default:
		if prop.Shorthand {
			p.propertyKey(prop.Key, false)
			return
		}
		p.propertyKey(prop.Key, prop.Computed)
		p.emit(": ")
		p.expr(prop.Value, 2)
	}
}

func (p *printer) propertyKey(key Expr, computed bool) {
	if computed {
		p.emit("[")
		p.expr(key, 2)
		p.emit("]")
		return
	}
	switch k := key.(type) {
	case *Ident:
		p.emit(k.Name)
	case *StringLit:
		p.emit(quoteString(k.Value))
	case *NumberLit:
		p.emit(k.Raw)
	default:
		p.emit("[")
		p.expr(key, 2)
		p.emit("]")
	}
}

// quoteString renders a double-quoted JS string literal.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, "\\u%04x", r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
