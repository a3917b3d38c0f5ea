package js

import (
	"fmt"
)

// Parse parses src as a script and returns its AST. The file name is used
// in error positions only.
func Parse(file, src string) (prog *Program, err error) {
	p := newParser(file, src)
	defer p.recoverFailure(&err)
	p.next()
	return p.parseProgram(), nil
}

// ParseExpr parses src as a single expression.
func ParseExpr(file, src string) (expr Expr, err error) {
	p := newParser(file, src)
	defer p.recoverFailure(&err)
	p.next()
	e := p.parseAssign()
	if p.tok.Kind != TEOF {
		p.fail("unexpected %s after expression", p.describe(p.tok))
	}
	return e, nil
}

type parser struct {
	file  string
	lex   *lexer
	tok   Token
	ahead *Token
	noIn  bool
}

type parseFailure struct {
	err error
}

func newParser(file, src string) *parser {
	return &parser{file: file, lex: newLexer(file, src)}
}

func (p *parser) recoverFailure(err *error) {
	if r := recover(); r != nil {
		if f, ok := r.(parseFailure); ok {
			*err = f.err
			return
		}
		panic(r)
	}
}

func (p *parser) fail(format string, args ...any) {
	panic(parseFailure{&SyntaxError{
		File: p.file,
		Line: p.tok.Line,
		Col:  p.tok.Col,
		Msg:  fmt.Sprintf(format, args...),
	}})
}

func (p *parser) describe(t Token) string {
	switch t.Kind {
	case TEOF:
		return "end of input"
	case TTemplate:
		return "template literal"
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}

func (p *parser) next() {
	if p.ahead != nil {
		p.tok = *p.ahead
		p.ahead = nil
		return
	}
	t, err := p.lex.Next()
	if err != nil {
		panic(parseFailure{err})
	}
	p.tok = t
}

func (p *parser) peek() Token {
	if p.ahead == nil {
		t, err := p.lex.Next()
		if err != nil {
			panic(parseFailure{err})
		}
		p.ahead = &t
	}
	return *p.ahead
}

type parserState struct {
	lex   lexer
	tok   Token
	ahead *Token
	noIn  bool
}

func (p *parser) save() parserState {
	return parserState{lex: *p.lex, tok: p.tok, ahead: p.ahead, noIn: p.noIn}
}

func (p *parser) restore(s parserState) {
	*p.lex = s.lex
	p.tok = s.tok
	p.ahead = s.ahead
	p.noIn = s.noIn
}

func (p *parser) isPunct(v string) bool {
	return p.tok.Kind == TPunct && p.tok.Value == v
}

func (p *parser) isKeyword(v string) bool {
	return p.tok.Kind == TKeyword && p.tok.Value == v
}

func (p *parser) expectPunct(v string) {
	if !p.isPunct(v) {
		p.fail("expected %q, found %s", v, p.describe(p.tok))
	}
	p.next()
}

func (p *parser) expectKeyword(v string) {
	if !p.isKeyword(v) {
		p.fail("expected %q, found %s", v, p.describe(p.tok))
	}
	p.next()
}

func (p *parser) expectIdent() string {
	if p.tok.Kind != TIdent {
		p.fail("expected identifier, found %s", p.describe(p.tok))
	}
	name := p.tok.Value
	p.next()
	return name
}

// identName accepts identifiers and keywords (property-name position).
func (p *parser) identName() string {
	if p.tok.Kind != TIdent && p.tok.Kind != TKeyword {
		p.fail("expected name, found %s", p.describe(p.tok))
	}
	name := p.tok.Value
	p.next()
	return name
}

// consumeSemicolon applies automatic semicolon insertion.
func (p *parser) consumeSemicolon() {
	if p.isPunct(";") {
		p.next()
		return
	}
	if p.isPunct("}") || p.tok.Kind == TEOF || p.tok.NewlineBefore {
		return
	}
	p.fail("expected ';', found %s", p.describe(p.tok))
}

func (p *parser) parseProgram() *Program {
	prog := &Program{}
	for p.tok.Kind == TString {
		next := p.peek()
		terminated := next.Kind == TEOF || next.NewlineBefore ||
			next.Kind == TPunct && (next.Value == ";" || next.Value == "}")
		if !terminated {
			break
		}
		prog.Directives = append(prog.Directives, p.tok.Value)
		p.next()
		if p.isPunct(";") {
			p.next()
		}
	}
	for p.tok.Kind != TEOF {
		prog.Body = append(prog.Body, p.parseModuleItem())
	}
	return prog
}

// parseModuleItem parses a top-level statement, allowing import/export.
func (p *parser) parseModuleItem() Stmt {
	if p.isKeyword("import") {
		return p.parseImportDecl()
	}
	if p.isKeyword("export") {
		return p.parseExportDecl()
	}
	return p.parseStatement()
}

func (p *parser) parseImportDecl() Stmt {
	p.expectKeyword("import")
	decl := &ImportDecl{}
	if p.tok.Kind == TString {
		decl.From = p.tok.Value
		p.next()
		p.consumeSemicolon()
		return decl
	}
	if p.isPunct("*") {
		p.fail("namespace imports are not supported")
	}
	if p.tok.Kind == TIdent {
		decl.Default = p.expectIdent()
		if p.isPunct(",") {
			p.next()
		}
	}
	if p.isPunct("{") {
		p.next()
		for !p.isPunct("}") {
			spec := &ImportSpec{}
			name := p.identName()
			if p.tok.Kind == TIdent && p.tok.Value == "as" {
				p.next()
				spec.Name = name
				spec.Binding = p.expectIdent()
			} else {
				spec.Binding = name
			}
			decl.Named = append(decl.Named, spec)
			if !p.isPunct(",") {
				break
			}
			p.next()
		}
		p.expectPunct("}")
	}
	if !(p.tok.Kind == TIdent && p.tok.Value == "from") {
		p.fail("expected 'from' in import declaration")
	}
	p.next()
	if p.tok.Kind != TString {
		p.fail("expected module specifier string")
	}
	decl.From = p.tok.Value
	p.next()
	p.consumeSemicolon()
	return decl
}

func (p *parser) parseExportDecl() Stmt {
	p.expectKeyword("export")
	switch {
	case p.isKeyword("default"):
		p.fail("default exports are not supported")
	case p.isPunct("*"):
		p.fail("re-export forms are not supported")
	case p.isPunct("{"):
		decl := &ExportDecl{}
		p.next()
		for !p.isPunct("}") {
			spec := &ExportSpec{}
			name := p.identName()
			if p.tok.Kind == TIdent && p.tok.Value == "as" {
				p.next()
				spec.Local = name
				spec.Exported = p.identName()
			} else {
				spec.Exported = name
			}
			decl.Specs = append(decl.Specs, spec)
			if !p.isPunct(",") {
				break
			}
			p.next()
		}
		p.expectPunct("}")
		if p.tok.Kind == TIdent && p.tok.Value == "from" {
			p.fail("re-export forms are not supported")
		}
		p.consumeSemicolon()
		return decl
	case p.isKeyword("var") || p.isKeyword("let") || p.isKeyword("const"):
		s := p.parseVarStmt()
		p.consumeSemicolon()
		return &ExportDecl{Decl: s}
	case p.isKeyword("function"):
		return &ExportDecl{Decl: p.parseFunctionDecl(false)}
	case p.tok.Kind == TIdent && p.tok.Value == "async" && p.peek().Kind == TKeyword && p.peek().Value == "function":
		p.next()
		return &ExportDecl{Decl: p.parseFunctionDecl(true)}
	case p.isKeyword("class"):
		return &ExportDecl{Decl: p.parseClassDecl()}
	}
	p.fail("unexpected %s in export declaration", p.describe(p.tok))
	return nil
}

func (p *parser) parseStatement() Stmt {
	switch {
	case p.isPunct("{"):
		return p.parseBlock()
	case p.isPunct(";"):
		p.next()
		return &EmptyStmt{}
	case p.isKeyword("var") || p.isKeyword("let") || p.isKeyword("const"):
		s := p.parseVarStmt()
		p.consumeSemicolon()
		return s
	case p.isKeyword("function"):
		return p.parseFunctionDecl(false)
	case p.tok.Kind == TIdent && p.tok.Value == "async" &&
		p.peek().Kind == TKeyword && p.peek().Value == "function" && !p.peek().NewlineBefore:
		p.next()
		return p.parseFunctionDecl(true)
	case p.isKeyword("class"):
		return p.parseClassDecl()
	case p.isKeyword("return"):
		p.next()
		s := &ReturnStmt{}
		if !p.isPunct(";") && !p.isPunct("}") && p.tok.Kind != TEOF && !p.tok.NewlineBefore {
			s.Arg = p.parseExpression()
		}
		p.consumeSemicolon()
		return s
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("for"):
		return p.parseFor()
	case p.isKeyword("while"):
		p.next()
		p.expectPunct("(")
		cond := p.parseExpression()
		p.expectPunct(")")
		return &WhileStmt{Cond: cond, Body: p.parseStatement()}
	case p.isKeyword("do"):
		p.next()
		body := p.parseStatement()
		p.expectKeyword("while")
		p.expectPunct("(")
		cond := p.parseExpression()
		p.expectPunct(")")
		if p.isPunct(";") {
			p.next()
		}
		return &DoWhileStmt{Body: body, Cond: cond}
	case p.isKeyword("switch"):
		return p.parseSwitch()
	case p.isKeyword("try"):
		return p.parseTry()
	case p.isKeyword("throw"):
		p.next()
		if p.tok.NewlineBefore {
			p.fail("newline after throw")
		}
		arg := p.parseExpression()
		p.consumeSemicolon()
		return &ThrowStmt{Arg: arg}
	case p.isKeyword("break"):
		p.next()
		s := &BreakStmt{}
		if p.tok.Kind == TIdent && !p.tok.NewlineBefore {
			s.Label = p.expectIdent()
		}
		p.consumeSemicolon()
		return s
	case p.isKeyword("continue"):
		p.next()
		s := &ContinueStmt{}
		if p.tok.Kind == TIdent && !p.tok.NewlineBefore {
			s.Label = p.expectIdent()
		}
		p.consumeSemicolon()
		return s
	case p.isKeyword("debugger"):
		p.next()
		p.consumeSemicolon()
		return &DebuggerStmt{}
	case p.isKeyword("import") || p.isKeyword("export"):
		p.fail("%s declarations are only allowed at the top level", p.tok.Value)
	case p.tok.Kind == TIdent:
		if next := p.peek(); next.Kind == TPunct && next.Value == ":" {
			label := p.expectIdent()
			p.next()
			return &LabeledStmt{Label: label, Stmt: p.parseStatement()}
		}
	}
	expr := p.parseExpression()
	p.consumeSemicolon()
	return &ExprStmt{X: expr}
}

func (p *parser) parseBlock() *BlockStmt {
	p.expectPunct("{")
	b := &BlockStmt{}
	for !p.isPunct("}") {
		if p.tok.Kind == TEOF {
			p.fail("unexpected end of input in block")
		}
		b.Body = append(b.Body, p.parseStatement())
	}
	p.next()
	return b
}

// parseVarStmt parses a declaration statement without consuming the
// terminating semicolon (for-loop headers share this).
func (p *parser) parseVarStmt() *VarStmt {
	kind := p.tok.Value
	p.next()
	s := &VarStmt{Kind: kind}
	for {
		d := &VarDecl{Target: p.parseBindingTarget()}
		if p.isPunct("=") {
			p.next()
			d.Init = p.parseAssign()
		}
		s.Decls = append(s.Decls, d)
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	return s
}

func (p *parser) parseBindingTarget() Pattern {
	switch {
	case p.tok.Kind == TIdent:
		return &Ident{Name: p.expectIdent()}
	case p.isPunct("["):
		return p.parseArrayPattern()
	case p.isPunct("{"):
		return p.parseObjectPattern()
	}
	p.fail("expected binding target, found %s", p.describe(p.tok))
	return nil
}

func (p *parser) parseArrayPattern() Pattern {
	p.expectPunct("[")
	pat := &ArrayPattern{}
	for !p.isPunct("]") {
		if p.isPunct(",") {
			pat.Elems = append(pat.Elems, nil)
			p.next()
			continue
		}
		if p.isPunct("...") {
			p.next()
			pat.Rest = p.parseBindingTarget()
			break
		}
		pat.Elems = append(pat.Elems, p.parseBindingElement())
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	p.expectPunct("]")
	return pat
}

func (p *parser) parseObjectPattern() Pattern {
	p.expectPunct("{")
	pat := &ObjectPattern{}
	for !p.isPunct("}") {
		if p.isPunct("...") {
			p.next()
			pat.Rest = p.parseBindingTarget()
			break
		}
		prop := &PropertyPattern{}
		switch {
		case p.isPunct("["):
			p.next()
			prop.Key = p.parseAssign()
			prop.Computed = true
			p.expectPunct("]")
			p.expectPunct(":")
			prop.Value = p.parseBindingElement()
		case p.tok.Kind == TString:
			prop.Key = &StringLit{Value: p.tok.Value}
			p.next()
			p.expectPunct(":")
			prop.Value = p.parseBindingElement()
		case p.tok.Kind == TNumber:
			prop.Key = &NumberLit{Raw: p.tok.Value}
			p.next()
			p.expectPunct(":")
			prop.Value = p.parseBindingElement()
		default:
			name := p.identName()
			prop.Key = &Ident{Name: name}
			if p.isPunct(":") {
				p.next()
				prop.Value = p.parseBindingElement()
			} else {
				prop.Shorthand = true
				target := Pattern(&Ident{Name: name})
				if p.isPunct("=") {
					p.next()
					target = &AssignPattern{Target: target, Default: p.parseAssign()}
				}
				prop.Value = target
			}
		}
		pat.Props = append(pat.Props, prop)
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	p.expectPunct("}")
	return pat
}

// parseBindingElement parses a binding target with an optional default.
func (p *parser) parseBindingElement() Pattern {
	target := p.parseBindingTarget()
	if p.isPunct("=") {
		p.next()
		return &AssignPattern{Target: target, Default: p.parseAssign()}
	}
	return target
}

func (p *parser) parseFunctionDecl(async bool) Stmt {
	fn := p.parseFunctionLit(async)
	if fn.Name == "" {
		p.fail("function declaration requires a name")
	}
	return &FuncDecl{Fn: fn}
}

// parseFunctionLit parses from the "function" keyword onward.
func (p *parser) parseFunctionLit(async bool) *FuncLit {
	p.expectKeyword("function")
	fn := &FuncLit{Async: async}
	if p.isPunct("*") {
		fn.Generator = true
		p.next()
	}
	if p.tok.Kind == TIdent {
		fn.Name = p.expectIdent()
	}
	fn.Params = p.parseParams()
	fn.Body = p.parseBlock()
	return fn
}

func (p *parser) parseParams() []Pattern {
	p.expectPunct("(")
	var params []Pattern
	for !p.isPunct(")") {
		if p.isPunct("...") {
			p.next()
			params = append(params, &RestParam{Target: p.parseBindingTarget()})
			break
		}
		params = append(params, p.parseBindingElement())
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	p.expectPunct(")")
	return params
}

func (p *parser) parseClassDecl() Stmt {
	class := p.parseClassLit()
	if class.Name == "" {
		p.fail("class declaration requires a name")
	}
	return &ClassDecl{Class: class}
}

func (p *parser) parseClassLit() *ClassLit {
	p.expectKeyword("class")
	class := &ClassLit{}
	if p.tok.Kind == TIdent {
		class.Name = p.expectIdent()
	}
	if p.isKeyword("extends") {
		p.next()
		class.SuperClass = p.parseUnaryPostfix()
	}
	p.expectPunct("{")
	for !p.isPunct("}") {
		if p.isPunct(";") {
			p.next()
			continue
		}
		class.Methods = append(class.Methods, p.parseMethod())
	}
	p.next()
	return class
}

func (p *parser) parseMethod() *MethodDef {
	m := &MethodDef{Kind: PropMethod}
	if p.tok.Kind == TIdent && p.tok.Value == "static" && !p.methodNameFollows() {
		m.Static = true
		p.next()
	}
	async := false
	generator := false
	if p.tok.Kind == TIdent && p.tok.Value == "async" && !p.methodNameFollows() {
		async = true
		p.next()
	}
	if p.isPunct("*") {
		generator = true
		p.next()
	}
	if (p.tok.Kind == TIdent && (p.tok.Value == "get" || p.tok.Value == "set")) && !p.methodNameFollows() {
		if p.tok.Value == "get" {
			m.Kind = PropGet
		} else {
			m.Kind = PropSet
		}
		p.next()
	}
	m.Key, m.Computed = p.parsePropertyKey()
	fn := &FuncLit{Async: async, Generator: generator}
	fn.Params = p.parseParams()
	fn.Body = p.parseBlock()
	m.Fn = fn
	return m
}

// methodNameFollows reports whether the current token is itself a method
// name (the next token opens the parameter list).
func (p *parser) methodNameFollows() bool {
	next := p.peek()
	return next.Kind == TPunct && next.Value == "("
}

func (p *parser) parsePropertyKey() (Expr, bool) {
	switch {
	case p.isPunct("["):
		p.next()
		key := p.parseAssign()
		p.expectPunct("]")
		return key, true
	case p.tok.Kind == TString:
		key := &StringLit{Value: p.tok.Value}
		p.next()
		return key, false
	case p.tok.Kind == TNumber:
		key := &NumberLit{Raw: p.tok.Value}
		p.next()
		return key, false
	default:
		return &Ident{Name: p.identName()}, false
	}
}

func (p *parser) parseIf() Stmt {
	p.expectKeyword("if")
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	s := &IfStmt{Cond: cond, Then: p.parseStatement()}
	if p.isKeyword("else") {
		p.next()
		s.Else = p.parseStatement()
	}
	return s
}

func (p *parser) parseFor() Stmt {
	p.expectKeyword("for")
	p.expectPunct("(")

	if p.isPunct(";") {
		p.next()
		return p.parseForRest(nil)
	}

	if p.isKeyword("var") || p.isKeyword("let") || p.isKeyword("const") {
		p.noIn = true
		decl := p.parseVarStmt()
		p.noIn = false
		if p.isKeyword("in") || p.tok.Kind == TIdent && p.tok.Value == "of" {
			of := p.tok.Value == "of"
			if len(decl.Decls) != 1 || decl.Decls[0].Init != nil {
				p.fail("invalid for-%s declaration", p.tok.Value)
			}
			p.next()
			right := p.parseAssign()
			p.expectPunct(")")
			return &ForInStmt{Left: decl, Right: right, Body: p.parseStatement(), Of: of}
		}
		p.expectPunct(";")
		return p.parseForRest(decl)
	}

	p.noIn = true
	init := p.parseExpression()
	p.noIn = false
	if p.isKeyword("in") || p.tok.Kind == TIdent && p.tok.Value == "of" {
		of := p.tok.Value == "of"
		p.next()
		right := p.parseAssign()
		p.expectPunct(")")
		return &ForInStmt{Left: &ExprStmt{X: init}, Right: right, Body: p.parseStatement(), Of: of}
	}
	p.expectPunct(";")
	return p.parseForRest(&ExprStmt{X: init})
}

func (p *parser) parseForRest(init Stmt) Stmt {
	s := &ForStmt{Init: init}
	if !p.isPunct(";") {
		s.Cond = p.parseExpression()
	}
	p.expectPunct(";")
	if !p.isPunct(")") {
		s.Post = p.parseExpression()
	}
	p.expectPunct(")")
	s.Body = p.parseStatement()
	return s
}

func (p *parser) parseSwitch() Stmt {
	p.expectKeyword("switch")
	p.expectPunct("(")
	disc := p.parseExpression()
	p.expectPunct(")")
	p.expectPunct("{")
	s := &SwitchStmt{Disc: disc}
	for !p.isPunct("}") {
		c := &SwitchCase{}
		if p.isKeyword("case") {
			p.next()
			c.Test = p.parseExpression()
		} else {
			p.expectKeyword("default")
		}
		p.expectPunct(":")
		for !p.isPunct("}") && !p.isKeyword("case") && !p.isKeyword("default") {
			c.Body = append(c.Body, p.parseStatement())
		}
		s.Cases = append(s.Cases, c)
	}
	p.next()
	return s
}

func (p *parser) parseTry() Stmt {
	p.expectKeyword("try")
	s := &TryStmt{Body: p.parseBlock()}
	if p.isKeyword("catch") {
		p.next()
		if p.isPunct("(") {
			p.next()
			s.CatchParam = p.parseBindingTarget()
			p.expectPunct(")")
		}
		s.Catch = p.parseBlock()
	}
	if p.isKeyword("finally") {
		p.next()
		s.Finally = p.parseBlock()
	}
	if s.Catch == nil && s.Finally == nil {
		p.fail("try statement requires catch or finally")
	}
	return s
}

// ---- Expressions ----

func (p *parser) parseExpression() Expr {
	expr := p.parseAssign()
	if !p.isPunct(",") {
		return expr
	}
	seq := &SeqExpr{Exprs: []Expr{expr}}
	for p.isPunct(",") {
		p.next()
		seq.Exprs = append(seq.Exprs, p.parseAssign())
	}
	return seq
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "<<=": true, ">>=": true, ">>>=": true,
	"&=": true, "|=": true, "^=": true,
}

func (p *parser) parseAssign() Expr {
	if arrow := p.tryParseArrow(); arrow != nil {
		return arrow
	}
	if p.isKeyword("yield") {
		p.next()
		y := &YieldExpr{}
		if p.isPunct("*") {
			y.Delegate = true
			p.next()
		}
		if !p.tok.NewlineBefore && !p.isPunct(")") && !p.isPunct("]") &&
			!p.isPunct("}") && !p.isPunct(",") && !p.isPunct(";") && p.tok.Kind != TEOF {
			y.X = p.parseAssign()
		}
		return y
	}

	left := p.parseConditional()
	if p.tok.Kind == TPunct && assignOps[p.tok.Value] {
		op := p.tok.Value
		switch left.(type) {
		case *Ident, *MemberExpr:
		default:
			p.fail("invalid assignment target")
		}
		p.next()
		return &AssignExpr{Op: op, Target: left, Value: p.parseAssign()}
	}
	return left
}

// tryParseArrow speculatively parses an arrow function, restoring the
// parser on failure.
func (p *parser) tryParseArrow() Expr {
	async := false
	state := p.save()

	if p.tok.Kind == TIdent && p.tok.Value == "async" {
		next := p.peek()
		if !next.NewlineBefore && (next.Kind == TIdent || next.Kind == TPunct && next.Value == "(") {
			async = true
			p.next()
		}
	}

	var params []Pattern
	switch {
	case p.tok.Kind == TIdent:
		name := p.tok.Value
		if next := p.peek(); next.Kind == TPunct && next.Value == "=>" && !next.NewlineBefore {
			p.next()
			params = []Pattern{&Ident{Name: name}}
		} else {
			p.restore(state)
			return nil
		}
	case p.isPunct("("):
		ok := func() (ok bool) {
			defer func() {
				if r := recover(); r != nil {
					if _, isParse := r.(parseFailure); isParse {
						ok = false
						return
					}
					panic(r)
				}
			}()
			params = p.parseParams()
			return true
		}()
		if !ok || !p.isPunct("=>") || p.tok.NewlineBefore {
			p.restore(state)
			return nil
		}
	default:
		p.restore(state)
		return nil
	}

	p.expectPunct("=>")
	fn := &FuncLit{Arrow: true, Async: async, Params: params}
	if p.isPunct("{") {
		fn.Body = p.parseBlock()
	} else {
		fn.ExprBody = p.parseAssign()
	}
	return fn
}

func (p *parser) parseConditional() Expr {
	test := p.parseBinary(1)
	if !p.isPunct("?") {
		return test
	}
	p.next()
	savedNoIn := p.noIn
	p.noIn = false
	cons := p.parseAssign()
	p.noIn = savedNoIn
	p.expectPunct(":")
	alt := p.parseAssign()
	return &CondExpr{Test: test, Cons: cons, Alt: alt}
}

var binaryPrec = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"|":  4,
	"^":  5,
	"&":  6,
	"==": 7, "!=": 7, "===": 7, "!==": 7,
	"<": 8, ">": 8, "<=": 8, ">=": 8, "in": 8, "instanceof": 8,
	"<<": 9, ">>": 9, ">>>": 9,
	"+": 10, "-": 10,
	"*": 11, "/": 11, "%": 11,
	"**": 12,
}

func (p *parser) binaryOp() (string, int, bool) {
	var op string
	switch p.tok.Kind {
	case TPunct:
		op = p.tok.Value
	case TKeyword:
		if p.tok.Value == "instanceof" || p.tok.Value == "in" && !p.noIn {
			op = p.tok.Value
		}
	}
	prec, ok := binaryPrec[op]
	return op, prec, ok && op != ""
}

func (p *parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for {
		op, prec, ok := p.binaryOp()
		if !ok || prec < minPrec {
			return left
		}
		p.next()
		var right Expr
		if op == "**" {
			// right-associative
			right = p.parseBinary(prec)
		} else {
			right = p.parseBinary(prec + 1)
		}
		left = &BinaryExpr{Op: op, L: left, R: right}
	}
}

func (p *parser) parseUnary() Expr {
	switch {
	case p.isPunct("!") || p.isPunct("~") || p.isPunct("+") || p.isPunct("-"):
		op := p.tok.Value
		p.next()
		return &UnaryExpr{Op: op, X: p.parseUnary()}
	case p.isKeyword("typeof") || p.isKeyword("void") || p.isKeyword("delete"):
		op := p.tok.Value
		p.next()
		return &UnaryExpr{Op: op, X: p.parseUnary()}
	case p.isPunct("++") || p.isPunct("--"):
		op := p.tok.Value
		p.next()
		return &UnaryExpr{Op: op, X: p.parseUnary()}
	case p.isKeyword("await"):
		p.next()
		return &AwaitExpr{X: p.parseUnary()}
	}
	return p.parseUnaryPostfix()
}

func (p *parser) parseUnaryPostfix() Expr {
	expr := p.parseCallMember()
	if (p.isPunct("++") || p.isPunct("--")) && !p.tok.NewlineBefore {
		op := p.tok.Value
		p.next()
		return &UnaryExpr{Op: op, X: expr, Postfix: true}
	}
	return expr
}

func (p *parser) parseCallMember() Expr {
	var expr Expr
	if p.isKeyword("new") {
		expr = p.parseNew()
	} else {
		expr = p.parsePrimary()
	}
	for {
		switch {
		case p.isPunct("."):
			p.next()
			expr = &MemberExpr{Obj: expr, Prop: &Ident{Name: p.identName()}}
		case p.isPunct("["):
			p.next()
			savedNoIn := p.noIn
			p.noIn = false
			prop := p.parseExpression()
			p.noIn = savedNoIn
			p.expectPunct("]")
			expr = &MemberExpr{Obj: expr, Prop: prop, Computed: true}
		case p.isPunct("("):
			expr = &CallExpr{Callee: expr, Args: p.parseArgs()}
		case p.tok.Kind == TTemplate:
			tmpl := p.parseTemplate()
			tmpl.Tag = expr
			expr = tmpl
		default:
			return expr
		}
	}
}

func (p *parser) parseNew() Expr {
	p.expectKeyword("new")
	var callee Expr
	if p.isKeyword("new") {
		callee = p.parseNew()
	} else {
		callee = p.parsePrimary()
	}
	// member accesses bind tighter than the argument list
	for {
		switch {
		case p.isPunct("."):
			p.next()
			callee = &MemberExpr{Obj: callee, Prop: &Ident{Name: p.identName()}}
		case p.isPunct("["):
			p.next()
			prop := p.parseExpression()
			p.expectPunct("]")
			callee = &MemberExpr{Obj: callee, Prop: prop, Computed: true}
		default:
			n := &NewExpr{Callee: callee}
			if p.isPunct("(") {
				n.Args = p.parseArgs()
			}
			return n
		}
	}
}

func (p *parser) parseArgs() []Expr {
	p.expectPunct("(")
	var args []Expr
	savedNoIn := p.noIn
	p.noIn = false
	for !p.isPunct(")") {
		if p.isPunct("...") {
			p.next()
			args = append(args, &SpreadExpr{X: p.parseAssign()})
		} else {
			args = append(args, p.parseAssign())
		}
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	p.noIn = savedNoIn
	p.expectPunct(")")
	return args
}

func (p *parser) parseTemplate() *TemplateLit {
	parts := p.tok.Template
	p.next()
	tmpl := &TemplateLit{Quasis: parts.Quasis}
	for _, src := range parts.Exprs {
		expr, err := ParseExpr(p.file, src)
		if err != nil {
			panic(parseFailure{err})
		}
		tmpl.Exprs = append(tmpl.Exprs, expr)
	}
	return tmpl
}

func (p *parser) parsePrimary() Expr {
	switch {
	case p.tok.Kind == TIdent:
		if p.tok.Value == "async" {
			if next := p.peek(); next.Kind == TKeyword && next.Value == "function" && !next.NewlineBefore {
				p.next()
				return p.parseFunctionLit(true)
			}
		}
		return &Ident{Name: p.expectIdent()}
	case p.tok.Kind == TNumber:
		e := &NumberLit{Raw: p.tok.Value}
		p.next()
		return e
	case p.tok.Kind == TString:
		e := &StringLit{Value: p.tok.Value}
		p.next()
		return e
	case p.tok.Kind == TRegex:
		e := &RegexLit{Raw: p.tok.Value}
		p.next()
		return e
	case p.tok.Kind == TTemplate:
		return p.parseTemplate()
	case p.isKeyword("this"):
		p.next()
		return &ThisExpr{}
	case p.isKeyword("super"):
		p.next()
		return &SuperExpr{}
	case p.isKeyword("true"):
		p.next()
		return &BoolLit{Value: true}
	case p.isKeyword("false"):
		p.next()
		return &BoolLit{}
	case p.isKeyword("null"):
		p.next()
		return &NullLit{}
	case p.isKeyword("function"):
		return p.parseFunctionLit(false)
	case p.isKeyword("class"):
		return p.parseClassLit()
	case p.isPunct("("):
		p.next()
		savedNoIn := p.noIn
		p.noIn = false
		expr := p.parseExpression()
		p.noIn = savedNoIn
		p.expectPunct(")")
		return expr
	case p.isPunct("["):
		return p.parseArrayLit()
	case p.isPunct("{"):
		return p.parseObjectLit()
	}
	p.fail("unexpected %s", p.describe(p.tok))
	return nil
}

func (p *parser) parseArrayLit() Expr {
	p.expectPunct("[")
	arr := &ArrayLit{}
	savedNoIn := p.noIn
	p.noIn = false
	for !p.isPunct("]") {
		if p.isPunct(",") {
			arr.Elems = append(arr.Elems, nil)
			p.next()
			continue
		}
		if p.isPunct("...") {
			p.next()
			arr.Elems = append(arr.Elems, &SpreadExpr{X: p.parseAssign()})
		} else {
			arr.Elems = append(arr.Elems, p.parseAssign())
		}
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	p.noIn = savedNoIn
	p.expectPunct("]")
	return arr
}

func (p *parser) parseObjectLit() Expr {
	p.expectPunct("{")
	obj := &ObjectLit{}
	savedNoIn := p.noIn
	p.noIn = false
	for !p.isPunct("}") {
		obj.Props = append(obj.Props, p.parseObjectProp())
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	p.noIn = savedNoIn
	p.expectPunct("}")
	return obj
}

func (p *parser) parseObjectProp() *Property {
	if p.isPunct("...") {
		p.next()
		return &Property{Value: &SpreadExpr{X: p.parseAssign()}}
	}

	prop := &Property{Kind: PropInit}
	async := false
	generator := false

	if p.tok.Kind == TIdent && p.tok.Value == "async" && !p.propertyEnds() {
		async = true
		p.next()
	}
	if p.isPunct("*") {
		generator = true
		p.next()
	}
	if p.tok.Kind == TIdent && (p.tok.Value == "get" || p.tok.Value == "set") &&
		!async && !generator && !p.propertyEnds() {
		if p.tok.Value == "get" {
			prop.Kind = PropGet
		} else {
			prop.Kind = PropSet
		}
		p.next()
	}

	prop.Key, prop.Computed = p.parsePropertyKey()

	switch {
	case prop.Kind == PropGet || prop.Kind == PropSet || async || generator || p.isPunct("("):
		if prop.Kind == PropInit {
			prop.Kind = PropMethod
		}
		fn := &FuncLit{Async: async, Generator: generator}
		fn.Params = p.parseParams()
		fn.Body = p.parseBlock()
		prop.Value = fn
	case p.isPunct(":"):
		p.next()
		prop.Value = p.parseAssign()
	default:
		ident, ok := prop.Key.(*Ident)
		if !ok || prop.Computed {
			p.fail("expected ':' in object literal")
		}
		prop.Shorthand = true
		prop.Value = &Ident{Name: ident.Name}
	}
	return prop
}

// propertyEnds reports whether the current token is a complete property
// (shorthand or method name), so that "get"/"set"/"async" prefixes are
// names rather than modifiers.
func (p *parser) propertyEnds() bool {
	next := p.peek()
	if next.Kind != TPunct {
		return false
	}
	switch next.Value {
	case "(", ":", ",", "}":
		return true
	}
	return false
}
