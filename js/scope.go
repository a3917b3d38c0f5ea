package js

import "sort"

// GlobalScope is the result of scope analysis.
type GlobalScope struct {
	// Declared holds the names declared at the top level of the program.
	Declared map[string]bool
	// Free holds every identifier referenced somewhere in the program with
	// no binding in any enclosing scope, sorted. A name declared only inside
	// a block is still free where it is referenced outside that block.
	Free []string
}

// Analyze walks a program and computes its declared and free variables.
// var declarations hoist to the nearest function scope; let, const, class,
// and function declarations bind in their enclosing block. Every non-arrow
// function scope implicitly declares "arguments".
func Analyze(prog *Program) *GlobalScope {
	a := &analyzer{free: map[string]bool{}}
	top := a.push(nil, true)
	a.hoistVars(prog.Body, top)
	a.predeclare(prog.Body, top)
	for _, s := range prog.Body {
		a.stmt(s, top)
	}

	free := make([]string, 0, len(a.free))
	for name := range a.free {
		free = append(free, name)
	}
	sort.Strings(free)
	return &GlobalScope{Declared: top.names, Free: free}
}

type scope struct {
	parent *scope
	fn     bool
	names  map[string]bool
}

type analyzer struct {
	free map[string]bool
}

func (a *analyzer) push(parent *scope, fn bool) *scope {
	return &scope{parent: parent, fn: fn, names: map[string]bool{}}
}

func (s *scope) declare(name string) {
	s.names[name] = true
}

func (s *scope) declareVar(name string) {
	t := s
	for !t.fn {
		t = t.parent
	}
	t.names[name] = true
}

func (a *analyzer) reference(name string, s *scope) {
	for t := s; t != nil; t = t.parent {
		if t.names[name] {
			return
		}
	}
	a.free[name] = true
}

// PatternNames returns the names bound by a binding target.
func PatternNames(pat Pattern) []string {
	var out []string
	patternNames(pat, &out)
	return out
}

// patternNames collects the bound names of a binding target.
func patternNames(pat Pattern, out *[]string) {
	switch pat := pat.(type) {
	case *Ident:
		*out = append(*out, pat.Name)
	case *ArrayPattern:
		for _, el := range pat.Elems {
			if el != nil {
				patternNames(el, out)
			}
		}
		if pat.Rest != nil {
			patternNames(pat.Rest, out)
		}
	case *ObjectPattern:
		for _, prop := range pat.Props {
			patternNames(prop.Value, out)
		}
		if pat.Rest != nil {
			patternNames(pat.Rest, out)
		}
	case *AssignPattern:
		patternNames(pat.Target, out)
	case *RestParam:
		patternNames(pat.Target, out)
	}
}

// patternRefs walks the expression positions inside a pattern (defaults and
// computed keys).
func (a *analyzer) patternRefs(pat Pattern, s *scope) {
	switch pat := pat.(type) {
	case *ArrayPattern:
		for _, el := range pat.Elems {
			if el != nil {
				a.patternRefs(el, s)
			}
		}
		if pat.Rest != nil {
			a.patternRefs(pat.Rest, s)
		}
	case *ObjectPattern:
		for _, prop := range pat.Props {
			if prop.Computed {
				a.expr(prop.Key, s)
			}
			a.patternRefs(prop.Value, s)
		}
		if pat.Rest != nil {
			a.patternRefs(pat.Rest, s)
		}
	case *AssignPattern:
		a.expr(pat.Default, s)
		a.patternRefs(pat.Target, s)
	case *RestParam:
		a.patternRefs(pat.Target, s)
	}
}

// hoistVars declares var-bound names into the given function scope,
// descending into nested statements but not nested functions. Function
// declarations are bound by predeclare in their enclosing block.
func (a *analyzer) hoistVars(stmts []Stmt, s *scope) {
	for _, st := range stmts {
		a.hoistVarsStmt(st, s)
	}
}

func (a *analyzer) hoistVarsStmt(st Stmt, s *scope) {
	switch st := st.(type) {
	case *VarStmt:
		if st.Kind == "var" {
			var names []string
			for _, d := range st.Decls {
				patternNames(d.Target, &names)
			}
			for _, n := range names {
				s.declareVar(n)
			}
		}
	case *BlockStmt:
		a.hoistVars(st.Body, s)
	case *IfStmt:
		a.hoistVarsStmt(st.Then, s)
		if st.Else != nil {
			a.hoistVarsStmt(st.Else, s)
		}
	case *ForStmt:
		if st.Init != nil {
			a.hoistVarsStmt(st.Init, s)
		}
		a.hoistVarsStmt(st.Body, s)
	case *ForInStmt:
		a.hoistVarsStmt(st.Left, s)
		a.hoistVarsStmt(st.Body, s)
	case *WhileStmt:
		a.hoistVarsStmt(st.Body, s)
	case *DoWhileStmt:
		a.hoistVarsStmt(st.Body, s)
	case *SwitchStmt:
		for _, c := range st.Cases {
			a.hoistVars(c.Body, s)
		}
	case *TryStmt:
		a.hoistVars(st.Body.Body, s)
		if st.Catch != nil {
			a.hoistVars(st.Catch.Body, s)
		}
		if st.Finally != nil {
			a.hoistVars(st.Finally.Body, s)
		}
	case *LabeledStmt:
		a.hoistVarsStmt(st.Stmt, s)
	case *ExportDecl:
		if st.Decl != nil {
			a.hoistVarsStmt(st.Decl, s)
		}
	}
}

// predeclare binds the lexical declarations of a statement list into the
// given block scope.
func (a *analyzer) predeclare(stmts []Stmt, s *scope) {
	for _, st := range stmts {
		switch st := st.(type) {
		case *VarStmt:
			if st.Kind != "var" {
				var names []string
				for _, d := range st.Decls {
					patternNames(d.Target, &names)
				}
				for _, n := range names {
					s.declare(n)
				}
			}
		case *FuncDecl:
			s.declare(st.Fn.Name)
		case *ClassDecl:
			s.declare(st.Class.Name)
		case *ImportDecl:
			if st.Default != "" {
				s.declare(st.Default)
			}
			for _, spec := range st.Named {
				s.declare(spec.Binding)
			}
		case *ExportDecl:
			if st.Decl != nil {
				a.predeclare([]Stmt{st.Decl}, s)
			}
		}
	}
}

func (a *analyzer) block(b *BlockStmt, parent *scope) {
	s := a.push(parent, false)
	a.predeclare(b.Body, s)
	for _, st := range b.Body {
		a.stmt(st, s)
	}
}

func (a *analyzer) stmt(st Stmt, s *scope) {
	switch st := st.(type) {
	case *VarStmt:
		for _, d := range st.Decls {
			a.patternRefs(d.Target, s)
			if d.Init != nil {
				a.expr(d.Init, s)
			}
		}
	case *ExprStmt:
		a.expr(st.X, s)
	case *BlockStmt:
		a.block(st, s)
	case *FuncDecl:
		a.function(st.Fn, s)
	case *ClassDecl:
		a.class(st.Class, s)
	case *ReturnStmt:
		if st.Arg != nil {
			a.expr(st.Arg, s)
		}
	case *IfStmt:
		a.expr(st.Cond, s)
		a.stmt(st.Then, s)
		if st.Else != nil {
			a.stmt(st.Else, s)
		}
	case *ForStmt:
		inner := a.push(s, false)
		if vs, ok := st.Init.(*VarStmt); ok && vs.Kind != "var" {
			var names []string
			for _, d := range vs.Decls {
				patternNames(d.Target, &names)
			}
			for _, n := range names {
				inner.declare(n)
			}
		}
		if st.Init != nil {
			a.stmt(st.Init, inner)
		}
		if st.Cond != nil {
			a.expr(st.Cond, inner)
		}
		if st.Post != nil {
			a.expr(st.Post, inner)
		}
		a.stmt(st.Body, inner)
	case *ForInStmt:
		inner := a.push(s, false)
		if vs, ok := st.Left.(*VarStmt); ok {
			var names []string
			for _, d := range vs.Decls {
				patternNames(d.Target, &names)
			}
			for _, n := range names {
				if vs.Kind == "var" {
					inner.declareVar(n)
				} else {
					inner.declare(n)
				}
			}
		} else if es, ok := st.Left.(*ExprStmt); ok {
			a.expr(es.X, inner)
		}
		a.expr(st.Right, inner)
		a.stmt(st.Body, inner)
	case *WhileStmt:
		a.expr(st.Cond, s)
		a.stmt(st.Body, s)
	case *DoWhileStmt:
		a.stmt(st.Body, s)
		a.expr(st.Cond, s)
	case *SwitchStmt:
		a.expr(st.Disc, s)
		inner := a.push(s, false)
		for _, c := range st.Cases {
			a.predeclare(c.Body, inner)
		}
		for _, c := range st.Cases {
			if c.Test != nil {
				a.expr(c.Test, inner)
			}
			for _, cs := range c.Body {
				a.stmt(cs, inner)
			}
		}
	case *TryStmt:
		a.block(st.Body, s)
		if st.Catch != nil {
			inner := a.push(s, false)
			if st.CatchParam != nil {
				var names []string
				patternNames(st.CatchParam, &names)
				for _, n := range names {
					inner.declare(n)
				}
				a.patternRefs(st.CatchParam, inner)
			}
			a.predeclare(st.Catch.Body, inner)
			for _, cs := range st.Catch.Body {
				a.stmt(cs, inner)
			}
		}
		if st.Finally != nil {
			a.block(st.Finally, s)
		}
	case *ThrowStmt:
		a.expr(st.Arg, s)
	case *LabeledStmt:
		a.stmt(st.Stmt, s)
	case *ImportDecl, *ExportDecl:
		if ed, ok := st.(*ExportDecl); ok {
			if ed.Decl != nil {
				a.stmt(ed.Decl, s)
			} else {
				for _, spec := range ed.Specs {
					local := spec.Local
					if local == "" {
						local = spec.Exported
					}
					a.reference(local, s)
				}
			}
		}
	case *BreakStmt, *ContinueStmt, *EmptyStmt, *DebuggerStmt:
	}
}

func (a *analyzer) function(fn *FuncLit, parent *scope) {
	s := a.push(parent, true)
	if !fn.Arrow {
		s.declare("arguments")
		if fn.Name != "" {
			s.declare(fn.Name)
		}
	}
	var names []string
	for _, param := range fn.Params {
		patternNames(param, &names)
	}
	for _, n := range names {
		s.declare(n)
	}
	for _, param := range fn.Params {
		a.patternRefs(param, s)
	}
	if fn.Body != nil {
		a.hoistVars(fn.Body.Body, s)
		a.predeclare(fn.Body.Body, s)
		for _, st := range fn.Body.Body {
			a.stmt(st, s)
		}
	} else if fn.ExprBody != nil {
		a.expr(fn.ExprBody, s)
	}
}

func (a *analyzer) class(class *ClassLit, parent *scope) {
	s := a.push(parent, false)
	if class.Name != "" {
		s.declare(class.Name)
	}
	if class.SuperClass != nil {
		a.expr(class.SuperClass, s)
	}
	for _, m := range class.Methods {
		if m.Computed {
			a.expr(m.Key, s)
		}
		a.function(m.Fn, s)
	}
}

func (a *analyzer) expr(e Expr, s *scope) {
	switch e := e.(type) {
	case *Ident:
		a.reference(e.Name, s)
	case *StringLit, *NumberLit, *BoolLit, *NullLit, *RegexLit, *ThisExpr, *SuperExpr:
	case *TemplateLit:
		if e.Tag != nil {
			a.expr(e.Tag, s)
		}
		for _, x := range e.Exprs {
			a.expr(x, s)
		}
	case *ArrayLit:
		for _, el := range e.Elems {
			if el != nil {
				a.expr(el, s)
			}
		}
	case *ObjectLit:
		for _, prop := range e.Props {
			if prop.Computed && prop.Key != nil {
				a.expr(prop.Key, s)
			}
			a.expr(prop.Value, s)
		}
	case *FuncLit:
		a.function(e, s)
	case *ClassLit:
		a.class(e, s)
	case *CallExpr:
		a.expr(e.Callee, s)
		for _, arg := range e.Args {
			a.expr(arg, s)
		}
	case *NewExpr:
		a.expr(e.Callee, s)
		for _, arg := range e.Args {
			a.expr(arg, s)
		}
	case *MemberExpr:
		a.expr(e.Obj, s)
		if e.Computed {
			a.expr(e.Prop, s)
		}
	case *AssignExpr:
		if t, ok := e.Target.(Expr); ok {
			a.expr(t, s)
		}
		a.expr(e.Value, s)
	case *BinaryExpr:
		a.expr(e.L, s)
		a.expr(e.R, s)
	case *UnaryExpr:
		a.expr(e.X, s)
	case *AwaitExpr:
		a.expr(e.X, s)
	case *YieldExpr:
		if e.X != nil {
			a.expr(e.X, s)
		}
	case *CondExpr:
		a.expr(e.Test, s)
		a.expr(e.Cons, s)
		a.expr(e.Alt, s)
	case *SeqExpr:
		for _, x := range e.Exprs {
			a.expr(x, s)
		}
	case *SpreadExpr:
		a.expr(e.X, s)
	}
}
