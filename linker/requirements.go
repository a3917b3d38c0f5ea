package linker

// ImportSpec is one named import: the exported name on the source side and
// the local binding. Name is empty when the binding is not renamed.
type ImportSpec struct {
	Name    string
	Binding string
}

// Effective returns the name transmitted to the source side.
func (s ImportSpec) Effective() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Binding
}

// ExportSpec is one named export. Local is empty when the export is not
// renamed.
type ExportSpec struct {
	Local    string
	Exported string
}

// Effective returns the source-side reference.
func (s ExportSpec) Effective() string {
	if s.Local != "" {
		return s.Local
	}
	return s.Exported
}

// Requirement is a declared dependency on an external JS module. Variable
// is the identifier bound inside the generated factory; it carries a
// mangled suffix so user bindings can never collide with it.
type Requirement struct {
	Specifier string
	Variable  string
	Imports   []ImportSpec // import specifiers consumed, for reporting
}

// RequirementsTable is the per-link registry of external JS modules. The
// registration order is observable: it determines the positional argument
// order of the UMD factory.
type RequirementsTable struct {
	mangler *Mangler
	bySpec  map[string]*Requirement
	order   []*Requirement
}

// NewRequirementsTable creates an empty table using the given mangler for
// requirement variable names.
func NewRequirementsTable(m *Mangler) *RequirementsTable {
	return &RequirementsTable{mangler: m, bySpec: map[string]*Requirement{}}
}

// Lookup returns the requirement for a module specifier, registering it on
// first use.
func (t *RequirementsTable) Lookup(specifier string) *Requirement {
	if r, ok := t.bySpec[specifier]; ok {
		return r
	}
	r := &Requirement{
		Specifier: specifier,
		Variable:  t.mangler.Mangle(sanitizeIdent(specifier)),
	}
	t.bySpec[specifier] = r
	t.order = append(t.order, r)
	return r
}

// Get returns the requirement for a specifier, or nil.
func (t *RequirementsTable) Get(specifier string) *Requirement {
	return t.bySpec[specifier]
}

// All returns the requirements in registration order.
func (t *RequirementsTable) All() []*Requirement {
	return t.order
}

// sanitizeIdent maps a module specifier onto identifier characters so the
// mangled requirement variable stays readable in diagnostics.
func sanitizeIdent(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$':
			out = append(out, c)
		case c >= '0' && c <= '9':
			if len(out) == 0 {
				out = append(out, '_')
			}
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "req"
	}
	return string(out)
}
