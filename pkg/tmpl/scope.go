package tmpl

// Scope is one layer of a stack of name bindings. Lookups search from the
// innermost layer outwards; Set only writes the innermost layer, so a
// pushed layer shadows its parents without mutating them.
type Scope struct {
	vars   map[string]Value
	parent *Scope
}

// NewScope returns a single-layer scope holding a copy of vars.
func NewScope(vars map[string]Value) *Scope {
	s := &Scope{vars: make(map[string]Value, len(vars))}
	for k, v := range vars {
		s.vars[k] = v
	}
	return s
}

// Push returns a new innermost layer over s, initialized with a copy of
// vars.
func (s *Scope) Push(vars map[string]Value) *Scope {
	child := NewScope(vars)
	child.parent = s
	return child
}

// Lookup returns the innermost binding of name.
func (s *Scope) Lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set binds name in the innermost layer.
func (s *Scope) Set(name string, v Value) {
	s.vars[name] = v
}

// Depth returns the number of layers.
func (s *Scope) Depth() int {
	n := 0
	for cur := s; cur != nil; cur = cur.parent {
		n++
	}
	return n
}
