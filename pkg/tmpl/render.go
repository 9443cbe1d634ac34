package tmpl

import (
	"bytes"
	"fmt"
)

// renderState is the per-call rendering context. Included templates share
// the output buffer of their caller.
type renderState struct {
	eng   *Engine
	name  string
	depth int
	buf   *bytes.Buffer
}

func (st *renderState) renderNodes(nodes []Node, scope *Scope) error {
	for _, n := range nodes {
		switch t := n.(type) {
		case *TextNode:
			st.buf.WriteString(t.Text)
		case *RawNode:
			st.buf.WriteString(t.Text)
		case *PrintNode:
			v, err := st.eval(t.Expr, scope)
			if err != nil {
				return err
			}
			if v, err = st.applyFilters(v, t.Filters, scope); err != nil {
				return err
			}
			if u, ok := v.(Undefined); ok {
				st.eng.logger.Debug("undefined value printed", "template", st.name, "line", t.Line, "name", u.Name)
			}
			st.buf.WriteString(v.String())
		case *SetNode:
			v, err := st.eval(t.Expr, scope)
			if err != nil {
				return err
			}
			scope.Set(t.Name, v)
		case *IfNode:
			if err := st.renderIf(t, scope); err != nil {
				return err
			}
		case *ForNode:
			if err := st.renderFor(t, scope); err != nil {
				return err
			}
		case *BlockNode:
			if err := st.renderNodes(t.Body, scope); err != nil {
				return err
			}
		case *ParentNode, *ExtendsNode:
			// Consumed by the resolver; a parent outside an override has
			// nothing to render.
		case *IncludeNode:
			if err := st.include(t, scope); err != nil {
				return err
			}
		case *ComponentNode:
			if err := st.dispatch(CallComponent, t.Name, t.Props, scope); err != nil {
				return err
			}
		case *HookNode:
			if err := st.dispatch(CallHook, t.Name, t.Data, scope); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unhandled node type %T", n)
		}
	}
	return nil
}

func (st *renderState) renderIf(n *IfNode, scope *Scope) error {
	ok, err := st.truth(n.Cond, scope)
	if err != nil {
		return err
	}
	if ok {
		return st.renderNodes(n.Body, scope)
	}
	for _, ei := range n.ElseIfs {
		ok, err := st.truth(ei.Cond, scope)
		if err != nil {
			return err
		}
		if ok {
			return st.renderNodes(ei.Body, scope)
		}
	}
	return st.renderNodes(n.Else, scope)
}

func (st *renderState) truth(x Expr, scope *Scope) (bool, error) {
	v, err := st.eval(x, scope)
	if err != nil {
		return false, err
	}
	return v.Truth(), nil
}

// renderFor renders one layer per item. Anything that is not a list or
// mapping, undefined included, renders the else branch like an empty
// collection.
func (st *renderState) renderFor(n *ForNode, scope *Scope) error {
	coll, err := st.eval(n.Collection, scope)
	if err != nil {
		return err
	}
	items, keys, ok := iterate(coll)
	if !ok || len(items) == 0 {
		return st.renderNodes(n.Else, scope)
	}
	for i, item := range items {
		layer := map[string]Value{
			n.Item: item,
			"loop": DictValue{
				"index":  IntValue(i + 1),
				"index0": IntValue(i),
				"first":  BoolValue(i == 0),
				"last":   BoolValue(i == len(items)-1),
				"length": IntValue(len(items)),
			},
		}
		if n.Key != "" {
			layer[n.Key] = keys[i]
		}
		if err := st.renderNodes(n.Body, scope.Push(layer)); err != nil {
			return err
		}
	}
	return nil
}

func (st *renderState) include(n *IncludeNode, scope *Scope) error {
	depth := st.depth + 1
	if depth > st.eng.maxInclude {
		return &IncludeError{Kind: MaxDepthExceeded, Name: n.Template, Depth: depth}
	}
	var with DictValue
	if n.With != nil {
		v, err := st.eval(n.With, scope)
		if err != nil {
			return err
		}
		d, ok := v.(DictValue)
		if !ok {
			return &ExpressionError{Template: st.name, Pos: n.With.Position(), Kind: TypeMismatch,
				Msg: fmt.Sprintf("include %q: with expects a mapping, got %s", n.Template, typeName(v))}
		}
		with = d
	}
	tree, err := st.eng.Resolve(n.Template)
	if err != nil {
		return err
	}
	sub := &renderState{eng: st.eng, name: tree.Name, depth: depth, buf: st.buf}
	return sub.renderNodes(tree.Body, scope.Push(with))
}

func (st *renderState) dispatch(kind CallKind, name string, arg Expr, scope *Scope) error {
	var data Value = NoneValue{}
	if arg != nil {
		v, err := st.eval(arg, scope)
		if err != nil {
			return err
		}
		data = v
	}
	if st.eng.dispatcher == nil {
		if kind == CallHook {
			return nil
		}
		return &DispatchError{Kind: kind, Name: name, Err: fmt.Errorf("no dispatcher configured")}
	}
	out, err := st.eng.dispatcher.Dispatch(Call{Kind: kind, Name: name, Data: data, Depth: st.depth + 1, Template: st.name})
	if err != nil {
		if isEngineError(err) {
			return err
		}
		return &DispatchError{Kind: kind, Name: name, Err: err}
	}
	st.buf.WriteString(out)
	return nil
}
