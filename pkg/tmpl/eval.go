package tmpl

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// eval evaluates an expression against scope. Errors are attributed to the
// position of the innermost expression that caused them.
func (st *renderState) eval(x Expr, scope *Scope) (Value, error) {
	switch t := x.(type) {
	case *Literal:
		return t.Value, nil
	case *NameExpr:
		if v, ok := scope.Lookup(t.Name); ok {
			return v, nil
		}
		return Undefined{Name: t.Name}, nil
	case *AttrExpr:
		v, err := st.eval(t.X, scope)
		if err != nil {
			return nil, err
		}
		return lookupAttr(v, t.Name, exprPath(t)), nil
	case *IndexExpr:
		v, err := st.eval(t.X, scope)
		if err != nil {
			return nil, err
		}
		idx, err := st.eval(t.Index, scope)
		if err != nil {
			return nil, err
		}
		res, err := index(v, idx, exprPath(t))
		return res, st.attach(err, t.Pos)
	case *ListExpr:
		out := make(ListValue, len(t.Items))
		for i, it := range t.Items {
			v, err := st.eval(it, scope)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *DictExpr:
		out := make(DictValue, len(t.Items))
		for _, it := range t.Items {
			v, err := st.eval(it.Value, scope)
			if err != nil {
				return nil, err
			}
			out[it.Key] = v
		}
		return out, nil
	case *UnaryExpr:
		v, err := st.eval(t.X, scope)
		if err != nil {
			return nil, err
		}
		if t.Op == OpNot {
			return BoolValue(!v.Truth()), nil
		}
		res, err := negate(v)
		return res, st.attach(err, t.Pos)
	case *BinaryExpr:
		return st.evalBinary(t, scope)
	case *FilterExpr:
		v, err := st.eval(t.X, scope)
		if err != nil {
			return nil, err
		}
		return st.applyFilters(v, t.Filters, scope)
	}
	return nil, fmt.Errorf("unhandled expression type %T", x)
}

func (st *renderState) evalBinary(t *BinaryExpr, scope *Scope) (Value, error) {
	left, err := st.eval(t.Left, scope)
	if err != nil {
		return nil, err
	}
	// and/or short-circuit and yield the deciding operand.
	switch t.Op {
	case OpOr:
		if left.Truth() {
			return left, nil
		}
		return st.eval(t.Right, scope)
	case OpAnd:
		if !left.Truth() {
			return left, nil
		}
		return st.eval(t.Right, scope)
	}
	right, err := st.eval(t.Right, scope)
	if err != nil {
		return nil, err
	}
	res, err := binary(t.Op, left, right)
	return res, st.attach(err, t.Pos)
}

// attach sets the template and position of an ExpressionError that does
// not carry one yet.
func (st *renderState) attach(err error, pos Pos) error {
	var exprErr *ExpressionError
	if err == nil || !errors.As(err, &exprErr) || exprErr.Pos.Line != 0 {
		return err
	}
	cp := *exprErr
	cp.Template = st.name
	cp.Pos = pos
	return &cp
}

func (st *renderState) applyFilters(v Value, calls []FilterCall, scope *Scope) (Value, error) {
	for _, call := range calls {
		fn := st.eng.filters[call.Name]
		if fn == nil {
			return nil, &ExpressionError{Template: st.name, Pos: call.Pos, Kind: UnknownFilter,
				Msg: fmt.Sprintf("filter %q is not registered", call.Name)}
		}
		args := make([]Value, len(call.Args))
		for i, a := range call.Args {
			av, err := st.eval(a, scope)
			if err != nil {
				return nil, err
			}
			args[i] = av
		}
		out, err := fn(v, args)
		if err != nil {
			if isEngineError(err) {
				return nil, st.attach(err, call.Pos)
			}
			return nil, &ExpressionError{Template: st.name, Pos: call.Pos, Kind: FilterFailed,
				Msg: fmt.Sprintf("filter %q: %v", call.Name, err), Err: err}
		}
		if out == nil {
			out = NoneValue{}
		}
		v = out
	}
	return v, nil
}

// exprPath renders a dotted path for Undefined values and messages.
func exprPath(x Expr) string {
	switch t := x.(type) {
	case *NameExpr:
		return t.Name
	case *AttrExpr:
		return exprPath(t.X) + "." + t.Name
	case *IndexExpr:
		return exprPath(t.X) + "[...]"
	}
	return "expression"
}

func index(v, idx Value, path string) (Value, error) {
	switch t := v.(type) {
	case Undefined, NoneValue:
		return Undefined{Name: path}, nil
	case ListValue:
		i, ok := idx.(IntValue)
		if !ok {
			return nil, typeMismatch("list index must be int, not %s", typeName(idx))
		}
		if i < 0 {
			i += IntValue(len(t))
		}
		if i < 0 || int(i) >= len(t) {
			return Undefined{Name: path}, nil
		}
		return t[i], nil
	case DictValue:
		if isUndefined(idx) {
			return nil, typeMismatch("mapping key is %s", typeName(idx))
		}
		if it, ok := t[idx.String()]; ok {
			return it, nil
		}
		return Undefined{Name: path}, nil
	case LookupHook:
		if it, ok := t.OnLookup(idx.String()); ok && it != nil {
			return it, nil
		}
		return Undefined{Name: path}, nil
	}
	return nil, typeMismatch("cannot index %s", typeName(v))
}

// number extracts a numeric operand.
func number(v Value) (i int64, f float64, isFloat, ok bool) {
	switch t := v.(type) {
	case IntValue:
		return int64(t), float64(t), false, true
	case FloatValue:
		return 0, float64(t), true, true
	}
	return 0, 0, false, false
}

func negate(v Value) (Value, error) {
	i, f, isFloat, ok := number(v)
	if !ok {
		return nil, typeMismatch("cannot negate %s", typeName(v))
	}
	if isFloat {
		return FloatValue(-f), nil
	}
	return IntValue(-i), nil
}

func binary(op Operator, l, r Value) (Value, error) {
	switch op {
	case OpEqual:
		return BoolValue(valuesEqual(l, r)), nil
	case OpNotEqual:
		return BoolValue(!valuesEqual(l, r)), nil
	case OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		c, err := compare(l, r)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpLess:
			return BoolValue(c < 0), nil
		case OpLessOrEqual:
			return BoolValue(c <= 0), nil
		case OpGreater:
			return BoolValue(c > 0), nil
		}
		return BoolValue(c >= 0), nil
	case OpIn, OpNotIn:
		in, err := contains(r, l)
		if err != nil {
			return nil, err
		}
		return BoolValue(in == (op == OpIn)), nil
	case OpConcat:
		return StringValue(l.String() + r.String()), nil
	case OpAdd:
		if ls, ok := l.(StringValue); ok {
			if rs, ok := r.(StringValue); ok {
				return ls + rs, nil
			}
		}
		if ll, ok := l.(ListValue); ok {
			if rl, ok := r.(ListValue); ok {
				out := make(ListValue, 0, len(ll)+len(rl))
				return append(append(out, ll...), rl...), nil
			}
		}
	}
	return arithmetic(op, l, r)
}

func arithmetic(op Operator, l, r Value) (Value, error) {
	li, lf, lFloat, lok := number(l)
	ri, rf, rFloat, rok := number(r)
	if !lok || !rok {
		return nil, typeMismatch("unsupported operands for %s: %s and %s", op, typeName(l), typeName(r))
	}
	if op == OpDiv || op == OpMod {
		if rf == 0 {
			return nil, &ExpressionError{Kind: DivisionByZero, Msg: fmt.Sprintf("%s %s 0", l, op)}
		}
	}
	if !lFloat && !rFloat {
		switch op {
		case OpAdd:
			return IntValue(li + ri), nil
		case OpSub:
			return IntValue(li - ri), nil
		case OpMul:
			return IntValue(li * ri), nil
		case OpMod:
			return IntValue(li % ri), nil
		case OpDiv:
			if li%ri == 0 {
				return IntValue(li / ri), nil
			}
		}
	}
	switch op {
	case OpAdd:
		return FloatValue(lf + rf), nil
	case OpSub:
		return FloatValue(lf - rf), nil
	case OpMul:
		return FloatValue(lf * rf), nil
	case OpDiv:
		return FloatValue(lf / rf), nil
	case OpMod:
		return FloatValue(math.Mod(lf, rf)), nil
	}
	return nil, typeMismatch("unsupported operator %s", op)
}

// compare orders two numbers or two strings.
func compare(l, r Value) (int, error) {
	if _, lf, _, ok := number(l); ok {
		if _, rf, _, ok := number(r); ok {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if ls, ok := l.(StringValue); ok {
		if rs, ok := r.(StringValue); ok {
			return strings.Compare(string(ls), string(rs)), nil
		}
	}
	return 0, typeMismatch("cannot compare %s with %s", typeName(l), typeName(r))
}

func contains(container, item Value) (bool, error) {
	switch t := container.(type) {
	case StringValue:
		s, ok := item.(StringValue)
		if !ok {
			return false, typeMismatch("'in <string>' requires string as left operand, not %s", typeName(item))
		}
		return strings.Contains(string(t), string(s)), nil
	case ListValue:
		for _, it := range t {
			if valuesEqual(it, item) {
				return true, nil
			}
		}
		return false, nil
	case DictValue:
		if isUndefined(item) {
			return false, typeMismatch("mapping key is %s", typeName(item))
		}
		_, ok := t[item.String()]
		return ok, nil
	}
	return false, typeMismatch("%s is not a container", typeName(container))
}

func valuesEqual(a, b Value) bool {
	switch a.(type) {
	case Undefined, NoneValue:
		switch b.(type) {
		case Undefined, NoneValue:
			return true
		}
		return false
	}
	if _, af, _, ok := number(a); ok {
		_, bf, _, ok := number(b)
		return ok && af == bf
	}
	switch at := a.(type) {
	case StringValue:
		bt, ok := b.(StringValue)
		return ok && at == bt
	case BoolValue:
		bt, ok := b.(BoolValue)
		return ok && at == bt
	case ListValue:
		bt, ok := b.(ListValue)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !valuesEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	case DictValue:
		bt, ok := b.(DictValue)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, v := range at {
			w, ok := bt[k]
			if !ok || !valuesEqual(v, w) {
				return false
			}
		}
		return true
	}
	// Values of other types are equal only when they share a comparable
	// dynamic type.
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || ta != nil && !ta.Comparable() {
		return false
	}
	return a == b
}
