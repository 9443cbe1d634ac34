package tmpl

import "strconv"

// Expression grammar, lowest precedence first:
//
//	expr           = or { "|" filter }
//	or             = and { "or" and }
//	and            = not { "and" not }
//	not            = "not" not | comparison
//	comparison     = additive { ( "==" | "!=" | "<" | "<=" | ">" | ">=" | "in" | "not" "in" ) additive }
//	additive       = multiplicative { ( "+" | "-" | "~" ) multiplicative }
//	multiplicative = unary { ( "*" | "/" | "%" ) unary }
//	unary          = ( "-" | "+" ) unary | postfix
//	postfix        = primary { "." name | "." int | "[" expr "]" }
//	primary        = literal | name | list | dict | "(" expr ")"
//	filter         = name [ "(" [ expr { "," expr } ] ")" ]

// reserved holds the words that cannot be used as variable names.
var reserved = map[string]bool{
	"and": true, "or": true, "not": true, "in": true,
	"true": true, "false": true, "none": true, "null": true,
	"True": true, "False": true, "None": true,
}

// parseExpr parses an expression optionally followed by a filter chain.
func (p *parser) parseExpr() (Expr, error) {
	x, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != TokenPipe {
		return x, nil
	}
	filters, err := p.parseFilters()
	if err != nil {
		return nil, err
	}
	return &FilterExpr{Pos: x.Position(), X: x, Filters: filters}, nil
}

func (p *parser) parseFilters() ([]FilterCall, error) {
	var filters []FilterCall
	for p.peek().Kind == TokenPipe {
		p.next()
		name := p.next()
		if name.Kind != TokenName {
			return nil, p.errorf(name.Pos, InvalidExpression, "expected filter name after '|', found %s", name)
		}
		call := FilterCall{Pos: name.Pos, Name: name.Val}
		if p.peek().Kind == TokenLParen {
			p.next()
			args, err := p.parseList(TokenRParen)
			if err != nil {
				return nil, err
			}
			call.Args = args
		}
		filters = append(filters, call)
	}
	return filters, nil
}

// parseList parses comma separated expressions up to the closing token,
// which it consumes. A trailing comma is allowed.
func (p *parser) parseList(closing TokenKind) ([]Expr, error) {
	var items []Expr
	for p.peek().Kind != closing {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, x)
		if p.peek().Kind != TokenComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for isName(p.peek(), "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: left.Position(), Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for isName(p.peek(), "and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: left.Position(), Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if t := p.peek(); isName(t, "not") {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Pos: t.Pos, Op: OpNot, X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]Operator{
	"==": OpEqual, "!=": OpNotEqual,
	"<": OpLess, "<=": OpLessOrEqual,
	">": OpGreater, ">=": OpGreaterOrEqual,
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		op, isComparison := comparisonOps[t.Val]
		switch {
		case t.Kind == TokenOperator && isComparison:
			p.next()
		case isName(t, "in"):
			op = OpIn
			p.next()
		case isName(t, "not") && isName(p.peekAt(1), "in"):
			op = OpNotIn
			p.next()
			p.next()
		default:
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: left.Position(), Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op Operator
		switch t := p.peek(); {
		case t.Kind == TokenOperator && t.Val == "+":
			op = OpAdd
		case t.Kind == TokenOperator && t.Val == "-":
			op = OpSub
		case t.Kind == TokenOperator && t.Val == "~":
			op = OpConcat
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: left.Position(), Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op Operator
		switch t := p.peek(); {
		case t.Kind == TokenOperator && t.Val == "*":
			op = OpMul
		case t.Kind == TokenOperator && t.Val == "/":
			op = OpDiv
		case t.Kind == TokenOperator && t.Val == "%":
			op = OpMod
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: left.Position(), Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.Kind == TokenOperator && (t.Val == "-" || t.Val == "+") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if t.Val == "+" {
			return x, nil
		}
		return &UnaryExpr{Pos: t.Pos, Op: OpNeg, X: x}, nil
	}
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(x)
}

func (p *parser) parsePostfix(x Expr) (Expr, error) {
	for {
		switch t := p.peek(); t.Kind {
		case TokenDot:
			p.next()
			name := p.next()
			if name.Kind != TokenName && name.Kind != TokenInt {
				return nil, p.errorf(name.Pos, InvalidExpression, "expected attribute name after '.', found %s", name)
			}
			x = &AttrExpr{Pos: x.Position(), X: x, Name: name.Val}
		case TokenLBracket:
			p.next()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket); err != nil {
				return nil, err
			}
			x = &IndexExpr{Pos: x.Position(), X: x, Index: index}
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.Kind {
	case TokenString:
		return &Literal{Pos: t.Pos, Value: StringValue(t.Val)}, nil
	case TokenInt:
		n, err := strconv.ParseInt(t.Val, 10, 64)
		if err != nil {
			return nil, p.errorf(t.Pos, InvalidExpression, "invalid integer literal %s", t.Val)
		}
		return &Literal{Pos: t.Pos, Value: IntValue(n)}, nil
	case TokenFloat:
		f, err := strconv.ParseFloat(t.Val, 64)
		if err != nil {
			return nil, p.errorf(t.Pos, InvalidExpression, "invalid float literal %s", t.Val)
		}
		return &Literal{Pos: t.Pos, Value: FloatValue(f)}, nil
	case TokenName:
		switch t.Val {
		case "true", "True":
			return &Literal{Pos: t.Pos, Value: BoolValue(true)}, nil
		case "false", "False":
			return &Literal{Pos: t.Pos, Value: BoolValue(false)}, nil
		case "none", "None", "null":
			return &Literal{Pos: t.Pos, Value: NoneValue{}}, nil
		}
		if reserved[t.Val] {
			return nil, p.errorf(t.Pos, InvalidExpression, "unexpected keyword %q", t.Val)
		}
		return &NameExpr{Pos: t.Pos, Name: t.Val}, nil
	case TokenLParen:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return x, nil
	case TokenLBracket:
		items, err := p.parseList(TokenRBracket)
		if err != nil {
			return nil, err
		}
		return &ListExpr{Pos: t.Pos, Items: items}, nil
	case TokenLBrace:
		return p.parseDict(t)
	}
	return nil, p.errorf(t.Pos, InvalidExpression, "unexpected %s", t)
}

func (p *parser) parseDict(open Token) (*DictExpr, error) {
	d := &DictExpr{Pos: open.Pos}
	for p.peek().Kind != TokenRBrace {
		key := p.next()
		if key.Kind != TokenString && key.Kind != TokenName {
			return nil, p.errorf(key.Pos, InvalidExpression, "expected mapping key, found %s", key)
		}
		if _, err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, DictItem{Key: key.Val, Value: value})
		if p.peek().Kind != TokenComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return d, nil
}
