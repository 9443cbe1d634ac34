package tmpl

import (
	"fmt"
	"slices"
	"strings"
)

// Parse parses template source into a TemplateNode. It recognizes text,
// print tags, comments, raw blocks and the statements extends, block,
// parent, if/elseif/else, for/else, include, set, component and hook.
// A parse either succeeds or returns exactly one error.
func Parse(name, src string) (*TemplateNode, error) {
	toks, err := Lex(name, src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		name:   name,
		toks:   toks,
		blocks: map[string]bool{},
		tree:   &TemplateNode{Pos: Pos{Line: 1, Column: 1}, Name: name},
	}
	body, end, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if end.Kind != TokenEOF {
		return nil, p.errorf(end.Pos, UnmatchedTag, "unexpected {%% %s %%}", end.Val)
	}
	p.tree.Body = body
	return p.tree, nil
}

type parser struct {
	name string
	toks []Token
	i    int
	tree *TemplateNode

	depth   int  // nesting of statement bodies
	content bool // a non-blank top-level node has been parsed
	blocks  map[string]bool
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) peekAt(k int) Token {
	if p.i+k >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+k]
}

func (p *parser) next() Token {
	t := p.toks[p.i]
	if t.Kind != TokenEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(pos Pos, kind ParseErrorKind, format string, args ...any) error {
	return &ParseError{Template: p.name, Pos: pos, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// expect consumes the next token, which must be of the given kind.
func (p *parser) expect(kind TokenKind) (Token, error) {
	t := p.next()
	if t.Kind != kind {
		return t, p.errorf(t.Pos, InvalidExpression, "expected %s, found %s", kind, t)
	}
	return t, nil
}

// isName reports whether t is the name token word.
func isName(t Token, word string) bool { return t.Kind == TokenName && t.Val == word }

// parseNodes parses until EOF or a statement whose keyword is one of
// until. It returns the keyword token that stopped it (TokenEOF at end of
// input), positioned right after the keyword.
func (p *parser) parseNodes(until ...string) (nodes []Node, end Token, err error) {
	for {
		tok := p.next()
		switch tok.Kind {
		case TokenEOF:
			return nodes, tok, nil
		case TokenText:
			nodes = append(nodes, &TextNode{Pos: tok.Pos, Text: tok.Val})
			if strings.TrimSpace(tok.Val) != "" {
				p.markContent()
			}
		case TokenRaw:
			nodes = append(nodes, &RawNode{Pos: tok.Pos, Text: tok.Val})
			p.markContent()
		case TokenPrintOpen:
			n, err := p.parsePrint(tok)
			if err != nil {
				return nil, tok, err
			}
			nodes = append(nodes, n)
			p.markContent()
		case TokenStmtOpen:
			kw := p.next()
			if kw.Kind != TokenName {
				return nil, kw, p.errorf(kw.Pos, UnknownTag, "expected statement keyword, found %s", kw)
			}
			if slices.Contains(until, kw.Val) {
				return nodes, kw, nil
			}
			n, err := p.parseStatement(kw)
			if err != nil {
				return nil, kw, err
			}
			nodes = append(nodes, n)
			if kw.Val != "extends" {
				p.markContent()
			}
		default:
			return nil, tok, p.errorf(tok.Pos, InvalidExpression, "unexpected %s", tok)
		}
	}
}

func (p *parser) markContent() {
	if p.depth == 0 {
		p.content = true
	}
}

func (p *parser) parseStatement(kw Token) (Node, error) {
	switch kw.Val {
	case "extends":
		return p.parseExtends(kw)
	case "block":
		return p.parseBlock(kw)
	case "parent":
		if _, err := p.expect(TokenStmtClose); err != nil {
			return nil, err
		}
		return &ParentNode{Pos: kw.Pos}, nil
	case "if":
		return p.parseIf(kw)
	case "for":
		return p.parseFor(kw)
	case "include":
		return p.parseInclude(kw)
	case "set":
		return p.parseSet(kw)
	case "component", "hook":
		return p.parseExtension(kw)
	case "endif", "endfor", "endblock", "elseif", "elif", "else", "endraw":
		return nil, p.errorf(kw.Pos, UnmatchedTag, "unexpected {%% %s %%}", kw.Val)
	}
	return nil, p.errorf(kw.Pos, UnknownTag, "unknown tag %q", kw.Val)
}

func (p *parser) parseExtends(kw Token) (*ExtendsNode, error) {
	if p.depth > 0 || p.content || p.tree.Parent != "" {
		return nil, p.errorf(kw.Pos, MisplacedTag, "extends must be the first statement of the template")
	}
	name, err := p.expect(TokenString)
	if err != nil {
		return nil, p.errorf(name.Pos, InvalidExpression, "extends expects a quoted template name")
	}
	if name.Val == "" {
		return nil, p.errorf(name.Pos, InvalidExpression, "extends expects a non-empty template name")
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	p.tree.Parent = name.Val
	return &ExtendsNode{Pos: kw.Pos, Parent: name.Val}, nil
}

func (p *parser) parseBlock(kw Token) (*BlockNode, error) {
	name, err := p.expect(TokenName)
	if err != nil {
		return nil, p.errorf(name.Pos, InvalidExpression, "block requires a name")
	}
	if p.blocks[name.Val] {
		return nil, p.errorf(name.Pos, DuplicateBlock, "block %q is already defined", name.Val)
	}
	p.blocks[name.Val] = true
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	b := &BlockNode{Pos: kw.Pos, Name: name.Val}
	p.tree.Blocks = append(p.tree.Blocks, b)

	p.depth++
	body, end, err := p.parseNodes("endblock")
	p.depth--
	if err != nil {
		return nil, err
	}
	if end.Kind == TokenEOF {
		return nil, p.errorf(kw.Pos, UnmatchedTag, "block %q is not closed, expected {%% endblock %%}", name.Val)
	}
	if t := p.peek(); t.Kind == TokenName {
		p.next()
		if t.Val != name.Val {
			return nil, p.errorf(t.Pos, UnmatchedTag, "endblock %q does not match block %q", t.Val, name.Val)
		}
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	b.Body = body
	return b, nil
}

func (p *parser) parseIf(kw Token) (*IfNode, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	n := &IfNode{Pos: kw.Pos, Cond: cond}

	p.depth++
	defer func() { p.depth-- }()

	clauses := []string{"elseif", "elif", "else", "endif"}
	body, end, err := p.parseNodes(clauses...)
	if err != nil {
		return nil, err
	}
	n.Body = body
	for end.Val == "elseif" || end.Val == "elif" {
		branch := ElseIf{Pos: end.Pos}
		if branch.Cond, err = p.parseExpr(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenStmtClose); err != nil {
			return nil, err
		}
		if branch.Body, end, err = p.parseNodes(clauses...); err != nil {
			return nil, err
		}
		n.ElseIfs = append(n.ElseIfs, branch)
	}
	if end.Val == "else" {
		if _, err := p.expect(TokenStmtClose); err != nil {
			return nil, err
		}
		if n.Else, end, err = p.parseNodes("endif"); err != nil {
			return nil, err
		}
	}
	if end.Kind == TokenEOF {
		return nil, p.errorf(kw.Pos, UnmatchedTag, "if is not closed, expected {%% endif %%}")
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseFor(kw Token) (*ForNode, error) {
	item, err := p.expect(TokenName)
	if err != nil {
		return nil, p.errorf(item.Pos, InvalidExpression, "for expects a loop variable name")
	}
	n := &ForNode{Pos: kw.Pos, Item: item.Val}
	if p.peek().Kind == TokenComma {
		p.next()
		key, err := p.expect(TokenName)
		if err != nil {
			return nil, p.errorf(key.Pos, InvalidExpression, "for expects a key variable name after ','")
		}
		n.Key = key.Val
	}
	if in := p.next(); !isName(in, "in") {
		return nil, p.errorf(in.Pos, InvalidExpression, "expected 'in', found %s", in)
	}
	if n.Collection, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}

	p.depth++
	defer func() { p.depth-- }()

	body, end, err := p.parseNodes("else", "endfor")
	if err != nil {
		return nil, err
	}
	n.Body = body
	if end.Val == "else" {
		if _, err := p.expect(TokenStmtClose); err != nil {
			return nil, err
		}
		if n.Else, end, err = p.parseNodes("endfor"); err != nil {
			return nil, err
		}
	}
	if end.Kind == TokenEOF {
		return nil, p.errorf(kw.Pos, UnmatchedTag, "for is not closed, expected {%% endfor %%}")
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseInclude(kw Token) (*IncludeNode, error) {
	name, err := p.expect(TokenString)
	if err != nil || name.Val == "" {
		return nil, p.errorf(name.Pos, InvalidExpression, "include expects a quoted template name")
	}
	n := &IncludeNode{Pos: kw.Pos, Template: name.Val}
	if isName(p.peek(), "with") {
		p.next()
		if n.With, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseSet(kw Token) (*SetNode, error) {
	name, err := p.expect(TokenName)
	if err != nil {
		return nil, p.errorf(name.Pos, InvalidExpression, "set expects a variable name")
	}
	if reserved[name.Val] {
		return nil, p.errorf(name.Pos, InvalidExpression, "cannot assign to %q", name.Val)
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	return &SetNode{Pos: kw.Pos, Name: name.Val, Expr: x}, nil
}

// parseExtension parses component and hook statements. The name is a
// quoted string or a dotted identifier such as header.after.
func (p *parser) parseExtension(kw Token) (Node, error) {
	var name string
	switch t := p.next(); t.Kind {
	case TokenString:
		name = t.Val
	case TokenName:
		name = t.Val
		for p.peek().Kind == TokenDot && p.peekAt(1).Kind == TokenName {
			p.next()
			name += "." + p.next().Val
		}
	default:
		return nil, p.errorf(t.Pos, InvalidExpression, "%s expects a name, found %s", kw.Val, t)
	}
	if name == "" {
		return nil, p.errorf(kw.Pos, InvalidExpression, "%s expects a non-empty name", kw.Val)
	}
	var arg Expr
	if p.peek().Kind != TokenStmtClose {
		var err error
		if arg, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenStmtClose); err != nil {
		return nil, err
	}
	if kw.Val == "component" {
		return &ComponentNode{Pos: kw.Pos, Name: name, Props: arg}, nil
	}
	return &HookNode{Pos: kw.Pos, Name: name, Data: arg}, nil
}

func (p *parser) parsePrint(open Token) (Node, error) {
	if isName(p.peek(), "parent") && p.peekAt(1).Kind == TokenLParen &&
		p.peekAt(2).Kind == TokenRParen && p.peekAt(3).Kind == TokenPrintClose {
		p.i += 4
		return &ParentNode{Pos: open.Pos}, nil
	}
	if p.peek().Kind == TokenPrintClose {
		return nil, p.errorf(open.Pos, InvalidExpression, "empty print tag")
	}
	x, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	filters, err := p.parseFilters()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenPrintClose); err != nil {
		return nil, err
	}
	return &PrintNode{Pos: open.Pos, Expr: x, Filters: filters}, nil
}
