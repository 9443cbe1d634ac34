package tmpl

// Node is any AST node in a parsed template. The set of node types is
// closed: every implementation lives in this file.
type Node interface {
	Position() Pos
	node()
}

// TemplateNode is the root node produced by Parse.
type TemplateNode struct {
	Pos
	Name string
	// Parent is the name given to extends, empty for a root template.
	Parent string
	// Blocks lists every block of the file, nested ones included, in
	// source order.
	Blocks []*BlockNode
	Body   []Node
}

func (*TemplateNode) node() {}

// Block returns the block with the given name, or nil.
func (t *TemplateNode) Block(name string) *BlockNode {
	for _, b := range t.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// TextNode represents literal text between tags.
type TextNode struct {
	Pos
	Text string
}

func (*TextNode) node() {}

// RawNode represents the verbatim contents of {% raw %}...{% endraw %}.
type RawNode struct {
	Pos
	Text string
}

func (*RawNode) node() {}

// PrintNode represents {{ expr | filter | filter(args) }}.
type PrintNode struct {
	Pos
	Expr    Expr
	Filters []FilterCall
}

func (*PrintNode) node() {}

// SetNode represents {% set name = expr %}.
type SetNode struct {
	Pos
	Name string
	Expr Expr
}

func (*SetNode) node() {}

// IfNode represents an if/elseif/else chain.
type IfNode struct {
	Pos
	Cond    Expr
	Body    []Node
	ElseIfs []ElseIf
	Else    []Node
}

func (*IfNode) node() {}

// ElseIf is a single elseif condition with its body.
type ElseIf struct {
	Pos
	Cond Expr
	Body []Node
}

// ForNode represents {% for item[, key] in collection %}.
type ForNode struct {
	Pos
	Item       string
	Key        string
	Collection Expr
	Body       []Node
	Else       []Node
}

func (*ForNode) node() {}

// BlockNode represents a named block for template inheritance.
type BlockNode struct {
	Pos
	Name string
	Body []Node
}

func (*BlockNode) node() {}

// ParentNode marks where an overriding block splices in the body of the
// block it overrides.
type ParentNode struct {
	Pos
}

func (*ParentNode) node() {}

// ExtendsNode declares that the template extends a parent template.
type ExtendsNode struct {
	Pos
	Parent string
}

func (*ExtendsNode) node() {}

// IncludeNode includes another template by name. With, if not nil, must
// evaluate to a mapping layered over the current scope.
type IncludeNode struct {
	Pos
	Template string
	With     Expr
}

func (*IncludeNode) node() {}

// ComponentNode is an extension point resolved by the dispatcher.
type ComponentNode struct {
	Pos
	Name  string
	Props Expr
}

func (*ComponentNode) node() {}

// HookNode is an extension point resolved by the dispatcher.
type HookNode struct {
	Pos
	Name string
	Data Expr
}

func (*HookNode) node() {}

// FilterCall is one element of a filter chain.
type FilterCall struct {
	Pos
	Name string
	Args []Expr
}

// Expr is an expression inside a tag.
type Expr interface {
	Position() Pos
	expr()
}

// Operator is a unary or binary operator.
type Operator int

const (
	OpOr Operator = iota
	OpAnd
	OpNot
	OpEqual
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpIn
	OpNotIn
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
	OpNeg
)

func (op Operator) String() string {
	return []string{"or", "and", "not", "==", "!=", "<", "<=", ">", ">=", "in", "not in",
		"+", "-", "*", "/", "%", "~", "-"}[op]
}

// Literal is a string, number, boolean or none literal.
type Literal struct {
	Pos
	Value Value
}

// ListExpr is a list literal [a, b].
type ListExpr struct {
	Pos
	Items []Expr
}

// DictExpr is a mapping literal {key: value}. Keys are names or strings.
type DictExpr struct {
	Pos
	Items []DictItem
}

// DictItem is one key/value pair of a DictExpr.
type DictItem struct {
	Key   string
	Value Expr
}

// NameExpr is a variable reference.
type NameExpr struct {
	Pos
	Name string
}

// AttrExpr is a dotted path step x.name.
type AttrExpr struct {
	Pos
	X    Expr
	Name string
}

// IndexExpr is a subscript x[index].
type IndexExpr struct {
	Pos
	X     Expr
	Index Expr
}

// UnaryExpr is not x or -x.
type UnaryExpr struct {
	Pos
	Op Operator
	X  Expr
}

// BinaryExpr is left op right.
type BinaryExpr struct {
	Pos
	Op    Operator
	Left  Expr
	Right Expr
}

// FilterExpr applies a filter chain to an expression outside a print tag.
type FilterExpr struct {
	Pos
	X       Expr
	Filters []FilterCall
}

func (*Literal) expr()    {}
func (*ListExpr) expr()   {}
func (*DictExpr) expr()   {}
func (*NameExpr) expr()   {}
func (*AttrExpr) expr()   {}
func (*IndexExpr) expr()  {}
func (*UnaryExpr) expr()  {}
func (*BinaryExpr) expr() {}
func (*FilterExpr) expr() {}
