package tmpl

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

type Visitor interface {
	Visit(n Node) error
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node) error

func (f VisitorFunc) Visit(n Node) error { return f(n) }

// Walk visits n and then its children depth-first, in document order.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	var lists [][]Node
	switch t := n.(type) {
	case *TemplateNode:
		lists = append(lists, t.Body)
	case *IfNode:
		lists = append(lists, t.Body)
		for _, ei := range t.ElseIfs {
			lists = append(lists, ei.Body)
		}
		lists = append(lists, t.Else)
	case *ForNode:
		lists = append(lists, t.Body, t.Else)
	case *BlockNode:
		lists = append(lists, t.Body)
	}
	for _, list := range lists {
		for _, c := range list {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Pretty returns a line-oriented string representation of the AST.
func Pretty(t *TemplateNode) string {
	var buf bytes.Buffer
	ppNode(&buf, 0, t)
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() { buf.WriteString(strings.Repeat(" ", indent)) }
	children := func(nodes []Node) {
		for _, c := range nodes {
			ppNode(buf, indent+2, c)
		}
	}
	ind()
	switch t := n.(type) {
	case *TemplateNode:
		if t.Parent != "" {
			fmt.Fprintf(buf, "Template(%q extends %q)\n", t.Name, t.Parent)
		} else {
			fmt.Fprintf(buf, "Template(%q)\n", t.Name)
		}
		children(t.Body)
	case *TextNode:
		fmt.Fprintf(buf, "Text(%q)\n", t.Text)
	case *RawNode:
		fmt.Fprintf(buf, "Raw(%q)\n", t.Text)
	case *PrintNode:
		fmt.Fprintf(buf, "Print(%s%s)\n", FormatExpr(t.Expr), formatFilters(t.Filters))
	case *SetNode:
		fmt.Fprintf(buf, "Set(%s = %s)\n", t.Name, FormatExpr(t.Expr))
	case *IfNode:
		fmt.Fprintf(buf, "If(%s)\n", FormatExpr(t.Cond))
		children(t.Body)
		for _, ei := range t.ElseIfs {
			ind()
			fmt.Fprintf(buf, "ElseIf(%s)\n", FormatExpr(ei.Cond))
			children(ei.Body)
		}
		if len(t.Else) > 0 {
			ind()
			buf.WriteString("Else\n")
			children(t.Else)
		}
	case *ForNode:
		target := t.Item
		if t.Key != "" {
			target += ", " + t.Key
		}
		fmt.Fprintf(buf, "For(%s in %s)\n", target, FormatExpr(t.Collection))
		children(t.Body)
		if len(t.Else) > 0 {
			ind()
			buf.WriteString("Else\n")
			children(t.Else)
		}
	case *BlockNode:
		fmt.Fprintf(buf, "Block(%s)\n", t.Name)
		children(t.Body)
	case *ParentNode:
		buf.WriteString("Parent\n")
	case *ExtendsNode:
		fmt.Fprintf(buf, "Extends(%q)\n", t.Parent)
	case *IncludeNode:
		if t.With != nil {
			fmt.Fprintf(buf, "Include(%q with %s)\n", t.Template, FormatExpr(t.With))
		} else {
			fmt.Fprintf(buf, "Include(%q)\n", t.Template)
		}
	case *ComponentNode:
		fmt.Fprintf(buf, "Component(%s%s)\n", t.Name, formatArg(t.Props))
	case *HookNode:
		fmt.Fprintf(buf, "Hook(%s%s)\n", t.Name, formatArg(t.Data))
	}
}

func formatArg(x Expr) string {
	if x == nil {
		return ""
	}
	return " " + FormatExpr(x)
}

func formatFilters(calls []FilterCall) string {
	var sb strings.Builder
	for _, c := range calls {
		sb.WriteString(" | ")
		sb.WriteString(c.Name)
		if len(c.Args) > 0 {
			sb.WriteString("(" + formatExprs(c.Args) + ")")
		}
	}
	return sb.String()
}

func formatExprs(xs []Expr) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = FormatExpr(x)
	}
	return strings.Join(parts, ", ")
}

// FormatExpr renders an expression back to template syntax, fully
// parenthesizing operators.
func FormatExpr(x Expr) string {
	switch t := x.(type) {
	case *Literal:
		switch v := t.Value.(type) {
		case StringValue:
			return strconv.Quote(string(v))
		case NoneValue:
			return "none"
		}
		return t.Value.String()
	case *ListExpr:
		return "[" + formatExprs(t.Items) + "]"
	case *DictExpr:
		parts := make([]string, len(t.Items))
		for i, it := range t.Items {
			parts[i] = strconv.Quote(it.Key) + ": " + FormatExpr(it.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *NameExpr:
		return t.Name
	case *AttrExpr:
		return FormatExpr(t.X) + "." + t.Name
	case *IndexExpr:
		return FormatExpr(t.X) + "[" + FormatExpr(t.Index) + "]"
	case *UnaryExpr:
		if t.Op == OpNot {
			return "(not " + FormatExpr(t.X) + ")"
		}
		return "(-" + FormatExpr(t.X) + ")"
	case *BinaryExpr:
		return "(" + FormatExpr(t.Left) + " " + t.Op.String() + " " + FormatExpr(t.Right) + ")"
	case *FilterExpr:
		return "(" + FormatExpr(t.X) + formatFilters(t.Filters) + ")"
	}
	return fmt.Sprintf("%T", x)
}
