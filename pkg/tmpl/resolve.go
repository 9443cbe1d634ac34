package tmpl

import "slices"

// resolve flattens the extends chain starting at entry. Parsed trees are
// never modified, so loaders may cache them.
func (e *Engine) resolve(entry *TemplateNode) (*TemplateNode, error) {
	if entry.Parent == "" {
		return entry, nil
	}

	chain := []*TemplateNode{entry}
	names := []string{entry.Name}
	for cur := entry; cur.Parent != ""; {
		if len(chain) >= e.maxExtends || slices.Contains(names, cur.Parent) {
			return nil, &ResolutionError{Kind: CyclicExtends, Name: cur.Parent, Chain: append(names, cur.Parent)}
		}
		parent, err := e.load(cur.Parent, names)
		if err != nil {
			return nil, err
		}
		chain = append(chain, parent)
		names = append(names, parent.Name)
		cur = parent
	}

	// Build the block table from the root down, so that every override
	// sees the body of its nearest ancestor.
	table := map[string][]Node{}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, b := range chain[i].Blocks {
			table[b.Name] = spliceParent(b.Body, table[b.Name])
		}
	}

	root := chain[len(chain)-1]
	body, err := expandBlocks(root.Body, table, map[string]bool{}, names)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("template resolved", "template", entry.Name, "root", root.Name, "chain", len(chain))
	return &TemplateNode{Pos: entry.Pos, Name: entry.Name, Body: body}, nil
}

// spliceParent copies body, replacing every ParentNode outside nested
// blocks with parent. Nested blocks have their own table entry.
func spliceParent(body, parent []Node) []Node {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		switch t := n.(type) {
		case *ParentNode:
			out = append(out, parent...)
		case *IfNode:
			cp := *t
			cp.Body = spliceParent(t.Body, parent)
			cp.ElseIfs = make([]ElseIf, len(t.ElseIfs))
			for i, ei := range t.ElseIfs {
				cp.ElseIfs[i] = ElseIf{Pos: ei.Pos, Cond: ei.Cond, Body: spliceParent(ei.Body, parent)}
			}
			cp.Else = spliceParent(t.Else, parent)
			out = append(out, &cp)
		case *ForNode:
			cp := *t
			cp.Body = spliceParent(t.Body, parent)
			cp.Else = spliceParent(t.Else, parent)
			out = append(out, &cp)
		default:
			out = append(out, n)
		}
	}
	return out
}

// expandBlocks copies nodes, substituting the final body of every block.
// active holds the blocks being expanded, a block reachable from its own
// body would never terminate.
func expandBlocks(nodes []Node, table map[string][]Node, active map[string]bool, chain []string) ([]Node, error) {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch t := n.(type) {
		case *BlockNode:
			if active[t.Name] {
				return nil, &ResolutionError{Kind: CyclicExtends, Name: t.Name, Chain: chain}
			}
			body, ok := table[t.Name]
			if !ok {
				body = t.Body
			}
			active[t.Name] = true
			expanded, err := expandBlocks(body, table, active, chain)
			delete(active, t.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, &BlockNode{Pos: t.Pos, Name: t.Name, Body: expanded})
		case *IfNode:
			cp := *t
			var err error
			if cp.Body, err = expandBlocks(t.Body, table, active, chain); err != nil {
				return nil, err
			}
			cp.ElseIfs = make([]ElseIf, len(t.ElseIfs))
			for i, ei := range t.ElseIfs {
				body, err := expandBlocks(ei.Body, table, active, chain)
				if err != nil {
					return nil, err
				}
				cp.ElseIfs[i] = ElseIf{Pos: ei.Pos, Cond: ei.Cond, Body: body}
			}
			if cp.Else, err = expandBlocks(t.Else, table, active, chain); err != nil {
				return nil, err
			}
			out = append(out, &cp)
		case *ForNode:
			cp := *t
			var err error
			if cp.Body, err = expandBlocks(t.Body, table, active, chain); err != nil {
				return nil, err
			}
			if cp.Else, err = expandBlocks(t.Else, table, active, chain); err != nil {
				return nil, err
			}
			out = append(out, &cp)
		default:
			out = append(out, n)
		}
	}
	return out, nil
}
