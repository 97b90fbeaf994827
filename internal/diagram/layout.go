package diagram

// Fixed geometry table. All sizes are in abstract canvas units; the
// renderer decides what a unit means. Layout is purely structural, with no
// measurement of rendered content, so identical trees always produce
// identical geometry.
const (
	userWidth  = 120.0
	userHeight = 48.0

	llmWidth  = 160.0
	llmHeight = 56.0

	toolWidth  = 180.0
	toolHeight = 56.0

	conditionalWidth  = 180.0
	conditionalHeight = 72.0

	pillWidth  = 96.0
	pillHeight = 32.0

	minContainerWidth = 220.0
	containerPadding  = 24.0
	headerHeight      = 40.0

	childSpacing  = 24.0
	branchSpacing = 32.0

	rootSpacing = 64.0
	userSpacing = 40.0

	canvasMargin = 40.0
)

// measure computes Width/Height for n and everything below it, bottom-up.
func measure(n *Node) {
	for _, c := range n.Children {
		measure(c)
	}
	for _, branch := range n.ParallelBranches {
		for _, c := range branch {
			measure(c)
		}
	}

	if n.Data.Variant == VariantPill && len(n.ParallelBranches) == 0 {
		n.Width, n.Height = pillWidth, pillHeight
		return
	}

	switch n.Type {
	case NodeUser:
		n.Width, n.Height = userWidth, userHeight
	case NodeLLM:
		n.Width, n.Height = llmWidth, llmHeight
	case NodeTool:
		n.Width, n.Height = toolWidth, toolHeight
	case NodeConditional, NodeLoop:
		n.Width, n.Height = conditionalWidth, conditionalHeight
	case NodeMap, NodeFork:
		measureContainer(n)
	default:
		measureBox(n)
	}
}

// measureBox sizes an agent or group container around its stacked children.
func measureBox(n *Node) {
	content := 0.0
	stack := 0.0
	for _, c := range n.Children {
		if c.Width > content {
			content = c.Width
		}
		stack += c.Height + childSpacing
	}
	if content < minContainerWidth {
		content = minContainerWidth
	}
	n.Width = content + 2*containerPadding
	n.Height = headerHeight + stack + containerPadding
}

// measureContainer sizes a map/fork node: the pill badge on top, branches
// laid side by side beneath it. Branch widths sum horizontally with
// spacing; the height is the tallest branch.
func measureContainer(n *Node) {
	if len(n.ParallelBranches) == 0 {
		n.Width, n.Height = pillWidth, pillHeight
		return
	}

	total := 0.0
	tallest := 0.0
	for i, branch := range n.ParallelBranches {
		if i > 0 {
			total += branchSpacing
		}
		total += branchWidth(branch)
		if h := branchHeight(branch); h > tallest {
			tallest = h
		}
	}

	n.Width = total
	if n.Width < pillWidth {
		n.Width = pillWidth
	}
	n.Height = pillHeight + childSpacing + tallest
}

// branchWidth is the widest node in one branch column.
func branchWidth(branch []*Node) float64 {
	w := 0.0
	for _, c := range branch {
		if c.Width > w {
			w = c.Width
		}
	}
	return w
}

// branchHeight is the stacked height of one branch column.
func branchHeight(branch []*Node) float64 {
	h := 0.0
	for i, c := range branch {
		if i > 0 {
			h += childSpacing
		}
		h += c.Height
	}
	return h
}

// positionRoots stacks root nodes vertically, each centered against the
// widest root. Spacing tightens around the synthetic User nodes.
func positionRoots(roots []*Node) {
	maxWidth := 0.0
	for _, r := range roots {
		if r.Width > maxWidth {
			maxWidth = r.Width
		}
	}
	centerX := maxWidth/2 + canvasMargin

	y := canvasMargin
	for i, r := range roots {
		position(r, centerX-r.Width/2, y)
		y += r.Height + rootGap(roots, i)
	}
}

// rootGap returns the vertical gap after root i.
func rootGap(roots []*Node, i int) float64 {
	if i+1 >= len(roots) {
		return 0
	}
	if roots[i].Type == NodeUser || roots[i+1].Type == NodeUser {
		return userSpacing
	}
	return rootSpacing
}

// position assigns absolute coordinates top-down: children are stacked and
// centered under the parent; parallel branches run left to right after the
// sequential children, each branch a vertical column.
func position(n *Node, x, y float64) {
	n.X, n.Y = x, y

	cy := y + headerHeight
	if n.Data.Variant == VariantPill || len(n.ParallelBranches) > 0 {
		cy = y + n.headerOffset()
	}

	for _, c := range n.Children {
		position(c, x+(n.Width-c.Width)/2, cy)
		cy += c.Height + childSpacing
	}

	if len(n.ParallelBranches) == 0 {
		return
	}

	bx := x
	for _, branch := range n.ParallelBranches {
		bw := branchWidth(branch)
		by := cy
		for _, c := range branch {
			position(c, bx+(bw-c.Width)/2, by)
			by += c.Height + childSpacing
		}
		bx += bw + branchSpacing
	}
}

// headerOffset is the vertical offset where a node's content begins.
func (n *Node) headerOffset() float64 {
	if n.Data.Variant == VariantPill {
		return pillHeight + childSpacing
	}
	return headerHeight
}
