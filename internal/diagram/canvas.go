package diagram

// canvasWidth is the right-most node extent plus the fixed margin.
func canvasWidth(roots []*Node) float64 {
	max := 0.0
	for _, root := range roots {
		Walk(root, func(n *Node) {
			if edge := n.X + n.Width; edge > max {
				max = edge
			}
		})
	}
	if max == 0 {
		return 0
	}
	return max + canvasMargin
}

// canvasHeight is the bottom-most node extent plus the fixed margin.
func canvasHeight(roots []*Node) float64 {
	max := 0.0
	for _, root := range roots {
		Walk(root, func(n *Node) {
			if edge := n.Y + n.Height; edge > max {
				max = edge
			}
		})
	}
	if max == 0 {
		return 0
	}
	return max + canvasMargin
}
