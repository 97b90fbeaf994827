package diagram

import "fmt"

// sequentialEdges derives the top-level connectors between adjacent roots.
// Only User→Agent, Agent→Agent and Agent→User pairs connect; workflow
// groups and everything inside them are related by containment, not edges.
func sequentialEdges(roots []*Node) []Edge {
	var edges []Edge
	for i := 0; i+1 < len(roots); i++ {
		src, dst := roots[i], roots[i+1]
		if !connectable(src, dst) {
			continue
		}
		edges = append(edges, Edge{
			ID:      fmt.Sprintf("edge-%s-%s", src.ID, dst.ID),
			Source:  src.ID,
			Target:  dst.ID,
			SourceX: src.X + src.Width/2,
			SourceY: src.Y + src.Height,
			TargetX: dst.X + dst.Width/2,
			TargetY: dst.Y,
		})
	}
	return edges
}

// connectable reports whether an adjacent root pair gets an edge.
func connectable(src, dst *Node) bool {
	switch {
	case src.Type == NodeUser && dst.Type == NodeAgent:
		return true
	case src.Type == NodeAgent && dst.Type == NodeAgent:
		return true
	case src.Type == NodeAgent && dst.Type == NodeUser:
		return true
	default:
		return false
	}
}
