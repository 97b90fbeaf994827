package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderImage renders a compiled layout as a PNG image using graphviz.
// Graphviz re-lays the graph with DOT; the compiled x/y geometry is for
// canvas renderers and is intentionally not forced onto graphviz.
func RenderImage(layout *Layout) ([]byte, error) {
	ctx := context.Background()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)

	gvNodes := make(map[string]*cgraph.Node)
	for _, root := range layout.Nodes {
		if err := addGraphvizTree(graph, root, gvNodes); err != nil {
			return nil, err
		}
	}

	// Top-level sequential edges.
	for _, edge := range layout.Edges {
		from, to := gvNodes[edge.Source], gvNodes[edge.Target]
		if from != nil && to != nil {
			_, _ = graph.CreateEdgeByName("", from, to)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// addGraphvizTree adds a node and its nested structure. Containers become
// cluster subgraphs; children chain with edges to show sequence.
func addGraphvizTree(graph *cgraph.Graph, n *Node, gvNodes map[string]*cgraph.Node) error {
	gvNode, err := graph.CreateNodeByName(n.ID)
	if err != nil {
		return fmt.Errorf("diagram: create node %s: %w", n.ID, err)
	}
	gvNode.SetLabel(asciiLabel(n))
	applyNodeStyle(gvNode, n)
	gvNodes[n.ID] = gvNode

	if len(n.Children) == 0 && len(n.ParallelBranches) == 0 {
		return nil
	}

	cluster, err := graph.CreateSubGraphByName("cluster_" + n.ID)
	if err != nil {
		return nil
	}
	cluster.SetLabel(asciiLabel(n))
	cluster.SetStyle(cgraph.DashedGraphStyle)

	var prev *cgraph.Node
	for _, c := range n.Children {
		if err := addGraphvizCluster(cluster, graph, c, gvNodes); err != nil {
			continue
		}
		cur := gvNodes[c.ID]
		if prev != nil && cur != nil {
			_, _ = graph.CreateEdgeByName("", prev, cur)
		}
		prev = cur
	}

	for i, branch := range n.ParallelBranches {
		branchCluster, bErr := cluster.CreateSubGraphByName(fmt.Sprintf("cluster_%s_b%d", n.ID, i))
		if bErr != nil {
			continue
		}
		branchCluster.SetLabel(fmt.Sprintf("branch %d", i))
		var prevB *cgraph.Node
		for _, c := range branch {
			if err := addGraphvizCluster(branchCluster, graph, c, gvNodes); err != nil {
				continue
			}
			cur := gvNodes[c.ID]
			if prevB != nil && cur != nil {
				_, _ = graph.CreateEdgeByName("", prevB, cur)
			}
			prevB = cur
		}
	}
	return nil
}

// addGraphvizCluster adds a nested node inside a cluster subgraph.
func addGraphvizCluster(cluster *cgraph.Graph, graph *cgraph.Graph, n *Node, gvNodes map[string]*cgraph.Node) error {
	gvNode, err := cluster.CreateNodeByName(n.ID)
	if err != nil {
		return fmt.Errorf("diagram: create node %s: %w", n.ID, err)
	}
	gvNode.SetLabel(asciiLabel(n))
	applyNodeStyle(gvNode, n)
	gvNodes[n.ID] = gvNode

	// Deeper nesting (delegated agents, nested groups).
	if len(n.Children) > 0 || len(n.ParallelBranches) > 0 {
		return addGraphvizTree(graph, n, gvNodes)
	}
	return nil
}

// applyNodeStyle sets graphviz attributes based on node type and status.
func applyNodeStyle(gvNode *cgraph.Node, n *Node) {
	switch {
	case n.Data.Variant == VariantPill:
		gvNode.SetShape(cgraph.EllipseShape)
		gvNode.SetWidth(0.6)
		gvNode.SetHeight(0.3)
	case n.Type == NodeUser:
		gvNode.SetShape(cgraph.CircleShape)
	case n.Type == NodeConditional:
		gvNode.SetShape(cgraph.DiamondShape)
	case n.Type == NodeLLM:
		gvNode.SetShape(cgraph.HexagonShape)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	applyStatusColor(gvNode, n.Data.Status)
}

// applyStatusColor sets fill color and style based on status.
func applyStatusColor(gvNode *cgraph.Node, status Status) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch status {
	case StatusCompleted:
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case StatusError:
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case StatusInProgress:
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case StatusPending:
		gvNode.SetFillColor("#d3d3d3")
		gvNode.SetFontColor("black")
	}
}
