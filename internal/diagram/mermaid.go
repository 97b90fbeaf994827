package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a compiled layout as a Mermaid flowchart string.
// Groups and parallel branches become subgraphs; node containment inside
// agents is flattened into agent→child edges.
func RenderMermaid(layout *Layout) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	for _, root := range layout.Nodes {
		writeMermaidNode(&b, root, 1)
	}

	// Top-level sequential edges.
	for _, edge := range layout.Edges {
		b.WriteString(fmt.Sprintf("    %s --> %s\n",
			mermaidSafeID(edge.Source), mermaidSafeID(edge.Target)))
	}

	// Status class definitions.
	b.WriteString("\n")
	b.WriteString("    classDef completed fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef error fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef inprogress fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef pending fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")

	// Apply status classes.
	for _, root := range layout.Nodes {
		Walk(root, func(n *Node) {
			if cls := mermaidStatusClass(n.Data.Status); cls != "" {
				b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(n.ID), cls))
			}
		})
	}

	return b.String()
}

// writeMermaidNode emits one node and its nested structure.
func writeMermaidNode(b *strings.Builder, n *Node, depth int) {
	pad := strings.Repeat("    ", depth)

	container := len(n.Children) > 0 || len(n.ParallelBranches) > 0
	if !container {
		b.WriteString(pad + mermaidNodeDef(n) + "\n")
		return
	}

	b.WriteString(fmt.Sprintf("%ssubgraph %s[%q]\n", pad, mermaidSafeID(n.ID), mermaidLabel(n)))
	prev := ""
	for _, c := range n.Children {
		writeMermaidNode(b, c, depth+1)
		if prev != "" {
			b.WriteString(fmt.Sprintf("%s    %s --> %s\n", pad, prev, mermaidSafeID(c.ID)))
		}
		prev = mermaidSafeID(c.ID)
	}
	for i, branch := range n.ParallelBranches {
		b.WriteString(fmt.Sprintf("%s    subgraph %s_b%d[\"branch %d\"]\n",
			pad, mermaidSafeID(n.ID), i, i))
		for _, c := range branch {
			writeMermaidNode(b, c, depth+2)
		}
		b.WriteString(pad + "    end\n")
	}
	b.WriteString(pad + "end\n")
}

// mermaidNodeDef returns a Mermaid node definition with the shape for its type.
func mermaidNodeDef(n *Node) string {
	id := mermaidSafeID(n.ID)
	label := mermaidLabel(n)

	if n.Data.Variant == VariantPill {
		return fmt.Sprintf("%s([%q])", id, label)
	}
	switch n.Type {
	case NodeUser:
		return fmt.Sprintf("%s((%q))", id, label)
	case NodeConditional:
		return fmt.Sprintf("%s{%q}", id, label)
	case NodeLoop, NodeMap, NodeFork:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case NodeLLM:
		return fmt.Sprintf("%s{{%q}}", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidLabel returns the display label, never empty.
func mermaidLabel(n *Node) string {
	if n.Data.Label != "" {
		return n.Data.Label
	}
	return string(n.Type)
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_", ":", "_")
	return r.Replace(id)
}

// mermaidStatusClass maps a node status to a Mermaid class name.
func mermaidStatusClass(status Status) string {
	switch status {
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	case StatusInProgress:
		return "inprogress"
	case StatusPending:
		return "pending"
	default:
		return ""
	}
}
