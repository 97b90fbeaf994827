package diagram

import (
	"fmt"
	"strings"
)

// statusTag returns a short ASCII indicator for a node status.
func statusTag(status Status) string {
	switch status {
	case StatusCompleted:
		return "[OK]"
	case StatusError:
		return "[ERR]"
	case StatusInProgress:
		return "[RUN]"
	case StatusPending:
		return "[PEND]"
	default:
		return ""
	}
}

// RenderASCII renders a compiled layout as a text diagram: one box per
// root node with connectors between them, followed by an indented tree of
// the nested structure.
func RenderASCII(layout *Layout) string {
	var b strings.Builder

	for i, root := range layout.Nodes {
		renderBox(&b, root)
		if i < len(layout.Nodes)-1 {
			b.WriteString("       │\n")
			b.WriteString("       ▼\n")
		}
	}

	for _, root := range layout.Nodes {
		if len(root.Children) > 0 {
			b.WriteString(fmt.Sprintf("\n--- %s ---\n", asciiLabel(root)))
			for _, c := range root.Children {
				renderTree(&b, c, 1)
			}
		}
	}

	return b.String()
}

// renderBox writes a single box with label and status.
func renderBox(b *strings.Builder, n *Node) {
	var content []string
	content = append(content, asciiLabel(n))
	if tag := statusTag(n.Data.Status); tag != "" {
		content = append(content, tag)
	}

	width := 0
	for _, line := range content {
		if len(line) > width {
			width = len(line)
		}
	}

	b.WriteString("┌" + strings.Repeat("─", width+2) + "┐\n")
	for _, line := range content {
		b.WriteString("│ " + line + strings.Repeat(" ", width-len(line)) + " │\n")
	}
	b.WriteString("└" + strings.Repeat("─", width+2) + "┘\n")
}

// renderTree writes the nested structure as an indented outline.
func renderTree(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	tag := ""
	if t := statusTag(n.Data.Status); t != "" {
		tag = " " + t
	}
	b.WriteString(fmt.Sprintf("%s%s%s\n", indent, asciiLabel(n), tag))

	for _, c := range n.Children {
		renderTree(b, c, depth+1)
	}
	for i, branch := range n.ParallelBranches {
		b.WriteString(fmt.Sprintf("%s  [branch %d]\n", indent, i))
		for _, c := range branch {
			renderTree(b, c, depth+2)
		}
	}
}

// asciiLabel returns the display label, never empty.
func asciiLabel(n *Node) string {
	if n.Data.Label != "" {
		return n.Data.Label
	}
	return string(n.Type)
}
