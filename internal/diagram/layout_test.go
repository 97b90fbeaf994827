package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/traceviz/pkg/schema"
)

func workflowTrace() []schema.VisualizerStep {
	return []schema.VisualizerStep{
		userRequest("s1", "task-1", "Agent"),
		llmCall("s2", "task-1", "gpt-4o"),
		llmResponse("s3", "task-1"),
		workflowStart("s4", "task-1", "fanout"),
		nodeStart("s5", "task-1", "split", "map"),
		branchNodeStart("s6", "task-1", "w0", "split", 0),
		branchNodeStart("s7", "task-1", "w1", "split", 1),
		nodeResult("s8", "task-1", "split"),
		responseText("s9", "task-1", "done"),
	}
}

func TestLeafNodesUseFixedSizes(t *testing.T) {
	layout := Compile(simpleTrace(), nil)

	user := layout.Nodes[0]
	assert.Equal(t, userWidth, user.Width)
	assert.Equal(t, userHeight, user.Height)

	llm := layout.Nodes[1].Children[0]
	assert.Equal(t, llmWidth, llm.Width)
	assert.Equal(t, llmHeight, llm.Height)
}

func TestPillNodesUseFixedSmallSize(t *testing.T) {
	layout := Compile(workflowTrace(), nil)

	group := layout.Nodes[1].Children[1]
	require.Equal(t, NodeGroup, group.Type)
	start := group.Children[0]
	assert.Equal(t, pillWidth, start.Width)
	assert.Equal(t, pillHeight, start.Height)
}

func TestContainerWrapsChildren(t *testing.T) {
	layout := Compile(simpleTrace(), nil)

	agent := layout.Nodes[1]
	require.Len(t, agent.Children, 1)
	llm := agent.Children[0]

	assert.Equal(t, minContainerWidth+2*containerPadding, agent.Width)
	assert.Equal(t, headerHeight+llm.Height+childSpacing+containerPadding, agent.Height)
}

func TestParallelBranchesSpreadHorizontally(t *testing.T) {
	layout := Compile(workflowTrace(), nil)

	split := layout.Nodes[1].Children[1].Children[1]
	require.Len(t, split.ParallelBranches, 2)

	left := split.ParallelBranches[0][0]
	right := split.ParallelBranches[1][0]
	assert.GreaterOrEqual(t, right.X, left.X+left.Width, "branches do not overlap")
	assert.Equal(t, left.Y, right.Y, "branch columns start at the same height")
	assert.GreaterOrEqual(t, left.Y, split.Y+pillHeight, "branches sit below the container badge")
}

func TestChildrenSitBelowParentHeader(t *testing.T) {
	layout := Compile(workflowTrace(), nil)

	for _, root := range layout.Nodes {
		assertChildGeometry(t, root)
	}
}

func assertChildGeometry(t *testing.T, n *Node) {
	t.Helper()
	for i, c := range n.Children {
		assert.GreaterOrEqual(t, c.Y, n.Y+n.headerOffset(),
			"child %s below parent %s header", c.ID, n.ID)
		if i > 0 {
			prev := n.Children[i-1]
			assert.GreaterOrEqual(t, c.Y, prev.Y+prev.Height,
				"sibling %s below %s", c.ID, prev.ID)
		}
		assertChildGeometry(t, c)
	}
	for _, branch := range n.ParallelBranches {
		for i, c := range branch {
			if i > 0 {
				prev := branch[i-1]
				assert.GreaterOrEqual(t, c.Y, prev.Y+prev.Height)
			}
			assertChildGeometry(t, c)
		}
	}
}

func TestRootsAreCenteredAndStacked(t *testing.T) {
	layout := Compile(simpleTrace(), nil)

	maxWidth := 0.0
	for _, r := range layout.Nodes {
		if r.Width > maxWidth {
			maxWidth = r.Width
		}
	}
	center := maxWidth/2 + canvasMargin

	for _, r := range layout.Nodes {
		assert.InDelta(t, center, r.X+r.Width/2, 0.001, "root %s centered", r.ID)
	}
	for i := 1; i < len(layout.Nodes); i++ {
		prev := layout.Nodes[i-1]
		assert.GreaterOrEqual(t, layout.Nodes[i].Y, prev.Y+prev.Height)
	}
}

func TestUserSpacingIsTighter(t *testing.T) {
	layout := Compile(workflowTrace(), nil)

	user := layout.Nodes[0]
	agent := layout.Nodes[1]
	assert.Equal(t, user.Y+user.Height+userSpacing, agent.Y)
}

func TestCanvasCoversAllNodes(t *testing.T) {
	layout := Compile(workflowTrace(), nil)

	for _, root := range layout.Nodes {
		Walk(root, func(n *Node) {
			assert.GreaterOrEqual(t, layout.TotalWidth, n.X+n.Width)
			assert.GreaterOrEqual(t, layout.TotalHeight, n.Y+n.Height)
		})
	}
	assert.Greater(t, layout.TotalWidth, canvasMargin)
	assert.Greater(t, layout.TotalHeight, canvasMargin)
}

func TestGeometryDeterministic(t *testing.T) {
	a := Compile(workflowTrace(), nil)
	b := Compile(workflowTrace(), nil)

	require.Len(t, b.Nodes, len(a.Nodes))
	for i := range a.Nodes {
		walkPair(t, a.Nodes[i], b.Nodes[i])
	}
	assert.Equal(t, a.TotalWidth, b.TotalWidth)
	assert.Equal(t, a.TotalHeight, b.TotalHeight)
}

func walkPair(t *testing.T, a, b *Node) {
	t.Helper()
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Y, b.Y)
	assert.Equal(t, a.Width, b.Width)
	assert.Equal(t, a.Height, b.Height)
	require.Len(t, b.Children, len(a.Children))
	for i := range a.Children {
		walkPair(t, a.Children[i], b.Children[i])
	}
}

func TestEdgesSkipNonWhitelistedPairs(t *testing.T) {
	// A trace ending without a final response: Agent is the last root, no
	// trailing User, so only User→Agent connects.
	steps := []schema.VisualizerStep{
		userRequest("s1", "task-1", "Agent"),
		llmCall("s2", "task-1", "gpt-4o"),
	}
	layout := Compile(steps, nil)
	require.Len(t, layout.Edges, 1)
	assert.Equal(t, layout.Nodes[0].ID, layout.Edges[0].Source)
}

func TestEdgeEndpointsMatchNodeGeometry(t *testing.T) {
	layout := Compile(simpleTrace(), nil)

	require.NotEmpty(t, layout.Edges)
	byID := map[string]*Node{}
	for _, r := range layout.Nodes {
		byID[r.ID] = r
	}
	for _, e := range layout.Edges {
		src, dst := byID[e.Source], byID[e.Target]
		require.NotNil(t, src)
		require.NotNil(t, dst)
		assert.Equal(t, src.X+src.Width/2, e.SourceX)
		assert.Equal(t, src.Y+src.Height, e.SourceY)
		assert.Equal(t, dst.X+dst.Width/2, e.TargetX)
		assert.Equal(t, dst.Y, e.TargetY)
	}
}
