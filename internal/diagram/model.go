package diagram

// NodeType classifies a layout node by the kind of execution it represents.
type NodeType string

const (
	NodeUser        NodeType = "user"
	NodeAgent       NodeType = "agent"
	NodeLLM         NodeType = "llm"
	NodeTool        NodeType = "tool"
	NodeConditional NodeType = "conditional"
	NodeLoop        NodeType = "loop"
	NodeMap         NodeType = "map"
	NodeFork        NodeType = "fork"
	NodeGroup       NodeType = "group"
)

// VariantPill marks a node rendered in the compact badge form
// (Start/Finish/Join markers and map/fork headers).
const VariantPill = "pill"

// Status is the lifecycle state of a layout node.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// NodeData is the variant-specific payload of a layout node.
type NodeData struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`
	Variant     string `json:"variant,omitempty"`

	Model            string   `json:"model,omitempty"`
	ToolName         string   `json:"tool_name,omitempty"`
	NodeID           string   `json:"node_id,omitempty"`
	Condition        string   `json:"condition,omitempty"`
	SelectedBranch   string   `json:"selected_branch,omitempty"`
	MaxIterations    int      `json:"max_iterations,omitempty"`
	CurrentIteration int      `json:"current_iteration,omitempty"`
	CreatedArtifacts []string `json:"created_artifacts,omitempty"`

	// IsCollapsed is written by callers merging renderer-side UI state
	// before a compile; the compiler itself never sets it.
	IsCollapsed bool `json:"is_collapsed,omitempty"`
}

// Node is one compiled node of the diagram tree. Geometry fields are zero
// until the layout pass runs and are owned exclusively by it. Once a node
// is appended to a parent's Children or to a branch it is never re-parented;
// later mutation is limited to Data.Status and geometry.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Data NodeData `json:"data"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Children []*Node `json:"children,omitempty"`

	// ParallelBranches is present only on map/fork nodes. Each inner slice
	// is one execution branch; branch order is the order each branch's
	// first node was observed, not iteration-index order.
	ParallelBranches [][]*Node `json:"parallel_branches,omitempty"`

	// OwningTaskID is a back-reference used for lookups only.
	OwningTaskID string `json:"owning_task_id,omitempty"`
}

// Edge is a sequential connector between two top-level nodes. Endpoint
// coordinates are derived from node positions at computation time and are
// not live-updated.
type Edge struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Target  string  `json:"target"`
	SourceX float64 `json:"source_x"`
	SourceY float64 `json:"source_y"`
	TargetX float64 `json:"target_x"`
	TargetY float64 `json:"target_y"`
}

// Layout is the compile result: positioned root nodes, top-level edges and
// the overall canvas size. It is immutable once returned.
type Layout struct {
	Nodes       []*Node `json:"nodes"`
	Edges       []Edge  `json:"edges"`
	TotalWidth  float64 `json:"total_width"`
	TotalHeight float64 `json:"total_height"`
}

// Drop reasons for steps the compiler could not place in the tree.
const (
	DropNoParent           = "unresolvable_parent"
	DropUnknownCorrelation = "unknown_correlation_id"
	DropNoOpenLLMCall      = "no_open_llm_call"
)

// DroppedStep records a step the compiler skipped. Malformed or partial
// traces never fail a compile; they yield an incomplete diagram plus these
// diagnostics.
type DroppedStep struct {
	StepID string `json:"step_id"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Walk calls fn for every node reachable from n, including n itself,
// descending into children and parallel branches.
func Walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
	for _, branch := range n.ParallelBranches {
		for _, c := range branch {
			Walk(c, fn)
		}
	}
}
