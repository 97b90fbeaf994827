package diagram

import (
	"strings"

	"github.com/rendis/traceviz/pkg/schema"
)

// peerToolPrefix marks tool invocations that are really agent-to-agent
// delegation calls.
const peerToolPrefix = "peer_"

// workflowToolPrefix marks runtime-internal tools that surface workflow
// bookkeeping; the workflow event handlers model these instead.
const workflowToolPrefix = "workflow_"

// Compile builds a positioned layout from a time-ordered step trace.
// Steps must be processed in slice order; the matching policies below
// (most-recent-open LLM completion, final-response lookahead, branch
// discovery order) depend on it. Compile never fails: steps it cannot
// place are skipped and the diagram is simply incomplete.
func Compile(steps []schema.VisualizerStep, names schema.AgentNameMap) *Layout {
	layout, _ := CompileWithDiagnostics(steps, names)
	return layout
}

// CompileWithDiagnostics is Compile plus the list of steps that were
// skipped and why.
func CompileWithDiagnostics(steps []schema.VisualizerStep, names schema.AgentNameMap) (*Layout, []DroppedStep) {
	bc := newBuildContext(steps, names)

	for i := range steps {
		bc.dispatch(i)
	}

	for _, root := range bc.roots {
		measure(root)
	}
	positionRoots(bc.roots)

	return &Layout{
		Nodes:       bc.roots,
		Edges:       sequentialEdges(bc.roots),
		TotalWidth:  canvasWidth(bc.roots),
		TotalHeight: canvasHeight(bc.roots),
	}, bc.dropped
}

// dispatch routes one step to its handler. Unknown kinds are a no-op so
// newer runtimes can emit kinds this version does not model yet.
func (bc *buildContext) dispatch(i int) {
	step := &bc.steps[i]
	switch step.Type {
	case schema.StepUserRequest:
		bc.handleUserRequest(step)
	case schema.StepLLMCall:
		bc.handleLLMCall(step)
	case schema.StepLLMResponse:
		bc.handleLLMResponse(step)
	case schema.StepToolInvocationStart:
		bc.handleToolStart(step)
	case schema.StepToolExecutionResult:
		bc.handleToolResult(step)
	case schema.StepResponseText:
		bc.handleResponseText(step, i)
	case schema.StepWorkflowStart:
		bc.handleWorkflowStart(step)
	case schema.StepWorkflowNodeStart:
		bc.handleWorkflowNodeStart(step)
	case schema.StepWorkflowNodeResult:
		bc.handleWorkflowNodeResult(step)
	case schema.StepWorkflowResult:
		bc.handleWorkflowResult(step)
	}
}

// handleUserRequest opens a new top-level agent turn. The leading User
// pseudo-node is created at most once, only for outermost requests.
func (bc *buildContext) handleUserRequest(step *schema.VisualizerStep) {
	if step.NestingLevel == 0 && !bc.seenTopUser {
		user := bc.newNode(NodeUser, NodeData{Label: "User", Status: StatusCompleted}, "")
		bc.roots = append(bc.roots, user)
		bc.seenTopUser = true
	}

	label := bc.names.Display(step.Data.AgentName)
	if label == "" {
		label = "Agent"
	}
	agent := bc.newNode(NodeAgent, NodeData{
		Label:       label,
		Description: step.Data.Text,
		Status:      StatusInProgress,
	}, step.OwningTaskID)
	bc.roots = append(bc.roots, agent)
	bc.currentAgent = agent
	if step.OwningTaskID != "" {
		bc.taskNodes[step.OwningTaskID] = agent
	}
}

// handleLLMCall appends an in-progress LLM child under the resolved agent.
func (bc *buildContext) handleLLMCall(step *schema.VisualizerStep) {
	parent := bc.resolveTask(step.OwningTaskID)
	if parent == nil {
		bc.drop(step, DropNoParent)
		return
	}

	llm := bc.newNode(NodeLLM, NodeData{
		Label:       "LLM",
		Description: step.Data.Model,
		Model:       step.Data.Model,
		Status:      StatusInProgress,
	}, step.OwningTaskID)
	parent.Children = append(parent.Children, llm)

	if step.FunctionCallID != "" {
		bc.callNodes[step.FunctionCallID] = llm
	}
}

// handleLLMResponse completes the most recently opened LLM child still in
// progress under the resolved agent. Responses do not carry a reusable
// correlation id, so this is deliberately last-write-wins rather than
// strict id matching.
func (bc *buildContext) handleLLMResponse(step *schema.VisualizerStep) {
	parent := bc.resolveTask(step.OwningTaskID)
	if parent == nil {
		bc.drop(step, DropNoParent)
		return
	}

	for i := len(parent.Children) - 1; i >= 0; i-- {
		child := parent.Children[i]
		if child.Type == NodeLLM && child.Data.Status == StatusInProgress {
			child.Data.Status = StatusCompleted
			return
		}
	}
	bc.drop(step, DropNoOpenLLMCall)
}

// handleToolStart creates either a nested agent subtree (peer delegation)
// or a plain tool node. Workflow-internal tools are left to the workflow
// handlers.
func (bc *buildContext) handleToolStart(step *schema.VisualizerStep) {
	name := step.Data.ToolName
	if strings.HasPrefix(name, workflowToolPrefix) {
		return
	}

	parent := bc.resolveTask(step.OwningTaskID)
	if parent == nil {
		bc.drop(step, DropNoParent)
		return
	}

	if target, ok := strings.CutPrefix(name, peerToolPrefix); ok {
		bc.addPeerAgent(step, parent, target)
		return
	}

	tool := bc.newNode(NodeTool, NodeData{
		Label:    name,
		ToolName: name,
		Status:   StatusInProgress,
	}, step.OwningTaskID)
	parent.Children = append(parent.Children, tool)

	// The tool's own function-call id is the correlation key; the step id
	// is the fallback. The step-level FunctionCallID correlates peer
	// delegation instead and must not be reused here.
	id := step.Data.FunctionCallID
	if id == "" {
		id = step.ID
	}
	bc.callNodes[id] = tool
}

// addPeerAgent models agent-to-agent delegation as a nested agent node:
// structurally a fresh agent subtree built by the same handlers.
func (bc *buildContext) addPeerAgent(step *schema.VisualizerStep, parent *Node, target string) {
	if step.Delegation != nil && step.Delegation.TargetAgent != "" {
		target = step.Delegation.TargetAgent
	}

	sub := bc.newNode(NodeAgent, NodeData{
		Label:  bc.names.Display(target),
		Status: StatusInProgress,
	}, step.OwningTaskID)
	parent.Children = append(parent.Children, sub)

	if step.Delegation != nil && step.Delegation.SubTaskID != "" {
		sub.OwningTaskID = step.Delegation.SubTaskID
		bc.taskNodes[step.Delegation.SubTaskID] = sub
	}
	if step.FunctionCallID != "" {
		bc.callNodes[step.FunctionCallID] = sub
	}
}

// handleToolResult completes the node registered under the result's
// correlation id. Unknown ids are dropped: the node may belong to a path
// modelled elsewhere, e.g. workflow nodes.
func (bc *buildContext) handleToolResult(step *schema.VisualizerStep) {
	id := step.Data.FunctionCallID
	if id == "" {
		id = step.FunctionCallID
	}
	node, ok := bc.callNodes[id]
	if !ok {
		bc.drop(step, DropUnknownCorrelation)
		return
	}
	delete(bc.callNodes, id)

	if step.Data.Error != "" {
		node.Data.Status = StatusError
		node.Data.Description = step.Data.Error
		return
	}
	node.Data.Status = StatusCompleted
	if len(step.Data.CreatedArtifacts) > 0 {
		node.Data.CreatedArtifacts = step.Data.CreatedArtifacts
	}
}

// handleResponseText closes the diagram with the trailing User node, but
// only for the final outermost response. The remainder of the trace is
// scanned so intermediate responses in a multi-turn or delegated trace do
// not end the diagram early.
func (bc *buildContext) handleResponseText(step *schema.VisualizerStep, index int) {
	if step.NestingLevel != 0 || bc.seenEndUser {
		return
	}
	for i := index + 1; i < len(bc.steps); i++ {
		later := &bc.steps[i]
		if later.Type == schema.StepResponseText && later.NestingLevel == 0 {
			return
		}
	}

	if agent := bc.resolveTask(step.OwningTaskID); agent != nil && agent.Data.Status == StatusInProgress {
		agent.Data.Status = StatusCompleted
	}

	user := bc.newNode(NodeUser, NodeData{Label: "User", Status: StatusCompleted}, "")
	bc.roots = append(bc.roots, user)
	bc.seenEndUser = true
}

// handleWorkflowStart opens a group container with a synthetic Start pill
// and makes it the task's insertion point.
func (bc *buildContext) handleWorkflowStart(step *schema.VisualizerStep) {
	parent := bc.resolveTask(step.OwningTaskID)
	if parent == nil {
		bc.drop(step, DropNoParent)
		return
	}

	label := step.Data.WorkflowName
	if label == "" {
		label = "Workflow"
	}
	group := bc.newNode(NodeGroup, NodeData{
		Label:  label,
		Status: StatusInProgress,
	}, step.OwningTaskID)
	parent.Children = append(parent.Children, group)

	start := bc.newNode(NodeAgent, NodeData{
		Label:   "Start",
		Status:  StatusCompleted,
		Variant: VariantPill,
	}, step.OwningTaskID)
	group.Children = append(group.Children, start)

	if step.OwningTaskID != "" {
		bc.taskNodes[step.OwningTaskID] = group
	}
}

// handleWorkflowNodeStart adds a workflow node to its group, or routes it
// into a branch when its declared parent is an open map/fork container.
// Branches are created lazily on first use so their order reflects the
// order each iteration was first observed.
func (bc *buildContext) handleWorkflowNodeStart(step *schema.VisualizerStep) {
	group := bc.resolveTask(step.OwningTaskID)
	if group == nil {
		bc.drop(step, DropNoParent)
		return
	}

	node := bc.newWorkflowNode(step)
	bc.workflowNodes[nodeKey(step.OwningTaskID, step.Data.NodeID)] = node

	if pid := step.Data.ParentNodeID; pid != "" {
		if ref, ok := bc.containers[nodeKey(step.OwningTaskID, pid)]; ok {
			bc.appendToBranch(step, ref.node, pid, node)
			return
		}
	}
	group.Children = append(group.Children, node)
}

// newWorkflowNode creates a layout node for a workflow node start step,
// deriving the node type and variant from the declared kind.
func (bc *buildContext) newWorkflowNode(step *schema.VisualizerStep) *Node {
	data := NodeData{
		Label:         step.Data.NodeID,
		Status:        StatusInProgress,
		NodeID:        step.Data.NodeID,
		Condition:     step.Data.Condition,
		MaxIterations: step.Data.MaxIterations,
	}

	var node *Node
	switch step.Data.NodeType {
	case "conditional", "switch":
		node = bc.newNode(NodeConditional, data, step.OwningTaskID)
	case "loop":
		data.CurrentIteration = step.Data.CurrentIteration
		node = bc.newNode(NodeLoop, data, step.OwningTaskID)
	case "map":
		data.Variant = VariantPill
		node = bc.newNode(NodeMap, data, step.OwningTaskID)
	case "fork":
		data.Variant = VariantPill
		node = bc.newNode(NodeFork, data, step.OwningTaskID)
	default:
		if step.Data.AgentName != "" {
			data.Label = bc.names.Display(step.Data.AgentName)
		}
		node = bc.newNode(NodeAgent, data, step.OwningTaskID)
	}

	if node.Type == NodeMap || node.Type == NodeFork {
		node.ParallelBranches = [][]*Node{}
		bc.containers[nodeKey(step.OwningTaskID, step.Data.NodeID)] = &containerRef{
			node:   node,
			parent: bc.resolveTask(step.OwningTaskID),
		}
	}

	// Agent nodes inside a workflow may delegate to a sub-task whose LLM
	// and tool events need to land under this node.
	if node.Type == NodeAgent && step.Delegation != nil && step.Delegation.SubTaskID != "" {
		bc.taskNodes[step.Delegation.SubTaskID] = node
	}

	return node
}

// appendToBranch places a node into the container branch selected by the
// step's iteration index, creating the branch slot on first use.
func (bc *buildContext) appendToBranch(step *schema.VisualizerStep, container *Node, parentNodeID string, node *Node) {
	key := branchKey(step.OwningTaskID, parentNodeID, step.Data.Iteration())
	slot, ok := bc.branchSlots[key]
	if !ok {
		slot = len(container.ParallelBranches)
		container.ParallelBranches = append(container.ParallelBranches, nil)
		bc.branchSlots[key] = slot
	}
	container.ParallelBranches[slot] = append(container.ParallelBranches[slot], node)
}

// handleWorkflowNodeResult completes a workflow node. For an open map/fork
// container it also closes the container: tracking entries are purged and
// a Join pill is spliced in as the container's next sibling, so a second
// result for the same container cannot emit a duplicate Join.
func (bc *buildContext) handleWorkflowNodeResult(step *schema.VisualizerStep) {
	key := nodeKey(step.OwningTaskID, step.Data.NodeID)
	node, ok := bc.workflowNodes[key]
	if !ok {
		bc.drop(step, DropUnknownCorrelation)
		return
	}

	if step.Data.Error != "" {
		node.Data.Status = StatusError
		node.Data.Description = step.Data.Error
	} else {
		node.Data.Status = StatusCompleted
	}
	if step.Data.SelectedBranch != "" {
		node.Data.SelectedBranch = step.Data.SelectedBranch
	}
	if len(step.Data.CreatedArtifacts) > 0 {
		node.Data.CreatedArtifacts = step.Data.CreatedArtifacts
	}

	if ref, open := bc.containers[key]; open {
		bc.closeContainer(step, key, ref)
	}

	// Traces sometimes omit the closing LLM response for an agent node;
	// its result is the signal that any still-open LLM calls finished.
	if node.Type == NodeAgent {
		for _, child := range node.Children {
			if child.Type == NodeLLM && child.Data.Status == StatusInProgress {
				child.Data.Status = StatusCompleted
			}
		}
	}
}

// closeContainer purges the container's tracking entries and appends the
// Join pill immediately after the container in its parent group.
func (bc *buildContext) closeContainer(step *schema.VisualizerStep, key string, ref *containerRef) {
	delete(bc.containers, key)
	for bk := range bc.branchSlots {
		if strings.HasPrefix(bk, key+":") {
			delete(bc.branchSlots, bk)
		}
	}

	if ref.parent == nil {
		return
	}
	join := bc.newNode(NodeAgent, NodeData{
		Label:   "Join",
		Status:  StatusCompleted,
		Variant: VariantPill,
	}, step.OwningTaskID)

	siblings := ref.parent.Children
	for i, sibling := range siblings {
		if sibling == ref.node {
			siblings = append(siblings[:i+1], append([]*Node{join}, siblings[i+1:]...)...)
			ref.parent.Children = siblings
			return
		}
	}
	ref.parent.Children = append(siblings, join)
}

// handleWorkflowResult appends the Finish pill and completes the group.
func (bc *buildContext) handleWorkflowResult(step *schema.VisualizerStep) {
	group, ok := bc.taskNodes[step.OwningTaskID]
	if !ok || group.Type != NodeGroup {
		bc.drop(step, DropNoParent)
		return
	}

	finish := bc.newNode(NodeAgent, NodeData{
		Label:   "Finish",
		Status:  StatusCompleted,
		Variant: VariantPill,
	}, step.OwningTaskID)
	group.Children = append(group.Children, finish)

	if step.Data.Error != "" {
		group.Data.Status = StatusError
		group.Data.Description = step.Data.Error
		return
	}
	group.Data.Status = StatusCompleted
}
