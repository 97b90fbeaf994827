package diagram

import (
	"fmt"

	"github.com/rendis/traceviz/pkg/schema"
)

// containerRef tracks an open map/fork node together with the group that
// owns it, so the Join pill can be spliced in as its next sibling.
type containerRef struct {
	node   *Node
	parent *Node
}

// buildContext is the mutable compilation state threaded through the
// per-step handlers. One instance is created per compile call and
// discarded afterwards; nothing is shared across invocations.
type buildContext struct {
	steps []schema.VisualizerStep
	names schema.AgentNameMap

	roots []*Node

	// taskNodes maps a logical task id to the current insertion point for
	// that task's future children (an agent node, or the open workflow
	// group once one starts).
	taskNodes map[string]*Node

	// callNodes maps an async correlation id to the node awaiting its
	// result event.
	callNodes map[string]*Node

	// containers maps "taskID:nodeID" to the open map/fork container.
	containers map[string]*containerRef

	// branchSlots maps "taskID:nodeID:iteration" to the branch's index in
	// the container's ParallelBranches. Slots are created lazily on first
	// use, so branch order reflects discovery order, not iteration order.
	branchSlots map[string]int

	// workflowNodes maps "taskID:nodeID" to the workflow node awaiting its
	// result event.
	workflowNodes map[string]*Node

	currentAgent *Node
	seenTopUser  bool
	seenEndUser  bool

	nextID  int
	dropped []DroppedStep
}

func newBuildContext(steps []schema.VisualizerStep, names schema.AgentNameMap) *buildContext {
	return &buildContext{
		steps:         steps,
		names:         names,
		taskNodes:     make(map[string]*Node),
		callNodes:     make(map[string]*Node),
		containers:    make(map[string]*containerRef),
		branchSlots:   make(map[string]int),
		workflowNodes: make(map[string]*Node),
	}
}

// newNode allocates a node with a fresh id. IDs combine a monotonic counter
// with the type tag and are never reused.
func (bc *buildContext) newNode(t NodeType, data NodeData, taskID string) *Node {
	bc.nextID++
	return &Node{
		ID:           fmt.Sprintf("%s-%d", t, bc.nextID),
		Type:         t,
		Data:         data,
		OwningTaskID: taskID,
	}
}

// resolveTask returns the insertion point for a task id, falling back to
// the current agent. Returns nil when neither is known.
func (bc *buildContext) resolveTask(taskID string) *Node {
	if n, ok := bc.taskNodes[taskID]; ok {
		return n
	}
	return bc.currentAgent
}

// drop records a step the compiler could not place. Dropping is the only
// failure mode; the compiler never raises an error.
func (bc *buildContext) drop(step *schema.VisualizerStep, reason string) {
	bc.dropped = append(bc.dropped, DroppedStep{
		StepID: step.ID,
		Type:   string(step.Type),
		Reason: reason,
	})
}

// nodeKey builds the composite container/workflow-node key.
func nodeKey(taskID, nodeID string) string {
	return taskID + ":" + nodeID
}

// branchKey builds the composite branch key.
func branchKey(taskID, nodeID string, iteration int) string {
	return fmt.Sprintf("%s:%s:%d", taskID, nodeID, iteration)
}
