package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// StepType enumerates the visualizer step kinds emitted by the agent runtime.
// The string values are the wire-format discriminators.
type StepType string

const (
	StepUserRequest         StepType = "USER_REQUEST"
	StepLLMCall             StepType = "AGENT_LLM_CALL"
	StepLLMResponse         StepType = "AGENT_LLM_RESPONSE_TO_AGENT"
	StepToolInvocationStart StepType = "AGENT_TOOL_INVOCATION_START"
	StepToolExecutionResult StepType = "AGENT_TOOL_EXECUTION_RESULT"
	StepResponseText        StepType = "AGENT_RESPONSE_TEXT"
	StepWorkflowStart       StepType = "WORKFLOW_EXECUTION_START"
	StepWorkflowResult      StepType = "WORKFLOW_EXECUTION_RESULT"
	StepWorkflowNodeStart   StepType = "WORKFLOW_NODE_EXECUTION_START"
	StepWorkflowNodeResult  StepType = "WORKFLOW_NODE_EXECUTION_RESULT"
)

// VisualizerStep is one event in an agent execution trace.
// Steps for a given logical task arrive start-of-task first, then child
// events, then end-of-task; the compiler assumes this ordering and does
// not verify it.
type VisualizerStep struct {
	ID             string    `json:"id"`
	Type           StepType  `json:"type"`
	OwningTaskID   string    `json:"owning_task_id"`
	ParentTaskID   string    `json:"parent_task_id,omitempty"`
	FunctionCallID string    `json:"function_call_id,omitempty"`
	NestingLevel   int       `json:"nesting_level"`
	Timestamp      time.Time `json:"timestamp,omitzero"`

	Delegation *DelegationInfo `json:"delegation,omitempty"`
	Data       StepData        `json:"data"`
}

// DelegationInfo links a parent task to the sub-task spawned by an
// agent-to-agent delegation call.
type DelegationInfo struct {
	ParentTaskID string `json:"parent_task_id,omitempty"`
	SubTaskID    string `json:"sub_task_id"`
	TargetAgent  string `json:"target_agent,omitempty"`
}

// StepData is the type-dependent payload of a step. Fields are populated
// according to the step kind; unused fields stay zero.
type StepData struct {
	AgentName        string   `json:"agent_name,omitempty"`
	Text             string   `json:"text,omitempty"`
	Model            string   `json:"model,omitempty"`
	ToolName         string   `json:"tool_name,omitempty"`
	FunctionCallID   string   `json:"function_call_id,omitempty"`
	WorkflowName     string   `json:"workflow_name,omitempty"`
	NodeID           string   `json:"node_id,omitempty"`
	NodeType         string   `json:"node_type,omitempty"` // agent | conditional | loop | map | fork
	ParentNodeID     string   `json:"parent_node_id,omitempty"`
	IterationIndex   *int     `json:"iteration_index,omitempty"`
	Condition        string   `json:"condition,omitempty"`
	SelectedBranch   string   `json:"selected_branch,omitempty"`
	MaxIterations    int      `json:"max_iterations,omitempty"`
	CurrentIteration int      `json:"current_iteration,omitempty"`
	CreatedArtifacts []string `json:"created_artifacts,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// ParseSteps decodes a JSON array of visualizer steps.
func ParseSteps(data []byte) ([]VisualizerStep, error) {
	var steps []VisualizerStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse steps: %w", err)
	}
	return steps, nil
}

// Iteration returns the branch iteration index, defaulting to 0 when the
// runtime omitted it.
func (d *StepData) Iteration() int {
	if d.IterationIndex == nil {
		return 0
	}
	return *d.IterationIndex
}
