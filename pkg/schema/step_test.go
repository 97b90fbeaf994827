package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteps(t *testing.T) {
	data := []byte(`[
		{"id":"s1","type":"USER_REQUEST","owning_task_id":"t1","data":{"agent_name":"Agent","text":"hello"}},
		{"id":"s2","type":"AGENT_LLM_CALL","owning_task_id":"t1","function_call_id":"fc1","data":{"model":"gpt-4o"}},
		{"id":"s3","type":"WORKFLOW_NODE_EXECUTION_START","owning_task_id":"t1",
		 "data":{"node_id":"w0","node_type":"agent","parent_node_id":"split","iteration_index":2}}
	]`)

	steps, err := ParseSteps(data)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, StepUserRequest, steps[0].Type)
	assert.Equal(t, "t1", steps[0].OwningTaskID)
	assert.Equal(t, "hello", steps[0].Data.Text)

	assert.Equal(t, "fc1", steps[1].FunctionCallID)
	assert.Equal(t, "gpt-4o", steps[1].Data.Model)

	require.NotNil(t, steps[2].Data.IterationIndex)
	assert.Equal(t, 2, steps[2].Data.Iteration())
}

func TestParseStepsInvalidJSON(t *testing.T) {
	_, err := ParseSteps([]byte(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestIterationDefaultsToZero(t *testing.T) {
	var d StepData
	assert.Equal(t, 0, d.Iteration())
}

func TestAgentNameMapDisplay(t *testing.T) {
	m := AgentNameMap{"raw_agent": "Research Agent", "empty": ""}

	assert.Equal(t, "Research Agent", m.Display("raw_agent"))
	assert.Equal(t, "unknown", m.Display("unknown"), "missing entries fall back to raw")
	assert.Equal(t, "empty", m.Display("empty"), "blank mappings fall back to raw")

	var nilMap AgentNameMap
	assert.Equal(t, "raw", nilMap.Display("raw"))
}

func TestTracevizError(t *testing.T) {
	cause := assert.AnError
	err := NewErrorf(ErrCodeStore, "open %s", "db").WithCause(cause).WithDetails(map[string]any{"path": "db"})

	assert.Equal(t, "[STORE_ERROR] open db", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "db", err.Details["path"])
}
