package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/traceviz/pkg/schema"
)

func sampleSteps() []schema.VisualizerStep {
	return []schema.VisualizerStep{
		{ID: "s1", Type: schema.StepUserRequest, OwningTaskID: "t1", Data: schema.StepData{AgentName: "Agent"}},
		{ID: "s2", Type: schema.StepLLMCall, OwningTaskID: "t1", Data: schema.StepData{Model: "gpt-4o"}},
		{ID: "s3", Type: schema.StepToolInvocationStart, OwningTaskID: "t1", Data: schema.StepData{ToolName: "web_search"}},
		{ID: "s4", Type: schema.StepLLMCall, OwningTaskID: "t2", Data: schema.StepData{Model: "claude"}},
	}
}

func TestCELFilter(t *testing.T) {
	eng, err := NewCELEngine()
	require.NoError(t, err)
	assert.Equal(t, "cel", eng.Name())

	out, err := Apply(context.Background(), eng, `step.type == "AGENT_LLM_CALL"`, sampleSteps())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "s2", out[0].ID)
	assert.Equal(t, "s4", out[1].ID)
}

func TestCELCompileError(t *testing.T) {
	eng, err := NewCELEngine()
	require.NoError(t, err)

	_, err = eng.Evaluate(context.Background(), "step.type ==", &schema.VisualizerStep{})
	require.Error(t, err)
	var tvErr *schema.TracevizError
	require.ErrorAs(t, err, &tvErr)
	assert.Equal(t, schema.ErrCodeValidation, tvErr.Code)
}

func TestExprFilter(t *testing.T) {
	eng := NewExprEngine()
	assert.Equal(t, "expr", eng.Name())

	out, err := Apply(context.Background(), eng, `step.owning_task_id == "t2"`, sampleSteps())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s4", out[0].ID)
}

func TestJQFilter(t *testing.T) {
	eng := NewGoJQEngine()
	assert.Equal(t, "jq", eng.Name())

	out, err := Apply(context.Background(), eng, `.data.tool_name == "web_search"`, sampleSteps())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s3", out[0].ID)
}

func TestJQSelectProducingNoOutputSkips(t *testing.T) {
	eng := NewGoJQEngine()

	out, err := Apply(context.Background(), eng, `select(.type == "USER_REQUEST")`, sampleSteps())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].ID)
}

func TestEmptyExpressionKeepsEverything(t *testing.T) {
	eng := NewExprEngine()
	steps := sampleSteps()

	out, err := Apply(context.Background(), eng, "", steps)
	require.NoError(t, err)
	assert.Equal(t, steps, out)
}

func TestNewByName(t *testing.T) {
	for _, name := range []string{"cel", "expr", "jq"} {
		eng, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, eng.Name())
	}

	_, err := New("sql")
	assert.Error(t, err)
}

func TestEngineCacheIsReused(t *testing.T) {
	eng := NewExprEngine()
	step := &schema.VisualizerStep{Type: schema.StepLLMCall}

	for range 3 {
		keep, err := eng.Evaluate(context.Background(), `step.type == "AGENT_LLM_CALL"`, step)
		require.NoError(t, err)
		assert.True(t, keep)
	}
	assert.Len(t, eng.cache, 1)
}
