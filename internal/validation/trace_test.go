package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/traceviz/pkg/schema"
)

func TestValidateTraceAcceptsWellFormedTrace(t *testing.T) {
	v, err := NewTraceValidator()
	require.NoError(t, err)

	raw := []byte(`[
		{"id":"s1","type":"USER_REQUEST","owning_task_id":"t1","data":{"agent_name":"Agent"}},
		{"id":"s2","type":"SOME_FUTURE_KIND","owning_task_id":"t1","data":{"anything":true}}
	]`)
	assert.NoError(t, v.ValidateTrace(raw))
}

func TestValidateTraceRejectsMissingID(t *testing.T) {
	v, err := NewTraceValidator()
	require.NoError(t, err)

	raw := []byte(`[{"type":"USER_REQUEST","owning_task_id":"t1"}]`)
	err = v.ValidateTrace(raw)
	require.Error(t, err)

	var tvErr *schema.TracevizError
	require.ErrorAs(t, err, &tvErr)
	assert.Equal(t, schema.ErrCodeValidation, tvErr.Code)
}

func TestValidateTraceRejectsUnknownTopLevelField(t *testing.T) {
	v, err := NewTraceValidator()
	require.NoError(t, err)

	raw := []byte(`[{"id":"s1","type":"USER_REQUEST","owning_task_id":"t1","extra":1}]`)
	assert.Error(t, v.ValidateTrace(raw))
}

func TestValidateTraceRejectsBadJSON(t *testing.T) {
	v, err := NewTraceValidator()
	require.NoError(t, err)

	assert.Error(t, v.ValidateTrace([]byte(`not json`)))
	assert.Error(t, v.ValidateTrace(nil))
}

func TestValidateStepsRoundTrip(t *testing.T) {
	v, err := NewTraceValidator()
	require.NoError(t, err)

	steps := []schema.VisualizerStep{
		{ID: "s1", Type: schema.StepUserRequest, OwningTaskID: "t1"},
		{
			ID: "s2", Type: schema.StepToolInvocationStart, OwningTaskID: "t1",
			Delegation: &schema.DelegationInfo{SubTaskID: "t2", TargetAgent: "Peer"},
		},
	}
	assert.NoError(t, v.ValidateSteps(steps))
}
