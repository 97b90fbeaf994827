package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/traceviz/pkg/schema"
)

// traceSchemaJSON is the JSON Schema for a visualizer step trace.
// Embedded as a constant to avoid filesystem dependencies. The `data`
// payload is intentionally open: newer runtimes add fields, and unmodelled
// step kinds must pass validation so the compiler can skip them.
const traceSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://traceviz.dev/schemas/trace.json",
  "type": "array",
  "items": { "$ref": "#/$defs/step" },
  "$defs": {
    "step": {
      "type": "object",
      "required": ["id", "type", "owning_task_id"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "type": { "type": "string", "minLength": 1 },
        "owning_task_id": { "type": "string" },
        "parent_task_id": { "type": "string" },
        "function_call_id": { "type": "string" },
        "nesting_level": { "type": "integer", "minimum": 0 },
        "timestamp": { "type": "string", "format": "date-time" },
        "delegation": { "$ref": "#/$defs/delegation" },
        "data": { "type": "object" }
      },
      "additionalProperties": false
    },
    "delegation": {
      "type": "object",
      "required": ["sub_task_id"],
      "properties": {
        "parent_task_id": { "type": "string" },
        "sub_task_id": { "type": "string", "minLength": 1 },
        "target_agent": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// TraceValidator validates raw trace documents against the trace JSON
// Schema before they are parsed or persisted. Safe for concurrent use.
type TraceValidator struct {
	traceSchema *jsonschema.Schema
}

// NewTraceValidator creates a TraceValidator with the trace schema pre-compiled.
func NewTraceValidator() (*TraceValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(traceSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal trace schema: %w", err)
	}
	if err := c.AddResource("https://traceviz.dev/schemas/trace.json", doc); err != nil {
		return nil, fmt.Errorf("add trace schema resource: %w", err)
	}

	compiled, err := c.Compile("https://traceviz.dev/schemas/trace.json")
	if err != nil {
		return nil, fmt.Errorf("compile trace schema: %w", err)
	}

	return &TraceValidator{traceSchema: compiled}, nil
}

// ValidateTrace validates a raw JSON trace document.
func (v *TraceValidator) ValidateTrace(raw []byte) error {
	if len(raw) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "empty trace document")
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "trace is not valid JSON").WithCause(err)
	}

	if err := v.traceSchema.Validate(doc); err != nil {
		return toTracevizError(err)
	}
	return nil
}

// ValidateSteps validates already-decoded steps by round-tripping them
// through the wire format.
func (v *TraceValidator) ValidateSteps(steps []schema.VisualizerStep) error {
	raw, err := json.Marshal(steps)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize steps").WithCause(err)
	}
	return v.ValidateTrace(raw)
}

// toTracevizError converts a jsonschema.ValidationError into a
// TracevizError with pathed violation messages.
func toTracevizError(err error) *schema.TracevizError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("trace validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
