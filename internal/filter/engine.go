package filter

import (
	"context"

	"github.com/rendis/traceviz/pkg/schema"
)

// Engine evaluates a predicate expression against a single visualizer step.
// Three implementations: CEL (conditions), Expr (logic), GoJQ (JSON-shaped
// selection). A step is kept when the expression evaluates truthy.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, step *schema.VisualizerStep) (bool, error)
}

// Apply returns the steps matching the expression, preserving input order.
// The returned slice shares no backing array with the input.
func Apply(ctx context.Context, eng Engine, expression string, steps []schema.VisualizerStep) ([]schema.VisualizerStep, error) {
	if expression == "" {
		out := make([]schema.VisualizerStep, len(steps))
		copy(out, steps)
		return out, nil
	}

	var out []schema.VisualizerStep
	for i := range steps {
		keep, err := eng.Evaluate(ctx, expression, &steps[i])
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, steps[i])
		}
	}
	return out, nil
}

// New returns the engine for a name: "cel", "expr" or "jq".
func New(name string) (Engine, error) {
	switch name {
	case "cel":
		return NewCELEngine()
	case "expr":
		return NewExprEngine(), nil
	case "jq":
		return NewGoJQEngine(), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown filter engine %q", name)
	}
}

// truthy interprets an expression result as a keep/skip decision.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
