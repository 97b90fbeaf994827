package filter

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/rendis/traceviz/pkg/schema"
)

// GoJQEngine implements the Engine interface using GoJQ. The step's JSON
// view is the jq input, so filters read like `.type == "AGENT_LLM_CALL"`.
// Thread-safe: compiled *Code objects are cached and reused across
// goroutines.
type GoJQEngine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewGoJQEngine creates a new GoJQ filter engine.
func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{
		cache: make(map[string]*gojq.Code),
	}
}

// Name returns the engine identifier.
func (e *GoJQEngine) Name() string {
	return "jq"
}

// Evaluate compiles (or retrieves from cache) a jq expression and runs it
// with the step as input. The first output decides; jq expressions that
// produce no output skip the step.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, step *schema.VisualizerStep) (bool, error) {
	if expression == "" {
		return false, schema.NewError(schema.ErrCodeValidation, "empty jq expression")
	}

	code, err := e.getOrCompile(expression)
	if err != nil {
		return false, err
	}

	iter := code.RunWithContext(ctx, stepScope(step))
	val, ok := iter.Next()
	if !ok {
		return false, nil
	}
	if evalErr, isErr := val.(error); isErr {
		return false, schema.NewErrorf(schema.ErrCodeExecution,
			"jq evaluation failed for %q: %s", expression, evalErr.Error()).
			WithCause(evalErr).
			WithDetails(map[string]any{"expression": expression})
	}

	return truthy(val), nil
}

// getOrCompile returns a cached compiled code or compiles and caches a new one.
func (e *GoJQEngine) getOrCompile(expression string) (*gojq.Code, error) {
	e.mu.RLock()
	if code, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return code, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if code, ok := e.cache[expression]; ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq parse error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.cache[expression] = code
	return code, nil
}

var _ Engine = (*GoJQEngine)(nil)
