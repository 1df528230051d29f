package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nlatta/caseforge/internal/domain/toolspec"
)

// Invoker executes one canonical operation against the backing services.
// The dispatch layer supplies the binding; executors never talk to storage
// directly.
type Invoker interface {
	Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error)
}

// Transform reshapes an operation response for a data_transform tool.
type Transform func(map[string]any) (map[string]any, error)

// Executor runs loaded tool definitions. One instance serves all kinds; the
// strategy is picked per call from the definition.
type Executor struct {
	invoker    Invoker
	transforms map[string]Transform
	logger     *slog.Logger
}

// NewExecutor returns an executor with the built-in transform table.
func NewExecutor(invoker Invoker, logger *slog.Logger) *Executor {
	return &Executor{
		invoker: invoker,
		transforms: map[string]Transform{
			"summary": summaryTransform,
		},
		logger: logger.With("component", "tool_executor"),
	}
}

// Execute validates input against the tool's effective parameters and runs
// the tool's strategy. The returned map is the tool result payload.
func (e *Executor) Execute(ctx context.Context, def *Definition, input map[string]any) (map[string]any, error) {
	params, err := ValidateInput(def, input)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", def.Name, err)
	}

	switch def.Kind {
	case KindSimple, KindAPICall:
		return e.invoker.Invoke(ctx, def.Operation, params)
	case KindDataTransform:
		return e.executeTransform(ctx, def, params)
	case KindComposite:
		return e.executeComposite(ctx, def, params)
	default:
		return nil, fmt.Errorf("tool %s: %w: %s", def.Name, ErrUnknownKind, def.Kind)
	}
}

func (e *Executor) executeTransform(ctx context.Context, def *Definition, params map[string]any) (map[string]any, error) {
	fn, ok := e.transforms[def.Transform]
	if !ok {
		return nil, fmt.Errorf("tool %s: %w: %s", def.Name, ErrUnknownTransform, def.Transform)
	}
	resp, err := e.invoker.Invoke(ctx, def.Operation, params)
	if err != nil {
		return nil, err
	}
	return fn(resp)
}

// executeComposite runs steps in declaration order. Completed step outputs
// feed later steps through "$.steps.<id>.<field>" references. On an aborting
// failure, rollbacks of already completed steps run in reverse order,
// best-effort.
func (e *Executor) executeComposite(ctx context.Context, def *Definition, input map[string]any) (map[string]any, error) {
	results := map[string]map[string]any{}
	var completed []CompositeStep
	final := map[string]any{}

	for _, step := range def.Steps {
		stepInput, err := resolveStepInput(step.Input, input, results)
		if err != nil {
			return nil, fmt.Errorf("tool %s step %s: %w", def.Name, step.ID, err)
		}

		resp, err := e.invokeWithRetry(ctx, step, stepInput)
		if err != nil {
			if step.OnError == toolspec.OnErrorContinue {
				e.logger.Warn("composite step failed, continuing",
					"tool", def.Name, "step", step.ID, "error", err)
				results[step.ID] = map[string]any{}
				continue
			}
			e.rollback(ctx, def, completed, input, results)
			return nil, fmt.Errorf("%w: %s step %s: %v", ErrStepFailed, def.Name, step.ID, err)
		}

		results[step.ID] = resp
		completed = append(completed, step)
		for field, alias := range step.Output {
			if v, ok := resp[field]; ok {
				final[alias] = v
			}
		}
	}
	return final, nil
}

func (e *Executor) invokeWithRetry(ctx context.Context, step CompositeStep, input map[string]any) (map[string]any, error) {
	attempts := 1
	if step.OnError == toolspec.OnErrorRetry {
		attempts += step.RetryLimit
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := e.invoker.Invoke(ctx, step.Operation, input)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (e *Executor) rollback(ctx context.Context, def *Definition, completed []CompositeStep, input map[string]any, results map[string]map[string]any) {
	for i := len(completed) - 1; i >= 0; i-- {
		rb := completed[i].Rollback
		if rb == nil {
			continue
		}
		rbInput, err := resolveStepInput(rb.Input, input, results)
		if err == nil {
			_, err = e.invoker.Invoke(ctx, rb.Operation, rbInput)
		}
		if err != nil {
			e.logger.Error("rollback failed",
				"tool", def.Name, "step", completed[i].ID, "rollback", rb.ID, "error", err)
		}
	}
}

// resolveStepInput substitutes "$.input.<field>" and "$.steps.<id>.<field>"
// references with concrete values. A reference to an absent field is an
// error: the loader guarantees the shapes, so a miss here means a contract
// drifted at run time.
func resolveStepInput(mapping map[string]string, input map[string]any, results map[string]map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(mapping))
	for target, ref := range mapping {
		switch {
		case strings.HasPrefix(ref, toolspec.InputRefPrefix):
			field := strings.TrimPrefix(ref, toolspec.InputRefPrefix)
			v, ok := input[field]
			if !ok {
				return nil, fmt.Errorf("%w: input field %s is absent", ErrInvalidParam, field)
			}
			out[target] = v
		case strings.HasPrefix(ref, toolspec.StepRefPrefix):
			rest := strings.TrimPrefix(ref, toolspec.StepRefPrefix)
			stepID, field, ok := strings.Cut(rest, ".")
			if !ok {
				return nil, fmt.Errorf("%w: malformed step reference %s", ErrInvalidParam, ref)
			}
			resp, ok := results[stepID]
			if !ok {
				return nil, fmt.Errorf("%w: step %s has not produced a result", ErrInvalidParam, stepID)
			}
			v, ok := resp[field]
			if !ok {
				return nil, fmt.Errorf("%w: step %s result has no field %s", ErrInvalidParam, stepID, field)
			}
			out[target] = v
		default:
			return nil, fmt.Errorf("%w: unrecognized reference %s", ErrInvalidParam, ref)
		}
	}
	return out, nil
}

// summaryTransform condenses a casefile payload to one human-readable line.
func summaryTransform(resp map[string]any) (map[string]any, error) {
	title, _ := resp["title"].(string)
	status, _ := resp["status"].(string)
	priority, _ := resp["priority"].(string)
	id, _ := resp["casefile_id"].(string)
	if id == "" {
		if alt, ok := resp["id"].(string); ok {
			id = alt
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s/%s]", title, status, priority)
	if notes, ok := resp["note_count"].(int); ok && notes > 0 {
		fmt.Fprintf(&b, ", %d notes", notes)
	}
	return map[string]any{
		"casefile_id": id,
		"summary":     b.String(),
	}, nil
}
