package execution

import (
	"fmt"

	"github.com/graphflow/engine/internal/domain/workflow"
)

// ConditionVariant identifies how a RunCondition's Value should be
// interpreted. New variants are added here and in Evaluator.Check.
const (
	ConditionVariantBranch     = "branch"
	ConditionVariantExpression = "expression"
)

// Expression is the shape a "expression" RunCondition's Value takes: a
// simple equality test against a value already written to the variable
// pool at VariablePath (commonly the producing node's classification
// output).
type Expression struct {
	VariablePath []string
	Equals       interface{}
}

// Evaluator decides, for a candidate edge leaving a just-completed node,
// whether that edge's target should be scheduled next. It is stateless
// and safe to share across every goroutine in a run.
type Evaluator struct{}

// NewEvaluator creates a condition evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Check reports whether edge should be followed. source is the
// RouteNodeState of the node that just finished; pool is the run's
// variable pool as of that completion. An edge with a nil RunCondition
// always passes (an unconditional edge).
func (e *Evaluator) Check(edge workflow.Edge, source *RouteNodeState, pool *VariablePool) (bool, error) {
	if edge.RunCondition == nil {
		return true, nil
	}
	switch edge.RunCondition.Variant {
	case ConditionVariantBranch:
		want, ok := edge.RunCondition.Value.(string)
		if !ok {
			return false, fmt.Errorf("execution: branch condition value must be a string, got %T", edge.RunCondition.Value)
		}
		got, ok := branchSelection(source)
		if !ok {
			return false, nil
		}
		return got == want, nil

	case ConditionVariantExpression:
		expr, ok := edge.RunCondition.Value.(Expression)
		if !ok {
			return false, fmt.Errorf("execution: expression condition value must be an Expression, got %T", edge.RunCondition.Value)
		}
		got, found := pool.Get(expr.VariablePath)
		if !found {
			return false, nil
		}
		return got == expr.Equals, nil

	default:
		return false, fmt.Errorf("execution: unknown run condition variant %q", edge.RunCondition.Variant)
	}
}

// branchSelection extracts the selected-branch tag a condition node
// writes into its own RunResult metadata under "selected_branch".
func branchSelection(source *RouteNodeState) (string, bool) {
	if source == nil || source.NodeRunResult == nil || source.NodeRunResult.Metadata == nil {
		return "", false
	}
	v, ok := source.NodeRunResult.Metadata["selected_branch"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
