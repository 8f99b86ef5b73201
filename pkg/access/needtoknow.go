package access

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// predicateEvaluator evaluates need-to-know predicates. Compiled CEL
// programs are cached per expression; the cache is the only shared state
// and is guarded for concurrent Decide calls.
type predicateEvaluator struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

func newPredicateEvaluator() (*predicateEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("principal", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel environment: %w", err)
	}
	return &predicateEvaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// satisfied evaluates the predicate. Callers treat any returned error as a
// denial; this function never guesses.
func (e *predicateEvaluator) satisfied(p Principal, ntk NeedToKnow) (bool, error) {
	if len(ntk.RequiredRoles) > 0 && !holdsAnyRole(p.Roles, ntk.RequiredRoles) {
		return false, nil
	}

	if ntk.Expression != "" {
		ok, err := e.evaluateExpr(ntk.Expression, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func holdsAnyRole(held, required []string) bool {
	for _, r := range required {
		for _, h := range held {
			if h == r {
				return true
			}
		}
	}
	return false
}

func (e *predicateEvaluator) evaluateExpr(expr string, p Principal) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	compartments := make([]string, len(p.Compartments))
	for i, c := range p.Compartments {
		compartments[i] = string(c)
	}
	attributes := p.Attributes
	if attributes == nil {
		attributes = map[string]any{}
	}

	input := map[string]any{
		"principal": map[string]any{
			"id":           p.ID.String(),
			"clearance":    string(p.EffectiveClearance()),
			"compartments": compartments,
			"roles":        p.Roles,
			"attributes":   attributes,
		},
	}

	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate result is not a bool")
	}
	return val, nil
}

func (e *predicateEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.cache[expr]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.cache[expr]; hit {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	prg, err := e.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	e.cache[expr] = prg
	return prg, nil
}
