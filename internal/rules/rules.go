package rules

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultGameOver ends the game once the whole crew is down
const DefaultGameOver = "all(characters, {.hp <= 0})"

// evalTimeout bounds a single rule evaluation
const evalTimeout = 100 * time.Millisecond

// Rule is one compiled boolean condition
type Rule struct {
	Source  string
	program *vm.Program
}

// Set is an ordered list of rules; it is satisfied when any rule holds
type Set struct {
	rules []*Rule
}

// Compile builds a rule set. Blank expressions are skipped; an invalid
// expression fails the whole set.
func Compile(sources []string) (*Set, error) {
	set := &Set{}
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		program, err := expr.Compile(src, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("invalid rule %q: %w", src, err)
		}
		set.rules = append(set.rules, &Rule{Source: src, program: program})
	}
	return set, nil
}

// Len returns the number of compiled rules
func (s *Set) Len() int {
	return len(s.rules)
}

// Any reports whether at least one rule holds for env. Evaluation errors
// and timeouts are logged and count as false.
func (s *Set) Any(env map[string]interface{}) bool {
	for _, r := range s.rules {
		ok, err := r.Eval(env)
		if err != nil {
			log.Printf("rules: %v", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// Eval runs the rule against env with a time limit
func (r *Rule) Eval(env map[string]interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	resultChan := make(chan interface{}, 1)
	errChan := make(chan error, 1)

	go func() {
		result, err := vm.Run(r.program, env)
		if err != nil {
			errChan <- err
		} else {
			resultChan <- result
		}
	}()

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("rule %q: evaluation timeout", r.Source)
	case err := <-errChan:
		return false, fmt.Errorf("rule %q: %w", r.Source, err)
	case result := <-resultChan:
		b, ok := result.(bool)
		if !ok {
			return false, fmt.Errorf("rule %q: result is %T, not bool", r.Source, result)
		}
		return b, nil
	}
}
