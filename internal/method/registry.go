// Package method implements the Method Engine of spec §4.E: expanding a
// named wipe method into an ordered pass list, honoring rounds, the
// optional final blank, and the verify policy.
//
// Grounded on the teacher's internal/game/rules/registry.go EngineRegistry
// (Register/CreateEngine/ParseGameType) and on the declarative rule table
// in internal/fraud/rule_detector.go (a []AntiCheatRule, each with a Check
// predicate — mirrored here as a per-pass verify-policy decision).
package method

import (
	"fmt"
	"sync"

	"wipeengine/internal/wipe"
)

// Expansion is what a builtin method contributes before rounds
// multiplication and verify-policy filtering are applied.
type Expansion struct {
	// Passes is the pass list for one round of the method.
	Passes []wipe.PassSpec

	// Repeatable is true if the engine should repeat Passes cfg.Rounds
	// times. False for ops2, whose own definition already bakes its
	// round count into the 0x00/0xFF alternation (see DESIGN.md).
	Repeatable bool

	// AllowsFinalBlank mirrors the "Final blank" column of spec §4.E's
	// method table.
	AllowsFinalBlank bool
}

// Builder constructs an Expansion for a given rounds count (only ops2
// consults it directly; every other builtin ignores it and lets the engine
// multiply).
type Builder func(rounds int) Expansion

// Engine expands method identifiers into a wipe.Method.
type Engine struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewEngine constructs an Engine pre-registered with every built-in method
// from spec §4.E.
func NewEngine() *Engine {
	e := &Engine{builders: make(map[string]Builder)}
	registerBuiltins(e)
	return e
}

// Register adds or replaces a method builder.
func (e *Engine) Register(name string, b Builder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.builders[name] = b
}

// List returns the names of every registered method.
func (e *Engine) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.builders))
	for n := range e.builders {
		names = append(names, n)
	}
	return names
}

// Expand builds the fully expanded wipe.Method for cfg.Method: rounds
// repetition, verify-policy filtering, and the optional final blank.
func (e *Engine) Expand(cfg wipe.Config) (wipe.Method, error) {
	e.mu.RLock()
	builder, ok := e.builders[cfg.Method]
	e.mu.RUnlock()
	if !ok {
		return wipe.Method{}, fmt.Errorf("method: unknown method %q", cfg.Method)
	}

	if cfg.Rounds < 1 {
		return wipe.Method{}, fmt.Errorf("method: rounds must be >= 1, got %d", cfg.Rounds)
	}

	exp := builder(cfg.Rounds)

	reps := cfg.Rounds
	displayRounds := cfg.Rounds
	if !exp.Repeatable {
		reps = 1
		displayRounds = 1
	}

	passesPerRound := len(exp.Passes)
	passes := make([]wipe.PassSpec, 0, passesPerRound*reps)
	for r := 0; r < reps; r++ {
		passes = append(passes, exp.Passes...)
	}

	passes = applyVerifyPolicy(passes, cfg.Verify)

	finalBlank := cfg.FinalBlank && exp.AllowsFinalBlank
	if finalBlank {
		passes = append(passes, wipe.PassSpec{
			Pattern: wipe.Const(0x00),
			Verify:  false,
			Kind:    wipe.PassFinalBlank,
		})
	}

	return wipe.Method{
		Name:           cfg.Method,
		Passes:         passes,
		FinalBlank:     finalBlank,
		PassesPerRound: passesPerRound,
		Rounds:         displayRounds,
	}, nil
}

// applyVerifyPolicy decides, per spec §4.E, which write passes carry a
// read-back: "none" strips all but AlwaysVerify passes, "last" keeps only
// the final non-blank write pass, "all" verifies every write pass.
// Verify-only passes (verify_zero/verify_one) and AlwaysVerify passes
// (is5enh's PRNG pass) are untouched by policy.
func applyVerifyPolicy(passes []wipe.PassSpec, policy wipe.VerifyPolicy) []wipe.PassSpec {
	out := make([]wipe.PassSpec, len(passes))
	copy(out, passes)

	lastWriteIdx := -1
	for i, p := range out {
		if p.Kind == wipe.PassWrite {
			lastWriteIdx = i
		}
	}

	for i := range out {
		if out[i].AlwaysVerify || out[i].Kind == wipe.PassVerify {
			continue // pure verify-only pass, or always-verified regardless of policy
		}
		if out[i].Kind != wipe.PassWrite {
			continue // final-blank / final-ops2 passes are never auto-verified here
		}

		switch policy {
		case wipe.VerifyNone:
			out[i].Verify = false
		case wipe.VerifyLast:
			out[i].Verify = i == lastWriteIdx
		case wipe.VerifyAll:
			out[i].Verify = true
		}
	}

	return out
}
