package jumptable

import (
	"context"
	"strings"

	"armlens/internal/host"
)

// OutcomeKind is the closed classification of a slot probe.
type OutcomeKind int

const (
	KindValid OutcomeKind = iota
	KindArmInstruction
	KindOutOfRange
	KindNoFunction
	KindToolMissing
)

// Code returns the stable error-code string used in envelopes.
func (k OutcomeKind) Code() string {
	switch k {
	case KindValid:
		return "VALID"
	case KindArmInstruction:
		return "ARM_INSTRUCTION"
	case KindOutOfRange:
		return "OUT_OF_RANGE"
	case KindNoFunction:
		return "NO_FUNCTION_AT_TARGET"
	case KindToolMissing:
		return "TOOL_BINDING_MISSING"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of verifying one probe candidate. Mode,
// Target and Symbol are meaningful only when Kind is KindValid.
type Outcome struct {
	Kind   OutcomeKind
	Mode   Mode
	Target uint64
	Symbol string
}

// verifyWindow is how many instructions the disassembly fallback
// inspects at a candidate target.
const verifyWindow = 4

// Verifier confirms probe candidates against the host. This is the
// READ-then-VERIFY gate: a candidate never counts as a valid jump
// target on the strength of the probe alone. The symbol table is the
// primary confirmation; a disassembly plausibility check is the
// fallback, so literal-pool words that merely happen to land in range
// do not pass.
type Verifier struct {
	Host host.Provider
}

// Verify resolves one candidate to an Outcome.
func (v *Verifier) Verify(ctx context.Context, cand Candidate) Outcome {
	fn, err := v.Host.LookupFunction(ctx, cand.Target)
	if err != nil {
		return Outcome{Kind: KindToolMissing, Mode: cand.Mode, Target: cand.Target}
	}
	if fn != nil {
		return Outcome{Kind: KindValid, Mode: cand.Mode, Target: cand.Target, Symbol: fn.Name}
	}

	// No symbol. Ask for a short disassembly window instead; a target
	// whose first instructions decode cleanly is accepted without a
	// name.
	instrs, err := v.Host.Disassemble(ctx, cand.Target, verifyWindow)
	if err != nil || len(instrs) == 0 {
		return Outcome{Kind: KindNoFunction, Mode: cand.Mode, Target: cand.Target}
	}
	for _, in := range instrs {
		if !plausibleInstruction(in.Text) {
			return Outcome{Kind: KindNoFunction, Mode: cand.Mode, Target: cand.Target}
		}
	}
	return Outcome{Kind: KindValid, Mode: cand.Mode, Target: cand.Target}
}

// plausibleInstruction reports whether a disassembly line looks like a
// real decoded instruction rather than raw data.
func plausibleInstruction(text string) bool {
	t := strings.TrimSpace(strings.ToLower(text))
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, ".word") || strings.HasPrefix(t, ".byte") {
		return false
	}
	if strings.Contains(t, "undefined") || strings.Contains(t, "error:") {
		return false
	}
	return true
}
