package jumptable

import (
	"context"
	"errors"
	"fmt"

	"armlens/internal/annotate"
	"armlens/internal/safety"
)

// WriteIntent bundles the at-most-two elementary writes that may
// follow a successful verification. Empty fields mean no write.
type WriteIntent struct {
	RenameTo string
	Comment  string
}

// Empty reports whether the intent carries no writes at all.
func (w WriteIntent) Empty() bool {
	return w.RenameTo == "" && w.Comment == ""
}

// WriteOutcome records what actually landed and what re-verification
// observed afterwards. VerifyAfter is nil when no real write happened.
type WriteOutcome struct {
	Renamed     bool
	CommentSet  bool
	VerifyAfter *Outcome
}

// SlotResult is the per-slot envelope entry. Errors carry stable
// error-code prefixes; Notes explain benign skips such as dry runs.
type SlotResult struct {
	Slot     uint32
	SlotAddr uint64
	Raw      uint32
	Outcome  Outcome
	Write    *WriteOutcome
	Errors   []string
	Notes    []string
}

// Valid reports whether the slot verified as a jump target.
func (r SlotResult) Valid() bool {
	return r.Outcome.Kind == KindValid
}

// slotState names the processor's one-directional state machine:
// Probed -> Verified -> WriteRequested -> WriteVerified -> Done.
// Verification failures and empty intents jump straight to Done.
type slotState int

const (
	stateProbed slotState = iota
	stateVerified
	stateWriteRequested
	stateWriteVerified
	stateDone
)

// Processor runs one jump-table slot through probe, verify and the
// optional gated write path. All failures are recorded on the slot
// result; Process itself never fails.
type Processor struct {
	Verifier *Verifier
	Writer   *annotate.Writer
	Range    CodeRange
}

// Process handles the slot at base + index*WordSize.
func (p *Processor) Process(ctx context.Context, base uint64, index uint32, intent WriteIntent) SlotResult {
	res := SlotResult{
		Slot:     index,
		SlotAddr: base + uint64(index)*WordSize,
	}

	raw, err := p.Verifier.Host.ReadWord(ctx, res.SlotAddr)
	if err != nil {
		res.Outcome = Outcome{Kind: KindToolMissing}
		res.Errors = append(res.Errors, fmt.Sprintf("%s: read slot word: %v", KindToolMissing.Code(), err))
		return res
	}
	res.Raw = raw

	var cand Candidate
	state := stateProbed
	for state != stateDone {
		switch state {
		case stateProbed:
			pr := Probe(raw, p.Range)
			if !pr.OK {
				res.Outcome = Outcome{Kind: pr.Fail}
				res.Errors = append(res.Errors, pr.Fail.Code())
				state = stateDone
				break
			}
			cand = pr.Candidate
			state = stateVerified

		case stateVerified:
			res.Outcome = p.Verifier.Verify(ctx, cand)
			if res.Outcome.Kind != KindValid {
				res.Errors = append(res.Errors, res.Outcome.Kind.Code())
				state = stateDone
				break
			}
			if intent.Empty() {
				state = stateDone
				break
			}
			state = stateWriteRequested

		case stateWriteRequested:
			state = p.applyWrites(ctx, &res, intent)

		case stateWriteVerified:
			p.verifyWrites(ctx, &res, cand, intent)
			state = stateDone
		}
	}
	return res
}

// applyWrites pushes the intent through the annotation writer. It
// returns the next state: stateWriteVerified when at least one real
// write landed, stateDone otherwise.
func (p *Processor) applyWrites(ctx context.Context, res *SlotResult, intent WriteIntent) slotState {
	out := &WriteOutcome{}
	res.Write = out
	target := res.Outcome.Target

	if intent.RenameTo != "" {
		err := p.Writer.Rename(ctx, target, intent.RenameTo)
		if !p.recordWriteErr(res, "rename", err) {
			return stateDone // budget exhausted, skip remaining writes
		}
		out.Renamed = err == nil
	}
	if intent.Comment != "" {
		err := p.Writer.Comment(ctx, target, intent.Comment)
		if !p.recordWriteErr(res, "comment", err) {
			return stateDone
		}
		out.CommentSet = err == nil
	}

	if out.Renamed || out.CommentSet {
		return stateWriteVerified
	}
	return stateDone
}

// recordWriteErr files a write error on the result. It returns false
// only for a safety-limit hit, which aborts the slot's remaining
// writes without failing the batch.
func (p *Processor) recordWriteErr(res *SlotResult, what string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, safety.ErrDryRun):
		res.Notes = append(res.Notes, fmt.Sprintf("dry run: %s simulated only", what))
		return true
	case errors.Is(err, safety.ErrWriteDisabled):
		res.Notes = append(res.Notes, fmt.Sprintf("writes disabled: %s skipped", what))
		return true
	case errors.Is(err, safety.ErrSafetyLimit):
		res.Errors = append(res.Errors, fmt.Sprintf("SAFETY_LIMIT: write budget exhausted before %s", what))
		return false
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %s: %v", KindToolMissing.Code(), what, err))
		return true
	}
}

// verifyWrites re-queries the target to confirm the writes stuck. A
// mismatch is reported as WRITE_VERIFY_FAILED, never silently
// swallowed as success.
func (p *Processor) verifyWrites(ctx context.Context, res *SlotResult, cand Candidate, intent WriteIntent) {
	after := p.Verifier.Verify(ctx, cand)
	res.Write.VerifyAfter = &after

	if res.Write.Renamed {
		if after.Kind != KindValid || after.Symbol != intent.RenameTo {
			res.Errors = append(res.Errors,
				fmt.Sprintf("WRITE_VERIFY_FAILED: symbol is %q, want %q", after.Symbol, intent.RenameTo))
		}
	}
	if res.Write.CommentSet {
		text, ok, err := p.Writer.ReadBack(ctx, cand.Target)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, fmt.Sprintf("%s: comment readback: %v", KindToolMissing.Code(), err))
		case !ok:
			res.Notes = append(res.Notes, "host does not support comment readback")
		case text != intent.Comment:
			res.Errors = append(res.Errors,
				fmt.Sprintf("WRITE_VERIFY_FAILED: comment is %q, want %q", text, intent.Comment))
		}
	}
}
