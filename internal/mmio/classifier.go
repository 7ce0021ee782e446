package mmio

import (
	"context"
	"errors"
	"fmt"

	"armlens/internal/annotate"
	"armlens/internal/host"
	"armlens/internal/safety"
)

// DefaultMaxSamples caps the sample list when the caller does not.
const DefaultMaxSamples = 8

// smallOffsetLimit separates stack-frame offsets from absolute
// addresses; below it an immediate is treated as an offset. Inherited
// heuristic: a small non-zero offset in a literal pool would still be
// taken for an address, so callers get the instruction address as a
// fallback coordinate rather than a guess.
const smallOffsetLimit = 0x1000

// SampleOp is the access classification of one sample.
type SampleOp int

const (
	OpRead SampleOp = iota
	OpWrite
	OpOr
	OpAnd
	OpToggle
)

func (o SampleOp) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpOr:
		return "or"
	case OpAnd:
		return "and"
	case OpToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// Sample is one classified access. AbsAddress is the immediate when
// it decodes as a plausible absolute address, else the instruction's
// own address, so callers always get a dereferenceable coordinate.
type Sample struct {
	InstrAddr  uint64
	Op         SampleOp
	Immediate  uint64
	AbsAddress uint64
}

// Summary aggregates a full-function scan. Counts cover the entire
// instruction stream; Samples is capped by the classifier's limit.
type Summary struct {
	Reads      int
	Writes     int
	BitwiseOr  int
	BitwiseAnd int
	Toggles    int
	Samples    []Sample
	Annotated  int
	Notes      []string
}

// Classifier scans an ordered instruction stream for MMIO accesses.
type Classifier struct {
	MaxSamples int
}

func (c *Classifier) maxSamples() int {
	if c.MaxSamples > 0 {
		return c.MaxSamples
	}
	return DefaultMaxSamples
}

// pendingLoad tracks the most recent single-register load so that a
// later bit operation and store to the same location can be folded
// into one read-modify-write sample.
type pendingLoad struct {
	reg    string
	key    string
	imm    uint64
	form   ImmForm
	hasImm bool
	addr   uint64
	bitop  SampleOp
	hasBit bool
}

// Classify walks the instruction stream in order. Only the LDR/STR
// single-register families count; LDM/STM register lists are excluded
// because their operand is not an address and counting them inflates
// false positives.
func (c *Classifier) Classify(instrs []host.Instruction) Summary {
	var sum Summary
	var pend *pendingLoad
	limit := c.maxSamples()

	emit := func(s Sample) {
		if len(sum.Samples) < limit {
			sum.Samples = append(sum.Samples, s)
		}
	}
	flush := func() {
		if pend != nil && pend.hasImm {
			emit(Sample{
				InstrAddr:  pend.addr,
				Op:         OpRead,
				Immediate:  pend.imm,
				AbsAddress: resolveAbs(pend.imm, pend.form, pend.addr),
			})
		}
		pend = nil
	}

	for _, in := range instrs {
		mnem, operands := splitInstruction(in.Text)
		switch DecodeMnemonic(mnem) {
		case OpLDR:
			sum.Reads++
			flush()
			imm, form, hasImm := extractImmediate(operands)
			pend = &pendingLoad{
				reg:    destRegister(operands),
				key:    accessKey(operands),
				imm:    imm,
				form:   form,
				hasImm: hasImm,
				addr:   in.Address,
			}

		case OpSTR:
			sum.Writes++
			reg := destRegister(operands)
			key := accessKey(operands)
			if pend != nil && pend.hasBit && key != "" && key == pend.key && reg == pend.reg {
				switch pend.bitop {
				case OpOr:
					sum.BitwiseOr++
				case OpAnd:
					sum.BitwiseAnd++
				case OpToggle:
					sum.Toggles++
				}
				imm, form, hasImm := extractImmediate(operands)
				if !hasImm {
					imm, form = pend.imm, pend.form
				}
				emit(Sample{
					InstrAddr:  in.Address,
					Op:         pend.bitop,
					Immediate:  imm,
					AbsAddress: resolveAbs(imm, form, in.Address),
				})
				pend = nil
				continue
			}
			flush()
			if imm, form, hasImm := extractImmediate(operands); hasImm {
				emit(Sample{
					InstrAddr:  in.Address,
					Op:         OpWrite,
					Immediate:  imm,
					AbsAddress: resolveAbs(imm, form, in.Address),
				})
			}

		case OpORR:
			if pend != nil && destRegister(operands) == pend.reg {
				pend.bitop, pend.hasBit = OpOr, true
			}
		case OpAND, OpBIC:
			if pend != nil && destRegister(operands) == pend.reg {
				pend.bitop, pend.hasBit = OpAnd, true
			}
		case OpEOR:
			if pend != nil && destRegister(operands) == pend.reg {
				pend.bitop, pend.hasBit = OpToggle, true
			}

		case OpLDM, OpSTM, OpUnknown:
			// Excluded from counts and samples.
		}
	}
	flush()
	return sum
}

// resolveAbs applies the absolute-address heuristic: a non-zero
// literal, or a bracketed immediate too large to be a stack offset,
// is taken as the address; everything else falls back to the
// instruction address.
func resolveAbs(imm uint64, form ImmForm, instrAddr uint64) uint64 {
	if imm != 0 {
		if form == ImmLiteral || imm >= smallOffsetLimit {
			return imm
		}
	}
	return instrAddr
}

// Annotate comments every sampled address through the gated writer.
// Skips are explained in the summary notes; a safety-limit hit stops
// further annotation for this request but is not a scan failure.
func (c *Classifier) Annotate(ctx context.Context, w *annotate.Writer, sum *Summary) {
	skipped := 0
	skipReason := ""
	for _, s := range sum.Samples {
		text := fmt.Sprintf("MMIO %s 0x%08X", s.Op, s.AbsAddress)
		err := w.Comment(ctx, s.InstrAddr, text)
		switch {
		case err == nil:
			sum.Annotated++
		case errors.Is(err, safety.ErrDryRun):
			skipped++
			skipReason = "dry run"
		case errors.Is(err, safety.ErrWriteDisabled):
			skipped++
			skipReason = "writes disabled"
		case errors.Is(err, safety.ErrSafetyLimit):
			sum.Notes = append(sum.Notes,
				fmt.Sprintf("SAFETY_LIMIT: write budget exhausted after %d annotations", sum.Annotated))
			return
		default:
			sum.Notes = append(sum.Notes,
				fmt.Sprintf("TOOL_BINDING_MISSING: annotate 0x%08X: %v", s.InstrAddr, err))
		}
	}
	if skipped > 0 {
		sum.Notes = append(sum.Notes,
			fmt.Sprintf("%s: %d annotations simulated only", skipReason, skipped))
	}
}
