// Package mmio classifies memory-mapped-I/O accesses in a function's
// instruction stream: load/store counting, immediate extraction,
// read-modify-write recognition, and gated annotation of samples.
package mmio

import (
	"strconv"
	"strings"
)

// Op is the closed mnemonic classification. Anything outside the set
// decodes to OpUnknown; there is no silent fallthrough.
type Op int

const (
	OpUnknown Op = iota
	OpLDR        // single-register load family (LDR, LDRB, LDRH, ...)
	OpSTR        // single-register store family
	OpLDM        // multi-register load, excluded from MMIO counting
	OpSTM        // multi-register store, excluded from MMIO counting
	OpORR
	OpAND
	OpBIC
	OpEOR
)

// DecodeMnemonic classifies the leading mnemonic of a disassembly
// line. Condition codes and size suffixes (LDRB, STRNE, LDMIA, ORRS)
// fold into their base op.
func DecodeMnemonic(mnemonic string) Op {
	m := strings.ToUpper(strings.TrimSpace(mnemonic))
	switch {
	case strings.HasPrefix(m, "LDM"):
		return OpLDM
	case strings.HasPrefix(m, "STM"):
		return OpSTM
	case strings.HasPrefix(m, "LDR"):
		return OpLDR
	case strings.HasPrefix(m, "STR"):
		return OpSTR
	case strings.HasPrefix(m, "ORR"):
		return OpORR
	case strings.HasPrefix(m, "AND"):
		return OpAND
	case strings.HasPrefix(m, "BIC"):
		return OpBIC
	case strings.HasPrefix(m, "EOR"):
		return OpEOR
	default:
		return OpUnknown
	}
}

// splitInstruction separates a disassembly line into mnemonic and
// operand text.
func splitInstruction(text string) (mnemonic, operands string) {
	t := strings.TrimSpace(text)
	i := strings.IndexAny(t, " \t")
	if i < 0 {
		return t, ""
	}
	return t[:i], strings.TrimSpace(t[i+1:])
}

// ImmForm is the source form an immediate was extracted from.
type ImmForm int

const (
	ImmNone    ImmForm = iota
	ImmOffset          // bracketed offset: [Rn, #imm]
	ImmLiteral         // PC-relative literal load: =imm
)

// extractImmediate pulls the immediate operand out of the two
// accepted forms. Register-only and negative-offset forms yield no
// immediate; the instruction still counts, it just carries no sample
// coordinate.
func extractImmediate(operands string) (uint64, ImmForm, bool) {
	ops := strings.ReplaceAll(operands, " ", "")

	if i := strings.Index(ops, "="); i >= 0 {
		if v, ok := parseNumber(numberToken(ops[i+1:])); ok {
			return v, ImmLiteral, true
		}
		return 0, ImmNone, false
	}

	lb := strings.Index(ops, "[")
	rb := strings.Index(ops, "]")
	if lb < 0 || rb < lb {
		return 0, ImmNone, false
	}
	inner := ops[lb+1 : rb]
	hash := strings.Index(inner, "#")
	if hash < 0 {
		return 0, ImmNone, false
	}
	tok := numberToken(inner[hash+1:])
	if strings.HasPrefix(tok, "-") {
		return 0, ImmNone, false
	}
	if v, ok := parseNumber(tok); ok {
		return v, ImmOffset, true
	}
	return 0, ImmNone, false
}

// accessKey normalizes the addressing operand of a load/store so that
// a later store to the same location can be matched to an earlier
// load. Empty when the operand has no recognizable address part.
func accessKey(operands string) string {
	ops := strings.ToUpper(strings.ReplaceAll(operands, " ", ""))
	if i := strings.Index(ops, "="); i >= 0 {
		return "=" + numberToken(ops[i+1:])
	}
	lb := strings.Index(ops, "[")
	rb := strings.Index(ops, "]")
	if lb < 0 || rb < lb {
		return ""
	}
	return ops[lb+1 : rb]
}

// destRegister returns the first register operand, the destination
// for loads and bit operations and the source for stores.
func destRegister(operands string) string {
	ops := strings.ToUpper(strings.ReplaceAll(operands, " ", ""))
	if i := strings.Index(ops, ","); i >= 0 {
		return ops[:i]
	}
	return ops
}

// numberToken trims tok to its leading number literal.
func numberToken(tok string) string {
	end := len(tok)
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if c == ',' || c == ']' || c == '}' || c == '!' || c == ';' {
			end = i
			break
		}
	}
	return tok[:end]
}

// parseNumber accepts 0x-prefixed hex and plain decimal.
func parseNumber(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
