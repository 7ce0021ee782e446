// Package jumptable implements the guarded jump-table verification
// pipeline: range checks, ARM/Thumb mode probing, host-backed slot
// verification, gated annotation, and batch scanning.
package jumptable

import "fmt"

// WordSize is the width of one jump-table slot on ARM32.
const WordSize = 4

// CodeRange is a half-open address range [Min, Max). Max itself is
// excluded so that adjacent regions can share a boundary address
// without ambiguity.
type CodeRange struct {
	Min uint64
	Max uint64
}

// NewCodeRange validates min < max and builds an immutable range.
func NewCodeRange(min, max uint64) (CodeRange, error) {
	if min >= max {
		return CodeRange{}, fmt.Errorf("invalid code range: min 0x%08X must be below max 0x%08X", min, max)
	}
	return CodeRange{Min: min, Max: max}, nil
}

// Contains reports Min <= addr < Max.
func (r CodeRange) Contains(addr uint64) bool {
	return addr >= r.Min && addr < r.Max
}
