package jumptable

import (
	"context"
	"fmt"
	"math"

	"armlens/internal/safety"
)

// ScanSummary aggregates a batch scan. The invariants
// Total == len(Items) and Valid+Invalid == Total hold by
// construction: the summary is folded from the exact per-slot result
// list, including for empty scans.
type ScanSummary struct {
	Start   uint32
	Count   uint32
	Total   int
	Valid   int
	Invalid int
	Items   []SlotResult
	Notes   []string
}

// Scanner walks a sequential range of jump-table slots in read-only
// mode. Slots are visited in ascending index order with no parallel
// fan-out; identical input must yield byte-identical output, and the
// host is not assumed safe under concurrent access from one session.
type Scanner struct {
	Processor *Processor
	Scope     *safety.Scope
}

// Scan verifies slots [start, start+count) of the table at base. It
// never writes. Cancellation between slots preserves the partial
// results accumulated so far; exhausting the per-batch item budget
// returns the partial summary together with safety.ErrSafetyLimit,
// which is fatal for the request.
func (s *Scanner) Scan(ctx context.Context, base uint64, start, count uint32) (ScanSummary, error) {
	var items []SlotResult
	var notes []string
	var batchErr error

	// start+count must not wrap, or the loop below terminates early.
	if count > math.MaxUint32-start {
		count = math.MaxUint32 - start
		notes = append(notes, fmt.Sprintf("slot range clamped to %d slots at the index limit", count))
	}

	for i := start; i < start+count; i++ {
		if err := ctx.Err(); err != nil {
			notes = append(notes, fmt.Sprintf("cancelled before slot %d, partial results", i))
			break
		}
		if err := s.Scope.ConsumeItem(); err != nil {
			notes = append(notes, fmt.Sprintf("batch item budget exhausted before slot %d", i))
			batchErr = err
			break
		}
		items = append(items, s.Processor.Process(ctx, base, i, WriteIntent{}))
	}

	return fold(start, count, items, notes), batchErr
}

// fold builds the summary from the exact result list.
func fold(start, count uint32, items []SlotResult, notes []string) ScanSummary {
	sum := ScanSummary{Start: start, Count: count, Items: items, Notes: notes}
	sum.Total = len(items)
	for _, it := range items {
		if it.Valid() {
			sum.Valid++
		}
	}
	sum.Invalid = sum.Total - sum.Valid
	return sum
}
