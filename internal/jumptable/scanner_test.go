package jumptable

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"armlens/internal/annotate"
	"armlens/internal/safety"
)

func newScanner(t *testing.T, h *fakeHost, maxItems int) (*Scanner, *safety.Scope) {
	t.Helper()
	scope := safety.NewScope(safety.Limits{MaxWrites: 0, MaxItems: maxItems})
	return &Scanner{
		Processor: &Processor{
			Verifier: &Verifier{Host: h},
			Writer:   annotate.New(h, safety.Gate{}, scope, nil),
			Range:    mustRange(t, 0x00100000, 0x00110000),
		},
		Scope: scope,
	}, scope
}

func checkInvariants(t *testing.T, sum ScanSummary) {
	t.Helper()
	if sum.Total != len(sum.Items) {
		t.Errorf("total %d != len(items) %d", sum.Total, len(sum.Items))
	}
	if sum.Valid+sum.Invalid != sum.Total {
		t.Errorf("valid %d + invalid %d != total %d", sum.Valid, sum.Invalid, sum.Total)
	}
}

func TestScanSixteenSlots(t *testing.T) {
	h := newFakeHost()
	base := uint64(0x20000000)

	// 10 valid ARM targets, 3 valid Thumb targets, 3 out of range.
	for i := 0; i < 10; i++ {
		target := uint64(0x00100100 + i*0x40)
		h.words[base+uint64(i)*WordSize] = uint32(target)
		h.funcs[target] = fmt.Sprintf("handler_%d", i)
	}
	for i := 10; i < 13; i++ {
		target := uint64(0x00102000 + (i-10)*0x40)
		h.words[base+uint64(i)*WordSize] = uint32(target) | 1
		h.funcs[target] = fmt.Sprintf("thumb_handler_%d", i)
	}
	h.words[base+13*WordSize] = 0x00090000 // below range
	h.words[base+14*WordSize] = 0x00110000 // max, excluded
	h.words[base+15*WordSize] = SentinelBXLR

	s, _ := newScanner(t, h, 64)
	sum, err := s.Scan(context.Background(), base, 0, 16)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, sum)
	if sum.Total != 16 || sum.Valid != 13 || sum.Invalid != 3 {
		t.Errorf("summary = {total:%d valid:%d invalid:%d}, want {16 13 3}",
			sum.Total, sum.Valid, sum.Invalid)
	}

	// Modes come back per slot.
	if sum.Items[0].Outcome.Mode != ModeARM {
		t.Errorf("slot 0 mode = %v", sum.Items[0].Outcome.Mode)
	}
	if sum.Items[10].Outcome.Mode != ModeThumb {
		t.Errorf("slot 10 mode = %v", sum.Items[10].Outcome.Mode)
	}
	if sum.Items[15].Outcome.Kind != KindArmInstruction {
		t.Errorf("slot 15 kind = %v", sum.Items[15].Outcome.Kind.Code())
	}
}

func TestScanZeroCount(t *testing.T) {
	s, _ := newScanner(t, newFakeHost(), 64)
	sum, err := s.Scan(context.Background(), 0x20000000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, sum)
	if sum.Total != 0 {
		t.Errorf("total = %d, want 0", sum.Total)
	}
}

func TestScanDeterministicOrder(t *testing.T) {
	h := newFakeHost()
	base := uint64(0x20000000)
	for i := 0; i < 8; i++ {
		h.words[base+uint64(i)*WordSize] = SentinelBXLR
	}
	s, _ := newScanner(t, h, 64)
	sum, err := s.Scan(context.Background(), base, 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	for j, it := range sum.Items {
		if it.Slot != uint32(3+j) {
			t.Errorf("item %d has slot %d, want %d (ascending order)", j, it.Slot, 3+j)
		}
	}
}

func TestScanCancellationKeepsPartials(t *testing.T) {
	h := newFakeHost()
	base := uint64(0x20000000)
	for i := 0; i < 8; i++ {
		h.words[base+uint64(i)*WordSize] = SentinelBXLR
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := newScanner(t, h, 64)
	sum, err := s.Scan(ctx, base, 0, 8)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, sum)
	if sum.Total != 0 {
		t.Errorf("pre-cancelled scan processed %d slots", sum.Total)
	}
	if len(sum.Notes) == 0 {
		t.Error("cancelled scan should note the truncation")
	}
}

func TestScanItemBudget(t *testing.T) {
	h := newFakeHost()
	base := uint64(0x20000000)
	for i := 0; i < 8; i++ {
		h.words[base+uint64(i)*WordSize] = SentinelBXLR
	}

	s, scope := newScanner(t, h, 5)
	sum, err := s.Scan(context.Background(), base, 0, 8)
	if !errors.Is(err, safety.ErrSafetyLimit) {
		t.Fatalf("err = %v, want ErrSafetyLimit", err)
	}
	checkInvariants(t, sum)
	if sum.Total != 5 {
		t.Errorf("total = %d, want 5 (partials preserved)", sum.Total)
	}
	if scope.ItemsUsed() != 5 {
		t.Errorf("items used = %d, want 5", scope.ItemsUsed())
	}
}

func TestScanIndexLimitDoesNotWrap(t *testing.T) {
	// start+count overflowing uint32 must not collapse the loop into
	// an empty summary; the range is clamped at the index limit with a
	// note.
	h := newFakeHost()
	base := uint64(0x20000000)
	for i := uint64(0xFFFFFFF0); i < 0xFFFFFFFF; i++ {
		h.words[base+i*WordSize] = SentinelBXLR
	}

	s, _ := newScanner(t, h, 64)
	sum, err := s.Scan(context.Background(), base, 0xFFFFFFF0, 0x20)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, sum)
	if sum.Total != 15 {
		t.Errorf("total = %d, want 15 (slots up to the index limit)", sum.Total)
	}
	if len(sum.Notes) == 0 {
		t.Error("clamped scan should note the truncation")
	}
	if got := sum.Items[0].Slot; got != 0xFFFFFFF0 {
		t.Errorf("first slot = %d, want 0xFFFFFFF0", got)
	}
}

func TestScanNeverWrites(t *testing.T) {
	h := newFakeHost()
	base := uint64(0x20000000)
	target := uint64(0x00100100)
	h.words[base] = uint32(target)
	h.funcs[target] = "handler_0"

	s, scope := newScanner(t, h, 64)
	if _, err := s.Scan(context.Background(), base, 0, 1); err != nil {
		t.Fatal(err)
	}
	if scope.WritesUsed() != 0 {
		t.Errorf("batch scan consumed %d write tokens", scope.WritesUsed())
	}
}
