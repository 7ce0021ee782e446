package safety

import (
	"errors"
	"testing"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(e Event) { r.events = append(r.events, e) }

func TestAttemptWriteDisabled(t *testing.T) {
	sink := &recordingSink{}
	scope := NewScope(Limits{MaxWrites: 4, MaxItems: 16})
	gate := Gate{WritesEnabled: false, DryRun: false}

	called := false
	err := gate.AttemptWrite(scope, sink, "rename", nil, func() error {
		called = true
		return nil
	})

	if !errors.Is(err, ErrWriteDisabled) {
		t.Fatalf("err = %v, want ErrWriteDisabled", err)
	}
	if called {
		t.Error("writer fn must not be called when writes are disabled")
	}
	if scope.WritesUsed() != 0 {
		t.Errorf("writes used = %d, want 0", scope.WritesUsed())
	}
	if len(sink.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(sink.events))
	}
	if sink.events[0].Result != "rejected: writes disabled" {
		t.Errorf("audit result = %q", sink.events[0].Result)
	}
}

func TestAttemptWriteDryRun(t *testing.T) {
	sink := &recordingSink{}
	scope := NewScope(Limits{MaxWrites: 4, MaxItems: 16})
	gate := Gate{WritesEnabled: true, DryRun: true}

	err := gate.AttemptWrite(scope, sink, "comment", nil, func() error {
		t.Fatal("writer fn must not run in dry-run mode")
		return nil
	})

	if !errors.Is(err, ErrDryRun) {
		t.Fatalf("err = %v, want ErrDryRun", err)
	}
	if scope.WritesUsed() != 0 {
		t.Errorf("dry run consumed %d tokens, want 0", scope.WritesUsed())
	}
	if len(sink.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(sink.events))
	}
}

func TestAttemptWriteBudget(t *testing.T) {
	sink := &recordingSink{}
	scope := NewScope(Limits{MaxWrites: 2, MaxItems: 16})
	gate := Gate{WritesEnabled: true, DryRun: false}

	for i := 0; i < 2; i++ {
		if err := gate.AttemptWrite(scope, sink, "rename", nil, func() error { return nil }); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	err := gate.AttemptWrite(scope, sink, "rename", nil, func() error {
		t.Fatal("writer fn must not run past the budget")
		return nil
	})
	if !errors.Is(err, ErrSafetyLimit) {
		t.Fatalf("err = %v, want ErrSafetyLimit", err)
	}
	if scope.WritesUsed() != 2 {
		t.Errorf("writes used = %d, want 2", scope.WritesUsed())
	}
	if len(sink.events) != 3 {
		t.Errorf("audit events = %d, want 3 (every attempt audited)", len(sink.events))
	}
}

func TestAttemptWriteFailureAudited(t *testing.T) {
	sink := &recordingSink{}
	scope := NewScope(Limits{MaxWrites: 2, MaxItems: 16})
	gate := Gate{WritesEnabled: true, DryRun: false}

	wantErr := errors.New("host unreachable")
	err := gate.AttemptWrite(scope, sink, "rename", map[string]any{"addr": "0x100"}, func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	// A failed write still consumed its token and still got audited.
	if scope.WritesUsed() != 1 {
		t.Errorf("writes used = %d, want 1", scope.WritesUsed())
	}
	if len(sink.events) != 1 || sink.events[0].Result != "error: host unreachable" {
		t.Errorf("audit events = %+v", sink.events)
	}
}

func TestConsumeItem(t *testing.T) {
	scope := NewScope(Limits{MaxWrites: 0, MaxItems: 2})
	if err := scope.ConsumeItem(); err != nil {
		t.Fatal(err)
	}
	if err := scope.ConsumeItem(); err != nil {
		t.Fatal(err)
	}
	if err := scope.ConsumeItem(); !errors.Is(err, ErrSafetyLimit) {
		t.Fatalf("err = %v, want ErrSafetyLimit", err)
	}
	if scope.ItemsUsed() != 2 {
		t.Errorf("items used = %d, want 2", scope.ItemsUsed())
	}
}

func TestScopeIDsUnique(t *testing.T) {
	a := NewScope(Limits{})
	b := NewScope(Limits{})
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("scope ids %q and %q should be distinct and non-empty", a.ID(), b.ID())
	}
}
