// Package safety enforces the write-guard discipline: a stateless
// permission gate plus a per-request mutation budget. Every mutating
// operation in the analysis core is funneled through Gate.AttemptWrite,
// so the per-request write cap cannot be bypassed by any feature.
package safety

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrWriteDisabled is returned when writes are globally disabled.
	ErrWriteDisabled = errors.New("writes are disabled")

	// ErrDryRun is returned when the request asked for a dry run.
	ErrDryRun = errors.New("dry run, write skipped")

	// ErrSafetyLimit is returned when a request budget is exhausted.
	ErrSafetyLimit = errors.New("safety limit exceeded")
)

// Limits are the caps applied to one request.
type Limits struct {
	MaxWrites int
	MaxItems  int
}

// Scope tracks budget consumption for a single request. It is owned
// by that request and must not be shared across requests.
type Scope struct {
	id         string
	limits     Limits
	writesUsed int
	itemsUsed  int
}

// NewScope creates a fresh scope with its own request id.
func NewScope(limits Limits) *Scope {
	return &Scope{id: uuid.NewString(), limits: limits}
}

// ID returns the request id stamped on audit events.
func (s *Scope) ID() string { return s.id }

// WritesUsed reports how many write tokens have been consumed.
func (s *Scope) WritesUsed() int { return s.writesUsed }

// ItemsUsed reports how many batch items have been consumed.
func (s *Scope) ItemsUsed() int { return s.itemsUsed }

// ConsumeItem takes one item token, failing once the per-batch cap
// is reached.
func (s *Scope) ConsumeItem() error {
	if s.itemsUsed >= s.limits.MaxItems {
		return ErrSafetyLimit
	}
	s.itemsUsed++
	return nil
}

// consumeWrite takes one write token. Only the gate calls this.
func (s *Scope) consumeWrite() error {
	if s.writesUsed >= s.limits.MaxWrites {
		return ErrSafetyLimit
	}
	s.writesUsed++
	return nil
}

// Gate is the stateless write-permission check. One Gate is built per
// request from configuration; it carries no mutable state of its own.
type Gate struct {
	WritesEnabled bool
	DryRun        bool
}

// AttemptWrite runs fn under the gate. Checks run in order: global
// writes-enabled flag, request dry-run flag, write budget. A failing
// check short-circuits without calling fn and without consuming a
// token. Every attempt emits exactly one audit event to sink.
func (g Gate) AttemptWrite(scope *Scope, sink Sink, category string, params map[string]any, fn func() error) error {
	ev := Event{
		Request:       scope.ID(),
		Category:      category,
		Params:        params,
		DryRun:        g.DryRun,
		WritesEnabled: g.WritesEnabled,
		Time:          time.Now().UTC(),
	}

	if !g.WritesEnabled {
		ev.Result = "rejected: writes disabled"
		sink.Emit(ev)
		return ErrWriteDisabled
	}
	if g.DryRun {
		ev.Result = "rejected: dry run"
		sink.Emit(ev)
		return ErrDryRun
	}
	if err := scope.consumeWrite(); err != nil {
		ev.Result = "rejected: safety limit"
		sink.Emit(ev)
		return err
	}

	if err := fn(); err != nil {
		ev.Result = "error: " + err.Error()
		sink.Emit(ev)
		return err
	}
	ev.Result = "ok"
	sink.Emit(ev)
	return nil
}
