// Package annotate is the single write boundary to the external
// program model. Renames and comments from every feature pass through
// here, and every call is routed through the safety gate.
package annotate

import (
	"context"
	"fmt"

	"armlens/internal/host"
	"armlens/internal/safety"
)

// Writer applies gated annotations through a host provider.
type Writer struct {
	Host  host.Provider
	Gate  safety.Gate
	Scope *safety.Scope
	Sink  safety.Sink
}

// New builds a Writer. A nil sink is replaced with a no-op sink.
func New(p host.Provider, gate safety.Gate, scope *safety.Scope, sink safety.Sink) *Writer {
	if sink == nil {
		sink = safety.NopSink{}
	}
	return &Writer{Host: p, Gate: gate, Scope: scope, Sink: sink}
}

// Rename renames the symbol at address, consuming one write token.
func (w *Writer) Rename(ctx context.Context, address uint64, newName string) error {
	params := map[string]any{
		"address": fmt.Sprintf("0x%08X", address),
		"name":    newName,
	}
	return w.Gate.AttemptWrite(w.Scope, w.Sink, "rename_symbol", params, func() error {
		return w.Host.RenameSymbol(ctx, address, newName)
	})
}

// Comment sets a comment at address, consuming one write token.
func (w *Writer) Comment(ctx context.Context, address uint64, text string) error {
	params := map[string]any{
		"address": fmt.Sprintf("0x%08X", address),
		"text":    text,
	}
	return w.Gate.AttemptWrite(w.Scope, w.Sink, "set_comment", params, func() error {
		return w.Host.SetComment(ctx, address, text)
	})
}

// ReadBack fetches the comment at address when the host supports
// readback. ok is false when it does not.
func (w *Writer) ReadBack(ctx context.Context, address uint64) (text string, ok bool, err error) {
	cr, supported := w.Host.(host.CommentReader)
	if !supported {
		return "", false, nil
	}
	text, err = cr.GetComment(ctx, address)
	return text, true, err
}
