package cmd

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"armlens/internal/safety"
)

// fileSink appends audit events to a JSONL file. The core only emits
// events; the file format lives out here with the rest of the outer
// surface.
type fileSink struct {
	mu sync.Mutex
	f  *os.File
}

func (s *fileSink) Emit(ev safety.Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("Dropping unencodable audit event", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		slog.Warn("Audit write failed", "error", err)
	}
}

func (s *fileSink) Close() error {
	return s.f.Close()
}

// openAuditSink opens the JSONL trail at path. Audit must never block
// analysis, so open failures degrade to a no-op sink with a warning.
func openAuditSink(path string) (safety.Sink, func() error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("Audit log unavailable, events will be dropped", "path", path, "error", err)
		return safety.NopSink{}, nil
	}
	s := &fileSink{f: f}
	return s, s.Close
}
