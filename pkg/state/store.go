// Package state persists per-series watcher state and the user ack
// marker across process restarts. The layout is a small JSON mapping
// plus a boolean-as-text marker file; both are read defensively so a
// damaged file degrades to empty state instead of crashing the loop.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// Store reads and writes the series-state file and the ack marker.
// Writes are best-effort: failures are logged and swallowed so
// alerting can continue on in-memory state.
type Store struct {
	path    string
	ackPath string
	maxDown float64
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewStore creates a store. maxDown is the most severe configured
// down-threshold; it is used to infer the degraded flag when loading
// legacy entries that predate the flag.
func NewStore(path, ackPath string, maxDown float64, logger *slog.Logger) *Store {
	return &Store{
		path:    path,
		ackPath: ackPath,
		maxDown: maxDown,
		logger:  logger,
	}
}

// rawEntry tolerates both the current object shape and the legacy
// bare-number shape. A missing degraded field on an object entry is
// inferred the same way as for legacy numbers.
type rawEntry struct {
	Value    float64 `json:"value"`
	Degraded *bool   `json:"degraded"`
}

// Load returns the persisted series states. Any parse failure is
// treated as empty state.
func (s *Store) Load() map[string]model.SeriesState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.SeriesState)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read state file", "path", s.path, "error", err)
		}
		return out
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("state file unparseable, starting empty", "path", s.path, "error", err)
		return out
	}

	for name, msg := range raw {
		st, ok := s.decodeEntry(msg)
		if !ok {
			s.logger.Warn("skipping unreadable state entry", "series", name)
			continue
		}
		out[name] = st
	}
	return out
}

func (s *Store) decodeEntry(msg json.RawMessage) (model.SeriesState, bool) {
	var e rawEntry
	if err := json.Unmarshal(msg, &e); err == nil {
		st := model.SeriesState{Value: e.Value}
		if e.Degraded != nil {
			st.Degraded = *e.Degraded
		} else {
			st.Degraded = e.Value < s.maxDown
		}
		return st, true
	}

	// Legacy format: a bare number. Degraded is inferred from the
	// most severe down-threshold.
	var v float64
	if err := json.Unmarshal(msg, &v); err == nil {
		return model.SeriesState{Value: v, Degraded: v < s.maxDown}, true
	}
	return model.SeriesState{}, false
}

// Save writes the series states. Best-effort: an error is logged, not
// returned, per the persistence failure semantics.
func (s *Store) Save(states map[string]model.SeriesState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		s.logger.Warn("encode state", "error", err)
		return
	}
	if err := s.writeFile(s.path, data); err != nil {
		s.logger.Warn("save state", "path", s.path, "error", err)
	}
}

// Ack reports the current value of the user acknowledgement marker.
// A missing or unreadable marker is false.
func (s *Store) Ack() bool {
	data, err := os.ReadFile(s.ackPath)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(string(data)), "true")
}

// SetAck writes the acknowledgement marker.
func (s *Store) SetAck(v bool) error {
	text := "false"
	if v {
		text = "true"
	}
	if err := s.writeFile(s.ackPath, []byte(text+"\n")); err != nil {
		return fmt.Errorf("write ack marker: %w", err)
	}
	return nil
}

func (s *Store) writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
