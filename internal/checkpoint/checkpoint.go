// Package checkpoint persists per-node progress next to the log file
// so a restarted dashboard resumes counters and byte offsets instead
// of re-parsing unchanged content. Bucket history is not persisted;
// timelines rebuild from the live tail.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/antdash/antdash/internal/dashboard"
)

// Suffix is appended to the log file path to form its sidecar.
const Suffix = ".antdash.json"

// File is the on-disk checkpoint for one node.
type File struct {
	SavedAt  time.Time `json:"saved_at"`
	NodeID   string    `json:"node_id"`
	Version  string    `json:"version,omitempty"`
	PeerID   string    `json:"peer_id,omitempty"`
	PID      uint64    `json:"pid,omitempty"`
	Restarts int       `json:"restarts,omitempty"`
	Offset   int64     `json:"offset"`

	Counters   map[string]uint64                `json:"counters,omitempty"`
	LastValues map[string]float64               `json:"last_values,omitempty"`
	Stats      map[string]dashboard.RunningStat `json:"stats,omitempty"`
}

// PathFor returns the sidecar path for a log file.
func PathFor(logPath string) string { return logPath + Suffix }

// Capture copies a node record into its checkpoint form.
func Capture(n *dashboard.NodeRecord, now time.Time) *File {
	counters := make(map[string]uint64, len(n.Counters))
	for k, v := range n.Counters {
		counters[k] = v
	}
	values := make(map[string]float64, len(n.LastValues))
	for k, v := range n.LastValues {
		values[k] = v
	}
	return &File{
		SavedAt:    now,
		NodeID:     n.ID,
		Version:    n.Version,
		PeerID:     n.PeerID,
		PID:        n.PID,
		Restarts:   n.Restarts,
		Offset:     n.LastOffset,
		Counters:   counters,
		LastValues: values,
		Stats:      n.Stats(),
	}
}

// Save writes the checkpoint atomically: a temp file in the same
// directory, then rename, so a crash never leaves a torn sidecar.
func Save(f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal %s: %w", f.NodeID, err)
	}
	target := PathFor(f.NodeID)
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: temp file for %s: %w", f.NodeID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("checkpoint: write %s: %w", f.NodeID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("checkpoint: close %s: %w", f.NodeID, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("checkpoint: rename %s: %w", f.NodeID, err)
	}
	return nil
}

// Load reads the sidecar for a log file. A missing sidecar is not an
// error; it returns nil.
func Load(logPath string) (*File, error) {
	data, err := os.ReadFile(PathFor(logPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read %s: %w", logPath, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("checkpoint: decode %s: %w", logPath, err)
	}
	return &f, nil
}

// Restore applies the checkpoint onto a fresh node record.
func (f *File) Restore(n *dashboard.NodeRecord) {
	n.Version = f.Version
	n.PeerID = f.PeerID
	n.PID = f.PID
	n.Restarts = f.Restarts
	n.LastOffset = f.Offset
	for k, v := range f.Counters {
		n.Counters[k] = v
	}
	for k, v := range f.LastValues {
		n.LastValues[k] = v
	}
	if len(f.Stats) > 0 {
		n.RestoreStats(f.Stats)
	}
}
