// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists the last successfully ingested publication
// date between pipeline runs, so incremental fetches neither reprocess nor
// skip days. See docs/ARCHITECTURE.md § Ingestion.
package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dateFmt = "2006-01-02"

// Store reads and advances a single-line ISO date file.
type Store struct {
	// Path is the checkpoint file location.
	Path string

	// LookbackDays sets the default boundary (today − LookbackDays) when no
	// checkpoint exists yet.
	LookbackDays int

	// Log receives a warning when a corrupt checkpoint is ignored.
	// io.Discard when nil.
	Log io.Writer

	// Now is the clock; overridable in tests. time.Now when nil.
	Now func() time.Time
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) log() io.Writer {
	if s.Log != nil {
		return s.Log
	}
	return io.Discard
}

// Default returns the boundary used when no checkpoint has been recorded:
// today minus the lookback window.
func (s *Store) Default() time.Time {
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -s.LookbackDays)
}

// Read returns the recorded boundary date. A missing file yields the
// default. A corrupt file is treated as absent — ingestion re-scans a wider
// window instead of aborting, which is safe because index writes are
// idempotent.
func (s *Store) Read() time.Time {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return s.Default()
	}

	d, err := time.Parse(dateFmt, strings.TrimSpace(string(data)))
	if err != nil {
		fmt.Fprintf(s.log(), "warning: corrupt checkpoint %s (%v); falling back to %s\n",
			s.Path, err, s.Default().Format(dateFmt))
		return s.Default()
	}
	return d
}

// Advance persists candidate only when it is strictly later than the stored
// boundary. Repeated calls within a run are therefore safe with the
// max-seen date; the checkpoint never rolls back.
func (s *Store) Advance(candidate time.Time) error {
	candidate = candidate.UTC().Truncate(24 * time.Hour)

	if current, err := s.read(); err == nil && !candidate.After(current) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(candidate.Format(dateFmt)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

// read returns the stored date without fallback, for Advance's comparison.
func (s *Store) read() (time.Time, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(dateFmt, strings.TrimSpace(string(data)))
}
