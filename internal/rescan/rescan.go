// Package rescan expands glob patterns over the filesystem and diffs
// the matches against the known watch set.
package rescan

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/antdash/antdash/internal/model"
)

// Scanner tracks which paths matched on the previous scan so each new
// scan reports only the delta.
type Scanner struct {
	patterns []string
	known    map[string]bool
}

// New builds a scanner over patterns. Patterns support `**`.
func New(patterns []string) *Scanner {
	return &Scanner{patterns: patterns, known: make(map[string]bool)}
}

// Seed marks paths as already watched so the first scan does not
// re-report nodes restored from checkpoints.
func (s *Scanner) Seed(paths []string) {
	for _, p := range paths {
		s.known[p] = true
	}
}

// Scan expands every pattern and returns the watch-set delta since the
// previous scan. Matches that are not regular files are ignored.
func (s *Scanner) Scan() (model.RescanResult, error) {
	matched := make(map[string]bool)
	for _, pattern := range s.patterns {
		paths, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return model.RescanResult{}, fmt.Errorf("rescan: bad pattern %q: %w", pattern, err)
		}
		for _, p := range paths {
			fi, err := os.Stat(p)
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
			matched[p] = true
		}
	}

	var res model.RescanResult
	for p := range matched {
		if !s.known[p] {
			res.Added = append(res.Added, p)
		}
	}
	for p := range s.known {
		if !matched[p] {
			res.Removed = append(res.Removed, p)
		}
	}
	sort.Strings(res.Added)
	sort.Strings(res.Removed)
	s.known = matched
	return res, nil
}

// Run scans immediately and then on every interval until ctx ends,
// passing each non-empty delta to notify. A receive on manual forces
// a scan between ticks. An interval of zero with a nil manual channel
// means a single scan.
func (s *Scanner) Run(ctx context.Context, interval time.Duration, manual <-chan struct{}, notify func(model.RescanResult)) error {
	emit := func() error {
		res, err := s.Scan()
		if err != nil {
			return err
		}
		if len(res.Added) > 0 || len(res.Removed) > 0 {
			notify(res)
		}
		return nil
	}

	if err := emit(); err != nil {
		return err
	}
	if interval <= 0 && manual == nil {
		return nil
	}

	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			if err := emit(); err != nil {
				return err
			}
		case <-manual:
			if err := emit(); err != nil {
				return err
			}
		}
	}
}
