package logsource

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/antdash/antdash/internal/model"
)

const (
	// DefaultTailBuffer is the default channel buffer size for tailed lines.
	DefaultTailBuffer = 50_000

	// DefaultTailMaxLineSize is the default maximum size (in bytes) of a
	// single log line.
	DefaultTailMaxLineSize = 1024 * 1024 // 1MB

	// DefaultPollInterval is how often the tailer checks a quiet file
	// for new content.
	DefaultPollInterval = 100 * time.Millisecond
)

// TailConfig holds tunable parameters for a file tailer.
type TailConfig struct {
	BufferSize   int
	MaxLineSize  int
	PollInterval time.Duration

	// StartOffset resumes reading at a checkpointed byte offset. An
	// offset past the current file size means the file was replaced
	// and reading restarts from the beginning.
	StartOffset int64

	// IgnoreExisting starts at the end of the file, emitting only
	// lines appended after the tailer opens it.
	IgnoreExisting bool
}

// Tailer follows one growing log file and emits complete lines. The
// file may not exist yet when the tailer starts; it keeps trying.
// Truncation or replacement is detected by the file shrinking below
// the read offset, and reading restarts from the beginning.
type Tailer struct {
	path   string
	ch     chan model.LineEvent
	cancel context.CancelFunc
}

// NewTailer starts tailing path in a background goroutine.
func NewTailer(ctx context.Context, path string, conf ...TailConfig) *Tailer {
	cfg := TailConfig{}
	if len(conf) > 0 {
		cfg = conf[0]
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultTailBuffer
	}
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = DefaultTailMaxLineSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Tailer{
		path:   path,
		ch:     make(chan model.LineEvent, cfg.BufferSize),
		cancel: cancel,
	}
	go t.follow(ctx, cfg)
	return t
}

func (t *Tailer) Lines() <-chan model.LineEvent { return t.ch }
func (t *Tailer) Stop()                         { t.cancel() }
func (t *Tailer) Name() string                  { return t.path }

func (t *Tailer) follow(ctx context.Context, cfg TailConfig) {
	defer close(t.ch)

	var (
		f       *os.File
		r       *bufio.Reader
		offset  int64
		pending []byte
	)
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	open := func(at int64) bool {
		if f != nil {
			f.Close()
			f = nil
		}
		nf, err := os.Open(t.path)
		if err != nil {
			return false
		}
		if at > 0 {
			if _, err := nf.Seek(at, io.SeekStart); err != nil {
				nf.Close()
				return false
			}
		}
		f = nf
		r = bufio.NewReaderSize(f, cfg.MaxLineSize)
		offset = at
		pending = pending[:0]
		return true
	}

	startAt := func() int64 {
		fi, err := os.Stat(t.path)
		if err != nil {
			return 0
		}
		if cfg.StartOffset > 0 && cfg.StartOffset <= fi.Size() {
			return cfg.StartOffset
		}
		if cfg.StartOffset > fi.Size() {
			log.Printf("logsource: checkpoint offset %d past end of %s, restarting from 0", cfg.StartOffset, t.path)
			return 0
		}
		if cfg.IgnoreExisting {
			return fi.Size()
		}
		return 0
	}

	// Wait for the file to appear.
	for !open(startAt()) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.PollInterval):
		}
	}

	for {
		chunk, err := r.ReadBytes('\n')
		if len(chunk) > 0 {
			pending = append(pending, chunk...)
			offset += int64(len(chunk))
		}
		if err == nil {
			line := strings.TrimRight(string(pending), "\r\n")
			pending = pending[:0]
			if line == "" {
				continue
			}
			select {
			case t.ch <- model.LineEvent{NodeID: t.path, Line: line, Offset: offset}:
			case <-ctx.Done():
				return
			}
			continue
		}

		// Out of complete lines. Wait, then look for truncation or a
		// replaced file before reading again.
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.PollInterval):
		}
		fi, statErr := os.Stat(t.path)
		switch {
		case statErr != nil:
			// Gone, likely mid-rotation. Reopen when it returns.
			for !open(0) {
				select {
				case <-ctx.Done():
					return
				case <-time.After(cfg.PollInterval):
				}
			}
		case fi.Size() < offset:
			if !open(0) {
				continue
			}
		}
	}
}
