// Package logbook writes the per-run plaintext log: timestamp-prefixed
// lines, delimited sections, fixed-width tables, and the end-of-run
// summary of every warning and error collected along the way.
package logbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"opcreach/pkg/model"
)

const timeLayout = "2006-01-02 15:04:05.000"

type level int

const (
	levelWarn level = iota
	levelError
)

type note struct {
	at    time.Time
	stage model.Stage
	msg   string
	level level
}

// Recorder is an append-only sink. Headline records are forwarded to the
// live observer hook as well as the log; Detail records are log-only.
// One Recorder serves exactly one probe run.
type Recorder struct {
	mu       sync.Mutex
	w        io.Writer
	closeFn  func() error
	clock    func() time.Time
	headline func(text string)
	notes    []note
}

// New wraps an arbitrary writer, mainly for tests and plain-text mode.
func New(w io.Writer) *Recorder {
	return &Recorder{w: w, clock: time.Now}
}

// NewFile creates the run's log file under dir, named by start time and a
// short run id so concurrent historical runs never collide.
func NewFile(dir string, start time.Time, runID string) (*Recorder, error) {
	if dir == "" {
		dir = "."
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("opcreach-%s-%s.log", start.Format("20060102-150405"), short)

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Recorder{w: f, closeFn: f.Close, clock: time.Now}, nil
}

// OnHeadline installs the live-observer hook. Call before the run starts.
func (r *Recorder) OnHeadline(fn func(text string)) {
	r.headline = fn
}

// SetClock overrides the timestamp source, for tests.
func (r *Recorder) SetClock(clock func() time.Time) {
	r.clock = clock
}

// Headline writes a short human-facing record and forwards it live.
func (r *Recorder) Headline(stage model.Stage, format string, args ...any) {
	text := fmt.Sprintf("[%s] %s", stage, fmt.Sprintf(format, args...))
	r.writeLine(text)
	if r.headline != nil {
		r.headline(text)
	}
}

// Detail writes a structured record to the log only.
func (r *Recorder) Detail(stage model.Stage, format string, args ...any) {
	r.writeLine(fmt.Sprintf("[%s] %s", stage, fmt.Sprintf(format, args...)))
}

// Warn records a recoverable degradation. It is retained for the summary.
func (r *Recorder) Warn(stage model.Stage, format string, args ...any) {
	r.record(levelWarn, stage, fmt.Sprintf(format, args...))
}

// Error records a fatal or non-fatal error. It is retained for the summary.
func (r *Recorder) Error(stage model.Stage, format string, args ...any) {
	r.record(levelError, stage, fmt.Sprintf(format, args...))
}

func (r *Recorder) record(lv level, stage model.Stage, msg string) {
	r.mu.Lock()
	r.notes = append(r.notes, note{at: r.clock(), stage: stage, msg: msg, level: lv})
	r.mu.Unlock()

	label := "WARN"
	if lv == levelError {
		label = "ERROR"
	}
	text := fmt.Sprintf("%s [%s] %s", label, stage, msg)
	r.writeLine(text)
	if r.headline != nil {
		r.headline(text)
	}
}

// Section writes the opening marker, runs body, and writes the matching
// end marker.
func (r *Recorder) Section(title string, body func()) {
	r.writeLine("===== " + title + " =====")
	body()
	r.writeLine("===== End " + title + " =====")
}

// Table writes header and rows as fixed-width columns. Cells are padded on
// the left to their column width; overflowing cells are truncated with a
// ".." suffix.
func (r *Recorder) Table(headers []string, widths []int, rows [][]string) {
	r.writeLine(formatRow(headers, widths))
	for _, row := range rows {
		r.writeLine(formatRow(row, widths))
	}
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, 0, len(cells))
	for i, cell := range cells {
		w := 12
		if i < len(widths) {
			w = widths[i]
		}
		if len(cell) > w && w >= 2 {
			cell = cell[:w-2] + ".."
		}
		parts = append(parts, fmt.Sprintf("%*s", w, cell))
	}
	return strings.Join(parts, "  ")
}

// Warnings returns the messages of every warning recorded so far.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		if n.level == levelWarn {
			out = append(out, n.msg)
		}
	}
	return out
}

// Summary writes the consolidated end-of-run block: counts plus every
// warning and error with timestamp, stage, and message, verbatim.
func (r *Recorder) Summary() {
	r.mu.Lock()
	notes := make([]note, len(r.notes))
	copy(notes, r.notes)
	r.mu.Unlock()

	warns, errs := 0, 0
	for _, n := range notes {
		if n.level == levelWarn {
			warns++
		} else {
			errs++
		}
	}

	r.Section("Run Summary", func() {
		r.writeLine(fmt.Sprintf("warnings: %d  errors: %d", warns, errs))
		for _, n := range notes {
			label := "WARN"
			if n.level == levelError {
				label = "ERROR"
			}
			r.writeLine(fmt.Sprintf("%s  %s  [%s]  %s", n.at.Format(timeLayout), label, n.stage, n.msg))
		}
	})
}

func (r *Recorder) writeLine(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s | %s\n", r.clock().Format(timeLayout), text)
}

// Close flushes and closes the underlying file, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeFn != nil {
		fn := r.closeFn
		r.closeFn = nil
		return fn()
	}
	return nil
}
