package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const logFilePrefix = "scraper-"

// RotatingWriter writes to one log file per ISO week, starting a numbered
// file when the size limit is reached. Files older than the retention
// period are removed whenever a new file is opened.
type RotatingWriter struct {
	dir       string
	retention time.Duration
	maxSize   int64
	now       func() time.Time

	mu   sync.Mutex
	file *os.File
	week string
	seq  int
	size int64
}

// NewRotatingWriter creates the log directory and opens the file of the current week.
// A maxSize of 0 disables size based rotation.
func NewRotatingWriter(dir string, retentionWeeks int, maxSize int64) (*RotatingWriter, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	w := &RotatingWriter{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		now:       time.Now,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.open(weekKey(w.now())); err != nil {
		return nil, err
	}
	return w, nil
}

// weekKey returns the week key in YYYY-Www format (ISO week)
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (w *RotatingWriter) fileName(week string, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("%s%s.log", logFilePrefix, week)
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, seq)
}

// open switches to the first file of week (from w.seq on) that still has room.
// Caller must hold w.mu.
func (w *RotatingWriter) open(week string) error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		w.file = nil
	}

	if week != w.week {
		w.seq = 0
	}

	var path string
	var size int64
	for {
		path = filepath.Join(w.dir, w.fileName(week, w.seq))
		info, err := os.Stat(path)
		if err != nil || w.maxSize <= 0 || info.Size() < w.maxSize {
			if err == nil {
				size = info.Size()
			}
			break
		}
		w.seq++
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w.file = file
	w.week = week
	w.size = size

	w.cleanup(path)
	return nil
}

// Write implements io.Writer
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	week := weekKey(w.now())
	switch {
	case week != w.week || w.file == nil:
		if err := w.open(week); err != nil {
			return 0, err
		}
	case w.maxSize > 0 && w.size > 0 && w.size+int64(len(p)) > w.maxSize:
		w.seq++
		if err := w.open(week); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// cleanup removes log files older than the retention period, except current
func (w *RotatingWriter) cleanup(current string) {
	if w.retention <= 0 {
		return
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}

	cutoff := w.now().Add(-w.retention)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		path := filepath.Join(w.dir, name)
		if path == current {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
	}
}

// Close closes the current log file
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
