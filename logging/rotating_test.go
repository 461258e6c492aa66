package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWeekKey(t *testing.T) {
	testTime := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	if got := weekKey(testTime); got != "2025-W41" {
		t.Errorf("Expected week key 2025-W41, got %s", got)
	}

	// ISO week of Jan 1st 2021 belongs to 2020
	if got := weekKey(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)); got != "2020-W53" {
		t.Errorf("Expected week key 2020-W53, got %s", got)
	}
}

func TestRotatingWriterCreatesWeeklyFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewRotatingWriter(dir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	path := filepath.Join(dir, "scraper-"+weekKey(time.Now())+".log")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file %s: %v", path, err)
	}
	if string(content) != "hello\n" {
		t.Errorf("Unexpected content %q", content)
	}
}

func TestRotatingWriterSizeRotation(t *testing.T) {
	dir := t.TempDir()
	w, err := NewRotatingWriter(dir, 1, 10)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	for i := 0; i < 3; i++ {
		if _, err := w.Write([]byte("12345678\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	week := weekKey(time.Now())
	for _, name := range []string{
		"scraper-" + week + ".log",
		"scraper-" + week + "_01.log",
		"scraper-" + week + "_02.log",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
}

func TestRotatingWriterWeekChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewRotatingWriter(dir, 4, 0)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	next := time.Now().Add(7 * 24 * time.Hour)
	w.now = func() time.Time { return next }

	if _, err := w.Write([]byte("next week\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "scraper-"+weekKey(next)+".log"))
	if err != nil {
		t.Fatalf("Expected next week's file: %v", err)
	}
	if !strings.Contains(string(content), "next week") {
		t.Errorf("Unexpected content %q", content)
	}
}

func TestRotatingWriterRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "scraper-2001-W01.log")
	unrelated := filepath.Join(dir, "other.log")
	for _, p := range []string{old, unrelated} {
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		past := time.Now().Add(-60 * 24 * time.Hour)
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewRotatingWriter(dir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("Expected expired log file to be removed, stat err = %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("Expected unrelated file to be kept: %v", err)
	}
}
