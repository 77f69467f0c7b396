package taper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// readActive returns the lines of the single active log file under dir.
func readActive(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	var path string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".log") {
			if path != "" {
				t.Fatalf("multiple active files under %s", dir)
			}
			path = filepath.Join(dir, e.Name())
		}
	}
	if path == "" {
		t.Fatalf("no active log file under %s", dir)
	}
	return readLines(t, path)
}

func syncPerf(batch int) PerformanceConfig {
	return PerformanceConfig{BatchSize: batch, FlushInterval: time.Hour, AsyncWrite: false}
}

func TestBufferedWriterBatchTrigger(t *testing.T) {
	dir := t.TempDir()
	w := NewBufferedWriter(dir, "app", RotationConfig{}, syncPerf(2))
	defer w.Close()

	w.Append([]byte("one\n"))
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("nothing should hit disk below the batch size, found %d entries", len(entries))
	}

	w.Append([]byte("two\n"))
	got := readActive(t, dir)
	want := []string{"one", "two"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("lines = %v, want %v", got, want)
	}
}

func TestBufferedWriterTimerFlush(t *testing.T) {
	dir := t.TempDir()
	w := NewBufferedWriter(dir, "app", RotationConfig{}, PerformanceConfig{
		BatchSize:     100,
		FlushInterval: 20 * time.Millisecond,
		AsyncWrite:    true,
	})
	defer w.Close()

	w.Append([]byte("tick\n"))
	waitFor(t, func() bool {
		entries, err := os.ReadDir(dir)
		return err == nil && len(entries) == 1
	})
	if got := readActive(t, dir); len(got) != 1 || got[0] != "tick" {
		t.Errorf("lines = %v, want [tick]", got)
	}
}

func TestBufferedWriterOrderAcrossFlushes(t *testing.T) {
	dir := t.TempDir()
	w := NewBufferedWriter(dir, "app", RotationConfig{}, PerformanceConfig{
		BatchSize:     3,
		FlushInterval: time.Hour,
		AsyncWrite:    true,
	})
	defer w.Close()

	const n = 30
	for i := 0; i < n; i++ {
		w.Append([]byte(fmt.Sprintf("line-%02d\n", i)))
	}
	w.Drain()

	got := readActive(t, dir)
	if len(got) != n {
		t.Fatalf("got %d lines, want %d", len(got), n)
	}
	for i, l := range got {
		if want := fmt.Sprintf("line-%02d", i); l != want {
			t.Fatalf("line %d = %q, want %q", i, l, want)
		}
	}
}

func TestDrainEmptyTouchesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w := NewBufferedWriter(dir, "app", RotationConfig{}, syncPerf(10))
	w.Drain()
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("empty drain should create nothing, stat err = %v", err)
	}
}

func TestCloseFlushesQueue(t *testing.T) {
	dir := t.TempDir()
	w := NewBufferedWriter(dir, "app", RotationConfig{}, syncPerf(10))
	w.Append([]byte("a\n"))
	w.Append([]byte("b\n"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := readActive(t, dir); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("lines = %v, want [a b]", got)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestAppendAfterCloseDropped(t *testing.T) {
	dir := t.TempDir()
	w := NewBufferedWriter(dir, "app", RotationConfig{}, syncPerf(1))
	w.Append([]byte("kept\n"))
	w.Close()

	w.Append([]byte("dropped\n"))
	w.Drain()
	if got := readActive(t, dir); len(got) != 1 || got[0] != "kept" {
		t.Errorf("lines = %v, want [kept]", got)
	}
}

func TestWriteRetriesOnStaleHandle(t *testing.T) {
	dir := t.TempDir()
	w := NewBufferedWriter(dir, "app", RotationConfig{}, syncPerf(1))
	defer w.Close()

	w.Append([]byte("first\n"))
	// Yank the handle out from under the writer; the next append must fail,
	// reopen, and retry the same payload.
	w.file.Close()
	w.Append([]byte("second\n"))

	got := readActive(t, dir)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("lines = %v, want [first second]", got)
	}
}

func TestSizeRotation(t *testing.T) {
	dir := t.TempDir()
	line := []byte(strings.Repeat("x", 29) + "\n")
	rot := RotationConfig{Enabled: true, MaxSize: 40, MaxFiles: 3, MaxAge: time.Hour}
	w := NewBufferedWriter(dir, "app", rot, syncPerf(1))
	defer w.Close()

	w.Append(line)
	if names := mustReadDir(t, dir); len(names) != 1 {
		t.Fatalf("first line should fit, dir = %v", names)
	}

	w.Append(line)
	names := mustReadDir(t, dir)
	if len(names) != 2 {
		t.Fatalf("second line should rotate, dir = %v", names)
	}
	backup := filepath.Join(dir, w.prefix+"-"+w.day+".log.1")
	if got := readLines(t, backup); len(got) != 1 {
		t.Errorf("backup lines = %v, want the first line", got)
	}
	if got := readLines(t, w.path()); len(got) != 1 {
		t.Errorf("active lines = %v, want the second line", got)
	}
	if w.size != int64(len(line)) {
		t.Errorf("tracked size = %d, want %d after rotation", w.size, len(line))
	}
}

func TestRotationKeepsMaxFiles(t *testing.T) {
	dir := t.TempDir()
	rot := RotationConfig{Enabled: true, MaxSize: 40, MaxFiles: 2, MaxAge: time.Hour}
	w := NewBufferedWriter(dir, "app", rot, syncPerf(1))
	defer w.Close()

	for i := 1; i <= 4; i++ {
		w.Append([]byte(fmt.Sprintf("write-%d%s\n", i, strings.Repeat("x", 22))))
	}

	names := mustReadDir(t, dir)
	if len(names) != 3 {
		t.Fatalf("dir = %v, want active plus exactly 2 backups", names)
	}
	base := w.path()
	for n, want := range map[int]string{1: "write-3", 2: "write-2"} {
		got := readLines(t, fmt.Sprintf("%s.%d", base, n))
		if len(got) != 1 || !strings.HasPrefix(got[0], want) {
			t.Errorf("backup .%d = %v, want %s", n, got, want)
		}
	}
	if _, err := os.Stat(base + ".3"); !os.IsNotExist(err) {
		t.Errorf("backup .3 should not exist, stat err = %v", err)
	}
	if got := readLines(t, base); len(got) != 1 || !strings.HasPrefix(got[0], "write-4") {
		t.Errorf("active = %v, want write-4", got)
	}
}

func TestRestartResumesTrackedSize(t *testing.T) {
	dir := t.TempDir()
	line := []byte(strings.Repeat("y", 29) + "\n")
	rot := RotationConfig{Enabled: true, MaxSize: 40, MaxFiles: 3, MaxAge: time.Hour}

	w1 := NewBufferedWriter(dir, "app", rot, syncPerf(1))
	w1.Append(line)
	w1.Close()

	w2 := NewBufferedWriter(dir, "app", rot, syncPerf(1))
	defer w2.Close()
	w2.Append(line)

	// The second writer picked up the 30 bytes already on disk, so this
	// append crossed the limit and rotated.
	if _, err := os.Stat(w2.path() + ".1"); err != nil {
		t.Errorf("expected a rotation after restart: %v", err)
	}
}

func TestDateRolloverBeforeSizeCheck(t *testing.T) {
	dir := t.TempDir()
	line := []byte(strings.Repeat("z", 29) + "\n")
	rot := RotationConfig{Enabled: true, MaxSize: 40, MaxFiles: 3, MaxAge: time.Hour}
	w := NewBufferedWriter(dir, "app", rot, syncPerf(1))
	defer w.Close()

	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return day1 }
	w.Append(line)

	day2 := day1.Add(2 * time.Minute)
	w.now = func() time.Time { return day2 }
	w.Append(line)

	first := filepath.Join(dir, "app-2026-03-01.log")
	second := filepath.Join(dir, "app-2026-03-02.log")
	if got := readLines(t, first); len(got) != 1 {
		t.Errorf("day one file = %v, want one line", got)
	}
	if got := readLines(t, second); len(got) != 1 {
		t.Errorf("day two file = %v, want one line", got)
	}
	// Crossing the date boundary switched files instead of rotating, even
	// though the combined size exceeded the limit.
	if _, err := os.Stat(first + ".1"); !os.IsNotExist(err) {
		t.Errorf("date rollover must not produce numbered backups, stat err = %v", err)
	}
	if w.size != int64(len(line)) {
		t.Errorf("tracked size = %d, want reset to %d", w.size, len(line))
	}
}

func mustReadDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
