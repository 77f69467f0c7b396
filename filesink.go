package taper

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// BufferedWriter batches pre-serialized record lines and appends them to the
// active daily log file, rotating by size and sweeping aged backups as it
// goes. Lines reach the file in append order; a queue swap per flush keeps
// loggers from ever waiting on the disk.
type BufferedWriter struct {
	dir    string
	prefix string
	perf   PerformanceConfig
	rot    rotator

	mu       sync.Mutex
	queue    [][]byte
	inFlight bool
	settled  *sync.Cond
	closed   bool
	done     chan struct{}

	// file state is only touched while holding the in-flight token, so the
	// single writer at a time needs no further locking.
	file *os.File
	day  string
	size int64

	now func() time.Time
}

// NewBufferedWriter creates a sink for dir and prefix. Nothing is created
// on disk until the first line is flushed. Out-of-range performance values
// fall back to the defaults.
func NewBufferedWriter(dir, prefix string, rot RotationConfig, perf PerformanceConfig) *BufferedWriter {
	if perf.BatchSize < 1 {
		perf.BatchSize = DefaultBatchSize
	}
	if perf.FlushInterval <= 0 {
		perf.FlushInterval = DefaultFlushInterval
	}
	if rot.MaxSize <= 0 {
		rot.MaxSize = DefaultMaxSize
	}
	if rot.MaxFiles < 1 {
		rot.MaxFiles = DefaultMaxFiles
	}
	w := &BufferedWriter{
		dir:    dir,
		prefix: prefix,
		perf:   perf,
		rot:    rotator{dir: dir, prefix: prefix, cfg: rot},
		done:   make(chan struct{}),
		now:    time.Now,
	}
	w.settled = sync.NewCond(&w.mu)
	go w.flushLoop()
	return w
}

// flushLoop fires the periodic flush until Close. The goroutine parks on
// the ticker, so an idle process still exits normally.
func (w *BufferedWriter) flushLoop() {
	t := time.NewTicker(w.perf.FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			w.Flush()
		case <-w.done:
			return
		}
	}
}

// Append queues one newline-terminated line and triggers a flush when the
// batch fills.
func (w *BufferedWriter) Append(line []byte) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		diagf("append after close dropped (%d bytes)", len(line))
		return
	}
	w.queue = append(w.queue, line)
	full := len(w.queue) >= w.perf.BatchSize
	w.mu.Unlock()
	if full {
		w.Flush()
	}
}

// Flush starts a write of everything queued. A flush already in flight
// absorbs the trigger: the lines queued meanwhile ride the follow-up flush
// scheduled when the write settles, so writes never interleave.
func (w *BufferedWriter) Flush() {
	w.mu.Lock()
	if w.closed || w.inFlight || len(w.queue) == 0 {
		w.mu.Unlock()
		return
	}
	payload := w.takeLocked()
	w.inFlight = true
	w.mu.Unlock()

	if w.perf.AsyncWrite {
		go w.complete(payload)
	} else {
		w.complete(payload)
	}
}

// complete performs the write, releases the in-flight token, and refires
// when a full batch accumulated behind it.
func (w *BufferedWriter) complete(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			diagf("flush: %v", r)
		}
		w.mu.Lock()
		w.inFlight = false
		w.settled.Broadcast()
		refire := !w.closed && len(w.queue) >= w.perf.BatchSize
		w.mu.Unlock()
		if refire {
			w.Flush()
		}
	}()
	w.write(payload)
}

// Drain synchronously writes everything queued, waiting first for any write
// in flight so order holds. A drain with nothing queued touches no file.
func (w *BufferedWriter) Drain() {
	w.mu.Lock()
	for w.inFlight {
		w.settled.Wait()
	}
	if len(w.queue) == 0 {
		w.mu.Unlock()
		return
	}
	payload := w.takeLocked()
	w.inFlight = true
	w.mu.Unlock()

	w.write(payload)

	w.mu.Lock()
	w.inFlight = false
	w.settled.Broadcast()
	w.mu.Unlock()
}

// Close drains outstanding lines and releases the file handle. Idempotent;
// later appends are dropped with a diagnostic.
func (w *BufferedWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.Drain()

	w.mu.Lock()
	defer w.mu.Unlock()
	for w.inFlight {
		w.settled.Wait()
	}
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// takeLocked joins and empties the queue. Caller holds mu.
func (w *BufferedWriter) takeLocked() []byte {
	payload := bytes.Join(w.queue, nil)
	w.queue = nil
	return payload
}

// write appends payload to the active file. The date check runs before the
// size check: crossing midnight switches files and resets the tracked size,
// and only then can the size trigger a numbered rotation. On a failed
// append the same payload is retried once on a fresh handle, then dropped.
// Called only while holding the in-flight token.
func (w *BufferedWriter) write(payload []byte) {
	day := w.now().Format(dayLayout)
	if w.file == nil || day != w.day {
		if !w.open(day) {
			return
		}
	}

	if w.rot.cfg.Enabled && w.size+int64(len(payload)) > w.rot.cfg.MaxSize {
		w.file.Close()
		w.file = nil
		w.rot.rotate(w.path())
		if !w.open(day) {
			return
		}
	}

	n, err := w.file.Write(payload)
	if err == nil {
		w.size += int64(n)
		return
	}
	diagf("append %s: %v", w.path(), err)
	w.file.Close()
	w.file = nil
	if !w.open(day) {
		return
	}
	if n, err := w.file.Write(payload); err != nil {
		diagf("append retry %s: %v, dropping %d bytes", w.path(), err, len(payload))
	} else {
		w.size += int64(n)
	}
}

const dayLayout = "2006-01-02"

// open points the writer at the day's active file, creating the directory
// on first use. Tracked size resumes from the existing file so a restarted
// process keeps rotating at the right boundary.
func (w *BufferedWriter) open(day string) bool {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		diagf("create log dir %s: %v", w.dir, err)
		return false
	}
	w.day = day
	path := w.path()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		diagf("open %s: %v", path, err)
		return false
	}
	w.file = f
	w.size = 0
	if info, err := f.Stat(); err == nil {
		w.size = info.Size()
	}
	return true
}

// path is the active file path for the tracked day.
func (w *BufferedWriter) path() string {
	return filepath.Join(w.dir, w.prefix+"-"+w.day+".log")
}
