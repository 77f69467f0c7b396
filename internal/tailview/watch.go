// Package tailview follows taper log files: a watch loop streaming appended
// lines, and a full-screen viewer built on top of it.
package tailview

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch follows the active log file for dir and prefix, invoking emit with
// each complete line appended, until ctx is done. It survives rotation and
// date rollover: when the active file is recreated or the day changes,
// reading continues on the new file from its start. Lines present before
// Watch begins are skipped.
func Watch(ctx context.Context, dir, prefix string, emit func(line []byte)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	active := func() string {
		return filepath.Join(dir, prefix+"-"+time.Now().Format("2006-01-02")+".log")
	}

	var (
		f       *os.File
		path    string
		pending []byte
	)
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	reopen := func(seekEnd bool) {
		if f != nil {
			f.Close()
			f = nil
		}
		pending = pending[:0]
		path = active()
		nf, err := os.Open(path)
		if err != nil {
			return
		}
		if seekEnd {
			nf.Seek(0, io.SeekEnd)
		}
		f = nf
	}

	buf := make([]byte, 64*1024)
	drain := func() {
		if f == nil || path != active() {
			reopen(false)
		} else if info, err := os.Stat(path); err != nil {
			reopen(false)
		} else if off, _ := f.Seek(0, io.SeekCurrent); off > info.Size() {
			// The file shrank under us: rotation replaced it. Start over on
			// the fresh one.
			reopen(false)
		}
		if f == nil {
			return
		}
		for {
			n, err := f.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)
				for {
					i := bytes.IndexByte(pending, '\n')
					if i < 0 {
						break
					}
					line := bytes.TrimSpace(pending[:i])
					if len(line) > 0 {
						emit(bytes.Clone(line))
					}
					pending = pending[i+1:]
				}
			}
			if err != nil {
				return
			}
		}
	}

	reopen(true)

	// Some filesystems coalesce or drop events; a slow poll catches up.
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != active() && ev.Name != path {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				reopen(false)
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				drain()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case <-tick.C:
			drain()
		}
	}
}
