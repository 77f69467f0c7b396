package taper

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
)

// rotator manages the numbered backup chain and retention for one log
// directory. The active file is named {prefix}-{YYYY-MM-DD}.log; rotated
// copies append .1 through .MaxFiles, oldest last, optionally gzipped.
type rotator struct {
	dir    string
	prefix string
	cfg    RotationConfig
}

// rotate retires the active file into the numbered chain. The caller must
// have closed its handle first. Failures are reported and tolerated; a
// partial chain still rotates correctly on the next pass.
func (r *rotator) rotate(active string) {
	r.shiftBackups(active)
	first := backupPath(active, 1)
	if err := os.Rename(active, first); err != nil {
		diagf("rotate %s: %v", active, err)
		return
	}
	if r.cfg.Compress {
		go compressFile(first)
	}
	if _, err := SweepAged(r.dir, r.prefix, r.cfg.MaxAge); err != nil {
		diagf("sweep %s: %v", r.dir, err)
	}
}

// shiftBackups moves base.N to base.N+1 from the top down, dropping the
// oldest when the chain is full. Gaps are skipped; gzipped backups shift
// alongside their plain counterparts.
func (r *rotator) shiftBackups(base string) {
	oldest := backupPath(base, r.cfg.MaxFiles)
	for _, p := range []string{oldest, oldest + ".gz"} {
		if _, err := os.Stat(p); err == nil {
			if err := os.Remove(p); err != nil {
				diagf("drop backup %s: %v", p, err)
			}
		}
	}
	for n := r.cfg.MaxFiles - 1; n >= 1; n-- {
		from := backupPath(base, n)
		to := backupPath(base, n+1)
		for _, ext := range []string{"", ".gz"} {
			if _, err := os.Stat(from + ext); err != nil {
				continue
			}
			if err := os.Rename(from+ext, to+ext); err != nil {
				diagf("shift backup %s: %v", from+ext, err)
			}
		}
	}
}

func backupPath(base string, n int) string {
	return fmt.Sprintf("%s.%d", base, n)
}

// compressFile gzips path and removes the original. On failure the partial
// archive is removed and the original left in place.
func compressFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		diagf("compress %s: %v", path, err)
		return
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		diagf("compress %s: %v", path, err)
		return
	}
	zw := gzip.NewWriter(dst)
	_, err = io.Copy(zw, src)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		diagf("compress %s: %v", path, err)
		os.Remove(path + ".gz")
		return
	}
	os.Remove(path)
}

// logPattern matches every file a prefix can produce: the active daily
// files, numbered backups, and gzipped backups.
func logPattern(prefix string) (glob.Glob, error) {
	return glob.Compile(prefix + "-*.log*")
}

// AgedFiles lists log files for prefix under dir whose modification time is
// older than maxAge, in directory order. Entries that cannot be inspected
// are skipped.
func AgedFiles(dir, prefix string, maxAge time.Duration) ([]string, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("max age must be positive, got %v", maxAge)
	}
	g, err := logPattern(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-maxAge)
	var aged []string
	for _, e := range entries {
		if e.IsDir() || !g.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			diagf("sweep stat %s: %v", e.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		aged = append(aged, filepath.Join(dir, e.Name()))
	}
	return aged, nil
}

// SweepAged deletes log files older than maxAge and returns how many were
// removed. Files that cannot be removed are skipped; the sweep keeps going.
// A freshly written active file is never older than maxAge, so it survives
// by construction.
func SweepAged(dir, prefix string, maxAge time.Duration) (int, error) {
	aged, err := AgedFiles(dir, prefix, maxAge)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range aged {
		if err := os.Remove(path); err != nil {
			diagf("sweep remove %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
