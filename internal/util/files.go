package util

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/logging"
)

// EnsureScratchDir creates root if needed.
func EnsureScratchDir(fs afero.Fs, root string) error {
	return fs.MkdirAll(root, 0o755)
}

// SweepStaleWorkspaces removes entries directly under root whose mtime is older
// than retention. These are workspaces and undelivered outputs left behind by
// a crash. Returns how many entries were removed.
func SweepStaleWorkspaces(fs afero.Fs, root string, retention time.Duration, now time.Time, logger *log.Logger) int {
	logger = logging.OrDefault(logger)
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not list scratch dir", "dir", root, "err", err)
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !ownedEntry(e.Name()) || now.Sub(e.ModTime()) <= retention {
			continue
		}
		p := filepath.Join(root, e.Name())
		if err := fs.RemoveAll(p); err != nil {
			logger.Warn("Could not remove stale entry", "path", p, "err", err)
			continue
		}
		logger.Info("Cleaned up stale scratch entry", "name", e.Name())
		removed++
	}
	return removed
}

// ownedEntry reports whether name is a workspace directory or a released
// artifact (<request uuid>-<name>). Anything else under the root is left alone.
func ownedEntry(name string) bool {
	if strings.HasPrefix(name, config.WorkspacePrefix) {
		return true
	}
	const idLen = 36
	if len(name) <= idLen+1 || name[idLen] != '-' {
		return false
	}
	_, err := uuid.Parse(name[:idLen])
	return err == nil
}

// CheckDiskSpace logs free space under dir and reports whether it is at least
// minBytes. Lookup failures count as enough space.
func CheckDiskSpace(dir string, minBytes uint64, logger *log.Logger) bool {
	logger = logging.OrDefault(logger)
	ds, err := GetDiskSpace(dir)
	if err != nil {
		logger.Debug("Disk space lookup failed", "dir", dir, "err", err)
		return true
	}
	if ds.Avail < minBytes {
		logger.Warn("Low disk space",
			"dir", dir,
			"free", humanize.IBytes(ds.Avail),
			"threshold", humanize.IBytes(minBytes))
		return false
	}
	return true
}

// StartSweeper sweeps root every config.SweepInterval until ctx is done.
func StartSweeper(ctx context.Context, fs afero.Fs, root string, retention time.Duration, minFree uint64, logger *log.Logger) {
	ticker := time.NewTicker(config.SweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				SweepStaleWorkspaces(fs, root, retention, now, logger)
				CheckDiskSpace(root, minFree, logger)
			}
		}
	}()
}
