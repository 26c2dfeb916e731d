package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/failure"
)

// Expand extracts every entry of the ZIP at archivePath into destDir,
// keeping relative paths. Entries already written are left in place when a
// later entry fails.
func Expand(fs afero.Fs, archivePath, destDir string) error {
	if err := fs.MkdirAll(destDir, 0o755); err != nil {
		return failure.Wrap(failure.ErrLocalIO, "expand archive", "create destination", err)
	}

	f, err := fs.Open(archivePath)
	if err != nil {
		return failure.Wrap(failure.ErrCorruptArchive, "expand archive", "open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return failure.Wrap(failure.ErrCorruptArchive, "expand archive", "stat", err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return failure.Wrap(failure.ErrCorruptArchive, "expand archive", "read directory", err)
	}

	for _, entry := range zr.File {
		if err := extractEntry(fs, entry, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(fs afero.Fs, entry *zip.File, destDir string) error {
	name := filepath.FromSlash(entry.Name)
	if !filepath.IsLocal(name) {
		return failure.Wrap(failure.ErrCorruptArchive, "expand archive", fmt.Sprintf("unsafe entry path %q", entry.Name), nil)
	}
	target := filepath.Join(destDir, name)

	if entry.FileInfo().IsDir() {
		if err := fs.MkdirAll(target, 0o755); err != nil {
			return failure.Wrap(failure.ErrLocalIO, "expand archive", entry.Name, err)
		}
		return nil
	}

	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return failure.Wrap(failure.ErrLocalIO, "expand archive", entry.Name, err)
	}

	rc, err := entry.Open()
	if err != nil {
		return failure.Wrap(failure.ErrCorruptArchive, "expand archive", entry.Name, err)
	}
	defer rc.Close()

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return failure.Wrap(failure.ErrLocalIO, "expand archive", entry.Name, err)
	}
	defer out.Close()

	// archive/zip verifies the CRC when the entry reader hits EOF.
	if _, err := io.Copy(out, rc); err != nil {
		return failure.Wrap(failure.ErrCorruptArchive, "expand archive", entry.Name, err)
	}
	if err := out.Close(); err != nil {
		return failure.Wrap(failure.ErrLocalIO, "expand archive", entry.Name, err)
	}
	return nil
}
