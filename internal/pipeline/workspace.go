package pipeline

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/failure"
)

// Workspace is the private scratch directory of one run.
type Workspace struct {
	Root string
	fs   afero.Fs
}

// NewWorkspace creates a fresh directory under scratchRoot named after the
// request id.
func NewWorkspace(fs afero.Fs, scratchRoot, requestID string) (*Workspace, error) {
	if err := fs.MkdirAll(scratchRoot, 0o755); err != nil {
		return nil, failure.Wrap(failure.ErrLocalIO, "create workspace", scratchRoot, err)
	}
	root, err := afero.TempDir(fs, scratchRoot, config.WorkspacePrefix+requestID+"-")
	if err != nil {
		return nil, failure.Wrap(failure.ErrLocalIO, "create workspace", scratchRoot, err)
	}
	return &Workspace{Root: root, fs: fs}, nil
}

func (w *Workspace) ArchivePath() string {
	return filepath.Join(w.Root, config.ArchiveFileName)
}

func (w *Workspace) ExtractDir() string {
	return filepath.Join(w.Root, config.ExtractedDirName)
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	return w.fs.RemoveAll(w.Root)
}
