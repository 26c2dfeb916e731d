// Package media holds the decryption and packaging stages. Both are
// placeholders behind interfaces so real implementations can be dropped in.
package media

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/logging"
)

// Transformer turns located segment files into playable ones. The returned
// slice has one entry per input path.
type Transformer interface {
	Transform(ctx context.Context, paths []string, key string) ([]string, error)
}

// RenameTransformer swaps the From suffix for To without touching file
// contents. It stands in for real segment decryption.
type RenameTransformer struct {
	FS     afero.Fs
	From   string
	To     string
	Logger *log.Logger
}

func NewRenameTransformer(fs afero.Fs, logger *log.Logger) *RenameTransformer {
	return &RenameTransformer{
		FS:     fs,
		From:   config.MarkerExtension,
		To:     config.PlayableExtension,
		Logger: logging.OrDefault(logger),
	}
}

// Transform renames each path ending in From. A failed rename keeps the
// original path in the result and logs a warning; it never fails the call.
func (t *RenameTransformer) Transform(ctx context.Context, paths []string, key string) ([]string, error) {
	logger := logging.OrDefault(t.Logger)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, t.From) {
			out = append(out, p)
			continue
		}
		renamed := strings.TrimSuffix(p, t.From) + t.To
		if err := t.FS.Rename(p, renamed); err != nil {
			logger.Warn("Could not rename segment", "path", p, "err", err)
			out = append(out, p)
			continue
		}
		logger.Debug("Segment renamed", "from", p, "to", renamed)
		out = append(out, renamed)
	}
	return out, nil
}
