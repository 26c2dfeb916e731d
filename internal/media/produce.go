package media

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/failure"
	"github.com/coah80/appxzip/internal/logging"
)

// Producer assembles the final output file inside dir and returns its path.
type Producer interface {
	Produce(ctx context.Context, dir string) (string, error)
}

// PlaceholderProducer writes a fixed dummy file instead of a real container.
type PlaceholderProducer struct {
	FS     afero.Fs
	Name   string
	Logger *log.Logger
}

func NewPlaceholderProducer(fs afero.Fs, logger *log.Logger) *PlaceholderProducer {
	return &PlaceholderProducer{FS: fs, Name: config.OutputFileName, Logger: logging.OrDefault(logger)}
}

func (p *PlaceholderProducer) Produce(ctx context.Context, dir string) (string, error) {
	name := p.Name
	if name == "" {
		name = config.OutputFileName
	}
	out := filepath.Join(dir, name)
	if err := afero.WriteFile(p.FS, out, config.PlaceholderOutput, 0o644); err != nil {
		return "", failure.Wrap(failure.ErrLocalIO, "produce output", out, err)
	}
	logging.OrDefault(p.Logger).Info("Output written", "path", out)
	return out, nil
}
