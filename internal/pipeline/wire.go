package pipeline

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/archive"
	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/hlskey"
	"github.com/coah80/appxzip/internal/logging"
	"github.com/coah80/appxzip/internal/media"
)

// FromConfig builds the production orchestrator for cfg.
func FromConfig(cfg *config.Config, fs afero.Fs, observer Observer, logger *log.Logger) *Orchestrator {
	logger = logging.OrDefault(logger)
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return New(Options{
		FS:           fs,
		ScratchRoot:  cfg.ScratchRoot(),
		Resolver:     hlskey.NewResolver(cfg.KeyServiceURL, cfg.KeyServiceHost, nil, logger),
		Fetcher:      archive.NewFetcher(fs, nil, logger),
		Transformer:  media.NewRenameTransformer(fs, logger),
		Producer:     media.NewPlaceholderProducer(fs, logger),
		SegmentExts:  config.SegmentExtensions,
		MinFreeBytes: cfg.DiskSpaceMinBytes(),
		Observer:     observer,
		Logger:       logger,
	})
}
