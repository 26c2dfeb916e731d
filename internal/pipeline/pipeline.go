// Package pipeline runs one download request through key resolution,
// download, extraction, segment transform and output production inside a
// private workspace.
package pipeline

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

	"github.com/coah80/appxzip/internal/archive"
	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/failure"
	"github.com/coah80/appxzip/internal/hlskey"
	"github.com/coah80/appxzip/internal/logging"
	"github.com/coah80/appxzip/internal/media"
	"github.com/coah80/appxzip/internal/util"
)

type KeyResolver interface {
	Resolve(ctx context.Context, sourceURL, authToken string) (string, error)
}

type ArchiveFetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Artifact is a produced output that has been moved out of its workspace.
// The caller owns Path and must delete it once delivered.
type Artifact struct {
	RequestID string
	Path      string
	Name      string
	Size      int64
}

type Options struct {
	FS          afero.Fs
	ScratchRoot string
	Resolver    KeyResolver
	Fetcher     ArchiveFetcher
	Transformer media.Transformer
	Producer    media.Producer
	SegmentExts []string
	// MinFreeBytes enables a low disk space warning before each run.
	MinFreeBytes uint64
	Observer     Observer
	Logger       *log.Logger
}

type Orchestrator struct {
	fs           afero.Fs
	scratchRoot  string
	resolver     KeyResolver
	fetcher      ArchiveFetcher
	transformer  media.Transformer
	producer     media.Producer
	segmentExts  []string
	minFreeBytes uint64
	observer     Observer
	logger       *log.Logger
}

// New fills unset options with the production stages.
func New(opts Options) *Orchestrator {
	logger := logging.OrDefault(opts.Logger)
	o := &Orchestrator{
		fs:           opts.FS,
		scratchRoot:  opts.ScratchRoot,
		resolver:     opts.Resolver,
		fetcher:      opts.Fetcher,
		transformer:  opts.Transformer,
		producer:     opts.Producer,
		segmentExts:  opts.SegmentExts,
		minFreeBytes: opts.MinFreeBytes,
		observer:     opts.Observer,
		logger:       logger,
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.scratchRoot == "" {
		o.scratchRoot = filepath.Join(os.TempDir(), "appxzip")
	}
	if o.resolver == nil {
		o.resolver = hlskey.NewResolver(config.DefaultKeyServiceURL, config.DefaultKeyServiceHost, nil, logger)
	}
	if o.fetcher == nil {
		o.fetcher = archive.NewFetcher(o.fs, nil, logger)
	}
	if o.transformer == nil {
		o.transformer = media.NewRenameTransformer(o.fs, logger)
	}
	if o.producer == nil {
		o.producer = media.NewPlaceholderProducer(o.fs, logger)
	}
	if len(o.segmentExts) == 0 {
		o.segmentExts = config.SegmentExtensions
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o
}

// ScratchRoot is the directory holding workspaces and undelivered artifacts.
func (o *Orchestrator) ScratchRoot() string { return o.scratchRoot }

type run struct {
	stage    Stage
	failedAt Stage
	observer Observer
	logger   *log.Logger
}

func (r *run) step(next Stage, fn func() error) error {
	started := time.Now()
	if err := fn(); err != nil {
		r.failedAt = next
		r.stage = StageFailed
		return err
	}
	took := time.Since(started)
	r.stage = next
	r.observer.StageCompleted(next.String(), took)
	r.logger.Debug("Stage complete", "stage", next, "took", took)
	return nil
}

// Run processes sourceURL with the caller's token. The workspace is removed
// before Run returns, whatever the outcome. On success the artifact lives
// directly under the scratch root.
func (o *Orchestrator) Run(ctx context.Context, sourceURL, authToken string) (*Artifact, error) {
	if strings.TrimSpace(authToken) == "" {
		return nil, failure.Wrap(failure.ErrNoCredential, "run pipeline", "api token not set", nil)
	}

	id := uuid.NewString()
	r := &run{
		stage:    StageStart,
		failedAt: StageStart,
		observer: o.observer,
		logger:   o.logger.With("request", id[:8]),
	}
	started := time.Now()
	o.observer.RunStarted()
	r.logger.Info("Pipeline started", "url", sourceURL)

	artifact, err := o.run(ctx, r, id, sourceURL, authToken)
	took := time.Since(started)
	if err != nil {
		kind := failure.KindOf(err)
		r.logger.Error("Pipeline failed", "stage", r.failedAt, "kind", kind, "err", err)
		o.observer.RunFinished(OutcomeFailure, kind, took)
		return nil, err
	}

	r.stage = StageDone
	r.logger.Info("Pipeline finished", "output", artifact.Path, "size", humanize.Bytes(uint64(artifact.Size)), "took", took.Round(time.Millisecond))
	o.observer.RunFinished(OutcomeSuccess, "", took)
	return artifact, nil
}

func (o *Orchestrator) run(ctx context.Context, r *run, id, sourceURL, authToken string) (*Artifact, error) {
	if o.minFreeBytes > 0 {
		util.CheckDiskSpace(o.scratchRoot, o.minFreeBytes, r.logger)
	}

	ws, err := NewWorkspace(o.fs, o.scratchRoot, id)
	if err != nil {
		r.stage = StageFailed
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			r.logger.Warn("Could not remove workspace", "dir", ws.Root, "err", err)
		}
	}()
	r.logger.Debug("Workspace created", "dir", ws.Root)

	var (
		key      string
		segments []string
		produced string
	)
	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{StageKeyResolved, func() error {
			k, err := o.resolver.Resolve(ctx, sourceURL, authToken)
			if err != nil {
				return failure.Ensure(failure.ErrLocalIO, "resolve key", err)
			}
			key = k
			return nil
		}},
		{StageDownloaded, func() error {
			return failure.Ensure(failure.ErrLocalIO, "fetch archive", o.fetcher.Fetch(ctx, sourceURL, ws.ArchivePath()))
		}},
		{StageExpanded, func() error {
			return archive.Expand(o.fs, ws.ArchivePath(), ws.ExtractDir())
		}},
		{StageSegmentsLocated, func() error {
			found, err := archive.LocateSegments(o.fs, ws.ExtractDir(), o.segmentExts)
			if err != nil {
				return err
			}
			segments = found
			r.logger.Info("Segments located", "count", len(segments))
			return nil
		}},
		{StageTransformed, func() error {
			if len(segments) == 0 {
				r.logger.Warn("No segment files found in archive")
				return nil
			}
			out, err := o.transformer.Transform(ctx, segments, key)
			if err != nil {
				return failure.Ensure(failure.ErrLocalIO, "transform segments", err)
			}
			r.logger.Info("Segments transformed", "count", len(out))
			return nil
		}},
		{StageOutputProduced, func() error {
			p, err := o.producer.Produce(ctx, ws.ExtractDir())
			if err != nil {
				return failure.Ensure(failure.ErrLocalIO, "produce output", err)
			}
			produced = p
			return nil
		}},
	}
	for _, s := range steps {
		if err := r.step(s.stage, s.fn); err != nil {
			return nil, err
		}
	}

	artifact, err := o.release(id, produced)
	if err != nil {
		r.failedAt = StageDone
		r.stage = StageFailed
		return nil, err
	}
	return artifact, nil
}

// release moves the produced file next to the workspace so it survives
// workspace removal.
func (o *Orchestrator) release(id, produced string) (*Artifact, error) {
	name := filepath.Base(produced)
	dest := filepath.Join(o.scratchRoot, id+"-"+name)
	if err := o.fs.Rename(produced, dest); err != nil {
		return nil, failure.Wrap(failure.ErrLocalIO, "release output", produced, err)
	}
	info, err := o.fs.Stat(dest)
	if err != nil {
		return nil, failure.Wrap(failure.ErrLocalIO, "release output", dest, err)
	}
	return &Artifact{RequestID: id, Path: dest, Name: name, Size: info.Size()}, nil
}
