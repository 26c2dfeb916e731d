package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coah80/appxzip/internal/archive"
	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/failure"
	"github.com/coah80/appxzip/internal/hlskey"
	"github.com/coah80/appxzip/internal/logging"
	"github.com/coah80/appxzip/internal/media"
)

const archivePath = "/files/course-encrypted-c0ffee.zip"

type upstream struct {
	server    *httptest.Server
	keyHits   atomic.Int32
	zipHits   atomic.Int32
	keyStatus int
	keyBody   string
	zipBody   []byte
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		keyStatus: http.StatusOK,
		keyBody:   `{"key":"0123456789abcdef"}`,
		zipBody: buildZip(t, map[string]string{
			"seg1.tsa":       "first",
			"parts/seg2.tsa": "second",
			"notes.txt":      "not a segment",
		}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/get_hls_key", func(w http.ResponseWriter, r *http.Request) {
		u.keyHits.Add(1)
		w.WriteHeader(u.keyStatus)
		_, _ = io.WriteString(w, u.keyBody)
	})
	mux.HandleFunc(archivePath, func(w http.ResponseWriter, r *http.Request) {
		u.zipHits.Add(1)
		_, _ = w.Write(u.zipBody)
	})
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) archiveURL() string { return u.server.URL + archivePath }

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type recordingObserver struct {
	mu       sync.Mutex
	started  int
	stages   []string
	outcome  string
	kind     string
	finished int
}

func (o *recordingObserver) RunStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) StageCompleted(stage string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) RunFinished(outcome, kind string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
	o.outcome = outcome
	o.kind = kind
}

// spyTransformer checks the renamed files before the workspace disappears.
type spyTransformer struct {
	inner    media.Transformer
	fs       afero.Fs
	input    []string
	output   []string
	existing []string
	vanished []string
}

func (s *spyTransformer) Transform(ctx context.Context, paths []string, key string) ([]string, error) {
	s.input = append([]string(nil), paths...)
	out, err := s.inner.Transform(ctx, paths, key)
	s.output = out
	for _, p := range out {
		if ok, _ := afero.Exists(s.fs, p); ok {
			s.existing = append(s.existing, p)
		}
	}
	for _, p := range paths {
		if ok, _ := afero.Exists(s.fs, p); !ok {
			s.vanished = append(s.vanished, p)
		}
	}
	return out, err
}

// spyProducer records where it was asked to write and which segments it saw.
type spyProducer struct {
	inner    media.Producer
	fs       afero.Fs
	dir      string
	segments []string
}

func (s *spyProducer) Produce(ctx context.Context, dir string) (string, error) {
	s.dir = dir
	s.segments, _ = archive.LocateSegments(s.fs, dir, []string{".mp4"})
	return s.inner.Produce(ctx, dir)
}

type harness struct {
	up      *upstream
	fs      afero.Fs
	scratch string
	obs     *recordingObserver
	spy     *spyTransformer
	orch    *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	up := newUpstream(t)
	fs := afero.NewOsFs()
	scratch := filepath.Join(t.TempDir(), "scratch")
	logger := logging.Discard()

	h := &harness{
		up:      up,
		fs:      fs,
		scratch: scratch,
		obs:     &recordingObserver{},
		spy:     &spyTransformer{inner: media.NewRenameTransformer(fs, logger), fs: fs},
	}
	h.orch = New(Options{
		FS:          fs,
		ScratchRoot: scratch,
		Resolver:    hlskey.NewResolver(up.server.URL+"/api/get_hls_key", "keys.example.com", up.server.Client(), logger),
		Fetcher:     archive.NewFetcher(fs, up.server.Client(), logger),
		Transformer: h.spy,
		Observer:    h.obs,
		Logger:      logger,
	})
	return h
}

func (h *harness) workspaces(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.scratch)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), config.WorkspacePrefix) {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}

func TestRunEndToEnd(t *testing.T) {
	h := newHarness(t)

	art, err := h.orch.Run(context.Background(), h.up.archiveURL(), "a.b.c")
	require.NoError(t, err)
	require.NotNil(t, art)

	assert.Equal(t, config.OutputFileName, art.Name)
	assert.Equal(t, filepath.Join(h.scratch, art.RequestID+"-"+config.OutputFileName), art.Path)
	assert.Equal(t, int64(len(config.PlaceholderOutput)), art.Size)

	data, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	assert.Equal(t, config.PlaceholderOutput, data)

	assert.Len(t, h.spy.input, 2)
	for _, p := range h.spy.input {
		assert.True(t, strings.HasSuffix(p, ".tsa"), p)
	}
	assert.Len(t, h.spy.existing, 2, "renamed segments exist while the run is in progress")
	assert.Len(t, h.spy.vanished, 2, "originals are renamed rather than copied")
	for _, p := range h.spy.output {
		assert.True(t, strings.HasSuffix(p, ".mp4"), p)
		_, statErr := os.Stat(p)
		assert.ErrorIs(t, statErr, os.ErrNotExist, "workspace content outlived the run")
	}

	assert.Empty(t, h.workspaces(t))
	assert.EqualValues(t, 1, h.up.keyHits.Load())
	assert.EqualValues(t, 1, h.up.zipHits.Load())

	assert.Equal(t, []string{
		"key_resolved", "downloaded", "expanded", "segments_located", "transformed", "output_produced",
	}, h.obs.stages)
	assert.Equal(t, OutcomeSuccess, h.obs.outcome)
	assert.Empty(t, h.obs.kind)
}

func TestRunProducesIntoExtractedDir(t *testing.T) {
	h := newHarness(t)
	spy := &spyProducer{inner: media.NewPlaceholderProducer(h.fs, logging.Discard()), fs: h.fs}
	h.orch.producer = spy

	art, err := h.orch.Run(context.Background(), h.up.archiveURL(), "a.b.c")
	require.NoError(t, err)
	assert.FileExists(t, art.Path)

	assert.Equal(t, config.ExtractedDirName, filepath.Base(spy.dir))
	assert.True(t, strings.HasPrefix(filepath.Base(filepath.Dir(spy.dir)), config.WorkspacePrefix))
	assert.Len(t, spy.segments, 2, "renamed segments are visible to the producer")
}

func TestRunWithoutSegmentsSkipsTransform(t *testing.T) {
	h := newHarness(t)
	h.up.zipBody = buildZip(t, map[string]string{"readme.txt": "nothing here"})

	art, err := h.orch.Run(context.Background(), h.up.archiveURL(), "a.b.c")
	require.NoError(t, err)
	assert.FileExists(t, art.Path)
	assert.Nil(t, h.spy.input, "transformer is not called without segments")
	assert.Contains(t, h.obs.stages, "transformed")
	assert.Empty(t, h.workspaces(t))
}

func TestRunWithoutTokenTouchesNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Run(context.Background(), h.up.archiveURL(), "  ")
	assert.ErrorIs(t, err, failure.ErrNoCredential)
	assert.Zero(t, h.up.keyHits.Load())
	assert.Zero(t, h.up.zipHits.Load())
	assert.NoDirExists(t, h.scratch)
	assert.Zero(t, h.obs.started)
}

func TestRunFailuresCleanUp(t *testing.T) {
	cases := []struct {
		name    string
		url     func(u *upstream) string
		setup   func(u *upstream)
		marker  error
		kind    string
		zipHits int32
	}{
		{
			name:   "malformed url",
			url:    func(u *upstream) string { return u.server.URL + "/files/plain.zip" },
			marker: failure.ErrMalformedURL,
			kind:   "malformed_url",
		},
		{
			name:   "key service rejects",
			setup:  func(u *upstream) { u.keyStatus = http.StatusUnauthorized; u.keyBody = `{"error":"bad token"}` },
			marker: failure.ErrUpstream,
			kind:   "upstream",
		},
		{
			name:   "key missing",
			setup:  func(u *upstream) { u.keyBody = `{"status":"ok"}` },
			marker: failure.ErrMissingKey,
			kind:   "missing_key",
		},
		{
			name:    "corrupt archive",
			setup:   func(u *upstream) { u.zipBody = []byte("this is not a zip file") },
			marker:  failure.ErrCorruptArchive,
			kind:    "corrupt_archive",
			zipHits: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.setup != nil {
				tc.setup(h.up)
			}
			target := h.up.archiveURL()
			if tc.url != nil {
				target = tc.url(h.up)
			}

			art, err := h.orch.Run(context.Background(), target, "a.b.c")
			assert.Nil(t, art)
			assert.ErrorIs(t, err, tc.marker)
			assert.Equal(t, tc.kind, failure.KindOf(err))
			assert.Empty(t, h.workspaces(t))
			assert.Equal(t, tc.zipHits, h.up.zipHits.Load())
			assert.Equal(t, OutcomeFailure, h.obs.outcome)
			assert.Equal(t, tc.kind, h.obs.kind)
		})
	}
}

type failingProducer struct{}

func (failingProducer) Produce(context.Context, string) (string, error) {
	return "", errors.New("muxer exploded")
}

func TestRunWrapsUnclassifiedStageErrors(t *testing.T) {
	h := newHarness(t)
	h.orch.producer = failingProducer{}

	_, err := h.orch.Run(context.Background(), h.up.archiveURL(), "a.b.c")
	assert.ErrorIs(t, err, failure.ErrLocalIO)
	assert.Contains(t, err.Error(), "muxer exploded")
	assert.Empty(t, h.workspaces(t))
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, "start", StageStart.String())
	assert.Equal(t, "segments_located", StageSegmentsLocated.String())
	assert.Equal(t, "failed", StageFailed.String())
	assert.Equal(t, "unknown", Stage(42).String())
	assert.True(t, StageDone.Terminal())
	assert.False(t, StageTransformed.Terminal())
}

func TestWorkspaceLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	ws, err := NewWorkspace(fs, "/scratch", "req")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(ws.Root), config.WorkspacePrefix+"req-"))
	assert.Equal(t, filepath.Join(ws.Root, config.ArchiveFileName), ws.ArchivePath())
	assert.Equal(t, filepath.Join(ws.Root, config.ExtractedDirName), ws.ExtractDir())

	require.NoError(t, afero.WriteFile(fs, ws.ArchivePath(), []byte("x"), 0o644))
	require.NoError(t, ws.Close())
	exists, _ := afero.DirExists(fs, ws.Root)
	assert.False(t, exists)
}
