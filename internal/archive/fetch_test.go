package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coah80/appxzip/internal/failure"
	"github.com/coah80/appxzip/internal/logging"
)

func TestFetchWritesBody(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096) // 64 KiB, several chunks
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/scratch/downloaded.zip", []byte("stale content that is longer"), 0o644))

	f := NewFetcher(fs, ts.Client(), logging.Discard())
	require.NoError(t, f.Fetch(context.Background(), ts.URL+"/a.zip", "/scratch/downloaded.zip"))

	got, err := afero.ReadFile(fs, "/scratch/downloaded.zip")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetchStatusFailureWritesNothing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	fs := afero.NewMemMapFs()
	f := NewFetcher(fs, ts.Client(), logging.Discard())

	err := f.Fetch(context.Background(), ts.URL, "/downloaded.zip")
	assert.ErrorIs(t, err, failure.ErrUpstream)

	exists, _ := afero.Exists(fs, "/downloaded.zip")
	assert.False(t, exists)
}

func TestFetchWriteFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "zipdata")
	}))
	defer ts.Close()

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	f := NewFetcher(fs, ts.Client(), logging.Discard())

	err := f.Fetch(context.Background(), ts.URL, "/downloaded.zip")
	assert.ErrorIs(t, err, failure.ErrUpstream)
}

type chunkRecorder struct {
	sizes []int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	c.sizes = append(c.sizes, len(p))
	return len(p), nil
}

func TestCopyChunkedBoundsWrites(t *testing.T) {
	rec := &chunkRecorder{}
	n, err := copyChunked(rec, strings.NewReader(strings.Repeat("x", 20000)), 8192)
	require.NoError(t, err)
	assert.EqualValues(t, 20000, n)
	for _, s := range rec.sizes {
		assert.LessOrEqual(t, s, 8192)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestCopyChunkedWriteError(t *testing.T) {
	_, err := copyChunked(failingWriter{}, strings.NewReader("data"), 8192)
	assert.EqualError(t, err, "disk full")
}
