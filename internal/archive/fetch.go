// Package archive downloads, unpacks and scans segment archives.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/failure"
	"github.com/coah80/appxzip/internal/logging"
)

// Fetcher streams remote archives to local storage.
type Fetcher struct {
	fs     afero.Fs
	client *http.Client
	logger *log.Logger
}

// NewFetcher returns a Fetcher writing through fs. A nil client uses
// http.DefaultClient, so large archives are not cut off by a request timeout.
func NewFetcher(fs afero.Fs, client *http.Client, logger *log.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{fs: fs, client: client, logger: logging.OrDefault(logger)}
}

// Fetch downloads url to dest in fixed-size chunks, replacing any existing
// file. There is no resume and no integrity check.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	f.logger.Info("Downloading archive", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failure.Wrap(failure.ErrUpstream, "fetch archive", "build request", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return failure.Wrap(failure.ErrUpstream, "fetch archive", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure.Wrap(failure.ErrUpstream, "fetch archive", fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	out, err := f.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return failure.Wrap(failure.ErrUpstream, "fetch archive", "create destination", err)
	}
	defer out.Close()

	written, err := copyChunked(out, resp.Body, config.ChunkSize)
	if err != nil {
		return failure.Wrap(failure.ErrUpstream, "fetch archive", fmt.Sprintf("after %d bytes", written), err)
	}
	if err := out.Close(); err != nil {
		return failure.Wrap(failure.ErrUpstream, "fetch archive", "close destination", err)
	}

	f.logger.Info("Download complete", "url", url, "size", humanize.Bytes(uint64(written)))
	return nil
}

// copyChunked moves src to dst at most size bytes per write.
func copyChunked(dst io.Writer, src io.Reader, size int) (int64, error) {
	buf := make([]byte, size)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			if w != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
