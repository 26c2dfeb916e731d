// Package hlskey exchanges an archive URL for the HLS key of its segments.
//
// The encryption id convention (an "encrypted-<hex>" fragment in the archive
// URL) belongs to one upstream provider; other providers need their own
// extraction rule.
package hlskey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/failure"
	"github.com/coah80/appxzip/internal/logging"
)

var encryptionIDRe = regexp.MustCompile(`encrypted-[a-f0-9]+`)

const maxResponseBytes = 1 << 20

// ExtractEncryptionID returns the first "encrypted-<hex>" fragment of rawURL.
func ExtractEncryptionID(rawURL string) (string, error) {
	id := encryptionIDRe.FindString(rawURL)
	if id == "" {
		return "", failure.Wrap(failure.ErrMalformedURL, "extract encryption id", "no encrypted-<hex> fragment in "+rawURL, nil)
	}
	return id, nil
}

type Resolver struct {
	endpoint string
	host     string
	client   *http.Client
	logger   *log.Logger
}

type keyRequest struct {
	ID string `json:"id"`
}

type keyResponse struct {
	Key string `json:"key"`
}

// NewResolver builds a resolver posting to endpoint with the Host header
// overridden to host. A nil client gets a client with the default key timeout.
func NewResolver(endpoint, host string, client *http.Client, logger *log.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: config.KeyRequestTimeout}
	}
	return &Resolver{
		endpoint: endpoint,
		host:     host,
		client:   client,
		logger:   logging.OrDefault(logger),
	}
}

// Resolve makes a single attempt; there is no retry.
func (r *Resolver) Resolve(ctx context.Context, sourceURL, authToken string) (string, error) {
	id, err := ExtractEncryptionID(sourceURL)
	if err != nil {
		r.logger.Error("Could not extract encryption id", "url", sourceURL)
		return "", err
	}

	payload, err := json.Marshal(keyRequest{ID: id})
	if err != nil {
		return "", failure.Wrap(failure.ErrLocalIO, "encode key request", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", failure.Wrap(failure.ErrUpstream, "build key request", "", err)
	}
	if r.host != "" {
		req.Host = r.host
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", failure.Wrap(failure.ErrUpstream, "fetch hls key", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", failure.Wrap(failure.ErrUpstream, "read key response", "", err)
	}
	r.logger.Info("Key service responded", "status", resp.StatusCode, "body", preview(string(body), config.ResponsePreviewLen))

	if resp.StatusCode >= http.StatusBadRequest {
		return "", failure.Wrap(failure.ErrUpstream, "fetch hls key", fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	var parsed keyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", failure.Wrap(failure.ErrMissingKey, "parse key response", "", err)
	}
	if parsed.Key == "" {
		return "", failure.Wrap(failure.ErrMissingKey, "parse key response", "key not found in response", nil)
	}

	r.logger.Info("HLS key fetched", "key", preview(parsed.Key, config.KeyPreviewLen)+"...")
	return parsed.Key, nil
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
