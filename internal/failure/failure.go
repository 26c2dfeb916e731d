// Package failure defines the error markers shared by every pipeline stage.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedURL   = errors.New("malformed url")
	ErrNoCredential   = errors.New("no credential")
	ErrUpstream       = errors.New("upstream error")
	ErrMissingKey     = errors.New("missing key")
	ErrCorruptArchive = errors.New("corrupt archive")
	ErrLocalIO        = errors.New("local io error")
)

var kinds = []struct {
	marker error
	name   string
}{
	{ErrMalformedURL, "malformed_url"},
	{ErrNoCredential, "no_credential"},
	{ErrUpstream, "upstream"},
	{ErrMissingKey, "missing_key"},
	{ErrCorruptArchive, "corrupt_archive"},
	{ErrLocalIO, "local_io"},
}

// Wrap builds an error carrying op/message context while tagging it with
// marker for later classification. Both marker and err stay reachable
// through errors.Is.
func Wrap(marker error, op, message string, err error) error {
	if marker == nil {
		marker = ErrLocalIO
	}
	detail := buildDetail(op, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Ensure returns err unchanged when it already carries a marker, otherwise
// wraps it with fallback.
func Ensure(fallback error, op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return Wrap(fallback, op, "", err)
}

// Classified reports whether err carries one of the package markers.
func Classified(err error) bool {
	return KindOf(err) != "unknown"
}

// KindOf returns the short kind name used in logs, metric labels and alerts.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "unknown"
}

func buildDetail(op, message string) string {
	parts := make([]string, 0, 2)
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
