package archive

import (
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/failure"
)

// LocateSegments walks root in lexical order and returns every regular file
// whose name ends with one of exts. No matches is not an error.
func LocateSegments(fs afero.Fs, root string, exts []string) ([]string, error) {
	var segments []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if hasAnySuffix(info.Name(), exts) {
			segments = append(segments, path)
		}
		return nil
	})
	if err != nil {
		return nil, failure.Wrap(failure.ErrLocalIO, "locate segments", root, err)
	}
	return segments, nil
}

func hasAnySuffix(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
