// Package compression opens optionally-compressed documents. The
// format is chosen from the file extension.
package compression

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
)

// Format identifies a compression container.
type Format string

const (
	None  Format = ""
	GZIP  Format = "gzip"
	BZIP2 Format = "bzip2"
	XZ    Format = "xz"
)

var extensions = map[string]Format{
	".gz":   GZIP,
	".gzip": GZIP,
	".bz2":  BZIP2,
	".xz":   XZ,
}

// DetectFormat returns the compression format implied by path's extension.
func DetectFormat(path string) Format {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// StripExtension removes a compression extension from path, so that the
// inner document type can be determined. Paths without one are returned
// unchanged.
func StripExtension(path string) string {
	if DetectFormat(path) == None {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// OpenReader opens path and returns a reader over its decompressed content.
// Closing the returned reader closes the underlying file.
func OpenReader(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrFileReadError, path, err)
	}

	r, err := NewReader(file, DetectFormat(path))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrFileReadError, path, err)
	}
	return &stackedReadCloser{Reader: r, closers: []io.Closer{r, file}}, nil
}

// NewReader wraps r with a decompressor for format f.
func NewReader(r io.Reader, f Format) (io.ReadCloser, error) {
	switch f {
	case None:
		return io.NopCloser(r), nil
	case GZIP:
		return newGZIPReader(r)
	case BZIP2:
		return newBZIP2Reader(r)
	case XZ:
		return newXZReader(r)
	}
	return nil, fmt.Errorf("%w: compression format %q", errors.ErrUnsupportedFile, f)
}

type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReadCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
