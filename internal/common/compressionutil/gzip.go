package compression

import (
	"compress/gzip"
	"io"
)

func newGZIPReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}
