package compression

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

func newBZIP2Reader(r io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(r, nil)
}
