package compression

import (
	"io"

	"github.com/ulikunitz/xz"
)

func newXZReader(r io.Reader) (io.ReadCloser, error) {
	xzReader, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xzReader), nil
}
