package compression

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"pool.yaml":        None,
		"pool.yaml.gz":     GZIP,
		"pool.json.BZ2":    BZIP2,
		"requests.toml.xz": XZ,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("%s: expected %q, got %q", path, want, got)
		}
	}

	if got := StripExtension("pool.yaml.xz"); got != "pool.yaml" {
		t.Errorf("expected pool.yaml, got %s", got)
	}
	if got := StripExtension("pool.yaml"); got != "pool.yaml" {
		t.Errorf("expected unchanged path, got %s", got)
	}
}

func TestOpenReaderRoundTrip(t *testing.T) {
	src := filepath.Join("testdata", "pool.yaml")
	payload, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("failed to read source: %v", err)
	}

	for _, ext := range []string{"", ".gz", ".bz2", ".xz"} {
		r, err := OpenReader(src + ext)
		if err != nil {
			t.Fatalf("%s: open failed: %v", ext, err)
		}
		got, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("%s: read failed: %v", ext, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("%s: content mismatch: %q", ext, got)
		}
	}
}

func TestOpenReaderMissingFile(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "missing.yaml.gz"))
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestNewReaderUnsupported(t *testing.T) {
	if _, err := NewReader(bytes.NewReader(nil), Format("zstd")); !errors.Is(err, errors.ErrUnsupportedFile) {
		t.Errorf("expected ErrUnsupportedFile, got %v", err)
	}
}
