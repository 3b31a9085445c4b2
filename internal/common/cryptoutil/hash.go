// Package cryptoutil provides content hashing for pools, requests and
// loaded documents.
package cryptoutil

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"math"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
)

// HashAlgorithm represents supported hash algorithms
type HashAlgorithm string

const (
	// BLAKE2b256 is the default algorithm for fingerprints.
	BLAKE2b256 HashAlgorithm = "blake2b-256"

	// BLAKE2b512 produces longer digests for document checksums.
	BLAKE2b512 HashAlgorithm = "blake2b-512"
)

// Hasher hashes streams with one algorithm.
type Hasher struct {
	newHash func() (hash.Hash, error)
}

// NewHasher creates a new Hasher for the specified algorithm
func NewHasher(algorithm HashAlgorithm) (*Hasher, error) {
	var newHashFunc func() (hash.Hash, error)

	switch HashAlgorithm(strings.ToLower(string(algorithm))) {
	case BLAKE2b256:
		newHashFunc = func() (hash.Hash, error) { return blake2b.New256(nil) }
	case BLAKE2b512:
		newHashFunc = func() (hash.Hash, error) { return blake2b.New512(nil) }
	default:
		return nil, fmt.Errorf("%w: unsupported hash algorithm '%s'", errors.ErrInvalidArgument, algorithm)
	}

	return &Hasher{newHash: newHashFunc}, nil
}

// HashReader hashes data from a reader
func (h *Hasher) HashReader(reader io.Reader) (string, error) {
	hasher, err := h.newHash()
	if err != nil {
		return "", fmt.Errorf("hash operation failed: %w", err)
	}
	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("hash operation failed: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Fingerprint accumulates strings and floats into a BLAKE2b-256 digest.
// Every value is length- or width-prefixed so that field boundaries cannot
// collide.
type Fingerprint struct {
	h hash.Hash
}

// NewFingerprint returns an empty fingerprint.
func NewFingerprint() *Fingerprint {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return &Fingerprint{h: h}
}

// AddString adds s to the fingerprint.
func (f *Fingerprint) AddString(s string) *Fingerprint {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	f.h.Write(n[:])
	io.WriteString(f.h, s)
	return f
}

// AddStrings adds a list of strings, including its length.
func (f *Fingerprint) AddStrings(ss []string) *Fingerprint {
	f.AddUint(uint64(len(ss)))
	for _, s := range ss {
		f.AddString(s)
	}
	return f
}

// AddFloat adds the bit pattern of x.
func (f *Fingerprint) AddFloat(x float64) *Fingerprint {
	return f.AddUint(math.Float64bits(x))
}

// AddUint adds x.
func (f *Fingerprint) AddUint(x uint64) *Fingerprint {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], x)
	f.h.Write(b[:])
	return f
}

// Sum returns the hex-encoded digest.
func (f *Fingerprint) Sum() string {
	return hex.EncodeToString(f.h.Sum(nil))
}
