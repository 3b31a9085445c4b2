package registry

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

func svc(id, version string, inputs, outputs []string) service.Service {
	s := service.New(id, inputs, outputs, qos.Vector{Availability: 90})
	s.Version = version
	return s
}

func TestNewPoolIndexes(t *testing.T) {
	pool, err := NewPool([]service.Service{
		svc("c", "", []string{"b"}, []string{"z"}),
		svc("a", "", []string{"x"}, []string{"b"}),
		svc("b", "", []string{"x", "y"}, []string{"b", "z"}),
	})
	require.NoError(t, err)

	require.Equal(t, 3, pool.Len())
	ids := []string{}
	for _, s := range pool.Services() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	assert.Equal(t, []int{0, 1}, pool.Producers("b"))
	assert.Equal(t, []int{1, 2}, pool.Producers("z"))
	assert.Equal(t, []int{0, 1}, pool.Consumers("x"))
	assert.Empty(t, pool.Producers("missing"))
	assert.Equal(t, []string{"b", "x", "y", "z"}, pool.Parameters())

	s, ok := pool.Lookup("c")
	require.True(t, ok)
	assert.Equal(t, "c", s.Name)
	_, ok = pool.Lookup("nope")
	assert.False(t, ok)
}

func TestNewPoolDuplicates(t *testing.T) {
	pool, err := NewPool([]service.Service{
		svc("s", "1.0.0", nil, []string{"old"}),
		svc("s", "1.10.0", nil, []string{"new"}),
		svc("s", "1.2.0", nil, []string{"mid"}),
	})
	require.NoError(t, err)
	require.Equal(t, 1, pool.Len())
	assert.Equal(t, []string{"new"}, pool.At(0).Outputs)

	_, err = NewPool([]service.Service{svc("s", "1.0.0", nil, nil), svc("s", "v1.0.0", nil, nil)})
	assert.True(t, errors.Is(err, errors.ErrDuplicateService), "equal versions: %v", err)

	_, err = NewPool([]service.Service{svc("s", "", nil, nil), svc("s", "", nil, nil)})
	assert.True(t, errors.Is(err, errors.ErrDuplicateService), "missing versions: %v", err)

	_, err = NewPool([]service.Service{svc("", "", nil, nil)})
	assert.True(t, errors.Is(err, errors.ErrInvalidService), "empty id: %v", err)
}

func TestPoolFingerprint(t *testing.T) {
	services := []service.Service{
		svc("a", "", []string{"x"}, []string{"y"}),
		svc("b", "", []string{"y"}, []string{"z"}),
	}
	p1, err := NewPool(services)
	require.NoError(t, err)
	p2, err := NewPool([]service.Service{services[1], services[0]})
	require.NoError(t, err)
	assert.Equal(t, p1.Fingerprint(), p2.Fingerprint(), "order must not matter")

	changed := svc("a", "", []string{"x"}, []string{"y"})
	changed.QoS.Availability = 91
	p3, err := NewPool([]service.Service{changed, services[1]})
	require.NoError(t, err)
	assert.NotEqual(t, p1.Fingerprint(), p3.Fingerprint())
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Pool()
	assert.ErrorIs(t, err, errors.ErrPoolNotLoaded)
	assert.Zero(t, r.Generation())

	p1, _ := NewPool([]service.Service{svc("a", "", nil, []string{"x"})})
	p2, _ := NewPool([]service.Service{svc("b", "", nil, []string{"y"})})

	assert.Equal(t, uint64(1), r.Replace(p1))
	snapshot, err := r.Pool()
	require.NoError(t, err)

	assert.Equal(t, uint64(2), r.Replace(p2))
	current, err := r.Pool()
	require.NoError(t, err)

	assert.Same(t, p1, snapshot, "old snapshot is unaffected")
	assert.Same(t, p2, current)
}

func TestRegistryConcurrentReplace(t *testing.T) {
	r := NewRegistry(nil)
	p, _ := NewPool(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Replace(p)
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Pool()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), r.Generation())
}

func TestLoadPool(t *testing.T) {
	pool, err := LoadPool(filepath.Join("testdata", "pool.yaml"))
	require.NoError(t, err)
	require.Equal(t, 3, pool.Len())

	weather, ok := pool.Lookup("weather")
	require.True(t, ok)
	assert.Equal(t, "2.0.1", weather.Version)
	assert.Equal(t, 300.0, weather.QoS.ResponseTime)

	geocode, _ := pool.Lookup("geocode")
	assert.InDelta(t, 0.9, geocode.Annotation().Trust(), 1e-9)

	translate, _ := pool.Lookup("translate")
	assert.Equal(t, []string{"forecast", "language"}, translate.Inputs)
	assert.Equal(t, "translate", translate.Name)
	_, isNone := translate.Annotation().(service.NoAnnotations)
	assert.True(t, isNone)
}

func TestLoadPoolCompressed(t *testing.T) {
	src := filepath.Join("testdata", "pool.yaml")
	plain, err := LoadPool(src)
	require.NoError(t, err)

	for _, ext := range []string{".gz", ".bz2", ".xz"} {
		dst := src + ext

		pool, err := LoadPool(dst)
		require.NoError(t, err, ext)
		assert.Equal(t, plain.Fingerprint(), pool.Fingerprint(), ext)

		sum, err := DocumentChecksum(dst)
		require.NoError(t, err)
		plainSum, err := DocumentChecksum(src)
		require.NoError(t, err)
		assert.Equal(t, plainSum, sum, "checksum covers decompressed content")
	}
}

func TestLoadInvalidPool(t *testing.T) {
	_, err := LoadServices(filepath.Join("testdata", "invalid_pool.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidService)
	assert.Contains(t, err.Error(), "broken")
}

func TestLoadUnsupported(t *testing.T) {
	_, err := LoadServices(filepath.Join("testdata", "pool.ini"))
	assert.ErrorIs(t, err, errors.ErrUnsupportedFile)

	_, err = LoadServices(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
}

func TestLoadRequests(t *testing.T) {
	requests, err := LoadRequests(filepath.Join("testdata", "requests.yaml"))
	require.NoError(t, err)
	require.Len(t, requests, 3)

	r, err := FindRequest(requests, "localized")
	require.NoError(t, err)
	assert.Equal(t, []string{"address", "language"}, r.Provided)
	assert.Equal(t, "localized_forecast", r.Resultant)
	assert.Equal(t, 2000.0, r.Constraints.ResponseTime)
	assert.Zero(t, r.Constraints.Availability)

	_, err = FindRequest(requests, "unknown")
	assert.ErrorIs(t, err, errors.ErrRequestNotFound)
}
