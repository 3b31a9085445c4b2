package registry

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-service-composer/internal/common/compressionutil"
	"github.com/deploymenttheory/go-service-composer/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/logger"
	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// serviceRecord is the document form of a service.
type serviceRecord struct {
	ID          string              `mapstructure:"id"`
	Name        string              `mapstructure:"name"`
	Version     string              `mapstructure:"version"`
	Inputs      []string            `mapstructure:"inputs"`
	Outputs     []string            `mapstructure:"outputs"`
	QoS         qos.Vector          `mapstructure:"qos"`
	Annotations *service.Annotation `mapstructure:"annotations"`
}

// requestRecord is the document form of a composition request.
type requestRecord struct {
	ID          string     `mapstructure:"id"`
	Provided    []string   `mapstructure:"provided"`
	Resultant   string     `mapstructure:"resultant"`
	Constraints qos.Vector `mapstructure:"constraints"`
}

var documentTypes = map[string]string{
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".toml": "toml",
}

// LoadServices reads the "services" list from a pool document and
// validates every record.
func LoadServices(path string) ([]service.Service, error) {
	v, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	var records []serviceRecord
	if err := v.UnmarshalKey("services", &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrUnsupportedFile, path, err)
	}

	services := make([]service.Service, 0, len(records))
	for _, r := range records {
		s := service.New(r.ID, r.Inputs, r.Outputs, r.QoS)
		s.Version = r.Version
		if r.Name != "" {
			s.Name = r.Name
		}
		if r.Annotations != nil {
			s.Annotations = *r.Annotations
		}
		services = append(services, s)
	}

	if errs := service.ValidateServices(services); len(errs) > 0 {
		return nil, joinErrors(errs)
	}

	logger.LogDebug("Loaded service records", map[string]interface{}{
		"path":     path,
		"services": len(services),
	})
	return services, nil
}

// LoadPool loads a pool document and builds a Pool from it.
func LoadPool(path string) (*Pool, error) {
	services, err := LoadServices(path)
	if err != nil {
		return nil, err
	}
	pool, err := NewPool(services)
	if err != nil {
		return nil, err
	}

	logger.LogInfo("Service pool loaded", map[string]interface{}{
		"path":        path,
		"services":    pool.Len(),
		"fingerprint": pool.Fingerprint()[:16],
	})
	return pool, nil
}

// LoadRequests reads the "requests" list from a request document and
// validates every record.
func LoadRequests(path string) ([]service.Request, error) {
	v, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	var records []requestRecord
	if err := v.UnmarshalKey("requests", &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrUnsupportedFile, path, err)
	}

	requests := make([]service.Request, 0, len(records))
	for _, r := range records {
		requests = append(requests, service.NewRequest(r.ID, r.Provided, r.Resultant, r.Constraints))
	}

	if errs := service.ValidateRequests(requests); len(errs) > 0 {
		return nil, joinErrors(errs)
	}
	return requests, nil
}

// FindRequest returns the request with the given id.
func FindRequest(requests []service.Request, id string) (service.Request, error) {
	for _, r := range requests {
		if r.ID == id {
			return r, nil
		}
	}
	return service.Request{}, fmt.Errorf("%w: %s", errors.ErrRequestNotFound, id)
}

// DocumentChecksum returns the BLAKE2b-512 digest of the decompressed
// document content.
func DocumentChecksum(path string) (string, error) {
	r, err := compression.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	h, err := cryptoutil.NewHasher(cryptoutil.BLAKE2b512)
	if err != nil {
		return "", err
	}
	return h.HashReader(r)
}

func readDocument(path string) (*viper.Viper, error) {
	inner := compression.StripExtension(path)
	docType, ok := documentTypes[strings.ToLower(filepath.Ext(inner))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFile, path)
	}

	r, err := compression.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	v := viper.New()
	v.SetConfigType(docType)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrFileReadError, path, err)
	}
	return v, nil
}

// joinErrors keeps every validation error reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
