package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
)

// recordValidate is shared by every record type in this package. It is
// safe for concurrent use once init has run.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New(validator.WithRequiredStructEnabled())
	_ = recordValidate.RegisterValidation("finite", validateFinite)
}

// validateFinite rejects NaN and infinite floats.
func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate checks the service's id, version and QoS. Annotation scores are
// checked when the provider is a plain Annotation.
func (s *Service) Validate() error {
	if err := recordValidate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s: %s", errors.ErrInvalidService, s.ID, describe(err))
	}
	if a, ok := s.Annotations.(Annotation); ok {
		if err := recordValidate.Struct(a); err != nil {
			return fmt.Errorf("%w: %s: annotations: %s", errors.ErrInvalidService, s.ID, describe(err))
		}
	}
	return nil
}

// Validate checks that the request names an id and a resultant and that its
// constraints are finite and non-negative.
func (r *Request) Validate() error {
	if err := recordValidate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidRequest, describe(err))
	}
	return nil
}

// ValidateServices validates every service and returns all problems found.
func ValidateServices(services []Service) []error {
	var errs []error
	for i := range services {
		if err := services[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ValidateRequests validates every request and returns all problems found.
func ValidateRequests(requests []Request) []error {
	var errs []error
	for i := range requests {
		if err := requests[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("request %q: %w", requests[i].ID, err))
		}
	}
	return errs
}

// describe flattens validator field errors into one readable line.
func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "finite":
			msgs = append(msgs, fmt.Sprintf("%s must be finite", fe.Namespace()))
		case "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		case "semver":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a semantic version", fe.Namespace(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
