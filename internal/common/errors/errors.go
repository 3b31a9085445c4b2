package errors

import (
	"errors"
)

var (
	// General Errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrComputation     = errors.New("internal computation fault")

	// Request Errors
	ErrInvalidRequest  = errors.New("invalid composition request")
	ErrRequestNotFound = errors.New("composition request not found")
	ErrUnknownStrategy = errors.New("unknown search strategy")

	// Service Pool Errors
	ErrInvalidService   = errors.New("invalid service definition")
	ErrInvalidQoS       = errors.New("invalid QoS vector")
	ErrDuplicateService = errors.New("duplicate service id")
	ErrServiceNotFound  = errors.New("service not found")
	ErrPoolNotLoaded    = errors.New("service pool not loaded")

	// File & Document Errors
	ErrFileNotFound    = errors.New("file not found")
	ErrFileReadError   = errors.New("error reading file")
	ErrUnsupportedFile = errors.New("unsupported file format")

	// Cache Errors
	ErrCacheFailure = errors.New("cache operation failed")

	// Configuration Errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigParseError = errors.New("error parsing configuration")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error wrapping every non-nil error in errs.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
