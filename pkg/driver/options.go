package driver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/h5s3/pkg/credentials"
	"github.com/marmos91/h5s3/pkg/engine"
	"github.com/marmos91/h5s3/pkg/transport"
)

// Backend selects the S3 client implementation.
type Backend string

const (
	// BackendHTTP signs and sends requests with the built-in client.
	BackendHTTP Backend = "http"

	// BackendSDK uses the AWS SDK S3 client.
	BackendSDK Backend = "sdk"
)

// Defaults applied by DefaultOptions.
const (
	DefaultRegion  = "us-east-1"
	DefaultTimeout = 60 * time.Second
)

// Options configures Open. Build them with DefaultOptions and override
// fields; the zero value lacks a region and backend and fails Validate.
type Options struct {
	// PageSize in bytes. 0 adopts the page size an existing object was
	// written with, or the engine default (2 MiB) for a new one.
	PageSize int64 `validate:"gte=0"`

	// PageCacheSize is the number of resident pages. 0 means 4 GiB worth
	// of pages.
	PageCacheSize int `validate:"gte=0"`

	// Credentials are required for s3:// objects.
	Credentials credentials.Credentials

	Region string `validate:"required"`

	// Host overrides the regional endpoint (host or host:port) and
	// switches to path-style addressing.
	Host string `validate:"omitempty,hostname_port|hostname_rfc1123"`

	UseTLS bool

	Backend Backend `validate:"required,oneof=http sdk"`

	// Timeout bounds one HTTP request.
	Timeout time.Duration `validate:"gte=0"`

	// FlushRetry governs automatic retries of flush write-backs.
	FlushRetry engine.RetryPolicy

	// FileRoot is the directory file:// buckets live under.
	FileRoot string

	// BadgerDir is the database directory for badger:// objects. Empty
	// keeps the database in memory for the lifetime of the handle.
	BadgerDir string

	// Metrics reports page cache and transport activity to the registry
	// set up by metrics.InitRegistry. It has no effect before that.
	Metrics bool

	// Transport replaces the transport the URI scheme would select. The
	// handle does not close it.
	Transport transport.Transport
}

// DefaultOptions returns options with the documented defaults.
func DefaultOptions() Options {
	return Options{
		Region:     DefaultRegion,
		UseTLS:     true,
		Backend:    BackendHTTP,
		Timeout:    DefaultTimeout,
		FlushRetry: engine.DefaultRetryPolicy(),
		FileRoot:   ".",
		Metrics:    true,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the options that do not depend on the URI scheme.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, describe(err))
	}
	if o.PageSize != 0 && o.PageSize < engine.MinPageSize {
		return fmt.Errorf("%w: page size %d is below the minimum of %d",
			ErrInvalidConfiguration, o.PageSize, engine.MinPageSize)
	}
	return nil
}

// validateFor adds the checks specific to loc's scheme.
func (o Options) validateFor(loc Location) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if loc.Scheme == SchemeS3 && o.Transport == nil {
		if err := o.Credentials.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
	}
	return nil
}

// describe renders validator errors as "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return strings.Join(parts, "; ")
}
