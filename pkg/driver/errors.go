package driver

import "github.com/marmos91/h5s3/pkg/engine"

// Errors returned by the driver and by handles it opens.
var (
	ErrInvalidConfiguration = engine.ErrInvalidConfiguration
	ErrStorageUnavailable   = engine.ErrStorageUnavailable
	ErrInvalidState         = engine.ErrInvalidState
	ErrInvalidArgument      = engine.ErrInvalidArgument
)
