package driver

import (
	"fmt"
	"net/url"
	"strings"
)

// Supported URI schemes.
const (
	SchemeS3     = "s3"
	SchemeFile   = "file"
	SchemeBadger = "badger"
)

// Location is a parsed object URI.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// String formats the location back into URI form.
func (l Location) String() string {
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ObjectKey is the key transports address: "<bucket>/<key>" for local
// backends, which have no bucket namespace of their own, and the bare key
// for S3.
func (l Location) ObjectKey() string {
	if l.Scheme == SchemeS3 {
		return l.Key
	}
	return l.Bucket + "/" + l.Key
}

// ParseURI parses "scheme://bucket/key". The key may contain slashes;
// trailing slashes are trimmed.
func ParseURI(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: parse uri %q: %w", ErrInvalidConfiguration, raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case SchemeS3, SchemeFile, SchemeBadger:
	case "":
		return Location{}, fmt.Errorf("%w: uri %q has no scheme", ErrInvalidConfiguration, raw)
	default:
		return Location{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidConfiguration, u.Scheme)
	}

	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return Location{}, fmt.Errorf("%w: uri %q must be scheme://bucket/key", ErrInvalidConfiguration, raw)
	}

	key := strings.Trim(u.Path, "/")
	switch {
	case u.Host == "":
		return Location{}, fmt.Errorf("%w: uri %q has no bucket", ErrInvalidConfiguration, raw)
	case key == "":
		return Location{}, fmt.Errorf("%w: uri %q has no key", ErrInvalidConfiguration, raw)
	}

	return Location{Scheme: scheme, Bucket: u.Host, Key: key}, nil
}
