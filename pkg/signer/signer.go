// Package signer produces AWS Signature Version 4 headers for object-storage
// requests.
//
// The signer is a pure function of its inputs and the signing time: the
// same request signed at the same instant always yields the same headers.
// It never talks to the network, so it cannot tell whether the service will
// accept the credentials; a rejected signature surfaces as a transport error.
package signer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/marmos91/h5s3/pkg/credentials"
)

// Service is the signing service name for the object store.
const Service = "s3"

// EmptyPayloadHash is the hex SHA-256 of an empty body.
const EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Header names set by Sign.
const (
	HeaderAuthorization = "Authorization"
	HeaderAmzDate       = "X-Amz-Date"
	HeaderContentSHA256 = "X-Amz-Content-Sha256"
	HeaderSecurityToken = "X-Amz-Security-Token"
	HeaderRange         = "Range"
)

// ByteRange is an inclusive byte range [Start, End].
type ByteRange struct {
	Start int64
	End   int64
}

// NewByteRange returns the range covering length bytes from offset.
func NewByteRange(offset, length int64) *ByteRange {
	return &ByteRange{Start: offset, End: offset + length - 1}
}

// String renders the HTTP Range header value.
func (r ByteRange) String() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// Request describes what is being signed.
type Request struct {
	// Method is the HTTP verb (GET, PUT, ...).
	Method string

	// Scheme is "https" or "http".
	Scheme string

	// Host is the authority the request is sent to, including the bucket
	// for virtual-hosted addressing.
	Host string

	// Path is the already URI-escaped request path, starting with "/".
	Path string

	// Range is optional.
	Range *ByteRange

	// PayloadHash is the hex SHA-256 of the body; EmptyPayloadHash when empty.
	PayloadHash string
}

// Signer signs requests for one credential set and region.
type Signer struct {
	creds  credentials.Credentials
	region string
	inner  *v4.Signer
}

// New returns a Signer. Malformed key material or an empty region fail
// with credentials.ErrInvalidCredentials.
func New(creds credentials.Credentials, region string) (*Signer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(region) == "" {
		return nil, fmt.Errorf("%w: region is required", credentials.ErrInvalidCredentials)
	}

	return &Signer{
		creds:  creds,
		region: region,
		// S3 canonical URIs are escaped exactly once, by the caller.
		inner: v4.NewSigner(func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		}),
	}, nil
}

// Region returns the signing region.
func (s *Signer) Region() string {
	return s.region
}

// Sign returns the header set to attach to req, signed at the given time.
func (s *Signer) Sign(ctx context.Context, req Request, at time.Time) (http.Header, error) {
	if req.Method == "" || req.Host == "" {
		return nil, fmt.Errorf("sign: method and host are required")
	}

	scheme := req.Scheme
	if scheme == "" {
		scheme = "https"
	}
	payloadHash := req.PayloadHash
	if payloadHash == "" {
		payloadHash = EmptyPayloadHash
	}

	u, err := requestURL(scheme, req.Host, req.Path)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sign: build request: %w", err)
	}
	httpReq.URL = u
	if req.Range != nil {
		httpReq.Header.Set(HeaderRange, req.Range.String())
	}
	httpReq.Header.Set(HeaderContentSHA256, payloadHash)

	if err := s.inner.SignHTTP(ctx, s.creds.AWS(), httpReq, payloadHash, Service, s.region, at.UTC()); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	return httpReq.Header.Clone(), nil
}

// RequestURL builds the URL a signed request must be sent to. The path is
// kept verbatim so the wire path matches the signed canonical URI.
func RequestURL(scheme, host, escapedPath string) (*url.URL, error) {
	return requestURL(scheme, host, escapedPath)
}

func requestURL(scheme, host, escapedPath string) (*url.URL, error) {
	if escapedPath == "" {
		escapedPath = "/"
	}
	if !strings.HasPrefix(escapedPath, "/") {
		escapedPath = "/" + escapedPath
	}

	path, err := url.PathUnescape(escapedPath)
	if err != nil {
		return nil, fmt.Errorf("sign: invalid path %q: %w", escapedPath, err)
	}

	return &url.URL{
		Scheme:  scheme,
		Host:    host,
		Path:    path,
		RawPath: escapedPath,
	}, nil
}

// PayloadHash returns the hex SHA-256 of data.
func PayloadHash(data []byte) string {
	if len(data) == 0 {
		return EmptyPayloadHash
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
