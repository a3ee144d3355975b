// Package s3http is a transport that speaks the S3 REST protocol directly:
// it builds each request, signs it with SigV4 and sends it over the SDK's
// buildable HTTP client. There is no SDK middleware stack, so each call is
// exactly one HTTP exchange.
package s3http

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go/encoding/httpbinding"

	"github.com/marmos91/h5s3/pkg/credentials"
	"github.com/marmos91/h5s3/pkg/signer"
	"github.com/marmos91/h5s3/pkg/transport"
)

// DefaultTimeout bounds one HTTP exchange.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Doer sends HTTP requests. *http.Client and the SDK's BuildableClient
// satisfy it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config configures the transport.
type Config struct {
	Bucket      string
	Region      string
	Credentials credentials.Credentials

	// Host overrides the endpoint (host[:port]) and switches to path-style
	// addressing. Empty means AWS virtual-hosted addressing.
	Host string

	// UseTLS selects https. Disable only for local test endpoints.
	UseTLS bool

	// Timeout bounds one request including the body; 0 means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient replaces the default client.
	HTTPClient Doer

	// Now is the signing clock; nil means time.Now.
	Now func() time.Time
}

// Transport is an S3 transport using the segmented layout: the range
// written at offset o of key K lives in object K/<o>.
type Transport struct {
	bucket string
	host   string
	scheme string
	path   bool // path-style addressing
	signer *signer.Signer
	client Doer
	now    func() time.Time
}

var _ transport.Transport = (*Transport)(nil)

// New validates cfg and returns a transport. Malformed credentials or a
// missing region fail with credentials.ErrInvalidCredentials.
func New(cfg Config) (*Transport, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3http: bucket is required")
	}
	s, err := signer.New(cfg.Credentials, cfg.Region)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		bucket: cfg.Bucket,
		scheme: "http",
		signer: s,
		client: cfg.HTTPClient,
		now:    cfg.Now,
	}
	if cfg.UseTLS {
		t.scheme = "https"
	}
	if cfg.Host != "" {
		t.host = strings.TrimSuffix(cfg.Host, "/")
		t.path = true
	} else {
		t.host = fmt.Sprintf("%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	if t.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		t.client = awshttp.NewBuildableClient().WithTimeout(timeout)
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t, nil
}

// Name implements transport.Named.
func (t *Transport) Name() string { return "s3http" }

// Endpoint returns the base URL requests are sent to.
func (t *Transport) Endpoint() string {
	if t.path {
		return fmt.Sprintf("%s://%s/%s", t.scheme, t.host, t.bucket)
	}
	return fmt.Sprintf("%s://%s", t.scheme, t.host)
}

// objectPath returns the escaped request path for an object name.
func (t *Transport) objectPath(name string) string {
	escaped := httpbinding.EscapePath(name, false)
	if t.path {
		return "/" + httpbinding.EscapePath(t.bucket, false) + "/" + escaped
	}
	return "/" + escaped
}

// GetRange reads the segment written at offset.
func (t *Transport) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	name := transport.SegmentName(key, offset)

	resp, err := t.do(ctx, http.MethodGet, name, signer.NewByteRange(0, length), nil)
	if err != nil {
		return nil, &transport.TransportError{Op: "get", Key: name, Category: transport.NetworkCategory(err), Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		data, err := io.ReadAll(io.LimitReader(resp.Body, length))
		if err != nil {
			return nil, &transport.TransportError{Op: "get", Key: name, StatusCode: resp.StatusCode, Category: transport.NetworkCategory(err), Err: err}
		}
		return data, nil
	case http.StatusNotFound:
		return nil, transport.ErrNotFound
	case http.StatusRequestedRangeNotSatisfiable:
		// zero-length segment
		return []byte{}, nil
	default:
		return nil, responseError("get", name, resp)
	}
}

// PutRange stores data as the segment for offset, replacing any previous
// segment written at the same offset.
func (t *Transport) PutRange(ctx context.Context, key string, offset int64, data []byte) error {
	name := transport.SegmentName(key, offset)

	resp, err := t.do(ctx, http.MethodPut, name, nil, data)
	if err != nil {
		return &transport.TransportError{Op: "put", Key: name, Category: transport.NetworkCategory(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return responseError("put", name, resp)
}

func (t *Transport) do(ctx context.Context, method, name string, rng *signer.ByteRange, body []byte) (*http.Response, error) {
	path := t.objectPath(name)
	headers, err := t.signer.Sign(ctx, signer.Request{
		Method:      method,
		Scheme:      t.scheme,
		Host:        t.host,
		Path:        path,
		Range:       rng,
		PayloadHash: signer.PayloadHash(body),
	}, t.now())
	if err != nil {
		return nil, err
	}

	u, err := signer.RequestURL(t.scheme, t.host, path)
	if err != nil {
		return nil, err
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}
	req.URL = u
	req.Header = headers
	if body != nil {
		req.ContentLength = int64(len(body))
	}
	return t.client.Do(req)
}

// s3Error is the XML body S3 returns on failure.
type s3Error struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	RequestID string   `xml:"RequestId"`
}

func responseError(op, name string, resp *http.Response) error {
	te := &transport.TransportError{
		Op:         op,
		Key:        name,
		StatusCode: resp.StatusCode,
		Category:   transport.CategoryForStatus(resp.StatusCode),
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var e s3Error
	if len(body) > 0 && xml.Unmarshal(body, &e) == nil && e.Code != "" {
		te.Code = e.Code
		te.Err = fmt.Errorf("%s: %s", e.Code, e.Message)
	} else {
		te.Err = errors.New(http.StatusText(resp.StatusCode))
	}
	return te
}
