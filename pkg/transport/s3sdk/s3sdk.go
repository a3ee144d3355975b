// Package s3sdk is a transport built on the AWS SDK S3 client. It uses the
// same segmented layout as s3http; SDK retries are disabled so that one
// call is one request.
package s3sdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/h5s3/pkg/credentials"
	"github.com/marmos91/h5s3/pkg/transport"
)

// Config configures the SDK client.
type Config struct {
	Bucket      string
	Region      string
	Credentials credentials.Credentials

	// Host overrides the endpoint (host[:port]) and forces path-style
	// addressing, as Localstack and MinIO require.
	Host   string
	UseTLS bool

	// Timeout bounds one request; 0 leaves the SDK default.
	Timeout time.Duration
}

// Transport is an S3 transport backed by *s3.Client.
type Transport struct {
	client *s3.Client
	bucket string
}

var _ transport.Transport = (*Transport)(nil)

// New wraps an existing client.
func New(client *s3.Client, bucket string) *Transport {
	return &Transport{client: client, bucket: bucket}
}

// NewFromConfig builds a client with static credentials from cfg.
func NewFromConfig(ctx context.Context, cfg Config) (*Transport, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3sdk: bucket is required")
	}
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, fmt.Errorf("%w: region is required", credentials.ErrInvalidCredentials)
	}

	creds := cfg.Credentials.AWS()
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
		if cfg.Host != "" {
			scheme := "http"
			if cfg.UseTLS {
				scheme = "https"
			}
			o.BaseEndpoint = aws.String(scheme + "://" + strings.TrimSuffix(cfg.Host, "/"))
			o.UsePathStyle = true
		}
	})

	return New(client, cfg.Bucket), nil
}

// Name implements transport.Named.
func (t *Transport) Name() string { return "s3sdk" }

// Client exposes the underlying SDK client.
func (t *Transport) Client() *s3.Client { return t.client }

// GetRange reads the segment written at offset.
func (t *Transport) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	name := transport.SegmentName(key, offset)

	resp, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(name),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", length-1)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, transport.ErrNotFound
		}
		if statusOf(err) == http.StatusRequestedRangeNotSatisfiable {
			return []byte{}, nil
		}
		return nil, mapError("get", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, length))
	if err != nil {
		return nil, &transport.TransportError{Op: "get", Key: name, Category: transport.NetworkCategory(err), Err: err}
	}
	return data, nil
}

// PutRange stores data as the segment for offset.
func (t *Transport) PutRange(ctx context.Context, key string, offset int64, data []byte) error {
	name := transport.SegmentName(key, offset)

	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return mapError("put", name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return statusOf(err) == http.StatusNotFound
}

func statusOf(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func mapError(op, name string, err error) error {
	te := &transport.TransportError{Op: op, Key: name, Err: err}

	if status := statusOf(err); status != 0 {
		te.StatusCode = status
		te.Category = transport.CategoryForStatus(status)
	} else {
		te.Category = transport.NetworkCategory(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		te.Code = apiErr.ErrorCode()
	}
	return te
}
