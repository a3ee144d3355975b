// Package credentials holds object-storage key material behind an opaque type
// that never prints its secret.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ErrInvalidCredentials indicates malformed key material (for example an
// empty access key). Rejection by the service is not detected here; it
// surfaces later as a transport error.
var ErrInvalidCredentials = errors.New("invalid credentials")

// redacted is printed in place of secret material.
const redacted = "[REDACTED]"

// Credentials is an access key / secret key pair with an optional session
// token. The zero value is empty and fails Validate.
//
// All formatting paths (String, GoString, fmt verbs, slog) mask the access
// key id and omit the secret entirely.
type Credentials struct {
	accessKey    string
	secretKey    string
	sessionToken string
}

// New returns credentials for the given key pair.
func New(accessKey, secretKey string) Credentials {
	return Credentials{accessKey: accessKey, secretKey: secretKey}
}

// WithSessionToken returns a copy carrying a temporary session token.
func (c Credentials) WithSessionToken(token string) Credentials {
	c.sessionToken = token
	return c
}

// AccessKeyID returns the public access key id.
func (c Credentials) AccessKeyID() string {
	return c.accessKey
}

// IsZero reports whether no key material is set.
func (c Credentials) IsZero() bool {
	return c.accessKey == "" && c.secretKey == "" && c.sessionToken == ""
}

// Validate checks that the key material is well formed.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.accessKey) == "" {
		return fmt.Errorf("%w: access key is required", ErrInvalidCredentials)
	}
	if strings.TrimSpace(c.secretKey) == "" {
		return fmt.Errorf("%w: secret key is required", ErrInvalidCredentials)
	}
	return nil
}

// AWS converts to the SDK credential value used by signers and clients.
func (c Credentials) AWS() aws.Credentials {
	return aws.Credentials{
		AccessKeyID:     c.accessKey,
		SecretAccessKey: c.secretKey,
		SessionToken:    c.sessionToken,
		Source:          "h5s3",
	}
}

// String implements fmt.Stringer with the secret removed.
func (c Credentials) String() string {
	if c.IsZero() {
		return "credentials{}"
	}
	s := fmt.Sprintf("credentials{access_key=%s secret_key=%s", maskAccessKey(c.accessKey), redacted)
	if c.sessionToken != "" {
		s += " session_token=" + redacted
	}
	return s + "}"
}

// GoString keeps %#v from dumping struct fields.
func (c Credentials) GoString() string {
	return c.String()
}

// Format routes every fmt verb through String.
func (c Credentials) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(c.String()))
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key", maskAccessKey(c.accessKey)),
		slog.String("secret_key", redacted),
	)
}

// maskAccessKey keeps the last four characters of the key id.
func maskAccessKey(k string) string {
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
