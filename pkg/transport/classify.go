package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
)

// NetworkCategory classifies an error raised before any HTTP response was
// received: certificate and handshake failures are CategoryTLS, the rest
// CategoryNetwork.
func NetworkCategory(err error) Category {
	var (
		unknownAuthority x509.UnknownAuthorityError
		invalidCert      x509.CertificateInvalidError
		hostname         x509.HostnameError
		verification     *tls.CertificateVerificationError
		recordHeader     tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &unknownAuthority),
		errors.As(err, &invalidCert),
		errors.As(err, &hostname),
		errors.As(err, &verification),
		errors.As(err, &recordHeader):
		return CategoryTLS
	}
	return CategoryNetwork
}
