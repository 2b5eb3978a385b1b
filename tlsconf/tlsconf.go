// Package tlsconf helps with configuring TLS for outbound connections.
//
// Options is mutable until the first connection attempt uses it. At
// that point it becomes frozen and every setter fails with
// model.ErrConfigurationFrozen. Each connection attempt works on an
// immutable Snapshot, so a connection never observes a mutation.
package tlsconf

import (
	"crypto/x509"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
)

// These are the default timeouts.
const (
	DefaultConnectTimeout   = 30 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// Snapshot is an immutable copy of Options taken at the beginning
// of a connection attempt.
type Snapshot struct {
	// CertificateValidator is never nil.
	CertificateValidator model.CertificateValidator

	// ConnectTimeout bounds resolving and connecting.
	ConnectTimeout time.Duration

	// EnabledProtocols is empty when the platform default applies.
	EnabledProtocols protocolset.Set

	// HandshakeTimeout is always positive.
	HandshakeTimeout time.Duration

	// RootCAs is nil when we should use the system roots.
	RootCAs *x509.CertPool

	// ServerName is empty when we should use the destination host.
	ServerName string
}

// Options contains the TLS options of a transport. The zero value is
// not valid, use New to construct.
type Options struct {
	connectTimeout   time.Duration
	frozen           bool
	handshakeTimeout time.Duration
	mu               sync.RWMutex
	protocols        protocolset.Set
	rootCAs          *x509.CertPool
	serverName       string
	validator        model.CertificateValidator
}

// New creates new unfrozen Options with default values.
func New() *Options {
	return &Options{
		connectTimeout:   DefaultConnectTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		validator:        model.DefaultCertificateValidator,
	}
}

// EnabledProtocols returns the enabled protocols. The default is
// protocolset.None, meaning the platform default policy.
func (o *Options) EnabledProtocols() protocolset.Set {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.protocols
}

// SetEnabledProtocols sets the enabled protocols. We don't check the
// value against what the platform supports: that only happens when
// connecting, so configuration code remains portable.
func (o *Options) SetEnabledProtocols(set protocolset.Set) error {
	return o.update(func() { o.protocols = set })
}

// CertificateValidator returns the certificate validator.
func (o *Options) CertificateValidator() model.CertificateValidator {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.validator
}

// SetCertificateValidator replaces the certificate validator. A nil
// value restores model.DefaultCertificateValidator.
func (o *Options) SetCertificateValidator(fn model.CertificateValidator) error {
	if fn == nil {
		fn = model.DefaultCertificateValidator
	}
	return o.update(func() { o.validator = fn })
}

// HandshakeTimeout returns the TLS handshake timeout.
func (o *Options) HandshakeTimeout() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.handshakeTimeout
}

// SetHandshakeTimeout sets the TLS handshake timeout. A zero or
// negative value restores DefaultHandshakeTimeout.
func (o *Options) SetHandshakeTimeout(d time.Duration) error {
	if d <= 0 {
		d = DefaultHandshakeTimeout
	}
	return o.update(func() { o.handshakeTimeout = d })
}

// ConnectTimeout returns the connect timeout.
func (o *Options) ConnectTimeout() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.connectTimeout
}

// SetConnectTimeout sets the connect timeout. A zero or negative
// value restores DefaultConnectTimeout.
func (o *Options) SetConnectTimeout(d time.Duration) error {
	if d <= 0 {
		d = DefaultConnectTimeout
	}
	return o.update(func() { o.connectTimeout = d })
}

// ErrNoCertificates indicates that a CA bundle contained no certificates.
var ErrNoCertificates = errors.New("tlsconf: no certificates in CA bundle")

// SetCABundle configures the options to use a specific CA bundle.
func (o *Options) SetCABundle(path string) error {
	cert, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(cert) {
		return ErrNoCertificates
	}
	return o.update(func() { o.rootCAs = pool })
}

// ForceSpecificSNI sets a specific SNI.
func (o *Options) ForceSpecificSNI(sni string) error {
	return o.update(func() { o.serverName = sni })
}

// Freeze freezes the options. It is idempotent.
func (o *Options) Freeze() {
	o.mu.Lock()
	o.frozen = true
	o.mu.Unlock()
}

// Frozen returns whether the options are frozen.
func (o *Options) Frozen() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.frozen
}

// Snapshot freezes the options and returns a copy of them. Freezing
// and copying happen atomically with respect to the setters.
func (o *Options) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frozen = true
	return Snapshot{
		CertificateValidator: o.validator,
		ConnectTimeout:       o.connectTimeout,
		EnabledProtocols:     o.protocols,
		HandshakeTimeout:     o.handshakeTimeout,
		RootCAs:              o.rootCAs,
		ServerName:           o.serverName,
	}
}

func (o *Options) update(fn func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return model.ErrConfigurationFrozen
	}
	fn()
	return nil
}
