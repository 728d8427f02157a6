// SPDX-License-Identifier: Apache-2.0

package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Config holds the TLS settings used to connect to the brokers. Every PEM
// value can be provided either as a file path or as the PEM content, the file
// taking precedence.
type Config struct {
	// Enabled determines if TLS should be used. Defaults to false.
	Enabled bool
	// CA certificate used to verify the server. The system certificate pool
	// is used when none is provided.
	CaCertFile string
	CaCertPEM  string
	// Client certificate and key, for mutual TLS. They must be provided
	// together.
	ClientCertFile string
	ClientCertPEM  string
	ClientKeyFile  string
	ClientKeyPEM   string
}

var (
	errIncompleteClientCert = errors.New("client certificate and client key must be provided together")
	errNoCACertificates     = errors.New("no valid certificate found in the CA PEM")
)

// NewConfig returns the crypto/tls configuration for the settings on input,
// or nil if TLS is not enabled.
func NewConfig(cfg *Config) (*tls.Config, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	rootCAs, err := cfg.rootCAs()
	if err != nil {
		return nil, err
	}

	certificates, err := cfg.clientCertificates()
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		RootCAs:      rootCAs,
		Certificates: certificates,
	}, nil
}

func (c *Config) rootCAs() (*x509.CertPool, error) {
	caPEM, err := pemSource{file: c.CaCertFile, content: c.CaCertPEM}.read()
	if err != nil {
		return nil, fmt.Errorf("reading CA certificate: %w", err)
	}

	if len(caPEM) == 0 {
		return x509.SystemCertPool()
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, errNoCACertificates
	}
	return pool, nil
}

func (c *Config) clientCertificates() ([]tls.Certificate, error) {
	cert := pemSource{file: c.ClientCertFile, content: c.ClientCertPEM}
	key := pemSource{file: c.ClientKeyFile, content: c.ClientKeyPEM}

	switch {
	case cert.isEmpty() && key.isEmpty():
		return nil, nil
	case cert.isEmpty() || key.isEmpty():
		return nil, errIncompleteClientCert
	}

	certPEM, err := cert.read()
	if err != nil {
		return nil, fmt.Errorf("reading client certificate: %w", err)
	}
	keyPEM, err := key.read()
	if err != nil {
		return nil, fmt.Errorf("reading client key: %w", err)
	}

	keyPair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("loading client key pair: %w", err)
	}
	return []tls.Certificate{keyPair}, nil
}

// pemSource is a PEM value given either as a file path or as content.
type pemSource struct {
	file    string
	content string
}

func (s pemSource) isEmpty() bool {
	return s.file == "" && s.content == ""
}

func (s pemSource) read() ([]byte, error) {
	if s.file != "" {
		return os.ReadFile(s.file)
	}
	return []byte(s.content), nil
}
