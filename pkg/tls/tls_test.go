// SPDX-License-Identifier: Apache-2.0

package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func Test_NewConfig(t *testing.T) {
	t.Parallel()

	testCert := newTestCertificate(t)

	systemCAs, err := x509.SystemCertPool()
	require.NoError(t, err)

	testCertPool := x509.NewCertPool()
	require.True(t, testCertPool.AppendCertsFromPEM(testCert.certPEM))

	testClientKeyPair, err := tls.X509KeyPair(testCert.certPEM, testCert.keyPEM)
	require.NoError(t, err)

	doesNotExist := filepath.Join(t.TempDir(), "doesnotexist.pem")

	tests := []struct {
		name string
		cfg  *Config

		wantConfig *tls.Config
		wantErr    error
	}{
		{
			name: "ok - nil config",
			cfg:  nil,

			wantConfig: nil,
		},
		{
			name: "ok - tls not enabled",
			cfg: &Config{
				Enabled:    false,
				CaCertFile: testCert.certFile,
			},

			wantConfig: nil,
		},
		{
			name: "ok - tls enabled no certificates",
			cfg: &Config{
				Enabled: true,
			},

			wantConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				RootCAs:    systemCAs,
			},
		},
		{
			name: "ok - CA certificate file",
			cfg: &Config{
				Enabled:    true,
				CaCertFile: testCert.certFile,
			},

			wantConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				RootCAs:    testCertPool,
			},
		},
		{
			name: "ok - CA certificate PEM",
			cfg: &Config{
				Enabled:   true,
				CaCertPEM: string(testCert.certPEM),
			},

			wantConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				RootCAs:    testCertPool,
			},
		},
		{
			name: "ok - client certificate files",
			cfg: &Config{
				Enabled:        true,
				ClientCertFile: testCert.certFile,
				ClientKeyFile:  testCert.keyFile,
			},

			wantConfig: &tls.Config{
				MinVersion:   tls.VersionTLS12,
				RootCAs:      systemCAs,
				Certificates: []tls.Certificate{testClientKeyPair},
			},
		},
		{
			name: "ok - CA file and client certificate PEMs",
			cfg: &Config{
				Enabled:       true,
				CaCertFile:    testCert.certFile,
				ClientCertPEM: string(testCert.certPEM),
				ClientKeyPEM:  string(testCert.keyPEM),
			},

			wantConfig: &tls.Config{
				MinVersion:   tls.VersionTLS12,
				RootCAs:      testCertPool,
				Certificates: []tls.Certificate{testClientKeyPair},
			},
		},
		{
			name: "error - CA certificate file not found",
			cfg: &Config{
				Enabled:    true,
				CaCertFile: doesNotExist,
			},

			wantErr: os.ErrNotExist,
		},
		{
			name: "error - CA PEM without certificates",
			cfg: &Config{
				Enabled:   true,
				CaCertPEM: "not a certificate",
			},

			wantErr: errNoCACertificates,
		},
		{
			name: "error - client certificate without key",
			cfg: &Config{
				Enabled:        true,
				ClientCertFile: testCert.certFile,
			},

			wantErr: errIncompleteClientCert,
		},
		{
			name: "error - client certificate file not found",
			cfg: &Config{
				Enabled:        true,
				ClientCertFile: doesNotExist,
				ClientKeyFile:  testCert.keyFile,
			},

			wantErr: os.ErrNotExist,
		},
		{
			name: "error - client key file not found",
			cfg: &Config{
				Enabled:        true,
				ClientCertFile: testCert.certFile,
				ClientKeyFile:  doesNotExist,
			},

			wantErr: os.ErrNotExist,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tlsCfg, err := NewConfig(tc.cfg)
			require.ErrorIs(t, err, tc.wantErr)
			require.Empty(t, cmp.Diff(tc.wantConfig, tlsCfg, cmpopts.IgnoreUnexported(tls.Config{}))) //nolint:gosec
		})
	}
}

func Test_NewConfig_invalidKeyPair(t *testing.T) {
	t.Parallel()

	testCert := newTestCertificate(t)

	// the certificate is not a valid private key
	_, err := NewConfig(&Config{
		Enabled:        true,
		ClientCertFile: testCert.certFile,
		ClientKeyFile:  testCert.certFile,
	})
	require.Error(t, err)
	require.ErrorContains(t, err, "loading client key pair")
}

func Test_pemSource_read(t *testing.T) {
	t.Parallel()

	testCert := newTestCertificate(t)

	tests := []struct {
		name   string
		source pemSource

		wantBytes []byte
	}{
		{
			name:      "with file",
			source:    pemSource{file: testCert.certFile},
			wantBytes: testCert.certPEM,
		},
		{
			name:      "with content",
			source:    pemSource{content: string(testCert.certPEM)},
			wantBytes: testCert.certPEM,
		},
		{
			name:      "file takes precedence",
			source:    pemSource{file: testCert.keyFile, content: string(testCert.certPEM)},
			wantBytes: testCert.keyPEM,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			pemBytes, err := tc.source.read()
			require.NoError(t, err)
			require.Equal(t, tc.wantBytes, pemBytes)
		})
	}
}

type testCertificate struct {
	certFile string
	keyFile  string
	certPEM  []byte
	keyPEM   []byte
}

// newTestCertificate generates a self signed certificate and writes it, along
// with its key, to a temporary directory.
func newTestCertificate(t *testing.T) testCertificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "eventpipe-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	tc := testCertificate{
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}

	dir := t.TempDir()
	tc.certFile = filepath.Join(dir, "test.pem")
	tc.keyFile = filepath.Join(dir, "test.key")
	require.NoError(t, os.WriteFile(tc.certFile, tc.certPEM, 0o600))
	require.NoError(t, os.WriteFile(tc.keyFile, tc.keyPEM, 0o600))

	return tc
}
