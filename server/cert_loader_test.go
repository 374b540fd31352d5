package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeyPair writes a self-signed certificate for cn into dir.
func writeKeyPair(t *testing.T, dir, cn string) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func commonName(t *testing.T, l *CertLoader) string {
	t.Helper()
	cert, err := l.GetCertificate(nil)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return leaf.Subject.CommonName
}

func TestNewCertLoader(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		certFile, keyFile := writeKeyPair(t, t.TempDir(), "bot-a")
		l, err := NewCertLoader(certFile, keyFile, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, "bot-a", commonName(t, l))

		cfg := l.TLSConfig()
		assert.NotNil(t, cfg.GetCertificate)
	})

	t.Run("missing files", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewCertLoader(filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem"), discardLogger())
		assert.Error(t, err)
	})
}

func TestCertLoader_Reload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "bot-a")

	now := time.Now()
	l, err := NewCertLoader(certFile, keyFile, discardLogger())
	require.NoError(t, err)
	l.now = func() time.Time { return now }
	l.loadedAt = now.Add(-time.Hour)
	l.lastCheck = now

	writeKeyPair(t, dir, "bot-b")

	// Within the check interval the old certificate is kept.
	assert.Equal(t, "bot-a", commonName(t, l))

	now = now.Add(2 * defaultCertCheckInterval)
	assert.Equal(t, "bot-b", commonName(t, l))
}

func TestCertLoader_BadReloadKeepsCertificate(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "bot-a")

	now := time.Now()
	l, err := NewCertLoader(certFile, keyFile, discardLogger())
	require.NoError(t, err)
	l.now = func() time.Time { return now }
	l.loadedAt = now.Add(-time.Hour)

	require.NoError(t, os.WriteFile(certFile, []byte("garbage"), 0o600))
	assert.Equal(t, "bot-a", commonName(t, l))
}
