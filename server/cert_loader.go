package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// defaultCertCheckInterval limits how often the certificate files are
// stat'ed.
const defaultCertCheckInterval = time.Minute

// CertLoader serves a TLS certificate and reloads it when the files on disk
// change, so renewed certificates are picked up without a restart.
type CertLoader struct {
	certFile   string
	keyFile    string
	logger     *slog.Logger
	checkEvery time.Duration
	now        func() time.Time

	mu        sync.Mutex
	cert      *tls.Certificate
	loadedAt  time.Time
	lastCheck time.Time
}

// NewCertLoader loads the key pair once and returns a loader for it.
func NewCertLoader(certFile, keyFile string, logger *slog.Logger) (*CertLoader, error) {
	l := &CertLoader{
		certFile:   certFile,
		keyFile:    keyFile,
		logger:     logger,
		checkEvery: defaultCertCheckInterval,
		now:        time.Now,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// GetCertificate is a callback for tls.Config.GetCertificate. On a reload
// error the previous certificate keeps being served.
func (l *CertLoader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCheck) < l.checkEvery {
		return l.cert, nil
	}
	l.lastCheck = now

	if !l.changed() {
		return l.cert, nil
	}
	if err := l.load(); err != nil {
		l.logger.Error("failed to reload certificate", "error", err)
	}
	return l.cert, nil
}

// changed reports whether either file was modified after the last load.
func (l *CertLoader) changed() bool {
	for _, path := range []string{l.certFile, l.keyFile} {
		st, err := os.Stat(path)
		if err != nil {
			l.logger.Error("failed to stat certificate file", "path", path, "error", err)
			return false
		}
		if st.ModTime().After(l.loadedAt) {
			return true
		}
	}
	return false
}

// load must be called with mu held, or before the loader is shared.
func (l *CertLoader) load() error {
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return fmt.Errorf("loading key pair: %w", err)
	}
	l.cert = &cert
	l.loadedAt = l.now()
	l.logger.Info("certificate loaded", "cert_file", l.certFile)
	return nil
}

// TLSConfig returns a server TLS configuration backed by the loader.
func (l *CertLoader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: l.GetCertificate,
	}
}
