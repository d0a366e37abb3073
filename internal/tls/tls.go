// Package tls provides the certificate source for the HTTPS API listener:
// PEM files on disk or automatic certificates from Let's Encrypt.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// Options select the certificate source. ACME wins over files when both
// are set.
type Options struct {
	CertFile string
	KeyFile  string

	ACMEEnabled  bool
	ACMEEmail    string
	ACMEDomains  []string
	ACMECacheDir string
}

// Source hands out the TLS configuration for the API listener
type Source struct {
	config *tls.Config
	acme   *autocert.Manager
}

// New builds a source. It returns nil when TLS is not configured.
func New(opts Options) (*Source, error) {
	if opts.ACMEEnabled {
		if len(opts.ACMEDomains) == 0 {
			return nil, errors.New("acme requires at least one domain")
		}
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Email:      opts.ACMEEmail,
			HostPolicy: autocert.HostWhitelist(opts.ACMEDomains...),
			Cache:      autocert.DirCache(opts.ACMECacheDir),
		}
		return &Source{
			acme: m,
			config: &tls.Config{
				GetCertificate: m.GetCertificate,
				MinVersion:     tls.VersionTLS12,
			},
		}, nil
	}

	if opts.CertFile == "" && opts.KeyFile == "" {
		return nil, nil
	}

	cfg, err := LoadCertificate(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, err
	}
	return &Source{config: cfg}, nil
}

// Config returns the listener TLS configuration
func (s *Source) Config() *tls.Config {
	return s.config
}

// ACME reports whether certificates come from Let's Encrypt
func (s *Source) ACME() bool {
	return s.acme != nil
}

// ChallengeHandler answers HTTP-01 challenges and redirects everything
// else to HTTPS
func (s *Source) ChallengeHandler() http.Handler {
	redirect := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := "https://" + r.Host + r.URL.Path
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
	if s.acme == nil {
		return redirect
	}
	return s.acme.HTTPHandler(redirect)
}

// LoadCertificate loads TLS certificate from PEM files
func LoadCertificate(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// CertificateInfo describes a certificate on disk
type CertificateInfo struct {
	Subject  string
	NotAfter time.Time
	DaysLeft int
	DNSNames []string
}

// ReadCertificateInfo reads the first certificate of a PEM file
func ReadCertificateInfo(certFile string) (*CertificateInfo, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &CertificateInfo{
		Subject:  cert.Subject.CommonName,
		NotAfter: cert.NotAfter,
		DaysLeft: int(time.Until(cert.NotAfter).Hours() / 24),
		DNSNames: cert.DNSNames,
	}, nil
}
