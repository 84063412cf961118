package main

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/transport"
)

// createServerTLSConfig builds the listener TLS configuration. Naming a CA file makes
// client certificates mandatory (mTLS).
func createServerTLSConfig(cfg *Config) (*tls.Config, error) {
	if cfg.TLSCertFile == "" || cfg.TLSKeyFile == "" {
		return nil, errors.New("-tls needs both -tls-cert and -tls-key")
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server key pair: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.TLSCAFile == "" {
		return tlsConfig, nil
	}

	pool, err := transport.LoadCertPool(cfg.TLSCAFile)
	if err != nil {
		return nil, err
	}
	tlsConfig.ClientCAs = pool
	tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	obs.Info("tls.mtls_enabled", obs.Fields{"ca_file": cfg.TLSCAFile})
	return tlsConfig, nil
}
