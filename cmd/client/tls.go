package main

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/matst80/linewire/internal/transport"
)

// createClientTLSConfig builds the dialing TLS configuration, adding a client
// certificate when -tls-cert and -tls-key are given.
func createClientTLSConfig(cfg *Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		ServerName: cfg.TLSServerName,
		MinVersion: tls.VersionTLS12,
	}
	if cfg.TLSCAFile != "" {
		pool, err := transport.LoadCertPool(cfg.TLSCAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	switch {
	case cfg.TLSCertFile == "" && cfg.TLSKeyFile == "":
	case cfg.TLSCertFile == "" || cfg.TLSKeyFile == "":
		return nil, errors.New("-tls-cert and -tls-key must be given together")
	default:
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
