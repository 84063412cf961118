package main

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/matst80/linewire/internal/tlstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTLSConfigHandshake(t *testing.T) {
	f := tlstest.Generate(t)
	conf, err := createClientTLSConfig(&Config{TLSCAFile: f.CA, TLSCertFile: f.Cert, TLSKeyFile: f.Key, TLSServerName: "localhost"})
	require.NoError(t, err)
	assert.NotNil(t, conf.RootCAs)
	assert.Len(t, conf.Certificates, 1)
	assert.Equal(t, "localhost", conf.ServerName)

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{f.Leaf}})
	require.NoError(t, err)
	defer ln.Close()
	accepted := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			accepted <- err
			return
		}
		defer c.Close()
		accepted <- c.(*tls.Conn).Handshake()
	}()

	conn, err := tls.Dial("tcp", ln.Addr().String(), conf)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, <-accepted)
}

func TestClientTLSConfigErrors(t *testing.T) {
	f := tlstest.Generate(t)
	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))

	cases := map[string]Config{
		"cert without key": {TLSCertFile: f.Cert},
		"key without cert": {TLSKeyFile: f.Key},
		"garbage CA":       {TLSCAFile: garbage},
	}
	for name, c := range cases {
		_, err := createClientTLSConfig(&c)
		assert.Error(t, err, name)
	}

	conf, err := createClientTLSConfig(&Config{})
	require.NoError(t, err)
	assert.Nil(t, conf.RootCAs)
	assert.Empty(t, conf.Certificates)
}
