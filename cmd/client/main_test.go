package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/matst80/linewire/internal/client"
	"github.com/matst80/linewire/internal/server"
	"github.com/matst80/linewire/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFlags(t *testing.T) {
	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registerFlags(fs, &c)
	require.NoError(t, fs.Parse([]string{"-server", "10.0.0.1:7001", "-passcode", "pw"}))
	assert.Equal(t, "10.0.0.1:7001", c.ServerAddr)
	assert.Equal(t, "pw", c.Passcode)
	assert.True(t, c.Reconnect)
}

func TestReadLines(t *testing.T) {
	var got []string
	for l := range readLines(strings.NewReader("a\n\nb\n")) {
		got = append(got, l)
	}
	assert.Equal(t, []string{"a", "", "b"}, got)
}

func TestPumpRoundTrip(t *testing.T) {
	cfg.PollInterval = 10 * time.Millisecond
	srv, err := server.New(context.Background(), "127.0.0.1:0", server.Options{PollInterval: 10 * time.Millisecond, ReadTimeout: 5 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	srv.EnableAllConnections()

	c := client.New(client.Options{PollInterval: 10 * time.Millisecond, ReadTimeout: 5 * time.Millisecond})
	var h transport.ClientHandle
	require.True(t, h.Init(func() (transport.Client, error) { return c, nil }))
	t.Cleanup(func() { _ = h.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a := srv.Address()
	require.NoError(t, connect(ctx, &h, a.IP.String(), a.Port))

	lines := make(chan string, 3)
	lines <- "hi"
	lines <- ""
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- pump(ctx, c, &h, lines, &out) }()

	require.Eventually(t, func() bool {
		peers := srv.Clients()
		if len(peers) != 1 || !peers[0].Messages().HasMore() {
			return false
		}
		msg := peers[0].Messages().Next()
		_ = peers[0].Send(msg...)
		return true
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	close(lines)
	require.ErrorIs(t, <-done, io.EOF)
	assert.Equal(t, "hi\n", out.String())
}
