package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/matst80/linewire/internal/tlstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddressPortRange(t *testing.T) {
	for _, port := range []int{0, 1, 8080, 65535} {
		_, err := NewAddress(net.IPv4(127, 0, 0, 1), port)
		assert.NoError(t, err, port)
	}
	for _, port := range []int{-1, 65536, 1 << 20} {
		_, err := NewAddress(net.IPv4(127, 0, 0, 1), port)
		assert.Error(t, err, port)
	}
}

func TestParseHostPort(t *testing.T) {
	host, port, err := ParseHostPort("example.com:9000")
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, 9000, port)

	host, port, err = ParseHostPort("[::1]:7")
	require.NoError(t, err)
	assert.Equal(t, "::1", host)
	assert.Equal(t, 7, port)

	for _, bad := range []string{"example.com", "host:port", "host:70000", "a:b:c"} {
		_, _, err := ParseHostPort(bad)
		assert.Error(t, err, bad)
	}
}

func TestAddressOfLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	a, err := AddressOf(ln.Addr())
	require.NoError(t, err)
	assert.True(t, a.IP.IsLoopback())
	assert.Equal(t, ln.Addr().(*net.TCPAddr).Port, a.Port)
	assert.Equal(t, ln.Addr().String(), a.String())
}

type fakeServer struct {
	passcode string
	closed   bool
	allOn    bool
}

func (f *fakeServer) Address() Address { return Address{IP: net.IPv4(10, 0, 0, 1), Port: 1} }
func (f *fakeServer) Clients() []Peer { return nil }
func (f *fakeServer) EnablePasscode(code string) string { f.passcode = code; return code }
func (f *fakeServer) EnableRandomPasscode(int) string { f.passcode = "RANDOM"; return f.passcode }
func (f *fakeServer) DisablePasscode() { f.passcode = "" }
func (f *fakeServer) EnableNewConnections() {}
func (f *fakeServer) DisableNewConnections() {}
func (f *fakeServer) EnableAllConnections() { f.allOn = true }
func (f *fakeServer) DisableAllConnections() { f.allOn = false }
func (f *fakeServer) CloseAllConnections() {}
func (f *fakeServer) Close() error { f.closed = true; return nil }

func TestServerHandleBeforeInit(t *testing.T) {
	var h ServerHandle
	assert.False(t, h.Exists())
	_, err := h.EnablePasscode("x")
	assert.True(t, errors.Is(err, ErrNotInitialized))
	assert.ErrorIs(t, h.EnableAllConnections(), ErrNotInitialized)
	assert.ErrorIs(t, h.Close(), ErrNotInitialized)
}

func TestServerHandleInit(t *testing.T) {
	var h ServerHandle
	assert.False(t, h.Init(nil))
	assert.False(t, h.Init(func() (Server, error) { return nil, nil }))
	assert.False(t, h.Init(func() (Server, error) { return nil, errors.New("boom") }))
	assert.False(t, h.Init(func() (Server, error) {
		var typed *fakeServer
		return typed, nil
	}))
	assert.False(t, h.Exists())

	fs := &fakeServer{}
	require.True(t, h.Init(func() (Server, error) { return fs, nil }))
	assert.True(t, h.Exists())

	code, err := h.EnablePasscode("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
	require.NoError(t, h.EnableAllConnections())
	assert.True(t, fs.allOn)
	require.NoError(t, h.Close())
	assert.True(t, fs.closed)
}

func TestClientHandleBeforeInit(t *testing.T) {
	var h ClientHandle
	ok, err := h.Connect(context.Background(), "127.0.0.1", 1, "")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, h.Send("x"), ErrNotInitialized)
	assert.ErrorIs(t, h.SetConnectionTimeout(5), ErrNotInitialized)
	_, err = h.MessageBuilder()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

type fakeClient struct {
	sent []string
}

func (f *fakeClient) Send(lines ...string) error     { f.sent = append(f.sent, lines...); return nil }
func (f *fakeClient) MessageBuilder() MessageBuilder { return nil }
func (f *fakeClient) SetConnectionTimeout(int)       {}
func (f *fakeClient) Close() error                   { return nil }

func (f *fakeClient) Connect(context.Context, string, int, string) (bool, error) {
	return true, nil
}

func TestClientHandleInit(t *testing.T) {
	var h ClientHandle
	assert.False(t, h.Init(nil))
	assert.False(t, h.Init(func() (Client, error) {
		var typed *fakeClient
		return typed, nil
	}))
	assert.False(t, h.Exists())

	fc := &fakeClient{}
	require.True(t, h.Init(func() (Client, error) { return fc, nil }))
	ok, err := h.Connect(context.Background(), "127.0.0.1", 1, "")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, h.Send("a", "b"))
	assert.Equal(t, []string{"a", "b"}, fc.sent)
}

func TestLoadCertPool(t *testing.T) {
	f := tlstest.Generate(t)
	pool, err := LoadCertPool(f.CA)
	require.NoError(t, err)
	assert.NotNil(t, pool)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))
	_, err = LoadCertPool(garbage)
	assert.Error(t, err)
	_, err = LoadCertPool(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}
