package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matst80/linewire/internal/obs"
)

// MaxLineLen is the largest line the 2-byte length prefix can carry.
const MaxLineLen = math.MaxUint16

var ErrLineTooLong = errors.New("line exceeds 65535 bytes")

// Conn is a connection handle speaking the line protocol: every line is a 2-byte
// big-endian length followed by UTF-8 text. Received bytes are buffered, so a read that
// times out halfway through a frame picks up where it left off on the next call.
type Conn struct {
	net.Conn

	rmu     sync.Mutex
	buf     []byte
	scratch []byte

	wmu          sync.Mutex
	writeTimeout time.Duration
}

// NewConn wraps c. A zero writeTimeout means writes never time out.
func NewConn(c net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{Conn: c, scratch: make([]byte, 4096), writeTimeout: writeTimeout}
}

// ReadLine returns the next complete line, waiting at most timeout for it to arrive.
// A zero timeout blocks until a line or an error arrives.
func (c *Conn) ReadLine(timeout time.Duration) (string, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	if line, ok := c.popLine(); ok {
		return line, nil
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.Conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}
	for {
		n, err := c.Conn.Read(c.scratch)
		c.buf = append(c.buf, c.scratch[:n]...)
		if line, ok := c.popLine(); ok {
			return line, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func (c *Conn) popLine() (string, bool) {
	if len(c.buf) < 2 {
		return "", false
	}
	n := int(binary.BigEndian.Uint16(c.buf))
	if len(c.buf) < 2+n {
		return "", false
	}
	line := string(c.buf[2 : 2+n])
	c.buf = append(c.buf[:0], c.buf[2+n:]...)
	return line, true
}

// WriteLines frames and writes lines in order with a single write.
func (c *Conn) WriteLines(lines ...string) error {
	size := 0
	for _, l := range lines {
		if len(l) > MaxLineLen {
			return fmt.Errorf("write %d bytes: %w", len(l), ErrLineTooLong)
		}
		size += 2 + len(l)
	}
	out := make([]byte, 0, size)
	for _, l := range lines {
		out = binary.BigEndian.AppendUint16(out, uint16(len(l)))
		out = append(out, l...)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.Conn.Write(out)
	return err
}

// Notify sends a sentinel line, ignoring failures. Used on teardown paths.
func (c *Conn) Notify(k Kind) {
	if err := c.WriteLines(k.String()); err != nil {
		obs.Debug("conn.notify", obs.Fields{"kind": k.Name(), "remote": c.RemoteHost(), "err": err.Error()})
	}
}

// ForceClose closes the socket, retrying until the close succeeds. A socket that is
// already closed counts as closed.
func (c *Conn) ForceClose() {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	_ = backoff.RetryNotify(func() error {
		err := c.Conn.Close()
		if err == nil || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	}, b, func(err error, wait time.Duration) {
		obs.Error("conn.close.retry", obs.Fields{"remote": c.RemoteHost(), "err": err.Error(), "wait": wait.String()})
	})
}

// RemoteHost is the remote IP without the port, or the full address if it has none.
func (c *Conn) RemoteHost() string {
	addr := c.Conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// IsTimeout reports whether err came from an expired read or write deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
