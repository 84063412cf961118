package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matst80/linewire/internal/client"
	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/proto"
	"github.com/matst80/linewire/internal/transport"
)

var (
	errRejected     = errors.New("server did not confirm the connection")
	errDisconnected = errors.New("disconnected")
)

func main() {
	flag.Parse()
	if cfg.Debug {
		obs.EnableDebug(true)
	}
	host, port, err := transport.ParseHostPort(cfg.ServerAddr)
	if err != nil {
		obs.Error("config.server", obs.Fields{"err": err.Error()})
		os.Exit(2)
	}

	var tlsConfig *tls.Config
	if cfg.EnableTLS {
		if tlsConfig, err = createClientTLSConfig(&cfg); err != nil {
			obs.Error("tls.config", obs.Fields{"err": err.Error()})
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Options{PollInterval: cfg.PollInterval, ReadTimeout: cfg.ReadTimeout, TLSConfig: tlsConfig})
	var handle transport.ClientHandle
	handle.Init(func() (transport.Client, error) { return c, nil })
	defer handle.Close()
	_ = handle.SetConnectionTimeout(int(cfg.ConnectTimeout / time.Millisecond))

	lines := readLines(os.Stdin)
	for {
		if err := connect(ctx, &handle, host, port); err != nil {
			if ctx.Err() == nil {
				obs.Error("client.connect", obs.Fields{"server": cfg.ServerAddr, "err": err.Error()})
			}
			return
		}
		obs.Info("client.connected", obs.Fields{"server": cfg.ServerAddr})
		err := pump(ctx, c, &handle, lines, os.Stdout)
		if !errors.Is(err, errDisconnected) || !cfg.Reconnect {
			return
		}
		obs.Info("client.reconnecting", obs.Fields{"server": cfg.ServerAddr})
	}
}

// connect retries with exponential backoff until the server confirms. A rejected
// passcode is not retried.
func connect(ctx context.Context, h *transport.ClientHandle, host string, port int) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return backoff.RetryNotify(func() error {
		ok, err := h.Connect(ctx, host, port, cfg.Passcode)
		switch {
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case errors.Is(err, client.ErrClientClosed):
			return backoff.Permanent(err)
		case err != nil:
			return err
		case !ok:
			return backoff.Permanent(errRejected)
		}
		return nil
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		obs.Warn("client.connect.retry", obs.Fields{"err": err.Error(), "wait": wait.String()})
	})
}

// readLines feeds stdin lines to the returned channel, closing it at EOF.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

// pump sends input lines (a blank line ends the message) and prints received messages
// until the connection drops, input ends or ctx is cancelled.
func pump(ctx context.Context, c *client.Client, h *transport.ClientHandle, lines <-chan string, w io.Writer) error {
	t := time.NewTicker(cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return io.EOF
			}
			if strings.TrimSpace(line) == "" {
				line = proto.EndMessage.String()
			}
			if err := h.Send(line); err != nil {
				obs.Warn("client.send", obs.Fields{"err": err.Error()})
			}
		case <-t.C:
			printMessages(h, w)
			if c.State() != client.Connected {
				return errDisconnected
			}
		}
	}
}

func printMessages(h *transport.ClientHandle, w io.Writer) int {
	mb, err := h.MessageBuilder()
	if err != nil || mb == nil {
		return 0
	}
	n := 0
	for mb.HasMore() {
		msg := mb.Next()
		if len(msg) > 0 && proto.Classify(msg[len(msg)-1]) == proto.EndMessage {
			msg = msg[:len(msg)-1]
		}
		fmt.Fprintln(w, strings.Join(msg, "\n"))
		n++
	}
	return n
}
