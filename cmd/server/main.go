package main

import (
	"context"
	"crypto/tls"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/presence"
	"github.com/matst80/linewire/internal/ratelimit"
	"github.com/matst80/linewire/internal/server"
	"github.com/matst80/linewire/internal/transport"
)

func main() {
	if err := loadConfig(flag.CommandLine, os.Args[1:], &cfg); err != nil {
		obs.Error("config.load", obs.Fields{"err": err.Error()})
		os.Exit(2)
	}
	obs.SetLevel(cfg.LogLevel)
	if cfg.Debug {
		obs.EnableDebug(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := presence.NewStore(ctx, presence.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	})
	if err != nil {
		obs.Error("presence.init", obs.Fields{"err": err.Error(), "addr": cfg.RedisAddr})
		os.Exit(1)
	}
	defer store.Close()

	var tlsConfig *tls.Config
	if cfg.EnableTLS {
		if tlsConfig, err = createServerTLSConfig(&cfg); err != nil {
			obs.Error("tls.config", obs.Fields{"err": err.Error()})
			os.Exit(1)
		}
	}

	srv, err := server.New(ctx, cfg.Listen, server.Options{
		PollInterval: cfg.PollInterval,
		ReadTimeout:  cfg.ReadTimeout,
		MaxFailures:  cfg.MaxFailures,
		MaxIdle:      cfg.MaxIdle,
		TLSConfig:    tlsConfig,
		Limiter:      ratelimit.NewLimiter(cfg.RateLimit, cfg.HostRateLimit, cfg.RateBurst),
		Presence:     store,
	})
	if err != nil {
		obs.Error("listen", obs.Fields{"err": err.Error(), "addr": cfg.Listen})
		os.Exit(1)
	}
	var handle transport.ServerHandle
	handle.Init(func() (transport.Server, error) { return srv, nil })

	switch {
	case cfg.Passcode != "":
		srv.EnablePasscode(cfg.Passcode)
	case cfg.RandomPasscode > 0:
		code := srv.EnableRandomPasscode(cfg.RandomPasscode)
		obs.Info("server.passcode.generated", obs.Fields{"passcode": code})
	}
	srv.EnableAllConnections()

	a := &admin{handle: &handle, srv: srv, store: store}
	httpSrv := &http.Server{Addr: cfg.AdminAddr, Handler: a.routes(), ReadHeaderTimeout: 5 * time.Second}
	go startMetricsServer(httpSrv)
	go runMessageLoop(ctx, srv, cfg.PollInterval, cfg.Echo)

	obs.Info("server.ready", obs.Fields{"listen": srv.Address().String(), "admin": cfg.AdminAddr})
	<-ctx.Done()
	obs.Info("server.shutdown.signal", obs.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if err := handle.Close(); err != nil {
		obs.Error("server.close", obs.Fields{"err": err.Error()})
	}
	obs.Info("server.shutdown.complete", obs.Fields{})
}

// runMessageLoop drains complete messages from every verified peer, logs them and
// optionally echoes them back.
func runMessageLoop(ctx context.Context, srv *server.Server, interval time.Duration, echo bool) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		for _, p := range srv.Clients() {
			drainPeer(p, echo)
		}
	}
}

func drainPeer(p transport.Peer, echo bool) int {
	n := 0
	msgs := p.Messages()
	for msgs.HasMore() {
		msg := msgs.Next()
		n++
		obs.Info("message.received", obs.Fields{"peer": p.ID(), "lines": len(msg), "text": strings.Join(msg, "\n")})
		if !echo {
			continue
		}
		if err := p.Send(msg...); err != nil {
			obs.Warn("message.echo", obs.Fields{"peer": p.ID(), "err": err.Error()})
		}
	}
	return n
}
