package main

import (
	"flag"
	"time"
)

// Config holds client runtime configuration.
type Config struct {
	ServerAddr     string
	Passcode       string
	ConnectTimeout time.Duration
	PollInterval   time.Duration
	ReadTimeout    time.Duration
	Reconnect      bool
	Debug          bool
	// TLS
	EnableTLS     bool
	TLSCAFile     string
	TLSCertFile   string
	TLSKeyFile    string
	TLSServerName string
}

var cfg Config

func init() { registerFlags(flag.CommandLine, &cfg) }

func registerFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.ServerAddr, "server", "127.0.0.1:7000", "server address")
	fs.StringVar(&c.Passcode, "passcode", "", "passcode to present to the server")
	fs.DurationVar(&c.ConnectTimeout, "connect-timeout", 0, "how long to wait for confirmation (0 = 5m)")
	fs.DurationVar(&c.PollInterval, "poll-interval", time.Second, "verifier and poller period")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", 100*time.Millisecond, "per-read deadline")
	fs.BoolVar(&c.Reconnect, "reconnect", true, "reconnect after the server drops the connection")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logs")
	fs.BoolVar(&c.EnableTLS, "tls", false, "connect over TLS")
	fs.StringVar(&c.TLSCAFile, "tls-ca", "", "CA file used to verify the server")
	fs.StringVar(&c.TLSCertFile, "tls-cert", "", "client certificate for mTLS")
	fs.StringVar(&c.TLSKeyFile, "tls-key", "", "client key for mTLS")
	fs.StringVar(&c.TLSServerName, "tls-server-name", "", "server name to verify (defaults to the host of -server)")
}
