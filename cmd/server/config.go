package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration derived from flags and an optional YAML file.
type Config struct {
	Listen         string        `yaml:"listen"`
	AdminAddr      string        `yaml:"admin"`
	Passcode       string        `yaml:"passcode"`
	RandomPasscode int           `yaml:"random_passcode"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	MaxFailures    int           `yaml:"max_failures"`
	MaxIdle        int           `yaml:"max_idle"`
	RateLimit      int           `yaml:"rate_limit"`
	HostRateLimit  int           `yaml:"host_rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	RedisPrefix    string        `yaml:"redis_prefix"`
	Echo           bool          `yaml:"echo"`
	Debug          bool          `yaml:"debug"`
	LogLevel       string        `yaml:"log_level"`
	// TLS configuration for mTLS
	EnableTLS   bool   `yaml:"tls"`
	TLSCertFile string `yaml:"tls_cert"`
	TLSKeyFile  string `yaml:"tls_key"`
	TLSCAFile   string `yaml:"tls_ca"`

	ConfigFile string `yaml:"-"`
}

var cfg Config

func init() { registerFlags(flag.CommandLine, &cfg) }

func registerFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.ConfigFile, "config", "", "YAML config file; flags given on the command line override it")
	fs.StringVar(&c.Listen, "listen", ":7000", "address for client connections")
	fs.StringVar(&c.AdminAddr, "admin", ":9100", "metrics, health and admin API listen address")
	fs.StringVar(&c.Passcode, "passcode", "", "passcode clients must present (empty admits everyone)")
	fs.IntVar(&c.RandomPasscode, "random-passcode", 0, "generate a random passcode of this length when -passcode is empty")
	fs.DurationVar(&c.PollInterval, "poll-interval", time.Second, "verifier and poller period")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", 100*time.Millisecond, "per-read deadline on client sockets")
	fs.IntVar(&c.MaxFailures, "max-failures", 300, "verifier cycles before an unverified connection is dropped")
	fs.IntVar(&c.MaxIdle, "max-idle", 300, "poll cycles of silence before a verified client is evicted")
	fs.IntVar(&c.RateLimit, "rate-limit", 0, "accepted connections per second across all hosts (0 = unlimited)")
	fs.IntVar(&c.HostRateLimit, "host-rate-limit", 0, "accepted connections per second per remote host (0 = unlimited)")
	fs.IntVar(&c.RateBurst, "rate-burst", 20, "token bucket capacity per host")
	fs.StringVar(&c.RedisAddr, "redis", "", "redis address for shared presence (empty keeps presence in memory)")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "redis password")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "redis database")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", "linewire", "redis key prefix")
	fs.BoolVar(&c.Echo, "echo", false, "send every complete message back to its sender")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logs")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug, info, warn or error")
	fs.BoolVar(&c.EnableTLS, "tls", false, "serve client connections over TLS")
	fs.StringVar(&c.TLSCertFile, "tls-cert", "", "TLS certificate file path")
	fs.StringVar(&c.TLSKeyFile, "tls-key", "", "TLS private key file path")
	fs.StringVar(&c.TLSCAFile, "tls-ca", "", "TLS CA file for client certificate verification (enables mTLS)")
}

// loadConfig parses args, applies the config file if one is named, then parses args
// again so explicit flags win.
func loadConfig(fs *flag.FlagSet, args []string, c *Config) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.ConfigFile == "" {
		return nil
	}
	b, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", c.ConfigFile, err)
	}
	return fs.Parse(args)
}
