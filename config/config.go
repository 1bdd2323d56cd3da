// Package config defines the runtime configuration for minignet and
// provides helpers for parsing tunnel specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	mgerr "minignet/internal/errors"
	"minignet/util"
)

// Config holds every tuneable for one minignet process, server or client.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Listen          bool          `yaml:"listen" env:"LISTEN"`
	Port            int           `yaml:"port" env:"PORT"`
	BindHost        string        `yaml:"bind_host" env:"BIND_HOST"`
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT"` // per connection, 0 = none
	MaxRequestBytes int64         `yaml:"max_request_bytes" env:"MAX_REQUEST_BYTES"`
	AdminAddress    string        `yaml:"admin_address" env:"ADMIN_ADDRESS"` // empty = disabled

	// ── Client ───────────────────────────────────────────────────────
	Host         string        `yaml:"host" env:"HOST"`
	Session      string        `yaml:"session" env:"SESSION"`
	Gamer        string        `yaml:"gamer" env:"GAMER"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	PollMax      time.Duration `yaml:"poll_max" env:"POLL_MAX"`
	Command      string        `yaml:"-"`
	Args         []string      `yaml:"-"`

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string `yaml:"tunnel" env:"TUNNEL"` // raw user@host[:port] from -T
	TunnelEnabled  bool   `yaml:"-"`
	TunnelUser     string `yaml:"-"`
	TunnelHost     string `yaml:"-"`
	TunnelPort     int    `yaml:"-"`
	SSHKeyPath     string `yaml:"ssh_key" env:"SSH_KEY"`
	SSHPassword    bool   `yaml:"ssh_password" env:"SSH_PASSWORD"` // true → prompt interactively
	UseSSHAgent    bool   `yaml:"ssh_agent" env:"SSH_AGENT"`
	StrictHostKey  bool   `yaml:"strict_hostkey" env:"STRICT_HOSTKEY"`
	KnownHostsPath string `yaml:"known_hosts" env:"KNOWN_HOSTS"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose      int    `yaml:"verbose" env:"VERBOSE"`
	LogFile      string `yaml:"log_file" env:"LOG_FILE"`
	LogMaxSizeMB int    `yaml:"log_max_size_mb" env:"LOG_MAX_SIZE_MB"`
	ConfigFile   string `yaml:"-" env:"CONFIG"`
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Port:            DefaultPort,
		MaxRequestBytes: DefaultMaxRequestBytes,
		DialTimeout:     DefaultDialTimeout,
		PollInterval:    DefaultPollInterval,
		PollMax:         DefaultPollMax,
		LogMaxSizeMB:    DefaultLogMaxSizeMB,
		Verbose:         1,
	}
}

// ListenAddress is the address the server binds.
func (c *Config) ListenAddress() string {
	return util.FormatAddr(c.BindHost, c.Port)
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the Tunnel* fields.  An empty
// spec disables the tunnel.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &mgerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &mgerr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 0-65535"}
	}
	if c.MaxRequestBytes < 0 {
		return &mgerr.ConfigError{Field: "max-request-bytes", Value: c.MaxRequestBytes, Message: "must not be negative"}
	}
	if c.Timeout < 0 {
		return &mgerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}

	if c.Listen {
		if c.TunnelEnabled {
			return &mgerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "cannot be combined with -l",
				Hint:    "the tunnel carries client requests; run the server on the gateway side instead",
			}
		}
		return nil
	}

	if c.AdminAddress != "" {
		return &mgerr.ConfigError{Field: "admin", Value: c.AdminAddress, Message: "only valid with -l"}
	}
	if c.Host == "" {
		return &mgerr.ConfigError{Field: "host", Message: "hostname is required", Hint: "use --help for usage"}
	}
	if c.Port == 0 {
		return &mgerr.ConfigError{Field: "port", Message: "destination port is required"}
	}
	if c.Command == "" {
		return &mgerr.ConfigError{Field: "command", Message: "a command is required", Hint: "one of " + commandList()}
	}
	if _, ok := Commands[c.Command]; !ok {
		return &mgerr.ConfigError{Field: "command", Value: c.Command, Message: "unknown command", Hint: "one of " + commandList()}
	}
	if want := Commands[c.Command]; len(c.Args) != want {
		return &mgerr.ConfigError{
			Field:   "command",
			Value:   c.Command,
			Message: fmt.Sprintf("takes %d argument(s), got %d", want, len(c.Args)),
		}
	}
	if c.Session == "" {
		return &mgerr.ConfigError{Field: "session", Message: "a session id is required", Hint: "pass -s <session>"}
	}
	if c.Gamer == "" && needsGamer[c.Command] {
		return &mgerr.ConfigError{Field: "gamer", Message: "a gamer id is required for " + c.Command, Hint: "pass -g <gamer>"}
	}
	if c.PollInterval <= 0 {
		return &mgerr.ConfigError{Field: "poll-interval", Value: c.PollInterval, Message: "must be positive"}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &mgerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	return nil
}
