// Package transport provides the ways a minignet client reaches the
// server: a plain TCP dial, or a dial forwarded through an SSH gateway.
// Each request opens its own connection; what travels over it is the
// protocol package's concern.
package transport

import (
	"context"
	"net"

	"minignet/config"
	"minignet/tunnel"
	"minignet/util"
)

// Dialer opens one connection per request.  Returned connections must
// support half-close (CloseWrite), which marks the end of a request.
type Dialer interface {
	// Dial establishes a connection to the server at address.
	Dial(ctx context.Context, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// FromConfig returns the dialer cfg asks for: SSH-tunnelled when a
// tunnel is configured, plain TCP otherwise.
func FromConfig(cfg *config.Config, logger *util.Logger) Dialer {
	if !cfg.TunnelEnabled {
		return &TCPDialer{Timeout: cfg.DialTimeout}
	}
	return NewSSHDialer(&tunnel.SSHConfig{
		User:          cfg.TunnelUser,
		Host:          cfg.TunnelHost,
		Port:          cfg.TunnelPort,
		KeyPath:       cfg.SSHKeyPath,
		PromptPass:    cfg.SSHPassword,
		UseAgent:      cfg.UseSSHAgent,
		StrictHostKey: cfg.StrictHostKey,
		KnownHosts:    cfg.KnownHostsPath,
		ConnTimeout:   cfg.DialTimeout,
	}, logger)
}
