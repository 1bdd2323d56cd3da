package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"minignet/tunnel"
	"minignet/util"
)

// SSHDialer routes connections through an SSH tunnel.  The tunnel is
// connected lazily on the first Dial, re-established on the next Dial
// after the gateway drops it, and torn down on Close.
type SSHDialer struct {
	tunnel tunnel.Tunnel
	config *tunnel.SSHConfig
	logger *util.Logger
	mu     sync.Mutex
	ready  bool
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH tunnel.  The tunnel is not connected until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &SSHDialer{
		tunnel: tunnel.NewSSHTunnel(cfg, logger),
		config: cfg,
		logger: logger,
	}
}

// connect establishes the SSH tunnel unless a live one exists.
func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ready && d.tunnel.IsAlive() {
		return nil
	}
	if d.ready {
		d.logger.Warn("SSH tunnel to %s lost, reconnecting", d.config.Addr())
	}

	d.logger.Verbose("establishing SSH tunnel to %s@%s", d.config.User, d.config.Addr())

	if err := d.tunnel.Connect(ctx); err != nil {
		d.ready = false
		return fmt.Errorf("tunnel: %w", err)
	}

	d.ready = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial connects to address through the SSH tunnel.  address is resolved
// by the gateway, so "localhost" means the gateway host itself.
func (d *SSHDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	return d.tunnel.Dial(ctx, address)
}

// Close tears down the underlying SSH tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ready {
		d.ready = false
		return d.tunnel.Close()
	}
	return nil
}
