// Package tunnel carries minignet requests through an SSH gateway, for
// servers that are only reachable from behind a bastion host.
//
// Every forwarded connection is an SSH direct-tcpip channel.  Channels
// support CloseWrite, so the half-close framing of the wire protocol
// works unchanged through the tunnel.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts an encrypted channel through which TCP connections
// can be forwarded.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address, as seen from the gateway.
	Dial(ctx context.Context, address string) (net.Conn, error)

	// Close tears down the tunnel and frees resources.
	Close() error

	// IsAlive reports whether the underlying connection is still up.
	IsAlive() bool
}
