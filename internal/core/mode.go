// Package core is the orchestration layer.  It composes the server,
// the admin endpoint and the client into complete operational modes
// and provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	protocol → game → server/admin  ┐
//	transport → client              ┴→  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of minignet: serving
// sessions, or running one client command against a server.  Each
// mode owns its full lifecycle from setup to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
