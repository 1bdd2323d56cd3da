package config

import (
	"sort"
	"strings"
	"time"
)

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultPort is the server's listen port.
	DefaultPort = 8888

	// DefaultMaxRequestBytes caps a single request frame.
	DefaultMaxRequestBytes int64 = 1 << 20

	// DefaultDialTimeout bounds one client connection attempt.
	DefaultDialTimeout = 10 * time.Second

	// DefaultPollInterval is the first delay of the wait-turn and
	// wait-game loops.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultPollMax caps the backoff between polls.
	DefaultPollMax = 5 * time.Second

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultLogMaxSizeMB is the rotation threshold of --log-file.
	DefaultLogMaxSizeMB = 50

	// DefaultGracePeriod is how long shutdown waits for the admin
	// endpoint to drain.
	DefaultGracePeriod = 5 * time.Second

	// EnvPrefix prefixes every supported environment variable.
	EnvPrefix = "MINIGNET_"
)

// Commands maps every client command to its number of positional
// arguments.
var Commands = map[string]int{
	"join":      0,
	"reset":     0,
	"start":     0,
	"end":       0,
	"turn":      0,
	"on":        0,
	"next":      0,
	"update":    1,
	"updates":   0,
	"send":      2,
	"fetch":     0,
	"wait-turn": 0,
	"wait-game": 0,
}

// needsGamer lists commands that act on behalf of a gamer.
var needsGamer = map[string]bool{
	"join":      true,
	"turn":      true,
	"update":    true,
	"send":      true,
	"fetch":     true,
	"wait-turn": true,
}

func commandList() string {
	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
