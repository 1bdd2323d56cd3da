// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"minignet/config"
	"minignet/internal/core"
	mgerr "minignet/internal/errors"
	"minignet/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X minignet/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// usageOut receives --help and --version output.
var usageOut io.Writer = os.Stderr //nolint:gochecknoglobals

// Execute parses args and runs the appropriate minignet mode.
func Execute(ctx context.Context, args []string) error {
	cfg, inv, err := parse(args)
	if err != nil {
		return err
	}

	switch {
	case inv.help:
		printUsage(inv.fs)
		return nil
	case inv.version:
		fmt.Fprintf(usageOut, "minignet %s\n", version)
		return nil
	case inv.dryRun:
		fmt.Fprintln(usageOut, "configuration OK")
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetFile(cfg.LogFile, cfg.LogMaxSizeMB)
	defer logger.Close()

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// Exit codes: 1 for local and transport failures, 2 when the server
// answered the request with Error.
const (
	exitFailure  = 1
	exitRejected = 2
)

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case mgerr.IsRemote(err):
		return exitRejected
	default:
		return exitFailure
	}
}

// invocation carries the flags that short-circuit a run.
type invocation struct {
	fs      *flag.FlagSet
	help    bool
	version bool
	dryRun  bool
}

// parse turns args into a validated Config.  Help and version requests
// return before any validation.
func parse(args []string) (*config.Config, *invocation, error) {
	cfg := config.Default()
	inv := &invocation{fs: flag.NewFlagSet("minignet", flag.ContinueOnError)}
	fs := inv.fs
	fs.SetOutput(usageOut)

	// ── server ───────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Serve sessions")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Listen port (with -l)")
	fs.StringVar(&cfg.BindHost, "bind", cfg.BindHost, "Bind address (with -l)")
	fs.StringVar(&cfg.AdminAddress, "admin", cfg.AdminAddress, "Serve the admin endpoint on host:port (with -l)")
	fs.Int64Var(&cfg.MaxRequestBytes, "max-request-bytes", cfg.MaxRequestBytes, "Largest accepted request, 0 = unlimited")

	// ── client ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Session, "session", "s", cfg.Session, "Session id")
	fs.StringVarP(&cfg.Gamer, "gamer", "g", cfg.Gamer, "Gamer id")
	fs.DurationVarP(&cfg.Timeout, "timeout", "w", cfg.Timeout, "Per-request timeout, 0 = none")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "Connection timeout")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "First delay of wait-turn / wait-game")
	fs.DurationVar(&cfg.PollMax, "poll-max", cfg.PollMax, "Longest delay of wait-turn / wait-game")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountP("verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolP("quiet", "q", false, "Only print errors")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write JSON logs to this file")
	fs.IntVar(&cfg.LogMaxSizeMB, "log-max-size", cfg.LogMaxSizeMB, "Rotate --log-file at this size (MB)")
	fs.StringVar(&cfg.ConfigFile, "config", "", "YAML config file")

	fs.BoolVar(&inv.version, "version", false, "Print version and exit")
	fs.BoolVarP(&inv.help, "help", "h", false, "Show this help")
	fs.BoolVar(&inv.dryRun, "dry-run", false, "Validate the configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if len(args) == 0 {
		inv.help = true
	}
	if inv.help || inv.version {
		return cfg, inv, nil
	}

	// ── layered configuration ────────────────────────────────────
	if err := overlay(cfg, fs); err != nil {
		return nil, nil, err
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return nil, nil, err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return nil, nil, err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, inv, nil
}

// ── helpers ──────────────────────────────────────────────────────────

// overlay applies the config file and the environment beneath the
// flags already parsed into cfg.  Defaults < file < env < flags.
func overlay(cfg *config.Config, fs *flag.FlagSet) error {
	// Snapshot flag values so the lower layers cannot clobber them.
	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })

	path := cfg.ConfigFile
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return err
	}

	for name, value := range set {
		if name == "verbose" {
			// -v counts up from the normal level.
			n, _ := fs.GetCount("verbose")
			cfg.Verbose = int(util.LogNormal) + n
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	if quiet, _ := fs.GetBool("quiet"); quiet {
		cfg.Verbose = 0
	}
	return nil
}

// parsePositional reads "<host> <port> <command> [args...]" for client
// mode.  The server takes no positional arguments.
func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		if len(remaining) > 0 {
			return fmt.Errorf("unexpected arguments in listen mode: %v", remaining)
		}
		return nil
	}

	if len(remaining) < 1 {
		return fmt.Errorf("hostname required (use --help for usage)")
	}
	cfg.Host = remaining[0]

	if len(remaining) < 2 {
		return fmt.Errorf("port required")
	}
	port, err := strconv.Atoi(remaining[1])
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", remaining[1])
	}
	cfg.Port = port

	if len(remaining) < 3 {
		return fmt.Errorf("command required (use --help for usage)")
	}
	cfg.Command = remaining[2]
	cfg.Args = remaining[3:]
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(usageOut, `minignet – turn-based session server and client v%s

Usage:
  minignet -l [-p <port>] [options]                          Serve sessions
  minignet [options] -s <session> [-g <gamer>] <host> <port> <command> [args]

Commands:
  join | reset | start | end | next          change session state
  turn | on                                  print true/false
  update <payload|->                         record this round's update
  updates                                    print every gamer's latest update
  send <gamer|*> <payload|->                 message one gamer, or all others
  fetch                                      drain this gamer's mailbox
  wait-turn | wait-game                      block until it is true

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(usageOut, `
Examples:
  minignet -l -p 8888 --admin 127.0.0.1:9090             Serve with admin endpoint
  minignet -s chess -g alice localhost 8888 join         Join a session
  minignet -s chess -g alice localhost 8888 wait-turn    Block until alice plays
  echo e2e4 | minignet -s chess -g alice host 8888 update -
  minignet -T ops@bastion -s chess -g bob 10.0.0.5 8888 fetch
`)
}
