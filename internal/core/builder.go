package core

import (
	"fmt"

	"minignet/client"
	"minignet/config"
	"minignet/internal/game"
	"minignet/internal/metrics"
	"minignet/internal/server"
	"minignet/internal/transport"
	"minignet/util"
)

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Listen {
		return buildServe(cfg, logger), nil
	}
	return buildRequest(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger) *ServeMode {
	return &ServeMode{
		Address:      cfg.ListenAddress(),
		AdminAddress: cfg.AdminAddress,
		Options: server.Options{
			Timeout:         cfg.Timeout,
			MaxRequestBytes: cfg.MaxRequestBytes,
		},
		World:   game.NewWorld(logger),
		Metrics: metrics.New(),
		Grace:   config.DefaultGracePeriod,
		Logger:  logger,
	}
}

func buildRequest(cfg *config.Config, logger *util.Logger) (*RequestMode, error) {
	if _, ok := config.Commands[cfg.Command]; !ok {
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	address := util.FormatAddr(cfg.Host, cfg.Port)
	c := client.New(address, cfg.Session, cfg.Gamer,
		client.WithDialer(transport.FromConfig(cfg, logger)),
		client.WithTimeout(cfg.Timeout),
		client.WithPolling(cfg.PollInterval, cfg.PollMax),
		client.WithLogger(logger),
	)

	return &RequestMode{
		Client:  c,
		Command: cfg.Command,
		Args:    cfg.Args,
		Logger:  logger,
	}, nil
}
