package core

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"minignet/internal/admin"
	"minignet/internal/game"
	"minignet/internal/metrics"
	"minignet/internal/server"
	"minignet/util"
)

// ServeMode runs the session server and, when AdminAddress is set, the
// admin endpoint beside it.  Either one failing stops both.
type ServeMode struct {
	Address      string
	AdminAddress string // empty disables the admin endpoint
	Options      server.Options
	World        *game.World
	Metrics      *metrics.Collector
	Grace        time.Duration
	Logger       *util.Logger
}

// Run serves until ctx ends or a listener fails, then logs the final
// metrics snapshot.
func (m *ServeMode) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := server.New(m.World, m.Options, m.Metrics, m.Logger)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, m.Address)
	})

	if m.AdminAddress != "" {
		adm := admin.New(m.World, m.Metrics, m.Logger, m.Grace)
		g.Go(func() error {
			return adm.ListenAndServe(gctx, m.AdminAddress)
		})
	}

	err := g.Wait()
	m.Logger.Info("shutting down, %d session(s) in memory", m.World.Len())
	m.Logger.Verbose("final stats:\n%s", m.Metrics.JSON())
	return err
}
