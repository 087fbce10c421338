package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HobanSearch/Tonsurance-sub007/internal/bridgewatch"
	"github.com/HobanSearch/Tonsurance-sub007/internal/claims"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/hedge"
	"github.com/HobanSearch/Tonsurance-sub007/internal/monitor"
	"github.com/HobanSearch/Tonsurance-sub007/internal/oracle"
	"github.com/HobanSearch/Tonsurance-sub007/internal/platform/allianz"
	"github.com/HobanSearch/Tonsurance-sub007/internal/platform/binance"
	"github.com/HobanSearch/Tonsurance-sub007/internal/platform/hyperliquid"
	"github.com/HobanSearch/Tonsurance-sub007/internal/platform/polymarket"
	"github.com/HobanSearch/Tonsurance-sub007/internal/risk"
	"github.com/HobanSearch/Tonsurance-sub007/internal/server"
	"github.com/HobanSearch/Tonsurance-sub007/internal/server/handler"
	"github.com/HobanSearch/Tonsurance-sub007/internal/server/ws"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
	"github.com/HobanSearch/Tonsurance-sub007/internal/tranche"
)

// runtime holds the in-process collaborators shared by the modes: the capital
// pool, derived state, WebSocket hub, and the domain services built on them.
type runtime struct {
	pool    *state.Pool
	st      *state.State
	hub     *ws.Hub
	tracker *tranche.Tracker
	oracle  *oracle.Client
	bridges *bridgewatch.Monitor
	riskMon *risk.Calculator
	venues  map[domain.Venue]domain.VenueAdapter
	costs   *hedge.CostFetcher
	hedger  *hedge.Orchestrator
}

// buildRuntime seeds the pool, replays persisted policies into it, and
// constructs the shared services. The hedge orchestrator is only built when a
// position store is available.
func (a *App) buildRuntime(ctx context.Context, deps *Dependencies) (*runtime, error) {
	pool := state.NewPool(a.cfg.Pool.InitialCapitalCents)

	if deps.Policies != nil {
		active, err := deps.Policies.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: replay policies: %w", err)
		}
		for _, p := range active {
			if err := pool.AddPolicy(p); err != nil {
				a.logger.Warn("skipping persisted policy on replay",
					slog.Int64("policy_id", p.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		a.logger.Info("replayed persisted policies", slog.Int("count", len(active)))
	}

	st := state.New(pool)
	hub := ws.NewHub(a.logger)
	tracker := tranche.NewTracker(pool)
	oracleClient := oracle.NewClient(a.cfg.Oracle, deps.PriceCache, a.logger)
	bridges := bridgewatch.NewMonitor(a.cfg.Bridges, a.logger)
	riskMon := risk.NewCalculator(risk.DefaultLimits(), a.logger)

	timeout := a.cfg.Venues.Timeout.Duration
	pm := polymarket.New(a.cfg.Venues.Polymarket, timeout)
	bn := binance.New(a.cfg.Venues.Binance, timeout)
	hl := hyperliquid.New(a.cfg.Venues.Hyperliquid, timeout)
	az := allianz.New(a.cfg.Venues.Allianz, timeout)

	venues := map[domain.Venue]domain.VenueAdapter{
		domain.VenuePolymarket:     pm,
		domain.VenueBinanceFutures: bn,
		domain.VenueDefiPerps:      hl,
		domain.VenueAllianz:        az,
	}

	costs := hedge.NewCostFetcher(a.cfg.Hedge, pm, bn, hl, az, a.logger)

	rt := &runtime{
		pool:    pool,
		st:      st,
		hub:     hub,
		tracker: tracker,
		oracle:  oracleClient,
		bridges: bridges,
		riskMon: riskMon,
		venues:  venues,
		costs:   costs,
	}

	if deps.HedgePositions != nil {
		rt.hedger = hedge.NewOrchestrator(a.cfg.Hedge, pool, st, venues,
			deps.HedgePositions, costs, deps.Archiver, a.logger)
	}

	return rt, nil
}

// ServeMode runs the HTTP edge, the WebSocket hub, and the monitoring loops
// that feed it. Claims settlement and hedging stay off.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	rt, err := a.buildRuntime(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHub(ctx, g, rt)
	a.startMonitors(ctx, g, deps, rt)
	a.startHTTPServer(ctx, g, deps, rt)
	return g.Wait()
}

// MonitorMode runs the headless monitoring loops: bridge health, risk,
// product ranking, tranche APY, and bridge transaction tracking.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	rt, err := a.buildRuntime(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHub(ctx, g, rt)
	a.startMonitors(ctx, g, deps, rt)
	return g.Wait()
}

// FullMode runs everything: the edge, the hub, the monitoring loops, the
// claims monitor, and the hedge orchestrator.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	rt, err := a.buildRuntime(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHub(ctx, g, rt)
	a.startMonitors(ctx, g, deps, rt)
	a.startHTTPServer(ctx, g, deps, rt)

	opts := claims.Options{
		Policies: deps.Policies,
		Archiver: deps.Archiver,
		Lock:     deps.LockManager,
		Notify:   deps.Notifier,
	}
	if rt.hedger != nil {
		opts.Hedges = rt.hedger
	}
	claimsMon := claims.NewMonitor(a.cfg.Claims, rt.pool, rt.st, rt.oracle,
		deps.Triggers, rt.hub, opts, a.logger)
	g.Go(func() error {
		return claimsMon.Run(ctx)
	})

	if rt.hedger != nil {
		g.Go(func() error {
			return rt.hedger.Run(ctx)
		})
	}

	return g.Wait()
}

// startHub runs the WebSocket hub until the context is cancelled.
func (a *App) startHub(ctx context.Context, g *errgroup.Group, rt *runtime) {
	g.Go(func() error {
		return rt.hub.Run(ctx)
	})
}

// startMonitors launches the monitoring loop orchestrator. The bridge
// transaction loop only runs when its store is wired.
func (a *App) startMonitors(ctx context.Context, g *errgroup.Group, deps *Dependencies, rt *runtime) {
	orch := monitor.New(a.cfg.Monitor, rt.st, rt.hub, monitor.Deps{
		Bridges:   rt.bridges,
		Risk:      rt.riskMon,
		Tranches:  rt.tracker,
		BridgeTxs: deps.BridgeTxs,
		Notify:    deps.Notifier,
	}, a.logger)
	g.Go(func() error {
		return orch.Run(ctx)
	})
}

// startHTTPServer builds the handler set, wraps it in the middleware chain,
// and runs the server with a graceful drain on shutdown.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, rt *runtime) {
	srvCfg := server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		MaxBodyBytes:    a.cfg.Server.MaxBodyBytes,
		AuthedPerWindow: a.cfg.Security.AuthedPerMin,
		AnonPerWindow:   a.cfg.Security.AnonPerMin,
		Window:          time.Duration(a.cfg.Security.WindowSeconds) * time.Second,
		EndpointLimits:  a.cfg.Security.EndpointLimits,
	}

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Quote:   handler.NewQuoteHandler(a.logger),
		Risk:    handler.NewRiskHandler(rt.st, a.logger),
		Bridge:  handler.NewBridgeHandler(rt.st, a.logger),
		Tranche: handler.NewTrancheHandler(rt.st, a.logger),
		Policy:  handler.NewPolicyHandler(rt.pool, deps.Policies, rt.tracker, a.logger),
		Hedge:   handler.NewHedgeHandler(deps.HedgePositions, rt.costs, a.logger),
		Admin:   handler.NewAdminHandler(deps.Keyring, a.logger),
		Status:  handler.NewStatusHandler(a.cfg.Mode, rt.st, rt.hub, deps.RateLimiter),
	}

	srv := server.NewServer(srvCfg, handlers, rt.hub, deps.Resolver, deps.RateLimiter, a.logger)

	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("server shutdown", slog.String("error", err.Error()))
			}
			return ctx.Err()
		}
	})
}
