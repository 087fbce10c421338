// Package monitor runs the background loops that keep shared state fresh and
// feed the WebSocket hub: bridge health, risk snapshots, top-product rankings,
// tranche APY, and bridge transactions. Loops are mutually independent and
// crash-safe; a panic or error in one tick is logged and the loop resumes at
// its normal cadence.
package monitor

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/notify"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// Publisher is the hub-facing side the loops publish to.
type Publisher interface {
	Broadcast(channel string, message map[string]any)
}

// Notifier forwards operator-facing events to external channels. A nil
// Notifier disables notifications without disabling the loop.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event, title, message string) error
}

// Orchestrator owns the monitoring loops.
type Orchestrator struct {
	cfg    config.MonitorConfig
	state  *state.State
	hub    Publisher
	logger *slog.Logger

	bridge   *bridgeLoop
	risk     *riskLoop
	products *productsLoop
	apy      *apyLoop
	bridgeTx *bridgeTxLoop
}

// New creates an orchestrator. Any nil loop dependency disables that loop.
func New(cfg config.MonitorConfig, st *state.State, hub Publisher, deps Deps, logger *slog.Logger) *Orchestrator {
	logger = logger.With(slog.String("component", "monitor"))
	o := &Orchestrator{cfg: cfg, state: st, hub: hub, logger: logger}
	if deps.Bridges != nil {
		o.bridge = &bridgeLoop{monitor: deps.Bridges, state: st, hub: hub, notifier: deps.Notify, logger: logger}
	}
	if deps.Risk != nil {
		o.risk = &riskLoop{monitor: deps.Risk, state: st, hub: hub, notifier: deps.Notify, logger: logger}
	}
	o.products = &productsLoop{state: st, hub: hub, logger: logger}
	if deps.Tranches != nil {
		o.apy = &apyLoop{tracker: deps.Tranches, state: st, hub: hub, logger: logger}
	}
	if deps.BridgeTxs != nil {
		o.bridgeTx = &bridgeTxLoop{store: deps.BridgeTxs, hub: hub, logger: logger}
	}
	return o
}

// Deps bundles the collaborators the loops poll.
type Deps struct {
	Bridges   BridgeSource
	Risk      RiskSource
	Tranches  TrancheSource
	BridgeTxs BridgeTxSource
	Notify    Notifier
}

// Run starts every enabled loop and blocks until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if o.bridge != nil {
		g.Go(func() error {
			return o.runLoop(ctx, "bridge_health", o.cfg.BridgeInterval.Duration, o.bridge.tick)
		})
	}
	if o.risk != nil {
		g.Go(func() error {
			return o.runLoop(ctx, "risk_snapshot", o.cfg.RiskInterval.Duration, o.risk.tick)
		})
	}
	g.Go(func() error {
		return o.runLoop(ctx, "top_products", o.cfg.ProductsInterval.Duration, o.products.tick)
	})
	if o.apy != nil {
		g.Go(func() error {
			return o.runLoop(ctx, "tranche_apy", o.cfg.APYInterval.Duration, o.apy.tick)
		})
	}
	if o.bridgeTx != nil {
		g.Go(func() error {
			return o.runLoop(ctx, "bridge_transactions", o.cfg.BridgeTxInterval.Duration, o.bridgeTx.tick)
		})
	}
	return g.Wait()
}

// runLoop drives one loop at a fixed cadence. Tick errors and panics are
// contained; only context cancellation stops the loop.
func (o *Orchestrator) runLoop(ctx context.Context, name string, interval time.Duration, tick func(context.Context) error) error {
	logger := o.logger.With(slog.String("loop", name))
	logger.Info("monitor: loop starting", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.safeTick(ctx, name, logger, tick)
	for {
		select {
		case <-ctx.Done():
			logger.Info("monitor: loop stopping")
			return nil
		case <-ticker.C:
			o.safeTick(ctx, name, logger, tick)
		}
	}
}

func (o *Orchestrator) safeTick(ctx context.Context, name string, logger *slog.Logger, tick func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("monitor: loop panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	if err := tick(ctx); err != nil {
		logger.Warn("monitor: tick failed", slog.String("error", err.Error()))
		return
	}
	o.state.MarkAlive(name)
}
