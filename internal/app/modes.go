package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solvios/flashpool/internal/asset"
	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/engine"
	"github.com/solvios/flashpool/internal/events"
	"github.com/solvios/flashpool/internal/monitor"
	"github.com/solvios/flashpool/internal/server"
	"github.com/solvios/flashpool/internal/server/handler"
	"github.com/solvios/flashpool/internal/server/ws"
	"github.com/solvios/flashpool/internal/service"
	"github.com/solvios/flashpool/internal/venue"
)

// core bundles the domain services every mode composes from: the event log,
// the pool registry with its bootstrap pools, and the arbitrage service on
// top of the venue registry.
type core struct {
	assets   *asset.Registry
	events   *events.Log
	pools    *service.PoolService
	arb      *service.ArbService
	operator domain.Identity
}

// buildCore constructs the shared domain services from configuration. Pools
// and routes declared in the config file are registered before any loop or
// request can reach them.
func (a *App) buildCore(ctx context.Context, deps *Dependencies) (*core, error) {
	assets := asset.NewRegistry()
	for _, w := range a.cfg.Assets.Whitelist {
		assets.Whitelist(w.Symbol, domain.AssetPolicy{MinLoan: w.MinLoan, MaxLoan: w.MaxLoan})
	}

	eventLog := events.NewLog(events.DefaultCapacity, a.logger)

	operator := domain.Identity("operator")
	if deps.Signer != nil {
		operator = domain.Identity(deps.Signer.Address().Hex())
	}

	pools := service.NewPoolService(assets, a.cfg.Assets.Enforce, deps.Snapshots, deps.PoolCache, eventLog, a.logger)
	for _, pc := range a.cfg.Pools {
		if _, err := pools.CreatePool(ctx, service.PoolSpec{
			ID:           pc.ID,
			Asset:        pc.Asset,
			Liquidity:    pc.Liquidity,
			FeeBps:       pc.FeeBps,
			MaxLoanRatio: pc.MaxLoanRatio,
			Admin:        operator,
		}); err != nil {
			return nil, fmt.Errorf("bootstrap pool %q: %w", pc.ID, err)
		}
	}

	routes := venue.NewRegistry()
	for _, rc := range a.cfg.Venues.Routes {
		route := domain.Route{
			Venue:       domain.VenueType(strings.ToLower(rc.Venue)),
			VenuePoolID: rc.PoolID,
			TokenA:      rc.TokenA,
			TokenB:      rc.TokenB,
			FeeTier:     rc.FeeTier,
		}
		routes.AddRoute(route.Pair(), route)
	}

	sim := venue.NewSimulator(a.logger)
	for _, rt := range a.cfg.Venues.Rates {
		sim.SetRate(rt.PoolID, rt.TokenIn, rt.TokenOut, venue.Rate{Num: rt.Num, Den: rt.Den})
	}
	dispatcher := venue.NewDispatcher()
	dispatcher.Register(domain.VenueCetus, sim)
	dispatcher.Register(domain.VenueTurbos, sim)
	dispatcher.Register(domain.VenueAftermath, sim)

	eng := engine.New(dispatcher, operator, a.logger)

	arb := service.NewArbService(pools, eng, routes, deps.RouteCache, deps.Executions, deps.Locks, deps.Signer,
		service.ArbParams{
			MaxLoanAmount: a.cfg.Arbitrage.MaxLoanAmount,
			MinProfit:     a.cfg.Arbitrage.MinProfit,
			Deadline:      a.cfg.Arbitrage.Deadline.Duration,
			LockTTL:       a.cfg.Redis.LockTTL.Duration,
		}, a.logger)
	arb.WarmRouteCache(ctx)

	a.logger.InfoContext(ctx, "core services built",
		slog.String("operator", string(operator)),
		slog.Int("pools", len(a.cfg.Pools)),
		slog.Int("routes", routes.Count()),
	)
	return &core{assets: assets, events: eventLog, pools: pools, arb: arb, operator: operator}, nil
}

// watchPairs parses the configured scanner pairs. Malformed entries are
// logged and skipped; Validate has already flagged them as errors.
func (a *App) watchPairs() []domain.AssetPair {
	pairs := make([]domain.AssetPair, 0, len(a.cfg.Arbitrage.Pairs))
	for _, raw := range a.cfg.Arbitrage.Pairs {
		tokenA, tokenB, ok := strings.Cut(raw, "/")
		tokenA, tokenB = strings.TrimSpace(tokenA), strings.TrimSpace(tokenB)
		if !ok || tokenA == "" || tokenB == "" {
			a.logger.Warn("skipping malformed pair", slog.String("pair", raw))
			continue
		}
		pairs = append(pairs, domain.AssetPair{TokenA: tokenA, TokenB: tokenB})
	}
	return pairs
}

// newOrchestrator assembles the background loops for a mode. The event
// relay always runs so committed events reach the bus, the history, and the
// notifiers; the polling loops are added only when withLoops is set and
// monitoring is enabled.
func (a *App) newOrchestrator(deps *Dependencies, c *core, withLoops bool) *monitor.Orchestrator {
	relay := monitor.NewEventRelay(c.events, deps.Bus, deps.Events, deps.Notifier, a.logger)

	var (
		health    *monitor.HealthChecker
		scanner   *monitor.OpportunityScanner
		archiver  *monitor.ArchiveRunner
		healthIv  time.Duration
		scanIv    time.Duration
		archiveIv time.Duration
	)
	if withLoops && a.cfg.Monitor.Enabled {
		health = monitor.NewHealthChecker(c.pools, deps.Notifier, a.logger)
		healthIv = a.cfg.Monitor.HealthInterval.Duration

		scanner = monitor.NewOpportunityScanner(c.arb, c.arb, c.pools, a.watchPairs(), a.cfg.Arbitrage.AutoExecute, a.logger)
		scanIv = a.cfg.Monitor.ScanInterval.Duration

		if deps.Archiver != nil {
			archiver = monitor.NewArchiveRunner(deps.Archiver, a.cfg.Monitor.ArchiveLookback.Duration, a.logger)
			archiveIv = a.cfg.Monitor.ArchiveInterval.Duration
		}
	}
	return monitor.NewOrchestrator(relay, health, scanner, archiver, healthIv, scanIv, archiveIv, a.logger)
}

// ServerMode runs the HTTP/WebSocket API plus the event relay that feeds
// its event surfaces. The polling loops stay off.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return fmt.Errorf("server mode: %w", err)
	}

	orch := a.newOrchestrator(deps, c, false)
	g.Go(func() error { return orch.Run(ctx) })

	a.startHTTPServer(ctx, g, deps, c)

	return g.Wait()
}

// MonitorMode runs the background loops headless: health polling,
// opportunity scanning, the event relay, and archival. No HTTP API.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return fmt.Errorf("monitor mode: %w", err)
	}
	if !a.cfg.Monitor.Enabled {
		a.logger.WarnContext(ctx, "monitor.enabled is false, only the event relay will run")
	}

	return a.newOrchestrator(deps, c, true).Run(ctx)
}

// ScanMode runs only the opportunity scanner and the event relay, useful
// for a dedicated executor instance.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Bool("auto_execute", a.cfg.Arbitrage.AutoExecute),
	)

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	relay := monitor.NewEventRelay(c.events, deps.Bus, deps.Events, deps.Notifier, a.logger)
	scanner := monitor.NewOpportunityScanner(c.arb, c.arb, c.pools, a.watchPairs(), a.cfg.Arbitrage.AutoExecute, a.logger)
	scanIv := a.cfg.Monitor.ScanInterval.Duration
	if scanIv <= 0 {
		scanIv = 10 * time.Second
	}

	return monitor.NewOrchestrator(relay, nil, scanner, nil, 0, scanIv, 0, a.logger).Run(ctx)
}

// FullMode runs every subsystem: all monitor loops plus the HTTP API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	orch := a.newOrchestrator(deps, c, true)
	g.Go(func() error { return orch.Run(ctx) })

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, c)
	}

	return g.Wait()
}

// pingerFunc adapts a bare function to the handler.Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// startHTTPServer adds the API server and its WebSocket hub to the given
// errgroup. The server shuts down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *core) {
	components := map[string]handler.Pinger{
		"postgres": deps.PG,
		"redis":    deps.RDB,
	}
	if deps.S3 != nil {
		components["s3"] = pingerFunc(deps.S3.Health)
	}

	startedAt := time.Now().UTC()
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(components, a.logger),
		Pools:  handler.NewPoolHandler(c.pools, a.logger),
		Arb:    handler.NewArbHandler(c.arb, a.logger),
		Routes: handler.NewRouteHandler(c.arb, a.logger),
		Events: handler.NewEventHandler(c.events, deps.Events, a.logger),
		Status: handler.NewStatusHandler(a.cfg.Mode, startedAt, c.pools, c.arb, c.events, a.logger),
	}

	hub := ws.NewHub(deps.Bus, a.logger, ws.Config{Mode: a.cfg.Mode, StartedAt: startedAt})
	g.Go(func() error { return hub.Run(ctx) })

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APITokens:   a.cfg.Server.APITokens,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.Authority, deps.Limiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
		)
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
