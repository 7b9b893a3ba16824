package guiche

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aretw0/guiche/internal/adapters/csv"
	"github.com/aretw0/guiche/internal/adapters/file"
	"github.com/aretw0/guiche/internal/config"
	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/internal/presentation/text"
	"github.com/aretw0/guiche/pkg/adapters/forex"
	httpadapter "github.com/aretw0/guiche/pkg/adapters/http"
	mcpadapter "github.com/aretw0/guiche/pkg/adapters/mcp"
	"github.com/aretw0/guiche/pkg/adapters/memory"
	redisadapter "github.com/aretw0/guiche/pkg/adapters/redis"
	"github.com/aretw0/guiche/pkg/adapters/sqlite"
	"github.com/aretw0/guiche/pkg/auth"
	"github.com/aretw0/guiche/pkg/credit"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/keylock"
	"github.com/aretw0/guiche/pkg/observability"
	"github.com/aretw0/guiche/pkg/orchestrator"
	"github.com/aretw0/guiche/pkg/persistence/middleware"
	"github.com/aretw0/guiche/pkg/ports"
	"github.com/aretw0/guiche/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"
)

// ClientDirectory is an identity store that can also be listed and seeded.
type ClientDirectory interface {
	ports.IdentityStore
	PutClient(ctx context.Context, c domain.Client) error
	ListClients(ctx context.Context) ([]domain.Client, error)
}

// App holds a fully wired service built from a config.Config.
type App struct {
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
	Sessions     *session.Manager
	Credit       *credit.Engine
	Clients      ClientDirectory
	Ledger       ports.DecisionLedger
	Renderer     *text.Renderer
	Registry     *prometheus.Registry // nil when metrics are disabled

	logger  *slog.Logger
	quotes  ports.QuoteProvider
	closers []func() error
}

// Option configures New.
type Option func(*App)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithQuoteProvider replaces the configured currency quote provider.
func WithQuoteProvider(p ports.QuoteProvider) Option {
	return func(a *App) {
		a.quotes = p
	}
}

// NewLogger builds the logger described by cfg.Log.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	opts := logging.Options{Level: logging.ParseLevel(cfg.Level), Format: cfg.Format}
	if cfg.Redact {
		opts.Redact = logging.DefaultRedactedKeys
	}
	return logging.NewWithOptions(opts)
}

// New wires stores, locks, metrics and the orchestrator from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = NewLogger(cfg.Log)
	}

	if err := app.build(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	var rdb *backend.Client
	if cfg.UsesRedis() {
		rdb = redisadapter.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
	}

	var locker ports.DistributedLocker
	if cfg.Redis.Locking {
		locker = redisadapter.NewLocker(rdb, cfg.Redis.Prefix)
	}

	clients, bands, err := a.buildClients(ctx)
	if err != nil {
		return err
	}
	a.Clients = clients

	a.Ledger, err = a.buildLedger(rdb)
	if err != nil {
		return err
	}

	store, err := a.buildSessionStore(rdb)
	if err != nil {
		return err
	}

	hooks := observability.AuditHooks(a.logger)
	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(a.Registry)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		hooks = metrics.Hooks().Merge(hooks)
	}

	sessionOpts := []session.Option{
		session.WithLogger(a.logger),
		session.WithMaxAttempts(cfg.Auth.MaxAttempts),
	}
	lockOpts := []keylock.Option{keylock.WithLogger(a.logger), keylock.WithTTL(cfg.Redis.LockTTL)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
		lockOpts = append(lockOpts, keylock.WithDistributed(locker, "client:"))
	}
	a.Sessions = session.NewManager(store, sessionOpts...)

	a.Credit = credit.NewEngine(clients, bands, a.Ledger,
		credit.WithLocks(keylock.New(lockOpts...)),
		credit.WithLifecycleHooks(hooks),
		credit.WithLogger(a.logger),
	)
	machine := auth.NewMachine(clients,
		auth.WithMaxAttempts(cfg.Auth.MaxAttempts),
		auth.WithLifecycleHooks(hooks),
		auth.WithLogger(a.logger),
	)

	orchOpts := []orchestrator.Option{
		orchestrator.WithMaxInputSize(cfg.Auth.MaxInputSize),
		orchestrator.WithLifecycleHooks(hooks),
		orchestrator.WithLogger(a.logger),
	}
	if a.quotes == nil && cfg.Forex.Enabled {
		a.quotes = forex.New(
			forex.WithBaseURL(cfg.Forex.BaseURL),
			forex.WithHTTPClient(&http.Client{Timeout: cfg.Forex.Timeout}),
			forex.WithCacheTTL(cfg.Forex.CacheTTL),
			forex.WithLogger(a.logger),
		)
	}
	if a.quotes != nil {
		orchOpts = append(orchOpts, orchestrator.WithQuoteProvider(a.quotes))
	}
	a.Orchestrator = orchestrator.New(a.Sessions, machine, a.Credit, orchOpts...)

	a.Renderer, err = text.New()
	if err != nil {
		return fmt.Errorf("failed to build renderer: %w", err)
	}
	return nil
}

// buildClients returns the identity store and the band table, seeded from config.
func (a *App) buildClients(ctx context.Context) (ClientDirectory, ports.ScoreBandTable, error) {
	seed := a.Config.Seed
	clients, err := readSeedClients(seed)
	if err != nil {
		return nil, nil, err
	}
	bands, err := readSeedBands(seed)
	if err != nil {
		return nil, nil, err
	}

	if a.Config.Store.Backend != config.BackendSQLite {
		dir := &memoryDirectory{Clients: memory.NewClients(clients...)}
		return dir, memory.NewBands(bands...), nil
	}

	db, err := sqlite.Open(a.Config.Store.DSN)
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	a.closers = append(a.closers, store.Close)

	// Seeded clients only fill an empty table so restarts never undo decisions.
	existing, err := store.ListClients(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(existing) == 0 {
		for _, c := range clients {
			if err := store.PutClient(ctx, c); err != nil {
				return nil, nil, err
			}
		}
	}
	if len(bands) > 0 {
		if err := store.ReplaceBands(ctx, bands); err != nil {
			return nil, nil, err
		}
	}
	return store, store, nil
}

func (a *App) buildLedger(rdb *backend.Client) (ports.DecisionLedger, error) {
	switch a.Config.LedgerBackend() {
	case config.BackendSQLite:
		ledger, ok := a.Clients.(ports.DecisionLedger)
		if !ok {
			return nil, fmt.Errorf("%w: sqlite ledger needs the sqlite store", config.ErrInvalidBackend)
		}
		return ledger, nil
	case config.BackendFile:
		return file.NewLedger(a.Config.Ledger.Path), nil
	case config.BackendRedis:
		return redisadapter.NewLedger(rdb, a.Config.Redis.Prefix), nil
	default:
		return memory.NewLedger(), nil
	}
}

func (a *App) buildSessionStore(rdb *backend.Client) (ports.SessionStore, error) {
	var store ports.SessionStore
	switch a.Config.Session.Backend {
	case config.BackendFile:
		store = file.New(a.Config.Session.Path)
	case config.BackendRedis:
		store = redisadapter.NewFromClient(rdb,
			redisadapter.WithTTL(a.Config.Session.TTL),
			redisadapter.WithPrefix(a.Config.Redis.Prefix),
		)
	default:
		store = memory.NewStore()
	}

	if a.Config.Session.EncryptionKey == "" {
		return store, nil
	}
	active, err := middleware.ParseKey(a.Config.Session.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("session.encryption_key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range a.Config.Session.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("session.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return middleware.Chain(store, middleware.NewEncryptionMiddleware(enc)), nil
}

func readSeedClients(seed config.SeedConfig) ([]domain.Client, error) {
	clients := append([]domain.Client{}, seed.Clients...)
	if seed.ClientsCSV == "" {
		return clients, nil
	}
	f, err := os.Open(seed.ClientsCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to open clients csv: %w", err)
	}
	defer f.Close()
	fromCSV, err := csv.ReadClients(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", seed.ClientsCSV, err)
	}
	return append(clients, fromCSV...), nil
}

func readSeedBands(seed config.SeedConfig) ([]domain.ScoreBand, error) {
	bands := append([]domain.ScoreBand{}, seed.Bands...)
	if seed.BandsCSV == "" {
		return bands, nil
	}
	f, err := os.Open(seed.BandsCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to open bands csv: %w", err)
	}
	defer f.Close()
	fromCSV, err := csv.ReadBands(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", seed.BandsCSV, err)
	}
	return append(bands, fromCSV...), nil
}

// Handler returns the HTTP API, with /metrics when metrics are enabled.
func (a *App) Handler() http.Handler {
	opts := []httpadapter.Option{
		httpadapter.WithRenderer(a.Renderer),
		httpadapter.WithVersion(Version),
		httpadapter.WithLogger(a.logger),
	}
	if a.Registry != nil {
		opts = append(opts, httpadapter.WithMetricsHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	}
	return httpadapter.NewHandler(a.Orchestrator, opts...)
}

// MCPServer returns the dialogue exposed as MCP tools.
func (a *App) MCPServer() *mcpadapter.Server {
	return mcpadapter.NewServer(a.Orchestrator, Version,
		mcpadapter.WithRenderer(a.Renderer),
		mcpadapter.WithLogger(a.logger),
	)
}

// Logger returns the logger shared by the components.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Close releases database and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// memoryDirectory adapts memory.Clients to ClientDirectory.
type memoryDirectory struct {
	*memory.Clients
}

func (d *memoryDirectory) PutClient(ctx context.Context, c domain.Client) error {
	return d.Put(ctx, c)
}

func (d *memoryDirectory) ListClients(ctx context.Context) ([]domain.Client, error) {
	return d.All(ctx)
}
