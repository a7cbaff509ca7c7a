// Package kernel boots FitForge: it opens the stores, wires services and
// listeners, and builds the HTTP handler with the global middleware stack.
//
// Optional backends degrade instead of failing the boot:
//
//	Redis down      → no product cache, in-memory rate limits, store sequences
//	MONGO_URI empty → order history kept in process memory
package kernel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/fitforge/fitforge/app/controllers"
	"github.com/fitforge/fitforge/app/listeners"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/app/repositories/memory"
	"github.com/fitforge/fitforge/app/routes"
	"github.com/fitforge/fitforge/app/schema"
	"github.com/fitforge/fitforge/app/services"
	"github.com/fitforge/fitforge/config"
	"github.com/fitforge/fitforge/pkg/cache"
	"github.com/fitforge/fitforge/pkg/database"
	"github.com/fitforge/fitforge/pkg/event"
	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/metrics"
	"github.com/fitforge/fitforge/pkg/middleware"
	"github.com/fitforge/fitforge/pkg/reqid"
	"github.com/fitforge/fitforge/pkg/router"
	"github.com/fitforge/fitforge/pkg/storage"
	"github.com/fitforge/fitforge/pkg/workerpool"
	"github.com/fitforge/fitforge/pkg/ws"
)

// Kernel owns every long-lived dependency of a running API.
type Kernel struct {
	Store    repositories.Store
	DB       *gorm.DB // nil for the memory store
	Events   *event.Dispatcher
	Hub      *ws.Hub
	Services routes.Services

	redis   *redis.Client
	mongo   *mongo.Client
	logSink *logger.MongoHandler
	limiter *middleware.MemoryLimiter
	pool    *workerpool.Pool
	seq     services.Sequencer
	disk    storage.Disk
	checks  map[string]controllers.Check
}

// Boot connects to every configured backend and wires the application.
func Boot(ctx context.Context) (*Kernel, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	k := newKernel()

	if uri := config.LogMongoURI(); uri != "" {
		sink, err := logger.NewMongoHandler(ctx, uri, config.MongoDB(), "logs", slog.LevelInfo)
		if err != nil {
			logger.Warn("kernel: mongo log sink unavailable", "error", err)
		} else {
			k.logSink = sink
			logger.Attach(sink)
		}
	}

	if err := k.openStore(ctx); err != nil {
		_ = k.Close(ctx)
		return nil, err
	}
	k.openRedis(ctx)

	history, err := k.openHistory(ctx)
	if err != nil {
		_ = k.Close(ctx)
		return nil, err
	}

	k.disk, err = storage.Open(ctx, storage.Config{
		Driver:     config.StorageDefault(),
		LocalRoot:  config.StorageLocalRoot(),
		LocalURL:   config.StorageURL(),
		S3Bucket:   config.StorageS3Bucket(),
		S3Region:   config.StorageS3Region(),
		S3Key:      config.StorageS3Key(),
		S3Secret:   config.StorageS3Secret(),
		S3Endpoint: config.StorageS3Endpoint(),
		S3URL:      config.StorageS3URL(),
	})
	if err != nil {
		_ = k.Close(ctx)
		return nil, err
	}

	if err := k.wire(history); err != nil {
		_ = k.Close(ctx)
		return nil, err
	}
	return k, nil
}

// Offline wires a kernel over store with no external backends. route:list
// and tests use it.
func Offline(store repositories.Store) (*Kernel, error) {
	k := newKernel()
	k.Store = store
	k.seq = services.StoreSequencer{Store: store, Name: repositories.OrderSequence}
	k.checks["store"] = store.Ping
	if err := k.wire(memory.NewHistory()); err != nil {
		return nil, err
	}
	return k, nil
}

func newKernel() *Kernel {
	k := &Kernel{
		Events:  event.NewDispatcher(),
		Hub:     ws.NewHub(),
		limiter: middleware.NewMemoryLimiter(),
		pool:    workerpool.New("events", config.Int("EVENT_WORKERS", 8), 256),
		checks:  map[string]controllers.Check{},
	}
	k.Events.UsePool(k.pool)
	return k
}

// wire builds the services, listeners and GraphQL schema on the opened
// backends.
func (k *Kernel) wire(history repositories.OrderHistory) error {
	var productCache cache.Cache = cache.Noop{}
	if k.redis != nil {
		productCache = cache.NewRedis(k.redis, "fitforge:")
	}

	catalog := services.NewCatalogService(k.Store, productCache, k.disk, k.Events, config.CacheTTL())
	plans := services.NewPlanService(k.Store)
	orders := services.NewOrderService(k.Store, history, k.seq, k.Events, catalog)

	listeners.Register(k.Events, k.Hub, history)

	sch, err := schema.New(catalog, plans)
	if err != nil {
		return err
	}

	k.Services = routes.Services{
		Auth:    services.NewAuthService(k.Store),
		Catalog: catalog,
		Plans:   plans,
		Orders:  orders,
		Hub:     k.Hub,
		Schema:  &sch,
		Checks:  k.checks,
	}
	return nil
}

func (k *Kernel) openStore(ctx context.Context) error {
	driver := config.DatabaseDriver()
	if driver == "memory" {
		logger.Warn("kernel: using the in-memory store, data is lost on exit")
		k.Store = memory.New()
		k.checks["store"] = k.Store.Ping
		return nil
	}

	db, err := database.Connect(ctx, database.Options{
		Driver:   driver,
		DSN:      config.DatabaseDSN(),
		Attempts: config.DatabaseConnectAttempts(),
		Debug:    !config.IsProduction() && config.Get("DB_DEBUG", "") == "true",
	})
	if err != nil {
		return err
	}
	k.DB = db
	k.Store = repositories.NewGormStore(db)
	k.checks["database"] = k.Store.Ping
	return nil
}

func (k *Kernel) openRedis(ctx context.Context) {
	k.seq = services.StoreSequencer{Store: k.Store, Name: repositories.OrderSequence}

	addr := config.RedisAddr()
	if addr == "" {
		return
	}
	rdb, err := cache.Connect(ctx, addr, config.RedisPassword())
	if err != nil {
		logger.Warn("kernel: redis unavailable, running without it", "addr", addr, "error", err)
		return
	}
	k.redis = rdb
	k.seq = services.FallbackSequencer{
		Primary:   cache.NewSequencer(rdb, "fitforge:seq:orders"),
		Secondary: k.seq,
	}
	k.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

func (k *Kernel) openHistory(ctx context.Context) (repositories.OrderHistory, error) {
	uri := config.MongoURI()
	if uri == "" {
		return memory.NewHistory(), nil
	}
	client, err := repositories.ConnectMongo(ctx, uri)
	if err != nil {
		return nil, err
	}
	k.mongo = client
	k.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	return repositories.NewMongoHistory(ctx, client, config.MongoDB())
}

// Router builds the router with the global middleware stack and every
// route mounted.
func (k *Kernel) Router() *router.Router {
	r := router.New()

	// Global middleware stack (outermost → innermost):
	//  1. Prometheus metrics, outermost for accurate total latency
	//  2. Recovery, catches panics before they kill the goroutine
	//  3. Request ID, injected before anything logs
	//  4. Logger, logs request_id from context
	//  5. CORS
	//  6. Rate limiter, Redis window shared by every instance when available
	//  7. Timeout
	var limiter middleware.Limiter = k.limiter
	if k.redis != nil {
		limiter = middleware.FallbackLimiter{Primary: cache.NewRateLimiter(k.redis), Secondary: k.limiter}
	}
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(config.CORSOrigins()...)))
	r.Use(middleware.RateLimit(limiter, config.RateLimit(), time.Minute))
	r.Use(chimw.Timeout(config.RequestTimeout()))

	if config.StorageDefault() == "local" {
		files := http.StripPrefix("/storage/", http.FileServer(http.Dir(config.StorageLocalRoot())))
		r.Handle("/storage/*", "storage", files)
	}

	routes.RegisterAPI(r, k.Services)
	return r
}

// Handler is Router().Handler().
func (k *Kernel) Handler() http.Handler {
	return k.Router().Handler()
}

// Checks returns the readiness probes of the configured backends.
func (k *Kernel) Checks() []func(context.Context) error {
	out := make([]func(context.Context) error, 0, len(k.checks))
	for _, c := range k.checks {
		out = append(out, c)
	}
	return out
}

// Run starts the background loops and blocks until ctx is done.
func (k *Kernel) Run(ctx context.Context) {
	go k.limiter.Sweep(ctx, time.Minute)
	k.Hub.Run(ctx)
}

// Close drains pending events and releases every connection.
func (k *Kernel) Close(ctx context.Context) error {
	k.Events.Wait()
	k.pool.Shutdown()

	var errs []error
	if k.mongo != nil {
		errs = append(errs, k.mongo.Disconnect(ctx))
	}
	if k.redis != nil {
		errs = append(errs, k.redis.Close())
	}
	if k.DB != nil {
		errs = append(errs, database.Close(k.DB))
	}
	if k.logSink != nil {
		k.logSink.Close()
	}
	return errors.Join(errs...)
}
