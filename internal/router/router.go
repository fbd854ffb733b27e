package router

import (
	"context"
	"fmt"

	"tools4care/internal/config"
	"tools4care/internal/handler"
	"tools4care/internal/infra"
	"tools4care/internal/jornada"
	"tools4care/internal/middleware"
	"tools4care/internal/repository"
	"tools4care/internal/service"
	"tools4care/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App is the wired dependency graph. The composition root starts the
// background pieces from it.
type App struct {
	Engine     *gin.Engine
	Cierres    service.CierreService
	CierreRepo repository.CierreRepository
	Limiter    *middleware.IPRateLimiter
	Hosted     *infra.HostedClient
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis/Hosted
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	res, err := jornada.NewResolver(cfg.BusinessTimezone)
	if err != nil {
		return nil, err
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	cierreRepo := repository.NewCierreRepository(db)
	clienteRepo := repository.NewClienteCache(repository.NewClienteRepository(db), rdb, cfg.ClientCacheTTL())

	var (
		movRepo repository.MovimientoRepository
		hosted  *infra.HostedClient
	)
	switch cfg.MovementSource {
	case config.FuentePostgres, "":
		movRepo = repository.NewMovimientoRepository(db)
	case config.FuenteHosted:
		if cfg.HostedAPIURL == "" {
			return nil, fmt.Errorf("MOVEMENT_SOURCE=hosted requires HOSTED_API_URL")
		}
		cb := infra.NewCircuitBreaker(infra.DefaultCBConfig("hosted"))
		hosted = infra.NewHostedClient(infra.HostedConfig{
			BaseURL: cfg.HostedAPIURL,
			APIKey:  cfg.HostedAPIKey,
			Timeout: cfg.HostedTimeout(),
		}, cb)
		movRepo = repository.NewHostedMovimientoRepository(hosted)
		// Snapshots stay local; the rows they consume are tagged upstream.
		cierreRepo = repository.NewHostedCierreRepository(cierreRepo, hosted)
	default:
		return nil, fmt.Errorf("unknown MOVEMENT_SOURCE %q", cfg.MovementSource)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	dispatcher := worker.NewDispatcher(rdb)
	cierreSvc := service.NewCierreService(movRepo, cierreRepo, clienteRepo, dispatcher, res)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cierresH := handler.NewCierreHandler(cierreSvc)

	limiter := middleware.NewIPRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()...))
	r.Use(middleware.ErrorHandler())
	r.Use(limiter.Middleware())

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, hosted))

	if cfg.JWTSecret == "" {
		log.Warn().Msg("router: JWT_SECRET is empty, every protected route will reject")
	}
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		todos := middleware.RequireRole(middleware.RolVendedor, middleware.RolSupervisor, middleware.RolAdministrador)
		supervision := middleware.RequireRole(middleware.RolSupervisor, middleware.RolAdministrador)

		vans := v1.Group("/vans/:van_id/cierres/:dia", todos)
		{
			vans.GET("", cierresH.ObtenerVista)
			vans.POST("", cierresH.Confirmar)
			vans.POST("/variacion", cierresH.Variacion)
		}

		v1.GET("/cierres/:id", todos, cierresH.ObtenerCierre)
		v1.POST("/cierres/:id/reetiquetar", supervision, cierresH.Reetiquetar)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return &App{
		Engine:     r,
		Cierres:    cierreSvc,
		CierreRepo: cierreRepo,
		Limiter:    limiter,
		Hosted:     hosted,
	}, nil
}

// StartBackground launches the re-tag worker pool, the retry cron and the
// rate limiter purge loop. All stop when ctx is cancelled.
func (a *App) StartBackground(ctx context.Context, cfg *config.Config, rdb *redis.Client) {
	handlers := map[string]worker.Handler{
		worker.QueueReetiquetado: worker.NewRetagWorker(a.Cierres, service.EsErrorPermanente),
	}
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		Cierres:  a.CierreRepo,
		Svc:      a.Cierres,
		Interval: cfg.RetagInterval(),
	})
	go a.Limiter.Run(ctx)
}
