package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/auth"
	"github.com/mrlokans/bookbridge/internal/config"
	http_controllers "github.com/mrlokans/bookbridge/internal/http"
	"github.com/mrlokans/bookbridge/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the cache janitor)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting BookBridge v%s", version)

	components, err := NewComponents(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	// Expired cache entries are dropped on a schedule
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	janitor := scheduler.NewCacheJanitor(cfg.Cache.PurgeSchedule, map[string]scheduler.Purger{
		"search": components.SearchResults,
		"books":  components.BookDetails,
	})
	if err := janitor.Start(janitorCtx); err != nil {
		log.Printf("WARNING: cache janitor disabled: %v", err)
	}

	authMiddleware := auth.NewMiddleware(cfg.Auth)
	if authMiddleware.Enabled() {
		log.Printf("Authentication mode: api_key (%d keys)", len(cfg.Auth.APIKeys))
	} else {
		log.Printf("WARNING: API_KEYS is not set. /v1 endpoints are open to everyone.")
	}

	limiter := auth.NewRateLimiter(auth.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		IdleTimeout:       cfg.RateLimit.IdleTimeout,
	})

	routerCfg := http_controllers.RouterConfig{
		SearchService:   components.SearchService,
		DownloadService: components.DownloadService,
		Tables:          components.Tables,
		AuthMiddleware:  authMiddleware,
		RateLimiter:     limiter,
		Caches: map[string]http_controllers.StatsReporter{
			"search": components.SearchResults,
			"books":  components.BookDetails,
		},
		EnableHSTS: cfg.HTTP.EnableHSTS,
		Version:    version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		janitorCancel()
		janitor.Stop()
		limiter.Stop()
	}

	Serve(router, cfg, onShutdown)
}
