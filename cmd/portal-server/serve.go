package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/mikepea/promptportal/pkg/portal/admin"
	"github.com/mikepea/promptportal/pkg/portal/auth"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/config"
	"github.com/mikepea/promptportal/pkg/portal/database"
	"github.com/mikepea/promptportal/pkg/portal/httpapi"
	"github.com/mikepea/promptportal/pkg/portal/imagekit"
	"github.com/mikepea/promptportal/pkg/portal/logger"
	"github.com/mikepea/promptportal/pkg/portal/middleware"
	"github.com/mikepea/promptportal/pkg/portal/preview"
	"github.com/mikepea/promptportal/pkg/portal/prompts"
	"github.com/mikepea/promptportal/pkg/portal/querycache"
	"github.com/mikepea/promptportal/pkg/portal/reactions"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"github.com/mikepea/promptportal/pkg/portal/taxonomy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/mikepea/promptportal/api/swagger"
)

func runServe() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := migrate(cfg); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Log.Warn("redis unavailable, continuing without token registry", zap.Error(err))
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
			auth.UseRevocationStore(rdb)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := newRouter(cfg, rdb, registry)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("starting Prompt Portal server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter wires every handler onto a gin engine
func newRouter(cfg *config.Config, rdb *redis.Client, registry *prometheus.Registry) *gin.Engine {
	log := logger.Log
	db := database.GetDB()

	cacheOpts := []querycache.Option{
		querycache.WithMetrics(querycache.NewMetrics(registry)),
		querycache.WithMaxEntries(cfg.CacheMaxEntries),
	}
	if cfg.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, querycache.WithTTL(cfg.CacheTTL))
	}
	client := catalog.NewClient(store.NewGormStore(db), querycache.New(cacheOpts...), log)

	signerOpts := []imagekit.Option{}
	if rdb != nil {
		signerOpts = append(signerOpts, imagekit.WithRegistry(rdb))
	}
	signer := imagekit.NewSigner(cfg.ImageKitPrivateKey, signerOpts...)
	if !signer.Configured() {
		log.Warn("IMAGEKIT_PRIVATE_KEY not set, upload authentication will fail")
	}

	httpapi.RegisterValidators()

	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.Recovery(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "promptportal"})
		})

		auth.NewHandler(db, log).RegisterRoutes(api.Group("/auth"))

		prompts.NewHandler(client, cfg.ImageKitURLEndpoint, log).RegisterRoutes(api)
		reactions.NewHandler(client, log).RegisterRoutes(api)

		taxonomyHandler := taxonomy.NewHandler(client, log)
		taxonomyHandler.RegisterRoutes(api)

		imagekit.NewHandler(signer, log).RegisterRoutes(api)

		adminGroup := api.Group("/admin", auth.AuthMiddleware(), auth.RequireAdmin())
		admin.NewHandler(db, client, log).RegisterRoutes(adminGroup)
		taxonomyHandler.RegisterAdminRoutes(adminGroup)
	}

	preview.NewHandler(client, cfg.ImageKitURLEndpoint, log).RegisterRoutes(r)

	return r
}
