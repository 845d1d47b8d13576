package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Domenick1991/deliverydesk/api"
	"github.com/Domenick1991/deliverydesk/config"
	"github.com/Domenick1991/deliverydesk/internal/cache"
	"github.com/Domenick1991/deliverydesk/internal/live"
	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/Domenick1991/deliverydesk/internal/service/booking"
	"github.com/Domenick1991/deliverydesk/internal/service/partners"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Bookings booking.BookingUseCase
	Partners partners.PartnerUseCase
	Redis    *cache.RedisCache
	Health   map[string]Pinger
}

// Run serves the HTTP API and relays pub/sub events to live clients until
// ctx is cancelled or a component fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	hub := live.NewHub(0)
	router := NewRouter(cfg, deps, hub)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ps, err := deps.Redis.Subscribe(ctx, cache.ChannelPartnerLocation, cache.ChannelBookingConfirmed)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info().Str("address", cfg.HTTP.Address).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := live.Relay(gctx, ps.Channel(), hub)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err == nil && gctx.Err() == nil {
			return errors.New("live relay stopped")
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		_ = ps.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logging.Info().Msg("http server stopped")
		return nil
	})

	return g.Wait()
}

// NewRouter wires middleware and every route onto a gin engine.
func NewRouter(cfg *config.Config, deps Deps, hub *live.Hub) *gin.Engine {
	router := gin.New()
	router.Use(api.RequestID(), api.RequestLogger(), api.Recovery())

	router.GET("/healthz", healthHandler(deps.Health))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFile("/swagger/openapi.json", filepath.Join(cfg.HTTP.SwaggerDir, "openapi.json"))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/openapi.json"))))
	}

	apiGroup := router.Group("/api")
	api.NewBookingHandler(deps.Bookings).Register(apiGroup.Group("/bookings"))
	partnerHandler := api.NewPartnerHandler(deps.Partners)
	partnerHandler.Register(apiGroup.Group("/partners"))
	partnerHandler.RegisterLocations(apiGroup.Group("/gps"))
	api.NewLiveHandler(hub, cfg.Tracking.Heartbeat()).Register(apiGroup.Group("/live"))

	return router
}

func healthHandler(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": result})
	}
}
