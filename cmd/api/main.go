package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/internal/config"
	adminhandler "github.com/jwalitptl/booking-api/internal/handler/admin"
	authhandler "github.com/jwalitptl/booking-api/internal/handler/auth"
	bookinghandler "github.com/jwalitptl/booking-api/internal/handler/booking"
	clinichandler "github.com/jwalitptl/booking-api/internal/handler/clinic"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/repository/postgres"
	"github.com/jwalitptl/booking-api/internal/router"
	authservice "github.com/jwalitptl/booking-api/internal/service/auth"
	bookingservice "github.com/jwalitptl/booking-api/internal/service/booking"
	clinicservice "github.com/jwalitptl/booking-api/internal/service/clinic"
	"github.com/jwalitptl/booking-api/internal/service/event"
	reportservice "github.com/jwalitptl/booking-api/internal/service/report"
	"github.com/jwalitptl/booking-api/pkg/auth"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/security"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

type stores struct {
	users    repository.UserRepository
	clinics  repository.ClinicRepository
	bookings repository.BookingRepository
	outbox   repository.OutboxRepository
	checks   map[string]health.Pinger
	close    func() error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := setupLogging(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	if err := validator.RegisterGinBindings(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	s, err := openStores(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer s.close()

	prom := prometheus.New()
	m := metrics.NewMetrics(cfg.Metrics.Namespace, prom.Registry())

	jwtSvc, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token service")
	}

	authSvc := authservice.NewService(s.users, jwtSvc, security.NewBcryptHasher(bcrypt.DefaultCost), appLogger)
	clinicSvc := clinicservice.NewService(s.clinics, cfg.Cache.ClinicTTL, appLogger)
	bookingSvc := bookingservice.NewService(clinicSvc, s.bookings, event.NewService(s.outbox), appLogger,
		bookingservice.WithMetrics(m))
	reportSvc := reportservice.NewService(clinicSvc, s.bookings, time.Now)

	routerConfig := router.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		HSTS:           cfg.Server.HSTS,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  cfg.CORS.AllowedMethods,
			AllowHeaders:  cfg.CORS.AllowedHeaders,
			ExposeHeaders: []string{middleware.HeaderXRequestID},
			MaxAge:        cfg.CORS.MaxAge,
		},
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = &middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		}
	}
	if cfg.Metrics.Enabled {
		routerConfig.MetricsPath = cfg.Metrics.Path
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		authhandler.NewHandler(authSvc),
		health.NewHandler(s.checks),
		prom,
		m,
		routerConfig,
		clinichandler.NewHandler(clinicSvc),
		bookinghandler.NewHandler(bookingSvc),
		adminhandler.NewHandler(reportSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func setupLogging(cfg config.LogConfig) *logger.Logger {
	level := logger.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Pretty,
	})
}

func openStores(cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == "memory" {
		store := memory.NewStore()
		return &stores{
			users:    store.Users(),
			clinics:  store.Clinics(),
			bookings: store.Bookings(),
			outbox:   store.Outbox(),
			close:    func() error { return nil },
		}, nil
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	repos := postgres.NewRepositories(db)
	return &stores{
		users:    repos.Users,
		clinics:  repos.Clinics,
		bookings: repos.Bookings,
		outbox:   repos.Outbox,
		checks:   map[string]health.Pinger{"database": db},
		close:    db.Close,
	}, nil
}
