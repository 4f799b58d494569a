package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/config"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/consumer"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/handler"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/reconciler"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/repository"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/service"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/store"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/database"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/pubsub"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	// 3. Init DB and migrate the graph tables
	db, err := database.New(cfg.Database.Database())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// 4. Counter cache and pair lock
	var (
		cache  store.CounterCache = store.NopCounterCache{}
		locker store.PairLocker   = store.NewLocalPairLocker()
	)
	if cfg.Redis.Enabled {
		client, err := store.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()

		cache = store.NewRedisCounterCache(client, cfg.Cache.TTL)
		locker = store.NewRedisPairLocker(client, cfg.Lock.TTL, cfg.Lock.Retry)
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	} else {
		logger.Warn().Msg("redis disabled; counter cache off and pair lock is process-local")
	}

	// 5. Event publisher
	publisher, err := pubsub.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to create event publisher")
	}

	// 6. Create repo, svc
	repo := repository.NewGormGraphRepository(db)
	svc := service.NewFollowGraphService(repo, cache, locker, publisher)

	// 7. Token verification for the auth middleware
	verifier, err := jwt.NewVerifierFromFile(cfg.Auth.PublicKeyPath, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Auth.PublicKeyPath).Msg("failed to load auth public key")
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 8. Init Kafka consumer for user profile changes
	var kafkaConsumer *consumer.ConfluentConsumer
	if cfg.Kafka.Enabled {
		kc, err := consumer.NewConfluentConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topic,
			cfg.Kafka.GroupID,
			service.NewProfileSync(repo.Stores().Users),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka consumer, profile sync disabled")
		} else if err := kc.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to start kafka consumer")
		} else {
			kafkaConsumer = kc
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka CDC consumer started")
		}
	} else {
		logger.Info().Msg("kafka disabled; profile sync off")
	}

	// 9. Init reconciler and start
	var rec *reconciler.Reconciler
	if cfg.Reconciler.Enabled {
		rec = reconciler.New(repo, cache, cfg.Reconciler)
		rec.Start(ctx)
		logger.Info().
			Dur("interval", cfg.Reconciler.Interval).
			Int("top_n", cfg.Reconciler.TopN).
			Bool("repair", cfg.Reconciler.Repair).
			Msg("reconciler started")
	}

	// 10. Setup Gin router + HTTP server
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger, "/health"))

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Idle)
	}

	r.GET("/health", handler.Health)
	handler.NewHandler(svc, authMiddleware, limiter).RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("follow-graph-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. gRPC health endpoint
	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = grpc.NewServer(
			grpc.UnaryInterceptor(pkglog.UnaryServerInterceptor(logger)),
			grpc.StreamInterceptor(pkglog.StreamServerInterceptor(logger)),
		)
		healthServer := health.NewServer()
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcServer, healthServer)

		grpcAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.Port)
		listener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			logger.Fatal().Str("addr", grpcAddr).Err(err).Msg("failed to listen")
		}
		go func() {
			logger.Info().Str("addr", grpcAddr).Msg("gRPC health server starting")
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error().Err(err).Msg("gRPC server error")
			}
		}()
	}

	// 12. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		cancel()

		if kafkaConsumer != nil {
			if err := kafkaConsumer.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing kafka consumer")
			}
		}

		if rec != nil {
			rec.Stop()
			<-rec.Done()
		}

		if grpcServer != nil {
			grpcServer.GracefulStop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}

		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing event publisher")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("follow-graph-service stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
