package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	"github.com/KirkDiggler/rpg-arena/internal/config"
	"github.com/KirkDiggler/rpg-arena/internal/engine/battle"
	"github.com/KirkDiggler/rpg-arena/internal/engine/catalog"
	"github.com/KirkDiggler/rpg-arena/internal/engine/room"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/handlers/arena/v1alpha1"
	"github.com/KirkDiggler/rpg-arena/internal/handlers/roomws"
	arenaorch "github.com/KirkDiggler/rpg-arena/internal/orchestrators/arena"
	"github.com/KirkDiggler/rpg-arena/internal/orchestrators/rooms"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/idgen"
	redisclient "github.com/KirkDiggler/rpg-arena/internal/redis"
	arenaprofile "github.com/KirkDiggler/rpg-arena/internal/repositories/arena_profile"
	battleresult "github.com/KirkDiggler/rpg-arena/internal/repositories/battle_result"
	defensebuild "github.com/KirkDiggler/rpg-arena/internal/repositories/defense_build"
	"github.com/KirkDiggler/rpg-arena/internal/services/rating"
)

var (
	configPath   string
	grpcPort     int
	wsPort       int
	redisAddr    string
	catalogPath  string
	otlpEndpoint string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the arena and room servers",
	Long:  `Start the arena gRPC server and the room websocket gateway.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	serverCmd.Flags().IntVar(&grpcPort, "port", 0, "gRPC server port")
	serverCmd.Flags().IntVar(&wsPort, "ws-port", 0, "Room websocket port")
	serverCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address")
	serverCmd.Flags().StringVar(&catalogPath, "catalog", "", "Content catalog YAML")
	serverCmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC trace endpoint")
}

// loadConfig reads the config file and applies flags that were set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.GRPCPort = grpcPort
	}
	if flags.Changed("ws-port") {
		cfg.Server.WSPort = wsPort
	}
	if flags.Changed("redis-addr") {
		cfg.Redis.Addr = redisAddr
		cfg.Redis.MasterName = ""
	}
	if flags.Changed("catalog") {
		cfg.CatalogPath = catalogPath
	}
	if flags.Changed("otlp-endpoint") {
		cfg.Tracing.Endpoint = otlpEndpoint
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func newRedisClient(cfg config.RedisConfig) (redisclient.Client, error) {
	opts := &redisclient.Options{
		PoolSize:        cfg.PoolSize,
		MaxRetries:      cfg.MaxRetries,
		ConnMaxIdleTime: cfg.MaxIdleTime,
		UseTLS:          cfg.UseTLS,
	}
	if cfg.Sentinel() {
		return redisclient.NewFailoverClient(cfg.MasterName, cfg.SentinelAddrs, opts)
	}
	return redisclient.NewClient(cfg.Addr, opts)
}

// roomSettings builds the settings for rooms created over HTTP
func roomSettings(cfg config.RoomConfig) room.Settings {
	settings := room.DefaultSettings()
	settings.TickRate = cfg.TickRate
	settings.MinPlayers = cfg.MinPlayers
	settings.MaxPlayers = cfg.MaxPlayers
	settings.FillTimeout = cfg.FillTimeout
	settings.Countdown = cfg.Countdown
	settings.TimeLimit = cfg.TimeLimit
	settings.IdleTimeout = cfg.IdleTimeout
	settings.ScoreLimit = cfg.ScoreLimit
	return settings
}

// buildArena wires the arena repositories, rating and battle engine
func buildArena(cfg *config.Config, client redisclient.Client, cat *catalog.Catalog) (arenaorch.Service, error) {
	clk := clock.New()

	profileRepo, err := arenaprofile.NewRedis(&arenaprofile.RedisConfig{
		Client:         client,
		Clock:          clk,
		SeasonID:       cfg.Arena.SeasonID,
		StartingRating: cfg.Arena.StartingRating,
		Attempts: arena.AttemptPolicy{
			Max:            cfg.Arena.MaxAttempts,
			RefillInterval: cfg.Arena.RefillInterval,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile repository: %w", err)
	}

	defenseRepo, err := defensebuild.NewRedis(&defensebuild.RedisConfig{Client: client, Clock: clk})
	if err != nil {
		return nil, fmt.Errorf("failed to create defense repository: %w", err)
	}

	resultRepo, err := battleresult.NewRedis(&battleresult.RedisConfig{
		Client:       client,
		HistoryLimit: cfg.Arena.HistoryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create result repository: %w", err)
	}

	ratingService, err := rating.NewService(&rating.Config{ProfileRepo: profileRepo, K: cfg.Rating.K})
	if err != nil {
		return nil, fmt.Errorf("failed to create rating service: %w", err)
	}

	simulator, err := battle.NewSimulator(&battle.Config{
		Catalog:    cat,
		TickRate:   cfg.Arena.TickRate,
		MaxTicks:   cfg.Arena.MaxTicks,
		Separation: battle.DefaultSeparation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	return arenaorch.NewOrchestrator(&arenaorch.Config{
		ProfileRepo:      profileRepo,
		DefenseRepo:      defenseRepo,
		ResultRepo:       resultRepo,
		Rating:           ratingService,
		Engine:           simulator,
		Catalog:          cat,
		IDGenerator:      idgen.NewUUID("battle"),
		Clock:            clk,
		Workers:          cfg.Arena.Workers,
		RatingK:          cfg.Rating.K,
		OpponentCount:    cfg.Arena.OpponentCount,
		Band:             cfg.Arena.Band,
		BandStep:         cfg.Arena.BandStep,
		MaxBand:          cfg.Arena.MaxBand,
		ChallengeTimeout: cfg.Arena.ChallengeTimeout,
	})
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	client, err := newRedisClient(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer func() { _ = client.Close() }()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	arenaService, err := buildArena(cfg, client, cat)
	if err != nil {
		return err
	}

	scheduler, err := rooms.NewScheduler(&rooms.Config{
		Catalog:     cat,
		IDGenerator: idgen.NewUUID("room"),
		MaxRooms:    cfg.Room.MaxRooms,
		Shards:      cfg.Room.Shards,
	})
	if err != nil {
		return fmt.Errorf("failed to create room scheduler: %w", err)
	}

	arenaHandler, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{ArenaService: arenaService})
	if err != nil {
		return fmt.Errorf("failed to create arena handler: %w", err)
	}
	roomHandler, err := roomws.NewHandler(&roomws.HandlerConfig{
		Rooms:          scheduler,
		Settings:       roomSettings(cfg.Room),
		OriginPatterns: cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("failed to create room handler: %w", err)
	}

	logger := interceptorLogger(slog.Default())
	recovery := grpc_recovery.WithRecoveryHandlerContext(func(_ context.Context, p any) error {
		return errors.ToGRPCError(errors.FromPanic(p, "handler panicked"))
	})
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(logger),
			grpc_recovery.UnaryServerInterceptor(recovery),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(logger),
			grpc_recovery.StreamServerInterceptor(recovery),
		),
	)
	v1alpha1.RegisterArenaServiceServer(srv, arenaHandler)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(v1alpha1.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	registerReflection(srv)

	lis, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(cfg.Server.GRPCPort)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	httpSrv := &http.Server{
		Addr:    net.JoinHostPort("", strconv.Itoa(cfg.Server.WSPort)),
		Handler: roomHandler.Routes(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("gRPC server starting", "port", cfg.Server.GRPCPort)
		if err := srv.Serve(lis); err != nil {
			return fmt.Errorf("failed to serve grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("Room gateway starting", "port", cfg.Server.WSPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to serve websockets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		reconcileRatings(gctx, arenaService, cfg.Arena.ReconcileInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			slog.Warn("Graceful shutdown timeout exceeded, forcing stop")
			srv.Stop()
		}

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Room gateway shutdown", "error", err)
		}
		if err := scheduler.ShutdownAll(shutdownCtx); err != nil {
			slog.Warn("Rooms did not stop in time", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// reconcileRatings applies unconfirmed battle ratings at startup and then
// every interval until ctx ends
func reconcileRatings(ctx context.Context, svc arenaorch.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := svc.ReconcileRatings(ctx, &arenaorch.ReconcileRatingsInput{}); err != nil && ctx.Err() == nil {
			slog.Warn("Rating reconciliation failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// interceptorLogger adapts slog to the grpc middleware logger
func interceptorLogger(l *slog.Logger) grpc_logging.Logger {
	return grpc_logging.LoggerFunc(func(ctx context.Context, lvl grpc_logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}
