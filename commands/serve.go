package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"brandmatch_server/config"
	"brandmatch_server/events"
	"brandmatch_server/routes"
	"brandmatch_server/services"
	"brandmatch_server/socket"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and Socket.IO server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// app is the wired server plus what must be closed on shutdown
type app struct {
	handler http.Handler
	hub     *socket.Hub
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	go a.hub.Serve()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if err := a.hub.Close(); err != nil {
		logger.Warn("socket shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// buildApp connects the backing services and wires the HTTP handler
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	dynamoClient, err := services.InitializeDynamoDBClient(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	dynamo := services.NewDynamoService(dynamoClient, logger)

	var revocations services.RevocationStore
	if cfg.Redis.URL != "" {
		redisClient, err := services.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		revocations = services.NewRedisRevocationStore(redisClient)
		logger.Info("token revocation backed by redis")
	} else {
		revocations = services.NewMemoryRevocationStore()
		logger.Warn("REDIS_URL not set, token revocation is process-local")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = nc.Drain() })
		publisher = events.NewNATSPublisher(nc, logger)
	} else {
		logger.Warn("NATS_URL not set, domain events are dropped")
	}

	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.StateTTL)
	auth := &services.AuthService{
		Dynamo:      dynamo,
		Tokens:      tokens,
		Revocations: revocations,
		Events:      publisher,
		Logger:      logger.Named("auth"),
		BcryptCost:  cfg.Auth.BcryptCost,
		ResetTTL:    cfg.Auth.ResetTokenTTL,
	}
	profiles := &services.UserProfileService{Dynamo: dynamo, Logger: logger.Named("profiles")}
	campaigns := &services.CampaignService{Dynamo: dynamo, Profiles: profiles, Logger: logger.Named("campaigns")}
	matches := &services.MatchService{
		Dynamo:    dynamo,
		Profiles:  profiles,
		Campaigns: campaigns,
		Events:    publisher,
		Logger:    logger.Named("matches"),
	}

	hub := socket.NewHub(auth, matches, logger.Named("socket"))
	matches.Notifier = hub
	a.hub = hub

	chat := &services.ChatService{
		Dynamo:   dynamo,
		Matches:  matches,
		Events:   publisher,
		Notifier: hub,
		Logger:   logger.Named("chat"),
	}
	hub.Messages = chat

	svc := routes.Services{
		Auth:      auth,
		Profiles:  profiles,
		Instagram: services.NewInstagramService(cfg.Instagram, tokens, profiles, dynamo, logger.Named("instagram")),
		Campaigns: campaigns,
		Discovery: &services.DiscoveryService{
			Dynamo:       dynamo,
			Profiles:     profiles,
			Campaigns:    campaigns,
			Logger:       logger.Named("discovery"),
			DefaultLimit: cfg.Discovery.DefaultLimit,
			MaxLimit:     cfg.Discovery.MaxLimit,
		},
		Swipes: &services.SwipeService{
			Dynamo:    dynamo,
			Profiles:  profiles,
			Campaigns: campaigns,
			Matches:   matches,
			Logger:    logger.Named("swipes"),
		},
		Matches: matches,
		Chat:    chat,
	}

	if cfg.AWS.S3BucketName != "" {
		s3Client, err := services.NewS3Client(ctx, cfg.AWS)
		if err != nil {
			a.close()
			return nil, err
		}
		svc.Media = &services.MediaService{
			Presigner: s3.NewPresignClient(s3Client),
			Bucket:    cfg.AWS.S3BucketName,
			Expires:   cfg.AWS.PresignExpires,
			Matches:   matches,
			Logger:    logger.Named("media"),
		}
	} else {
		logger.Warn("S3_BUCKET_NAME not set, media routes disabled")
	}

	// Socket.IO bypasses the router middleware, which does not support hijacking
	root := http.NewServeMux()
	root.Handle("/socket.io/", hub.Server)
	root.Handle("/", routes.NewRouter(svc, logger.Named("http")))

	a.handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		AllowCredentials: true,
	}).Handler(root)
	return a, nil
}
