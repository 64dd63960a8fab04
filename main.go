package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/cache"
	"social-scheduler/infrastructure/clients/social"
	"social-scheduler/infrastructure/configuration"
	"social-scheduler/infrastructure/jobs"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/infrastructure/persistence"
	"social-scheduler/infrastructure/pubsub"
	"social-scheduler/infrastructure/realtime"
	"social-scheduler/infrastructure/secret"
	"social-scheduler/infrastructure/servicebus"
	httpHandler "social-scheduler/interfaces/http"
	"social-scheduler/server"
	"social-scheduler/usecase"

	"golang.org/x/sync/errgroup"
)

// listenerTimeout bounds how long a broker or history sink may hold up batch dispatch.
const listenerTimeout = 10 * time.Second

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")
	configuration.Reload()
	cfg := &configuration.C

	if err := configuration.Validate(cfg); err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Invalid configuration")
	}
	codec, err := secret.NewCodec(cfg.Encryption.Key)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot build secret codec")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	db, posts, credentials, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Database initialization failed")
	}
	defer db.Close()

	verifiers := InitiateVerifierStore(ctx, cfg, codec)
	providers := InitiateProviders(verifiers, codec)
	if len(providers) == 0 {
		logger.GetLogger().Warn("No provider clients configured; linking and publishing are disabled")
	}

	locks := usecase.NewKeyLock()
	engine := usecase.NewPublishEngine(posts, credentials, codec, providers, usecase.EngineConfig{
		Interval:       time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
		MaxConcurrency: cfg.Scheduler.MaxConcurrency,
		MaxRetries:     cfg.Scheduler.MaxRetries,
		BatchSize:      cfg.Scheduler.BatchSize,
		PublishTimeout: time.Duration(cfg.Scheduler.PublishTimeoutSeconds) * time.Second,
		RefreshWindow:  time.Duration(cfg.Scheduler.RefreshWindowSeconds) * time.Second,
	}, usecase.WithPostLocks(locks))
	controller := usecase.NewServiceController(engine)

	hub := realtime.NewBatchHub()
	controller.Subscribe(hub.BroadcastBatch)
	history := InitiateBatchSinks(ctx, cfg, controller)

	credentialUsecase := usecase.NewCredentialUsecase(credentials, codec, providers...)

	var subscriptions repository.ISubscription
	if billing, err := persistence.NewBillingDB(); err != nil {
		logger.GetLogger().WithField("error", err).Info("Billing database not available - scheduling is not gated on subscriptions")
	} else {
		subscriptions = persistence.NewSubscriptionRepository(billing)
	}
	postUsecase := usecase.NewPostUsecase(posts, subscriptions, locks, providers...)

	maintenance := jobs.NewMaintenance(verifiers, time.Duration(cfg.VerifierStore.TTLMinutes)*time.Minute)
	if err := maintenance.Start(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to start maintenance jobs")
	}

	router := server.InitiateRouter(server.Handlers{
		OAuth:     httpHandler.NewOAuthHandler(credentialUsecase),
		Debug:     httpHandler.NewDebugHandler(cfg, providers...),
		Scheduler: httpHandler.NewSchedulerHandler(controller, hub, history),
		Post:      httpHandler.NewPostHandler(postUsecase),
		Health:    httpHandler.NewHealthHandler(controller),
	}, cfg.App.SecretKey, cfg.App.CORSOrigins)

	if cfg.Scheduler.Enabled {
		controller.Start()
	} else {
		logger.GetLogger().Info("Scheduler disabled by configuration; start it via POST /api/scheduler/start")
	}

	app := cfg.App
	logger.GetLogger().WithFields(map[string]interface{}{"port": app.Port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", app.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
		} else {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	// Stop waits for an in-flight tick so no post is left half-processed.
	controller.Stop()
	maintenance.Stop()
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
	logger.GetLogger().Info("Application stopped")
}

// InitiateDatabase opens the primary store and returns the repositories bound to it:
// MSSQL in production (or when DB_VENDOR=mssql), PostgreSQL otherwise.
func InitiateDatabase() (*sql.DB, repository.IScheduledPost, repository.ICredential, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, nil, nil, err
		}
		if err := persistence.EnsureSchemaMSSQL(mssql); err != nil {
			_ = mssql.Close()
			return nil, nil, nil, err
		}
		logger.GetLogger().Info("Using MSSQL repositories")
		return mssql, persistence.NewScheduledPostRepositoryMSSQL(mssql), persistence.NewCredentialRepositoryMSSQL(mssql), nil
	}

	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, nil, nil, err
	}
	if err := persistence.EnsureSchema(postgres); err != nil {
		_ = postgres.Close()
		return nil, nil, nil, err
	}
	logger.GetLogger().Info("Using PostgreSQL repositories")
	return postgres, persistence.NewScheduledPostRepository(postgres), persistence.NewCredentialRepository(postgres), nil
}

// InitiateVerifierStore picks the pending-verifier backend. A redis backend that cannot be
// reached falls back to memory, which only works for a single instance.
func InitiateVerifierStore(ctx context.Context, cfg *configuration.Config, codec *secret.Codec) repository.IVerifierStore {
	ttl := time.Duration(cfg.VerifierStore.TTLMinutes) * time.Minute
	if cfg.VerifierStore.Backend == "redis" {
		client, err := cache.NewCache(
			ctx,
			fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
			cfg.RedisClient.Username,
			cfg.RedisClient.Password,
			cfg.RedisClient.DatabaseName,
		)
		if err == nil {
			logger.GetLogger().Info("Redis verifier store initialized successfully.")
			return cache.NewRedisVerifierStore(client, cfg.VerifierStore.KeyPrefix, ttl, codec)
		}
		logger.GetLogger().WithField("error", err).Warn("Redis not available - falling back to in-memory verifier store")
	}
	return cache.NewMemoryVerifierStore(ttl)
}

// InitiateProviders builds a client for every provider that has a client id configured.
func InitiateProviders(verifiers repository.IVerifierStore, codec *secret.Codec) []repository.IProviderClient {
	var providers []repository.IProviderClient
	for _, name := range []string{"twitter", "linkedin"} {
		pc, err := configuration.GetProviderConfig(name)
		if err != nil || pc.ClientID == "" {
			logger.GetLogger().WithField("provider", name).Info("Provider not configured - skipping")
			continue
		}
		opts := social.Options{
			ClientID:      pc.ClientID,
			ClientSecret:  pc.ClientSecret,
			RedirectURL:   pc.RedirectURL,
			Scopes:        pc.Scopes,
			AuthURL:       pc.AuthURL,
			TokenURL:      pc.TokenURL,
			APIBaseURL:    pc.APIBaseURL,
			RatePerMinute: pc.RatePerMinute,
		}
		switch name {
		case "twitter":
			providers = append(providers, social.NewTwitterClient(opts, verifiers, codec))
		case "linkedin":
			providers = append(providers, social.NewLinkedInClient(opts, verifiers, codec))
		}
		logger.GetLogger().WithField("provider", name).WithField("redirect", pc.RedirectURL).Info("Provider client initialized")
	}
	return providers
}

// InitiateBatchSinks subscribes the optional brokers and the batch history store to the controller.
// Every sink is best-effort; a missing one only disables its fan-out. The history store is
// returned for the read endpoint and is nil when MongoDB is not available.
func InitiateBatchSinks(ctx context.Context, cfg *configuration.Config, controller usecase.IServiceController) repository.IBatchHistory {
	if cfg.Pubsub.ProjectID != "" {
		client, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without PubSub fan-out")
		} else {
			controller.Subscribe(usecase.PublisherListener("pubsub", pubsub.NewBatchPublisher(client, cfg.Pubsub.TopicID), listenerTimeout))
		}
	}

	if cfg.ServiceBus.Namespace != "" {
		client, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus fan-out")
		} else {
			controller.Subscribe(usecase.PublisherListener("servicebus", servicebus.NewBatchPublisher(client, cfg.ServiceBus.QueueName), listenerTimeout))
		}
	}

	mongo := cfg.Database.Mongo
	if mongo.Host != "" {
		client, err := persistence.NewMongoDb(mongo.Host, mongo.Port, mongo.User, mongo.Password, mongo.Name)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB not available - batch history disabled")
			return nil
		}
		if err := client.Ping(ctx, nil); err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - batch history disabled")
			return nil
		}
		history := persistence.NewBatchHistoryRepository(client, mongo.Name)
		controller.Subscribe(usecase.HistoryListener(history, listenerTimeout))
		logger.GetLogger().Info("MongoDB connected successfully")
		return history
	}
	return nil
}
