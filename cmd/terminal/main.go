package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tag-wallet/config"
	httpHandler "tag-wallet/internal/adapter/http/handler"
	"tag-wallet/internal/adapter/http/middleware"
	"tag-wallet/internal/adapter/keys"
	"tag-wallet/internal/adapter/notify"
	memStorage "tag-wallet/internal/adapter/storage/memory"
	pgStorage "tag-wallet/internal/adapter/storage/postgres"
	redisStorage "tag-wallet/internal/adapter/storage/redis"
	fileTag "tag-wallet/internal/adapter/tag/file"
	memTag "tag-wallet/internal/adapter/tag/memory"
	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"
	"tag-wallet/internal/service"
	"tag-wallet/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// A .env file is optional; real deployments set TWT_* directly.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(os.Getenv("TWT_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.WithTerminal(logger.New(cfg.Log.Level, cfg.Log.Pretty), cfg.Server.TerminalID)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("device", cfg.Tag.Device).
		Msg("Starting tag wallet terminal")

	ctx := context.Background()

	// PostgreSQL is optional; without it operators and products come from config.
	var pool *pgxpool.Pool
	if cfg.Database.Enabled {
		pool, err = pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		if err := pgStorage.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
		log.Info().Msg("PostgreSQL connected")
	}

	// Redis is optional; it backs rate limiting and the shared generation floor.
	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")
	}

	// Repositories
	var (
		operatorRepo ports.OperatorRepository
		auditRepo    ports.AuditRepository
		journalRepo  ports.JournalRepository
	)
	if pool != nil {
		operatorRepo = pgStorage.NewOperatorRepo(pool)
		auditRepo = pgStorage.NewAuditRepo(pool)
		journalRepo = pgStorage.NewJournalRepo(pool)
	} else {
		operatorRepo = memStorage.NewOperatorRepository()
	}
	if err := seedOperators(ctx, operatorRepo, cfg.Auth.Operators); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed operators")
	}

	catalog, err := buildCatalog(ctx, cfg.Catalog, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load product catalog")
	}

	var tracker ports.GenerationTracker = memStorage.NewGenerationTracker()
	if cfg.Generations.Backend == "redis" {
		tracker = redisStorage.NewGenerationTracker(rdb, cfg.Generations.KeyPrefix, cfg.Generations.TTL)
	}

	// Core services
	masterKey, err := cfg.Tag.MasterKeyBytes()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid tag master key")
	}
	keyProvider, err := keys.NewStatic(masterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize key provider")
	}
	guard, err := service.NewIntegrityGuard(keyProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize integrity guard")
	}
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(operatorRepo, hashSvc, tokenSvc)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	// Outcome notifiers
	notifiers := notify.Multi{notify.NewLogNotifier(logger.Component(log, "session"))}
	if journalRepo != nil && cfg.Notify.Journal {
		encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize encryption service")
		}
		notifiers = append(notifiers, notify.NewJournalNotifier(journalRepo, encSvc, logger.Component(log, "notify.journal")))
	}
	var webhook *notify.WebhookNotifier
	if wh := cfg.Notify.Webhook; wh.URL != "" {
		webhook = notify.NewWebhookNotifier(
			wh.URL, wh.Secret, cfg.Server.TerminalID,
			wh.Retries,
			sigSvc,
			&http.Client{Timeout: wh.Timeout},
			logger.Component(log, "notify.webhook"),
		)
		notifiers = append(notifiers, webhook)
	}
	var publisher *notify.KafkaPublisher
	if kc := cfg.Notify.Kafka; len(kc.Brokers) > 0 {
		kafkaLog := logger.Component(log, "notify.kafka")
		publisher = notify.NewKafkaPublisher(notify.NewKafkaWriter(kc.Brokers, kc.Topic, kafkaLog), cfg.Server.TerminalID, kafkaLog)
		notifiers = append(notifiers, publisher)
		log.Info().Strs("brokers", kc.Brokers).Str("topic", kc.Topic).Msg("Kafka publisher enabled")
	}

	controller := service.NewSessionController(
		service.NewLedgerCodec(),
		guard,
		service.NewTransactionEngine(),
		tracker,
		notifiers,
		service.SessionConfig{
			ReadTimeout:  cfg.Tag.ReadTimeout,
			WriteTimeout: cfg.Tag.WriteTimeout,
			Capacity:     cfg.Tag.Capacity,
			VerifyWrite:  cfg.Tag.VerifyWrite,
		},
		logger.Component(log, "session"),
	)

	var device ports.TagDevice
	switch cfg.Tag.Device {
	case "file":
		device = fileTag.New(cfg.Tag.DevicePath)
	default:
		device = memTag.New(nil, cfg.Tag.Capacity)
	}

	// Health checkers and rate limiting follow whichever backends are enabled.
	var (
		checkers    []ports.HealthChecker
		rateLimiter ports.RateLimiter
	)
	if pool != nil {
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	}
	if rdb != nil {
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
		rateLimiter = redisStorage.NewRateLimitStore(rdb)
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:     authSvc,
		TokenSvc:    tokenSvc,
		Terminal:    controller,
		Cart:        service.NewCartService(catalog),
		Catalog:     catalog,
		Reader:      device,
		RateLimiter: rateLimiter,
		LoginRateLimit: middleware.RateLimitRule{
			Limit:  cfg.Auth.LoginRateLimit,
			Window: cfg.Auth.LoginRateWindow,
		},
		RechargeConfirmThreshold: cfg.Tag.RechargeConfirmThreshold,
		HealthCheckers:           checkers,
		AuditSvc:                 auditSvc,
		Logger:                   log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down terminal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	controller.Disarm()
	closeNotifiers(webhook, publisher, log)

	log.Info().Msg("Terminal exited")
}

// seedOperators creates every configured operator that does not exist yet.
func seedOperators(ctx context.Context, repo ports.OperatorRepository, ops []config.OperatorConfig) error {
	for _, oc := range ops {
		existing, err := repo.GetByUsername(ctx, oc.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		role := domain.Role(strings.ToUpper(oc.Role))
		if role != domain.RoleCashier && role != domain.RoleSupervisor {
			return fmt.Errorf("operator %q: unknown role %q", oc.Username, oc.Role)
		}
		now := time.Now().UTC()
		if err := repo.Create(ctx, &domain.Operator{
			ID:        uuid.New(),
			Username:  oc.Username,
			PINHash:   oc.PINHash,
			Role:      role,
			Status:    domain.OperatorStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// buildCatalog returns the configured product source. The postgres catalog
// is seeded with any products listed in config.
func buildCatalog(ctx context.Context, cfg config.CatalogConfig, pool *pgxpool.Pool) (ports.Catalog, error) {
	products := make([]domain.Product, 0, len(cfg.Products))
	for _, p := range cfg.Products {
		products = append(products, domain.Product{ID: p.ID, Name: p.Name, Price: p.Price})
	}
	if cfg.Source != "postgres" {
		return memStorage.NewCatalog(products)
	}
	repo := pgStorage.NewProductRepo(pool)
	if len(products) > 0 {
		if err := repo.Upsert(ctx, products); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func closeNotifiers(webhook *notify.WebhookNotifier, publisher *notify.KafkaPublisher, log zerolog.Logger) {
	if webhook != nil {
		webhook.Close()
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("closing kafka publisher")
		}
	}
}
