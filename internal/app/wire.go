package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valoriste/valoriste/internal/analyzer"
	"github.com/valoriste/valoriste/internal/auth"
	s3blob "github.com/valoriste/valoriste/internal/blob/s3"
	"github.com/valoriste/valoriste/internal/cache/redis"
	"github.com/valoriste/valoriste/internal/config"
	"github.com/valoriste/valoriste/internal/crypto"
	"github.com/valoriste/valoriste/internal/domain"
	"github.com/valoriste/valoriste/internal/notify"
	"github.com/valoriste/valoriste/internal/platform/ebay"
	"github.com/valoriste/valoriste/internal/scanner"
	"github.com/valoriste/valoriste/internal/service"
	"github.com/valoriste/valoriste/internal/store/envfile"
	"github.com/valoriste/valoriste/internal/store/postgres"
)

// Dependencies bundles every dependency the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	TokenManager *auth.Manager
	Ebay         *ebay.Client

	Users *service.UserService
	Deals *service.DealService

	DealStore  domain.DealStore
	Archiver   domain.Archiver
	BlobReader domain.BlobReader

	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	Notifier *notify.Notifier
	Scanner  *scanner.Scanner

	// Redis and Postgres handles are kept for health checking.
	Redis    *redis.Client
	Postgres *postgres.Client
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function to be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (optional) ---
	var userStore domain.UserStore
	var tokenStore domain.TokenStore
	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		tokenStore = postgres.NewTokenStore(pool)
		userStore = postgres.NewUserStore(pool)
		deps.DealStore = postgres.NewDealStore(pool)
		deps.Postgres = pgClient
	} else {
		// Without a database, token state round-trips through the env file
		// the way the original deployment persisted it.
		tokenStore = envfile.NewTokenStore(cfg.Ebay.EnvFilePath)
	}

	// --- Redis (optional) ---
	var searchCache domain.SearchCache
	var valueCache domain.ValueCache
	var lockManager domain.LockManager
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		searchCache = redis.NewSearchCache(redisClient)
		valueCache = redis.NewValueCache(redisClient)
		lockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient, cfg.Ebay.RequestsPerSecond, time.Second)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Redis = redisClient
	}

	// --- OAuth token manager ---
	clientSecret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:  cfg.Ebay.ClientSecret,
		SealedPath: cfg.Ebay.EncryptedSecretPath,
		Password:   cfg.Ebay.SecretPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: client secret: %w", err)
	}

	cred := auth.NewCredential(cfg.Ebay.ClientID, clientSecret, cfg.Ebay.RedirectURI, cfg.Ebay.Scopes)
	endpoint := auth.NewEndpoint(cfg.Ebay.TokenURL, cred, nil)

	initial, err := tokenStore.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			cleanup()
			return nil, nil, fmt.Errorf("wire: loading token state: %w", err)
		}
		// No persisted pair yet; seed from config so a deployment can start
		// from manually provisioned tokens.
		initial = domain.TokenPair{
			AccessToken:  cfg.Ebay.AccessToken,
			RefreshToken: cfg.Ebay.RefreshToken,
		}
	}

	managerOpts := []auth.ManagerOption{auth.WithTokenStore(tokenStore)}
	if lockManager != nil {
		managerOpts = append(managerOpts, auth.WithLockManager(lockManager))
	}
	deps.TokenManager = auth.NewManager(endpoint, cred, cfg.Ebay.AuthHost, initial, logger, managerOpts...)

	// --- eBay Browse client ---
	ebayOpts := []ebay.Option{}
	if deps.RateLimiter != nil {
		ebayOpts = append(ebayOpts, ebay.WithRateLimiter(deps.RateLimiter, cfg.Ebay.RequestsPerSecond))
	}
	if searchCache != nil {
		ebayOpts = append(ebayOpts, ebay.WithSearchCache(searchCache, cfg.Scanner.SearchTTL.Duration))
	}
	deps.Ebay = ebay.NewClient(cfg.Ebay.APIHost, deps.TokenManager, logger, ebayOpts...)

	// --- Valuation and scoring ---
	estimator := analyzer.NewCompsEstimator(
		deps.Ebay,
		analyzer.NewMarkupEstimator(),
		valueCache,
		cfg.Scanner.ValueTTL.Duration,
		logger,
	)
	scorer := analyzer.NewScorer(analyzer.FeeSchedule{
		Percent:         cfg.Fees.FeePercent,
		Fixed:           cfg.Fees.FixedFee,
		DefaultShipping: cfg.Fees.DefaultShipping,
	})

	// --- Services ---
	deps.Users = service.NewUserService(userStore)
	deps.Deals = service.NewDealService(
		deps.Ebay,
		estimator,
		scorer,
		deps.Users,
		deps.DealStore,
		deps.SignalBus,
		cfg.Scanner.MaxConcurrentSearches,
		logger,
	)

	// --- S3 scan archival (optional) ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewScanArchiver(s3blob.NewWriter(s3Client))
		deps.BlobReader = s3blob.NewReader(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Periodic scanner ---
	deps.Scanner = scanner.New(
		deps.Deals,
		deps.Users,
		deps.Notifier,
		deps.Archiver,
		cfg.Scanner.ScanInterval.Duration,
		logger,
	)

	return deps, cleanup, nil
}
