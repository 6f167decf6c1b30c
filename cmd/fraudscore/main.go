// Command fraudscore runs the fraud scoring API and its operational helpers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dygsom/fraudscore/internal/auth"
	"github.com/dygsom/fraudscore/internal/cache"
	"github.com/dygsom/fraudscore/internal/config"
	"github.com/dygsom/fraudscore/internal/domain"
	"github.com/dygsom/fraudscore/internal/features"
	httpapi "github.com/dygsom/fraudscore/internal/interfaces/http"
	"github.com/dygsom/fraudscore/internal/metrics"
	"github.com/dygsom/fraudscore/internal/model"
	"github.com/dygsom/fraudscore/internal/persistence/postgres"
	"github.com/dygsom/fraudscore/internal/ratelimit"
	"github.com/dygsom/fraudscore/internal/scoring"
	"github.com/dygsom/fraudscore/internal/velocity"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	configPath string
	envFile    string
)

func main() {
	root := &cobra.Command{
		Use:           "fraudscore",
		Short:         "Real-time transaction fraud scoring service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to env file, ignored when absent")

	root.AddCommand(serveCmd(), keygenCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scoring API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// Amounts serialize as JSON numbers, matching the request format.
	decimal.MarshalJSONWithoutQuotes = true

	if err := godotenv.Load(envFile); err == nil {
		log.Info().Str("file", envFile).Msg("loaded environment file")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewDefault()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	go postgres.WatchPool(ctx, db, m)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	txRepo := postgres.NewTransactionsRepo(db, cfg.DBQueryTimeout, m)
	keyRepo := postgres.NewAPIKeysRepo(db, cfg.DBQueryTimeout, m)

	tiered := cache.New(rdb, cfg.CacheL1MaxSize, m)
	extractor := features.NewExtractor()
	mgr := model.NewManager(cfg.ModelPath, extractor.Count())
	aggregator := velocity.New(tiered, txRepo, cfg.CacheVelocityTTL, cfg.VelocityTimeout)

	thresholds := domain.Thresholds{
		Low:    cfg.FraudScoreLow,
		Medium: cfg.FraudScoreMedium,
		High:   cfg.FraudScoreHigh,
	}
	scorer := scoring.New(aggregator, extractor, mgr, txRepo, thresholds, m)

	server := httpapi.NewServer(cfg, httpapi.Deps{
		Scorer:    scorer,
		Auth:      auth.NewAuthenticator(keyRepo, cfg.APIKeySalt, cfg.AuthCacheTTL),
		Limiter:   ratelimit.New(rdb, m),
		IPLimiter: ratelimit.NewIPLimiter(cfg.IPRateLimitPerMinute),
		TxRepo:    txRepo,
		DB:        postgres.NewPinger(db),
		Cache:     tiered,
		Metrics:   m,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func keygenCmd() *cobra.Command {
	var salt string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an API key and its stored hash",
		Long: "Generates a new API key token and prints both the token and the " +
			"salted hash to insert into the api_keys table. The token is shown " +
			"only once; store the hash, never the token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if salt == "" {
				salt = os.Getenv("API_KEY_SALT")
			}
			if salt == "" {
				return fmt.Errorf("salt is required via --salt or API_KEY_SALT")
			}

			token, err := auth.GenerateKey()
			if err != nil {
				return err
			}

			fmt.Printf("API key:  %s\n", token)
			fmt.Printf("Key hash: %s\n", auth.HashKey(token, salt))
			return nil
		},
	}
	cmd.Flags().StringVar(&salt, "salt", "", "hash salt, defaults to API_KEY_SALT")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	log.Logger = log.Level(level)
}
