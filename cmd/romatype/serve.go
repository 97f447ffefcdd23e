package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/romatype/internal/config"
	"github.com/verte-zerg/romatype/internal/logging"
	"github.com/verte-zerg/romatype/internal/phrases"
	"github.com/verte-zerg/romatype/internal/server"
)

const (
	defaultServerAddr     = ":8080"
	defaultRateLimitRPS   = 5
	defaultRateLimitBurst = 10
)

var (
	serveAddr           string
	servePhrases        string
	serveRateLimitRPS   int
	serveRateLimitBurst int
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the phrase API server",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServerAddr, "listen address")
	cmd.Flags().StringVar(&servePhrases, "phrases", "", "phrases JSON file (default: built-in set)")
	cmd.Flags().IntVar(&serveRateLimitRPS, "rate-limit-rps", defaultRateLimitRPS, "requests per second per client")
	cmd.Flags().IntVar(&serveRateLimitBurst, "rate-limit-burst", defaultRateLimitBurst, "burst size per client")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()
	logger := logging.New(os.Stderr, !term.IsTerminal(int(os.Stderr.Fd())))

	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Precedence: flags, then environment, then config file.
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "phrases", &servePhrases, fileCfg.Server.Phrases)
	applyIntConfig(cmd, "rate-limit-rps", &serveRateLimitRPS, fileCfg.Server.RateLimitRPS)
	applyIntConfig(cmd, "rate-limit-burst", &serveRateLimitBurst, fileCfg.Server.RateLimitBurst)
	if port := os.Getenv("PORT"); port != "" && !cmd.Flags().Changed("addr") {
		serveAddr = ":" + port
	}
	applyStringConfig(cmd, "phrases", &servePhrases, envString("ROMATYPE_PHRASES"))
	applyIntConfig(cmd, "rate-limit-rps", &serveRateLimitRPS, envInt(logger, "ROMATYPE_RATE_LIMIT_RPS"))
	applyIntConfig(cmd, "rate-limit-burst", &serveRateLimitBurst, envInt(logger, "ROMATYPE_RATE_LIMIT_BURST"))

	if serveRateLimitRPS <= 0 || serveRateLimitBurst <= 0 {
		return fmt.Errorf("rate limits must be > 0")
	}

	list, err := loadPhrases(servePhrases)
	if err != nil {
		return err
	}
	counts := phrases.CountByDifficulty(list)
	logger.Info().Int("phrases", len(list)).Interface("by_difficulty", counts).Msg("loaded phrases")

	production := os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production"
	srv := server.New(server.Config{
		Addr:           serveAddr,
		RateLimitRPS:   serveRateLimitRPS,
		RateLimitBurst: serveRateLimitBurst,
		Production:     production,
	}, list, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("phrase server failed: %w", err)
	}
	return nil
}

func envString(key string) *string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	return &val
}

func envInt(logger zerolog.Logger, key string) *int {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("ignoring invalid integer")
		return nil
	}
	return &i
}
