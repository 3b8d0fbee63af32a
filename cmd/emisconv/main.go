package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/triplebob/emis-xml-convertor/internal/config"
	"github.com/triplebob/emis-xml-convertor/internal/domain/classify"
	"github.com/triplebob/emis-xml-convertor/internal/domain/lookup"
	"github.com/triplebob/emis-xml-convertor/internal/domain/translate"
	"github.com/triplebob/emis-xml-convertor/internal/platform/auth"
	"github.com/triplebob/emis-xml-convertor/internal/platform/db"
	"github.com/triplebob/emis-xml-convertor/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emisconv",
		Short: "EMIS XML to SNOMED translation service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(translateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the translation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// translateCmd runs one conversion offline: XML file in, JSON results out.
func translateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate one EMIS XML export without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			xmlPath, _ := cmd.Flags().GetString("xml")
			lookupPath, _ := cmd.Flags().GetString("lookup")
			mode, _ := cmd.Flags().GetString("mode")
			outPath, _ := cmd.Flags().GetString("out")

			if xmlPath == "" || lookupPath == "" {
				return fmt.Errorf("--xml and --lookup are required")
			}

			return runTranslate(cmd.Context(), xmlPath, lookupPath, mode, outPath)
		},
	}
	cmd.Flags().String("xml", "", "Path to the EMIS search/report XML export")
	cmd.Flags().String("lookup", "", "Path to the lookup table CSV")
	cmd.Flags().String("mode", string(translate.ModeUniqueCodes), "Deduplication mode: unique_codes or unique_per_source")
	cmd.Flags().String("out", "", "Output file (default stdout)")
	return cmd
}

func runTranslate(ctx context.Context, xmlPath, lookupPath, mode, outPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	svc, err := translate.NewService(ctx,
		lookup.NewCSVSource(lookupPath),
		cfg.LookupGUIDColumn, cfg.LookupSnomedColumn,
		newDetector(cfg))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(xmlPath)
	if err != nil {
		return fmt.Errorf("read xml file: %w", err)
	}

	results, err := svc.Translate(ctx, string(data), translate.DeduplicationMode(mode))
	if err != nil {
		return err
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(translate.TranslationResponse{
		Mode:        translate.DeduplicationMode(mode),
		Summary:     results.Summarize(),
		LookupStats: svc.LookupStats(),
		Results:     results,
	})
}

func newDetector(cfg *config.Config) *classify.Detector {
	patterns := cfg.PseudoRefsetPatterns
	if len(patterns) == 0 {
		patterns = classify.DefaultPatterns()
	}
	return classify.NewDetector(patterns...)
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Lookup source
	ctx := context.Background()
	var src lookup.Source
	var pgPool *pgxpool.Pool

	switch cfg.LookupSource {
	case config.SourcePostgres:
		pgPool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pgPool.Close()
		src = lookup.NewPGSource(pgPool, cfg.LookupTable)
		logger.Info().Str("table", cfg.LookupTable).Msg("lookup source: postgres")
	default:
		src = lookup.NewCSVSource(cfg.LookupCSVPath)
		logger.Info().Str("path", cfg.LookupCSVPath).Msg("lookup source: csv")
	}

	svc, err := translate.NewService(ctx, src, cfg.LookupGUIDColumn, cfg.LookupSnomedColumn, newDetector(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load lookup table")
	}
	logger.Info().Int("rows", svc.LookupSize()).Msg("lookup table indexed")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("50M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	translate.NewHandler(svc).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"version":     "0.1.0",
			"lookup_rows": svc.LookupSize(),
		})
	})
	if pgPool != nil {
		e.GET("/health/db", db.HealthHandler(pgPool))
	}

	// Start server with graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()
	logger.Info().Str("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
