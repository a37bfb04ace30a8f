package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maternity/records/internal/config"
	"github.com/maternity/records/internal/domain/catalog"
	"github.com/maternity/records/internal/domain/obstetrics"
	"github.com/maternity/records/internal/domain/patient"
	"github.com/maternity/records/internal/platform/audit"
	"github.com/maternity/records/internal/platform/auth"
	"github.com/maternity/records/internal/platform/cache"
	"github.com/maternity/records/internal/platform/db"
	"github.com/maternity/records/internal/platform/flash"
	"github.com/maternity/records/internal/platform/metrics"
	"github.com/maternity/records/internal/platform/middleware"
	"github.com/maternity/records/internal/platform/reporting"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "maternity-server",
		Short:        "Maternity records API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
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
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			dir := migrationsDir(cmd, cfg)
			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) from %s.\n", count, dir)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate reports",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the obstetrics report as a spreadsheet or print document",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			out, _ := cmd.Flags().GetString("out")

			write, err := exporterFor(format)
			if err != nil {
				return err
			}
			r, err := reporting.ParseRange(from, to)
			if err != nil {
				return err
			}

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := reporting.NewService(reporting.NewReaderPG(pool), nil, 0, newLogger(cfg.Env, os.Stderr))
			rep, err := svc.Obstetrics(ctx, r)
			if err != nil {
				return err
			}
			if out == "" {
				out = reporting.Filename(rep, format)
			}
			if err := writeFile(out, func(w io.Writer) error { return write(w, rep) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d births, %d newborns).\n", out, rep.Counts.Births, rep.Counts.Newborns)
			return nil
		},
	}
	exportCmd.Flags().String("format", "xlsx", "Output format: xlsx or pdf")
	exportCmd.Flags().String("from", "", "First birth date included (YYYY-MM-DD)")
	exportCmd.Flags().String("to", "", "Last birth date included (YYYY-MM-DD)")
	exportCmd.Flags().String("out", "", "Output file (default named after the period)")
	cmd.AddCommand(exportCmd)

	return cmd
}

func exporterFor(format string) (func(io.Writer, *reporting.ObstetricsReport) error, error) {
	switch strings.ToLower(format) {
	case "xlsx":
		return reporting.WriteXLSX, nil
	case "pdf":
		return reporting.WritePDF, nil
	}
	return nil, fmt.Errorf("unsupported format %q, use xlsx or pdf", format)
}

// writeFile writes through a temporary file in the same directory so a
// failed export never leaves a truncated file behind.
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg.Env, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var reportCache reporting.Cache
	if cfg.RedisURL != "" {
		c, err := cache.New(cfg.RedisURL, "maternity:")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure report cache")
		}
		defer c.Close()
		if err := c.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("report cache unreachable, reports will be computed on every request")
		}
		reportCache = c
		logger.Info().Dur("ttl", cfg.ReportCacheTTL).Msg("report cache enabled")
	}

	e := newServer(cfg, logger, pool, metrics.New(), reportCache)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and every route. Nothing touches the pool
// until a request needs it.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, m *metrics.Metrics, reportCache reporting.Cache) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger, m))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(auth.Authenticate(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
		Logger:     logger,
	}))
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: unauthenticated requests act as the development superuser")
		e.Use(auth.DevAuthMiddleware())
	}
	e.Use(middleware.AuditActor(logger))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))

	e.GET("/", func(c echo.Context) error {
		msgs := flash.Pop(c)
		if msgs == nil {
			msgs = []flash.Message{}
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"service":  "maternity-records",
			"version":  version,
			"messages": msgs,
		})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	gate := auth.NewGate(auth.NewProfileRepoPG(pool), logger, m, auth.GateConfig{
		LoginURL: cfg.LoginURL,
		HomeURL:  cfg.HomeURL,
	})
	tx := db.NewTransactor(pool)
	trail := audit.NewStorePG(pool)
	recorder := audit.NewRecorder(trail, logger, m)

	catalogRepo := catalog.NewRepoPG(pool)
	catalog.NewHandler(catalogRepo, gate).RegisterRoutes(apiV1)

	patientSvc := patient.NewService(patient.NewPatientRepoPG(pool), patient.NewCaseRepoPG(pool), tx, recorder)
	patient.NewHandler(patientSvc, gate).RegisterRoutes(apiV1)

	obstetricsSvc := obstetrics.NewService(obstetrics.Deps{
		Births:     obstetrics.NewBirthRepoPG(pool),
		Newborns:   obstetrics.NewNewbornRepoPG(pool),
		Discharges: obstetrics.NewDischargeRepoPG(pool),
		Board:      obstetrics.NewBoardRepoPG(pool),
		Patients:   patientSvc,
		BirthTypes: catalogRepo,
		Tx:         tx,
		Audit:      recorder,
	})
	obstetrics.NewHandler(obstetricsSvc, gate).RegisterRoutes(apiV1)

	audit.NewHandler(trail, gate, cfg.AuditSearchLimit).RegisterRoutes(apiV1)

	reportSvc := reporting.NewService(reporting.NewReaderPG(pool), reportCache, cfg.ReportCacheTTL, logger)
	reporting.NewHandler(reportSvc, gate).RegisterRoutes(apiV1)

	return e
}
