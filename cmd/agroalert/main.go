// agroalert is the alerting service for small-scale growers: it evaluates
// alert rules and condition generators against user data and weather, and
// serves the resulting alerts over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/agroalert/agroalert/internal/alerting"
	"github.com/agroalert/agroalert/internal/api"
	"github.com/agroalert/agroalert/internal/conf"
	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
	"github.com/agroalert/agroalert/internal/knowledge"
	"github.com/agroalert/agroalert/internal/notify"
	"github.com/agroalert/agroalert/internal/weather"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "agroalert",
		Short:         "Agricultural alert engine and API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(serveCommand(&configPath))
	root.AddCommand(processCommand(&configPath))
	root.AddCommand(generateCommand(&configPath))
	root.AddCommand(seedCommand(&configPath))

	return root
}

// app bundles everything a command needs after startup.
type app struct {
	settings  *conf.Settings
	log       *zap.Logger
	db        *gorm.DB
	alerts    repository.AlertRepository
	rules     repository.AlertRuleRepository
	prefs     repository.PreferenceRepository
	users     repository.UserRepository
	crops     *knowledge.Store
	metrics   *alerting.Metrics
	registry  *prometheus.Registry
	engine    *alerting.Engine
	generator *alerting.Generator
	auto      *alerting.AutoService
}

func newApp(configPath string) (*app, error) {
	settings, err := conf.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := buildLogger(settings.Log)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(settings.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(
		&entities.User{},
		&entities.Culture{},
		&entities.Alert{},
		&entities.AlertRule{},
		&entities.UserAlertPreference{},
		&entities.CropProfile{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	alerts := repository.NewAlertRepository(db)
	rules := repository.NewAlertRuleRepository(db)
	prefs := repository.NewPreferenceRepository(db)
	users := repository.NewUserRepository(db)
	crops := knowledge.NewStore(repository.NewCropProfileRepository(db))

	registry := prometheus.NewRegistry()
	metrics := alerting.NewMetrics(registry)

	notifier, err := buildNotifier(settings.Notify, log)
	if err != nil {
		return nil, err
	}

	provider := weather.NewStaticProvider()

	engine := alerting.NewEngine(alerting.EngineConfig{
		Alerts:      alerts,
		Rules:       rules,
		Preferences: prefs,
		Users:       users,
		Weather:     provider,
		Notifier:    notifier,
		Metrics:     metrics,
		Log:         log,
	})
	generator := alerting.NewGenerator(alerting.GeneratorConfig{
		Alerts:  alerts,
		Users:   users,
		Weather: provider,
		Crops:   crops,
		Metrics: metrics,
		Log:     log,
	})
	auto := alerting.NewAutoService(prefs, generator, metrics, log, nil)

	return &app{
		settings:  settings,
		log:       log,
		db:        db,
		alerts:    alerts,
		rules:     rules,
		prefs:     prefs,
		users:     users,
		crops:     crops,
		metrics:   metrics,
		registry:  registry,
		engine:    engine,
		generator: generator,
		auto:      auto,
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) seedRules(ctx context.Context) error {
	if err := alerting.SeedDefaultRules(ctx, a.rules, a.log); err != nil {
		return fmt.Errorf("failed to seed default rules: %w", err)
	}
	return nil
}

func buildLogger(cfg conf.LogSettings) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Encoding == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Encoding = "console"
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func openDatabase(cfg conf.DatabaseSettings) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	}
	switch cfg.Driver {
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN), gormCfg)
	default:
		return gorm.Open(sqlite.Open(cfg.DSN+"?_foreign_keys=ON"), gormCfg)
	}
}

func buildNotifier(cfg conf.NotifySettings, log *zap.Logger) (notify.Notifier, error) {
	if cfg.EmailURL == "" && cfg.SMSURL == "" {
		return nil, nil
	}
	var emailURLs, smsURLs []string
	if cfg.EmailURL != "" {
		emailURLs = append(emailURLs, cfg.EmailURL)
	}
	if cfg.SMSURL != "" {
		smsURLs = append(smsURLs, cfg.SMSURL)
	}
	return notify.NewShoutrrrNotifier(emailURLs, smsURLs, log)
}

func serveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the alert scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if a.settings.Engine.SeedDefaults {
				if err := a.seedRules(ctx); err != nil {
					return err
				}
			}

			scheduler := alerting.NewScheduler(a.engine, a.auto, a.alerts, a.log, alerting.SchedulerConfig{
				ProcessInterval: a.settings.Engine.ProcessInterval.Std(),
				AutoGenInterval: a.settings.Engine.AutoGenInterval.Std(),
				CleanupSpec:     a.settings.Engine.CleanupSpec,
			})
			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			defer scheduler.Stop()

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true

			controller := api.NewController(api.ControllerConfig{
				Engine:    a.engine,
				Generator: a.generator,
				Auto:      a.auto,
				Rules:     a.rules,
				Prefs:     a.prefs,
				Crops:     a.crops,
				Log:       a.log,
			})
			controller.Register(e)
			if a.settings.HTTP.Metrics {
				controller.RegisterMetrics(e, a.registry)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- e.Start(a.settings.HTTP.Listen)
			}()
			a.log.Info("agroalert serving",
				zap.String("listen", a.settings.HTTP.Listen),
				zap.Bool("metrics", a.settings.HTTP.Metrics))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case sig := <-quit:
				a.log.Info("shutting down", zap.String("signal", sig.String()))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}

func processCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one alert processing batch and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.engine.ProcessAllAlerts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
}

func generateCommand(configPath *string) *cobra.Command {
	var userID uint

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run condition-driven alert generation and exit",
		Long: "Runs one auto-generation sweep over every preference with a due " +
			"schedule, or the full generator set for a single user with --user.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if userID != 0 {
				created, duplicates, err := a.generator.GenerateForUser(cmd.Context(), userID)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]int{
					"created":    created,
					"duplicates": duplicates,
				})
			}

			summary, err := a.auto.RunAutoGeneration(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "generate for this user only, ignoring schedules")
	return cmd
}

func seedCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the built-in alert rules and default preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.seedRules(ctx); err != nil {
				return err
			}

			users, err := a.users.ListActive(ctx)
			if err != nil {
				return err
			}
			for i := range users {
				if err := alerting.EnsureDefaultPreferences(ctx, a.prefs, users[i].ID); err != nil {
					return fmt.Errorf("failed to seed preferences for user %d: %w", users[i].ID, err)
				}
			}
			a.log.Info("seeding completed", zap.Int("users", len(users)))
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
