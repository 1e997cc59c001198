package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"heyu/internal/api"
	"heyu/internal/audit"
	"heyu/internal/availability"
	"heyu/internal/bot"
	"heyu/internal/cache"
	"heyu/internal/config"
	"heyu/internal/database"
	"heyu/internal/events"
	"heyu/internal/google"
	"heyu/internal/grpcapi"
	"heyu/internal/metrics"
	"heyu/internal/notify"
	"heyu/internal/redisstore"
	"heyu/internal/reminders"
	"heyu/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// store is satisfied by both *database.DB and *redisstore.Store.
type store interface {
	service.ServiceStore
	service.BookingStore
	service.BlockedDateStore
	reminders.BookingStore
	audit.TableExporter
	Ping(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("HEYU_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	applySMTPEnv(&cfg.Email)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	var (
		st     store
		sqlite *database.DB
	)
	switch cfg.Storage.Driver {
	case "redis":
		if rdb == nil {
			logger.Fatal().Msg("storage.driver is redis but redis.address is empty")
		}
		st = redisstore.New(rdb, componentLogger(logger, "redisstore"))
	default:
		sqlite, err = database.NewDB(cfg.Database.Path, componentLogger(logger, "database"))
		if err != nil {
			logger.Fatal().Err(err).Msg("open db error")
		}
		defer sqlite.Close()
		st = sqlite
	}

	bus := events.NewEventBus(componentLogger(logger, "events"))

	var slotCache service.SlotCache
	if rdb != nil && cfg.AvailabilityCacheTTL() > 0 {
		slotCache = cache.NewAvailability(rdb, cfg.AvailabilityCacheTTL())
	}

	svcLogger := componentLogger(logger, "service")
	avail := service.NewAvailabilityService(availability.NewEngine(availability.DefaultRules()), st, st, st, slotCache, svcLogger)
	avail.RegisterHandlers(bus)

	if err := config.WatchHours(ctx, cfg.Hours.Path, cfg.HoursReloadInterval(), func(h *config.HoursConfig) {
		avail.SetRules(ctx, h.Rules())
	}); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Hours.Path).Msg("Business hours file not loaded, using defaults")
	}

	bookings := service.NewBookingService(st, st, avail, bus, cfg.EnforceAvailability(), svcLogger)
	blocks := service.NewBlockService(st, avail, bus, svcLogger)
	catalog := service.NewCatalogService(st, svcLogger)

	email := notify.NewEmailSender(cfg.Email, componentLogger(logger, "email"))
	if !email.Configured() {
		logger.Warn().Msg("SMTP is not configured; confirmation emails are skipped")
	}

	admin := newAdminNotifier(cfg, logger)
	sheets := newSheets(ctx, cfg, logger)

	dispatchCfg := notify.DispatcherConfig{Email: email}
	if admin != nil {
		dispatchCfg.Admin = admin
	}
	if sheets != nil {
		dispatchCfg.Mirror = sheets
		registerScheduleSync(ctx, bus, sheets, st, avail, componentLogger(logger, "sheets"))
	}
	dispatcher := notify.NewDispatcher(dispatchCfg, componentLogger(logger, "notify"))
	dispatcher.Register(ctx, bus)

	if admin != nil && cfg.Telegram.AgendaHour > 0 {
		admin.StartDailyAgenda(ctx, st, cfg.Telegram.AgendaHour)
	}

	if cfg.Reminders.Enabled {
		rem := reminders.NewService(&reminders.Config{
			CheckInterval:              cfg.ReminderInterval(),
			Lead:                       cfg.ReminderLead(),
			MaxConcurrentNotifications: 5,
			Location:                   time.Local,
		}, st, email, componentLogger(logger, "reminders"))
		rem.Start()
		defer rem.Stop()
	}

	if cfg.Audit.Enabled {
		var docs audit.Notifier
		if admin != nil {
			docs = admin
		}
		aud := audit.NewService(audit.Config{
			ExportOnStart: cfg.Audit.ExportOnStart,
			ExportDir:     cfg.Audit.ExportDir,
		}, st, nil, docs, componentLogger(logger, "audit"))
		aud.Start()
		defer aud.Stop()
	}

	if sqlite != nil && cfg.Backup.Enabled {
		backup := database.NewBackupService(sqlite, database.BackupConfig{
			Enabled:       true,
			Interval:      time.Duration(cfg.Backup.IntervalHours) * time.Hour,
			StoragePath:   cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, componentLogger(logger, "backup"))
		go backup.Start(ctx)
	}

	checks := []api.ReadyCheck{{Name: cfg.Storage.Driver, Ping: st.Ping}}
	if rdb != nil && cfg.Storage.Driver != "redis" {
		checks = append(checks, api.ReadyCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	httpServer := api.NewHTTPServer(api.Deps{
		Bookings:     bookings,
		Blocks:       blocks,
		Catalog:      catalog,
		Availability: avail,
		Email:        email,
		TestEmail:    cfg.Email.User,
		Checks:       checks,
	}, api.Options{
		Address:              cfg.Server.Address,
		CORSOrigins:          cfg.Server.CORSOrigins,
		BodyLimitBytes:       cfg.Server.BodyLimitBytes,
		BookingRatePerMinute: cfg.Server.BookingRatePerMinute,
		ReadTimeout:          cfg.ReadTimeout(),
		WriteTimeout:         cfg.WriteTimeout(),
	}, componentLogger(logger, "http"))

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", cfg.GRPC.Address)
		if err != nil {
			logger.Fatal().Err(err).Str("address", cfg.GRPC.Address).Msg("gRPC listen error")
		}
		grpcServer := grpcapi.NewServer(avail, componentLogger(logger, "grpc"))
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error().Err(err).Msg("gRPC server error")
			}
		}()
		defer grpcServer.Stop()
	}

	if cfg.Monitoring.HealthCheckPort > 0 {
		go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, checks, &logger)
	}

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Str("storage", cfg.Storage.Driver).Msg("HeyU server started")
	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown error")
	}
	dispatcher.Wait()
}

func componentLogger(base zerolog.Logger, name string) *zerolog.Logger {
	l := base.With().Str("component", name).Logger()
	return &l
}

func newAdminNotifier(cfg *config.Config, logger zerolog.Logger) *bot.AdminNotifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Info().Msg("Telegram admin notifications disabled")
		return nil
	}
	n, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.AdminChatIDs, componentLogger(logger, "telegram"))
	if err != nil {
		logger.Error().Err(err).Msg("create telegram notifier error")
		return nil
	}
	return n
}

func newSheets(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.SpreadsheetID == "" {
		return nil
	}
	s, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID,
		cfg.Google.SheetName, componentLogger(logger, "sheets"))
	if err != nil {
		logger.Error().Err(err).Msg("create sheets client error")
		return nil
	}
	return s
}

// applySMTPEnv lets the SMTP_* variables override the YAML email section.
func applySMTPEnv(c *config.SMTPConfig) {
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		c.From = v
	}
	if v := os.Getenv("SMTP_SECURE"); v != "" {
		c.Secure = v == "true"
	}
	if c.From == "" {
		c.From = c.User
	}
}

func startHealthServer(ctx context.Context, port int, checks []api.ReadyCheck, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Ping(ctxPing); err != nil {
				http.Error(w, c.Name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
