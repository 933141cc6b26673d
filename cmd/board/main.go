package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"kanban/internal/admin"
	"kanban/internal/board"
	"kanban/internal/clock"
	"kanban/internal/config"
	"kanban/internal/export"
	"kanban/internal/happyhour"
	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/notify"
	"kanban/internal/remote"
	"kanban/internal/session"
	"kanban/internal/tablecall"
	"kanban/internal/tasks"
	"kanban/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	interactive := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("BOARD_HEADLESS") == ""

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	cfg, err := config.Load(os.Getenv("BOARD_CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// The board owns the terminal in interactive mode, so logs go to a file.
	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if interactive {
		logDir := filepath.Dir(cfg.Session.Path)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "create log dir:", err)
			os.Exit(1)
		}
		logFile, err := os.OpenFile(filepath.Join(logDir, "board.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log file:", err)
			os.Exit(1)
		}
		defer logFile.Close()
		output = zerolog.ConsoleWriter{Out: logFile, TimeFormat: time.RFC3339, NoColor: true}
	}
	logger := zerolog.New(output).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openSessionStore(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open session store")
	}
	defer closeStore()

	sess := session.NewContext(store, session.Defaults{
		Branch:           model.Branch(cfg.Board.Branch),
		TelegramChatID:   cfg.Telegram.ChatID,
		TelegramThreadID: cfg.Telegram.ThreadID,
	})
	if err := sess.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load session")
	}
	defer saveSession(sess, 5*time.Second, logger)
	clk := clock.NewSession(sess, clock.Real{})

	client := remote.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.APITimeout(), logger)
	b := board.New(client, board.Options{
		Layout:          cfg.Layout(),
		DefaultCapacity: cfg.DefaultCapacity(),
		CascadeDeletes:  cfg.CascadeDeletes(),
		Clock:           clk,
	}, logger)
	poller := board.NewPoller(b, cfg.PollInterval(), cfg.AutoRefresh(), logger)
	poller.Start(ctx)
	defer poller.Stop()

	alerters := notify.Fanout{notify.NewLogAlerter(logger)}
	var recorder *notify.Recorder
	if interactive {
		recorder = notify.NewRecorder(8)
		alerters = append(alerters, recorder)
	}
	if cfg.Telegram.BotToken != "" {
		sender := notify.NewSender(cfg.Telegram.RatePerSecond, notify.RetryConfig{
			MaxRetries:  cfg.Telegram.MaxRetries,
			RetryDelays: cfg.TelegramRetryDelays(),
		}, logger)
		tg, err := notify.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.Debug, sess, sender, logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram alerts disabled")
		} else {
			alerters = append(alerters, notify.NewBestEffort(tg, logger))
		}
	}

	if cfg.HappyHourEnabled() {
		reminder := happyhour.NewReminder(happyhour.Config{
			Message:       cfg.HappyHour.Message,
			CheckInterval: cfg.HappyHourCheckInterval(),
		}, sess, b, clk, alerters, logger)
		reminder.Start(ctx)
		defer reminder.Stop()
	}

	taskSvc := tasks.NewService(client, clk, logger)
	adminSvc := admin.NewService(client, b, sess, cfg.Admin.PasswordHash, logger)
	secret := cfg.Admin.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn().Msg("admin.jwt_secret is empty, tokens will not survive a restart")
	}
	go serve(ctx, "admin", cfg.AdminAddr(), admin.NewHandler(adminSvc, taskSvc, []byte(secret)).Routes(), &logger)

	if cfg.Guest.Enabled {
		guest := tablecall.NewServer(client, tablecall.Config{
			PublicURL:      cfg.Guest.PublicURL,
			AllowedOrigins: cfg.Guest.AllowedOrigins,
			CallsPerMinute: cfg.GuestCallsPerMinute(),
			NameCacheTTL:   cfg.GuestNameCacheTTL(),
			CallTypes:      callTypes(cfg.Guest.CallTypes),
		}, logger)
		go serve(ctx, "guest", fmt.Sprintf(":%d", cfg.GuestPort()), guest.Handler(), &logger)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go serve(ctx, "health", fmt.Sprintf(":%d", cfg.Monitoring.HealthCheckPort), healthHandler(ctx, sess, client), &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go serve(ctx, "metrics", fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), mux, &logger)
	}

	logger.Info().Str("branch", string(sess.BoardBranch())).Bool("interactive", interactive).Msg("board started")

	if !interactive {
		<-ctx.Done()
		logger.Info().Msg("board stopped")
		return
	}

	app := tui.New(tui.Options{
		Board:   b,
		Poller:  poller,
		Session: sess,
		Clock:   clk,
		Alerts:  recorder.Alerts(),
		Export: func() (string, error) {
			snap := b.Snapshot()
			return export.ToFile(cfg.Export.Dir, snap.Zones, snap.Bookings, clk.Now())
		},
	})
	if _, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("board ui error")
	}
	stop()
}

func openSessionStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (session.Store, func(), error) {
	noop := func() {}
	switch cfg.Session.Backend {
	case "memory":
		return session.NewMemoryStore(), noop, nil
	case "redis":
		rdb := newRedis(cfg)
		return session.NewRedisStore(rdb, cfg.Session.Prefix), func() { _ = rdb.Close() }, nil
	case "failover":
		local, err := session.NewSQLiteStore(cfg.Session.Path)
		if err != nil {
			return nil, noop, err
		}
		rdb := newRedis(cfg)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, starting on sqlite")
		}
		store := session.NewFailoverStore(session.NewRedisStore(rdb, cfg.Session.Prefix), local, logger)
		return store, func() { _ = rdb.Close(); _ = local.Close() }, nil
	case "sqlite":
		local, err := session.NewSQLiteStore(cfg.Session.Path)
		if err != nil {
			return nil, noop, err
		}
		return local, func() { _ = local.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
}

func healthHandler(ctx context.Context, sess *session.Context, client *remote.Client) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := sess.Ping(ctxPing); err != nil {
			http.Error(w, "session store not ready", http.StatusServiceUnavailable)
			return
		}
		if err := client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "backend not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

func serve(ctx context.Context, name, addr string, h http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Str("server", name).Str("addr", addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
