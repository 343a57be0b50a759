package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/hireflow/internal/api"
	"github.com/soaringjerry/hireflow/internal/cache"
	"github.com/soaringjerry/hireflow/internal/config"
	dbstore "github.com/soaringjerry/hireflow/internal/db"
	"github.com/soaringjerry/hireflow/internal/logger"
	"github.com/soaringjerry/hireflow/internal/messaging"
	"github.com/soaringjerry/hireflow/internal/metrics"
	"github.com/soaringjerry/hireflow/internal/middleware"
	"github.com/soaringjerry/hireflow/internal/services"
	"github.com/soaringjerry/hireflow/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("failed to load .env file")
	}
	cfg := config.Load()
	log := logger.New("hireflow", cfg.LogLevel)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.Level)
	if cfg.InsecureResumeSecret() {
		log.Component("config").Warn("HIREFLOW_RESUME_SECRET is not set; resume tokens use the built-in development secret")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg, log, m)
	defer closeStore()

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		pub, err := messaging.NewRabbitMQPublisher(cfg.AMQPURL)
		if err != nil {
			log.Component("messaging").WithError(err).Warn("RabbitMQ unavailable, completion events disabled")
		} else {
			defer pub.Close()
			if err := pub.DeclareQueue(services.QueueResponseCompleted); err != nil {
				log.Component("messaging").WithError(err).Warn("declare queue")
			}
			events = pub
		}
	}

	router := api.NewRouter(store, events, middleware.NewResumeTokens(cfg.ResumeTokenSecret, cfg.ResumeTokenTTL))
	router.SetLogger(log.Component("api"))
	router.SetMetrics(m)
	if cfg.RedisAddr != "" {
		drafts, err := cache.NewRedisDraftStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.DraftTTL)
		if err != nil {
			log.Component("cache").WithError(err).Warn("Redis unavailable, drafts stay in the main store")
		} else {
			defer drafts.Close()
			router.SetDraftStore(drafts)
		}
	}

	mux := http.NewServeMux()
	router.Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Hireflow API",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})
	mux.Handle("/metrics", m.Handler())
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	handler := middleware.Chain(mux,
		middleware.RequestLogger(log.Component("http"), m),
		middleware.SecureHeaders,
		middleware.CORS(""),
		middleware.NoStore,
		middleware.LocaleMiddleware,
	)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	log.Component("server").Infof("Hireflow server listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Component("server").WithError(err).Fatal("server error")
	}
}

// openStore prefers SQLite and falls back to the in-memory store when the
// database cannot be opened.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (api.Store, func()) {
	l := log.Component("store")
	if cfg.SQLitePath == "" {
		l.Warn("no SQLite path configured, using in-memory store")
		return api.NewMemoryStore(), func() {}
	}
	if err := MigrateIfNeeded(ctx, cfg.LegacySnapshotPath, cfg.SQLitePath, cfg.MigrationsDir, l); err != nil {
		l.WithError(err).Error("legacy migration failed")
	}
	s, err := dbstore.Open(cfg.SQLitePath, cfg.MigrationsDir)
	if err != nil {
		l.WithError(err).Error("open SQLite, using in-memory store")
		return api.NewMemoryStore(), func() {}
	}
	s.SetLogger(l)
	go reportPoolStats(ctx, s, m, cfg.DraftTTL, l)
	return s, func() {
		if err := s.Close(); err != nil {
			l.WithError(err).Warn("close SQLite")
		}
	}
}

// reportPoolStats refreshes the pool gauges and purges stale drafts.
func reportPoolStats(ctx context.Context, s *dbstore.SQLiteStore, m *metrics.Metrics, draftTTL time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RecordDBPoolStats(s.Stats())
			if draftTTL <= 0 {
				continue
			}
			if n, err := s.PurgeDrafts(ctx, time.Now().Add(-draftTTL)); err != nil {
				log.WithError(err).Warn("purge drafts")
			} else if n > 0 {
				log.WithField("count", n).Info("purged stale drafts")
			}
		}
	}
}
