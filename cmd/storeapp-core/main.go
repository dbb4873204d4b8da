package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/storeapp/storeapp-core/internal/api"
	"github.com/storeapp/storeapp-core/internal/config"
	"github.com/storeapp/storeapp-core/internal/creds"
	"github.com/storeapp/storeapp-core/internal/gateway"
	"github.com/storeapp/storeapp-core/internal/intents"
	"github.com/storeapp/storeapp-core/internal/kv"
	"github.com/storeapp/storeapp-core/internal/models"
	"github.com/storeapp/storeapp-core/internal/pkg/log"
	"github.com/storeapp/storeapp-core/internal/session"
)

func main() {
	var (
		configPath string
		memoryKV   bool
		openURI    string
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.BoolVar(&memoryKV, "memory", false, "use in-memory storage instead of redis")
	flag.StringVar(&openURI, "open", "", "deep link uri to handle on start")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	lg := log.Setup(cfg.Env)
	slog.SetDefault(lg)
	lg.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	ctx := log.Into(rootCtx, lg)

	// Durable key-value хранилище.
	var (
		store kv.Store
		err   error
	)
	if memoryKV || cfg.Redis.RedisURL == "" {
		store = kv.NewMemory()
		lg.Info("kv_memory_selected")
	} else {
		store, err = kv.NewRedis(cfg.Redis.RedisURL, cfg.Redis.KeyPrefix)
		if err != nil {
			lg.Error("kv_redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		lg.Info("kv_redis_connected")
	}
	defer func() { _ = store.Close() }()

	// Ядро: учётные данные → гейтвей → API → сессия → роутер интентов.
	credStore := creds.New(store)

	gw, err := gateway.New(cfg.API, credStore)
	if err != nil {
		lg.Error("gateway_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	client := api.New(gw)
	sess := session.New(client, credStore, store)
	gw.SetSessionExpiredHook(sess.ForceExpire)

	host := newLoggingHost(lg)
	router := intents.NewRouter(cfg.DeepLink, store, host, sess, lg)

	// Наблюдатели регистрируются до Restore: восстановленная сессия
	// должна сразу реплеить отложенный диплинк.
	sess.OnAuthenticated(router.OnAuthenticated)
	sess.OnUnauthenticated(router.OnUnauthenticated)

	if err := sess.Restore(ctx); err != nil {
		lg.Error("session_restore_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	lg.Info("session_restored", slog.String("phase", string(sess.State().Phase)))

	// Хост "готов" после короткой инициализации — имитация прогрева UI.
	host.setReady()

	if openURI != "" {
		router.Handle(ctx, openURI)
	}

	<-rootCtx.Done()
	lg.Info("shutdown_requested")

	// Даём фоновым доставкам шанс заметить отмену.
	time.Sleep(100 * time.Millisecond)
	lg.Info("application_stopped")
}

// loggingHost — демонстрационный навигационный хост: пишет команды в лог.
type loggingHost struct {
	lg    *slog.Logger
	ready atomic.Bool
}

func newLoggingHost(lg *slog.Logger) *loggingHost {
	return &loggingHost{lg: lg}
}

func (h *loggingHost) setReady() { h.ready.Store(true) }

func (h *loggingHost) IsReady() bool { return h.ready.Load() }

func (h *loggingHost) Navigate(target models.IntentTarget, params map[string]string) {
	h.lg.Info("navigate",
		slog.String("target", string(target)),
		slog.Any("params", params),
	)
}
