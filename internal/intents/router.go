package intents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/storeapp/storeapp-core/internal/config"
	"github.com/storeapp/storeapp-core/internal/kv"
	"github.com/storeapp/storeapp-core/internal/models"
	"github.com/storeapp/storeapp-core/internal/pkg/log"
)

// ErrNotReady — навигационный хост не стал готов за отведённые попытки;
// интент дропается и не перевыставляется.
var ErrNotReady = errors.New("navigation host not ready")

// NavigationHost — контракт навигационного хоста приложения.
type NavigationHost interface {
	// IsReady сообщает, готов ли хост принимать команды.
	IsReady() bool
	// Navigate выполняет переход на экран target с параметрами params.
	Navigate(target models.IntentTarget, params map[string]string)
}

// SessionSource — чтение состояния сессии (реализуется session.Manager).
type SessionSource interface {
	State() models.SessionState
}

// Router — координатор навигационных интентов.
type Router struct {
	cfg     config.DeepLinkConfig
	store   kv.Store
	host    NavigationHost
	session SessionSource
	lg      *slog.Logger

	// replayCancel отменяет цикл ожидания готовности при разлогине,
	// чтобы replay не выстрелил в уже неаутентифицированное приложение.
	mu           sync.Mutex
	replayCancel context.CancelFunc
	replayDone   chan struct{} // закрывается по завершении replay
}

// NewRouter создаёт роутер. Наблюдателей сессии регистрирует сборка:
//
//	sess.OnAuthenticated(router.OnAuthenticated)
//	sess.OnUnauthenticated(router.OnUnauthenticated)
func NewRouter(cfg config.DeepLinkConfig, store kv.Store, host NavigationHost, session SessionSource, lg *slog.Logger) *Router {
	if lg == nil {
		lg = slog.Default()
	}

	return &Router{
		cfg:     cfg,
		store:   store,
		host:    host,
		session: session,
		lg:      lg,
	}
}

// Handle принимает сырой URI (из UI или подсистемы уведомлений).
// Ошибки разбора и доставки пользователю не всплывают: диплинк, который
// нельзя исполнить, молча логируется.
func (r *Router) Handle(ctx context.Context, uri string) {
	const op = "intents.Handle"

	lg := log.From(ctx)

	intent, err := Parse(r.cfg.Scheme, uri)
	if err != nil {
		lg.Warn("deep_link_dropped",
			slog.String("op", op),
			slog.String("uri", uri),
			slog.String("err", err.Error()),
		)

		return
	}

	r.route(ctx, intent)
}

// route гейтит интент по состоянию сессии. Публичных экранов нет:
// каждая реальная цель живёт за аутентификацией, поэтому гейт единый.
func (r *Router) route(ctx context.Context, intent models.NavigationIntent) {
	const op = "intents.route"

	lg := log.From(ctx)

	if r.session.State().Phase != models.PhaseAuthenticated {
		// Персист (last-writer-wins), затем — на экран входа.
		if err := r.persist(ctx, intent); err != nil {
			lg.Error("pending_intent_persist_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else {
			lg.Info("deep_link_deferred",
				slog.String("op", op),
				slog.String("target", string(intent.Target)),
			)
		}

		r.host.Navigate(models.TargetLogin, nil)

		return
	}

	if err := r.deliver(ctx, intent); err != nil {
		lg.Warn("deep_link_delivery_failed",
			slog.String("op", op),
			slog.String("target", string(intent.Target)),
			slog.String("err", err.Error()),
		)
	}
}

// OnAuthenticated — наблюдатель перехода сессии в authenticated.
// Загружает отложенный интент, немедленно очищает слот (at-most-once:
// лучше потерять интент на краше, чем доставить дважды) и запускает
// асинхронную доставку, отменяемую разлогином.
func (r *Router) OnAuthenticated() {
	const op = "intents.OnAuthenticated"

	ctx := log.Into(context.Background(), r.lg)

	intent, ok := r.loadPending(ctx)
	if !ok {
		return
	}

	replayCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	if r.replayCancel != nil {
		r.replayCancel()
	}
	r.replayCancel = cancel
	r.replayDone = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		if err := r.deliver(replayCtx, intent); err != nil {
			r.lg.Warn("deep_link_replay_failed",
				slog.String("op", op),
				slog.String("target", string(intent.Target)),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// OnUnauthenticated — наблюдатель разлогина: отменяет replay в полёте.
func (r *Router) OnUnauthenticated() {
	r.mu.Lock()
	cancel := r.replayCancel
	r.replayCancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// deliver доставляет интент: опрашивает готовность хоста ограниченное число
// раз с фиксированной паузой; по готовности выдаёт навигационную команду и
// чистит слот. Не дождавшись — дропает (не перевыставляет). Отмена контекста
// (разлогин) прерывает ожидание без навигации.
func (r *Router) deliver(ctx context.Context, intent models.NavigationIntent) error {
	const op = "intents.deliver"

	lg := log.From(ctx)

	attempts := r.cfg.ReplayAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if r.host.IsReady() {
			// Страховка от гонки доставки с разлогином.
			if r.session.State().Phase != models.PhaseAuthenticated {
				return fmt.Errorf("%s: %w", op, context.Canceled)
			}

			r.host.Navigate(intent.Target, intent.Params)
			lg.Info("deep_link_delivered",
				slog.String("op", op),
				slog.String("target", string(intent.Target)),
			)

			if err := r.store.Remove(ctx, kv.KeyPendingDeepLink); err != nil {
				lg.Warn("pending_intent_clear_failed",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
			}

			return nil
		}

		// Последняя неудачная проверка паузу не ждёт.
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(r.cfg.ReplayInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s: %w", op, ErrNotReady)
}

// persist пишет интент в слот pendingDeepLink, перезаписывая предыдущий.
func (r *Router) persist(ctx context.Context, intent models.NavigationIntent) error {
	const op = "intents.persist"

	raw, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.store.Set(ctx, kv.KeyPendingDeepLink, string(raw)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// loadPending читает отложенный интент и сразу очищает слот.
// Нечитаемый или протухший интент дропается.
func (r *Router) loadPending(ctx context.Context) (models.NavigationIntent, bool) {
	const op = "intents.loadPending"

	lg := log.From(ctx)

	raw, err := r.store.Get(ctx, kv.KeyPendingDeepLink)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			lg.Warn("pending_intent_read_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}

		return models.NavigationIntent{}, false
	}

	// Очистка до доставки — гарантия at-most-once.
	if err := r.store.Remove(ctx, kv.KeyPendingDeepLink); err != nil {
		lg.Warn("pending_intent_clear_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	var intent models.NavigationIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		lg.Warn("pending_intent_malformed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return models.NavigationIntent{}, false
	}

	if r.cfg.IntentTTL > 0 && time.Since(intent.CreatedAt) > r.cfg.IntentTTL {
		lg.Info("pending_intent_expired",
			slog.String("op", op),
			slog.String("target", string(intent.Target)),
		)

		return models.NavigationIntent{}, false
	}

	return intent, true
}
