// session — машина состояний аутентификации клиента.
//
// Состояния: unauthenticated / pending_verification / authenticated;
// ровно одно активно, переходы — только операциями Manager.
//
// Manager персистит минимальные флаги сессии (isLoggedIn,
// pendingVerification, currentEmail), чтобы при рестарте не мигать
// неправильным стартовым экраном; авторитетным при восстановлении остаётся
// наличие обеих частей пары токенов — при расхождении флаги исправляются.
//
// Вместо циклической зависимости роутера и сессии (как в исходном клиенте)
// используются наблюдатели: OnAuthenticated/OnUnauthenticated.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/storeapp/storeapp-core/internal/creds"
	"github.com/storeapp/storeapp-core/internal/kv"
	"github.com/storeapp/storeapp-core/internal/models"
	"github.com/storeapp/storeapp-core/internal/pkg/log"
)

// ErrInvalidState — операция не определена для текущего состояния
// (например, Verify вне pending_verification).
var ErrInvalidState = errors.New("operation not allowed in current session state")

// logoutRemoteTimeout — потолок best-effort серверного логаута.
const logoutRemoteTimeout = 15 * time.Second

// AuthAPI — аутентификационные вызовы, которые нужны менеджеру.
// Реализуется api.Client; в тестах подменяется моком.
type AuthAPI interface {
	Signup(ctx context.Context, email, password string) error
	VerifyOTP(ctx context.Context, email, otp string) (*models.User, models.TokenPair, error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*models.User, models.TokenPair, error)
	Logout(ctx context.Context) error
}

// Manager — владелец состояния сессии.
type Manager struct {
	api   AuthAPI
	creds *creds.Store
	kv    kv.Store

	mu       sync.Mutex
	state    models.SessionState
	onAuth   []func()
	onUnauth []func()
}

// New создаёт менеджер в состоянии unauthenticated.
func New(api AuthAPI, cr *creds.Store, store kv.Store) *Manager {
	return &Manager{
		api:   api,
		creds: cr,
		kv:    store,
		state: models.Unauthenticated(),
	}
}

// State возвращает копию текущего состояния.
func (m *Manager) State() models.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// OnAuthenticated регистрирует наблюдателя перехода в authenticated.
// Колбэки вызываются по разу на переход, вне мьютекса менеджера —
// из колбэка можно безопасно дергать Manager.
func (m *Manager) OnAuthenticated(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onAuth = append(m.onAuth, f)
}

// OnUnauthenticated регистрирует наблюдателя перехода в unauthenticated.
func (m *Manager) OnUnauthenticated(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onUnauth = append(m.onUnauth, f)
}

// Signup: unauthenticated -> pending_verification (при успехе).
// При ошибке состояние не меняется, ошибка поднимается наверх.
func (m *Manager) Signup(ctx context.Context, email, password string) error {
	const op = "session.Signup"

	if err := m.requirePhase(models.PhaseUnauthenticated); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.api.Signup(ctx, email, password); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.setState(ctx, models.PendingVerification(email))

	return nil
}

// Verify: pending_verification -> authenticated (при успехе).
func (m *Manager) Verify(ctx context.Context, otp string) error {
	const op = "session.Verify"

	st := m.State()
	if st.Phase != models.PhasePendingVerification {
		return fmt.Errorf("%s: %w", op, ErrInvalidState)
	}

	user, pair, err := m.api.VerifyOTP(ctx, st.Email, otp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.creds.Put(ctx, pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	email := st.Email
	if user != nil && user.Email != "" {
		email = user.Email
	}
	m.setState(ctx, models.Authenticated(user, email))

	return nil
}

// ResendOTP: side-effect без смены состояния; допустим только из
// pending_verification.
func (m *Manager) ResendOTP(ctx context.Context) error {
	const op = "session.ResendOTP"

	st := m.State()
	if st.Phase != models.PhasePendingVerification {
		return fmt.Errorf("%s: %w", op, ErrInvalidState)
	}

	if err := m.api.ResendOTP(ctx, st.Email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Login: unauthenticated -> authenticated (при успехе).
// Пара токенов записывается до смены состояния: наблюдатели перехода
// (replay диплинка) должны видеть рабочие учётные данные.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	const op = "session.Login"

	if err := m.requirePhase(models.PhaseUnauthenticated); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, pair, err := m.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.creds.Put(ctx, pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if user != nil && user.Email != "" {
		email = user.Email
	}
	m.setState(ctx, models.Authenticated(user, email))

	return nil
}

// Logout: authenticated -> unauthenticated, безусловно.
// Локальная очистка выполняется ДО отправки серверного вызова: медленный
// или упавший сервер не должен оставить локальную сессию залогиненной.
// Серверный логаут уходит асинхронно и best-effort.
func (m *Manager) Logout(ctx context.Context) error {
	const op = "session.Logout"

	if err := m.requirePhase(models.PhaseAuthenticated); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx)

	if err := m.creds.Clear(ctx); err != nil {
		lg.Error("logout_credentials_clear_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	m.setState(ctx, models.Unauthenticated())

	go func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutRemoteTimeout)
		defer cancel()

		if err := m.api.Logout(rctx); err != nil {
			lg.Warn("logout_remote_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}()

	return nil
}

// ForceExpire — принудительный разлогин по сигналу гейтвея (refresh
// отвергнут). Учётные данные к этому моменту уже очищены гейтвеем;
// идемпотентен, из unauthenticated — no-op.
func (m *Manager) ForceExpire() {
	const op = "session.ForceExpire"

	ctx := context.Background()

	m.mu.Lock()
	if m.state.Phase == models.PhaseUnauthenticated {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	log.From(ctx).Warn("session_force_expired", slog.String("op", op))
	m.setState(ctx, models.Unauthenticated())
}

// Restore восстанавливает состояние при старте процесса.
// Сначала читаются минимальные флаги, затем — авторитетная проверка
// наличия обеих частей пары; при расхождении побеждают токены,
// флаги исправляются.
func (m *Manager) Restore(ctx context.Context) error {
	const op = "session.Restore"

	lg := log.From(ctx)

	email := m.flagValue(ctx, kv.KeyCurrentEmail)
	loggedIn := m.flagValue(ctx, kv.KeyIsLoggedIn) == "1"
	pending := m.flagValue(ctx, kv.KeyPendingVerification) == "1"

	if _, err := m.creds.Get(ctx); err == nil {
		if !loggedIn {
			lg.Warn("session_flags_corrected",
				slog.String("op", op),
				slog.String("reason", "tokens present, flag absent"),
			)
		}

		m.setState(ctx, models.Authenticated(nil, email))

		return nil
	}

	if loggedIn {
		lg.Warn("session_flags_corrected",
			slog.String("op", op),
			slog.String("reason", "flag present, tokens absent"),
		)
	}

	if pending && email != "" {
		m.setState(ctx, models.PendingVerification(email))

		return nil
	}

	m.setState(ctx, models.Unauthenticated())

	return nil
}

// requirePhase проверяет, что операция вызвана из допустимого состояния.
func (m *Manager) requirePhase(want models.SessionPhase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Phase != want {
		return ErrInvalidState
	}

	return nil
}

// setState — единственная точка смены состояния: фиксирует переход,
// синхронизирует флаги и вне мьютекса дергает наблюдателей.
func (m *Manager) setState(ctx context.Context, next models.SessionState) {
	m.mu.Lock()
	prev := m.state
	m.state = next

	var fire []func()
	switch {
	case next.Phase == models.PhaseAuthenticated && prev.Phase != models.PhaseAuthenticated:
		fire = append(fire, m.onAuth...)
	case next.Phase == models.PhaseUnauthenticated && prev.Phase != models.PhaseUnauthenticated:
		fire = append(fire, m.onUnauth...)
	}
	m.mu.Unlock()

	m.persistFlags(ctx, next)

	log.From(ctx).Info("session_transition",
		slog.String("from", string(prev.Phase)),
		slog.String("to", string(next.Phase)),
	)

	for _, f := range fire {
		f()
	}
}

// persistFlags записывает минимальные флаги сессии. Флаги — подсказка для
// стартового экрана, а не источник истины, поэтому ошибки записи только
// логируются: авторитет — наличие токенов.
func (m *Manager) persistFlags(ctx context.Context, st models.SessionState) {
	const op = "session.persistFlags"

	lg := log.From(ctx)

	set := func(key, val string) {
		var err error
		if val == "" {
			err = m.kv.Remove(ctx, key)
		} else {
			err = m.kv.Set(ctx, key, val)
		}
		if err != nil {
			lg.Warn("session_flag_write_failed",
				slog.String("op", op),
				slog.String("key", key),
				slog.String("err", err.Error()),
			)
		}
	}

	switch st.Phase {
	case models.PhaseAuthenticated:
		set(kv.KeyIsLoggedIn, "1")
		set(kv.KeyPendingVerification, "")
		set(kv.KeyCurrentEmail, st.Email)
	case models.PhasePendingVerification:
		set(kv.KeyIsLoggedIn, "")
		set(kv.KeyPendingVerification, "1")
		set(kv.KeyCurrentEmail, st.Email)
	default:
		set(kv.KeyIsLoggedIn, "")
		set(kv.KeyPendingVerification, "")
		set(kv.KeyCurrentEmail, "")
	}
}

// flagValue читает флаг; любая ошибка хранилища трактуется как отсутствие.
func (m *Manager) flagValue(ctx context.Context, key string) string {
	v, err := m.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			log.From(ctx).Warn("session_flag_read_failed",
				slog.String("key", key),
				slog.String("err", err.Error()),
			)
		}

		return ""
	}

	return v
}
