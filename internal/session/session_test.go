package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/storeapp/storeapp-core/internal/creds"
	"github.com/storeapp/storeapp-core/internal/kv"
	"github.com/storeapp/storeapp-core/internal/models"
	"github.com/storeapp/storeapp-core/mocks"
)

func newManager(t *testing.T) (*Manager, *mocks.MockAuthAPI, kv.Store, *gomock.Controller) {
	t.Helper()

	ctrl := gomock.NewController(t)
	api := mocks.NewMockAuthAPI(ctrl)
	store := kv.NewMemory()
	m := New(api, creds.New(store), store)

	return m, api, store, ctrl
}

func testPair() models.TokenPair {
	return models.TokenPair{AccessToken: "at", RefreshToken: "rt"}
}

func testUser() *models.User {
	return &models.User{Email: "user@example.com", Name: "User"}
}

func TestSignup_ToPendingVerification(t *testing.T) {
	t.Parallel()

	m, api, store, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	api.EXPECT().Signup(gomock.Any(), "user@example.com", "Abcdef1!").Return(nil)

	require.NoError(t, m.Signup(ctx, "user@example.com", "Abcdef1!"))
	require.Equal(t, models.PhasePendingVerification, m.State().Phase)
	require.Equal(t, "user@example.com", m.State().Email)

	// Минимальные флаги записаны.
	v, err := store.Get(ctx, kv.KeyPendingVerification)
	require.NoError(t, err)
	require.Equal(t, "1", v)
}

func TestSignup_APIError_NoTransition(t *testing.T) {
	t.Parallel()

	m, api, _, ctrl := newManager(t)
	defer ctrl.Finish()

	api.EXPECT().Signup(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("email taken"))

	require.Error(t, m.Signup(context.Background(), "user@example.com", "pw"))
	require.Equal(t, models.PhaseUnauthenticated, m.State().Phase)
}

func TestSignup_InvalidState(t *testing.T) {
	t.Parallel()

	m, api, _, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	api.EXPECT().Signup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, m.Signup(ctx, "user@example.com", "pw"))

	// Из pending_verification повторный signup не определён.
	require.ErrorIs(t, m.Signup(ctx, "other@example.com", "pw"), ErrInvalidState)
}

func TestVerify_ToAuthenticated_FiresObserver(t *testing.T) {
	t.Parallel()

	m, api, store, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	authFired := 0
	m.OnAuthenticated(func() { authFired++ })

	api.EXPECT().Signup(gomock.Any(), "user@example.com", "pw").Return(nil)
	api.EXPECT().VerifyOTP(gomock.Any(), "user@example.com", "123456").
		Return(testUser(), testPair(), nil)

	require.NoError(t, m.Signup(ctx, "user@example.com", "pw"))
	require.NoError(t, m.Verify(ctx, "123456"))

	require.Equal(t, models.PhaseAuthenticated, m.State().Phase)
	require.Equal(t, 1, authFired)

	// Пара токенов записана, флаги синхронизированы.
	pair, err := creds.New(store).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, testPair(), pair)

	v, err := store.Get(ctx, kv.KeyIsLoggedIn)
	require.NoError(t, err)
	require.Equal(t, "1", v)

	_, err = store.Get(ctx, kv.KeyPendingVerification)
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestVerify_WrongOTP_StaysPending(t *testing.T) {
	t.Parallel()

	m, api, _, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	api.EXPECT().Signup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	api.EXPECT().VerifyOTP(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, models.TokenPair{}, errors.New("wrong otp"))

	require.NoError(t, m.Signup(ctx, "user@example.com", "pw"))
	require.Error(t, m.Verify(ctx, "000000"))
	require.Equal(t, models.PhasePendingVerification, m.State().Phase)
}

func TestVerify_InvalidState(t *testing.T) {
	t.Parallel()

	m, _, _, ctrl := newManager(t)
	defer ctrl.Finish()

	require.ErrorIs(t, m.Verify(context.Background(), "123456"), ErrInvalidState)
}

func TestResendOTP_NoStateChange(t *testing.T) {
	t.Parallel()

	m, api, _, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	api.EXPECT().Signup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	api.EXPECT().ResendOTP(gomock.Any(), "user@example.com").Return(nil)

	require.NoError(t, m.Signup(ctx, "user@example.com", "pw"))
	require.NoError(t, m.ResendOTP(ctx))
	require.Equal(t, models.PhasePendingVerification, m.State().Phase)

	// Вне pending_verification операция не определена.
	m2, _, _, ctrl2 := newManager(t)
	defer ctrl2.Finish()
	require.ErrorIs(t, m2.ResendOTP(ctx), ErrInvalidState)
}

func TestLogin_ToAuthenticated(t *testing.T) {
	t.Parallel()

	m, api, store, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	authFired := 0
	m.OnAuthenticated(func() { authFired++ })

	api.EXPECT().Login(gomock.Any(), "user@example.com", "pw").
		Return(testUser(), testPair(), nil)

	require.NoError(t, m.Login(ctx, "user@example.com", "pw"))
	require.Equal(t, models.PhaseAuthenticated, m.State().Phase)
	require.Equal(t, 1, authFired)

	pair, err := creds.New(store).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, testPair(), pair)
}

func TestLogin_InvalidCredentials_NoTransition(t *testing.T) {
	t.Parallel()

	m, api, _, ctrl := newManager(t)
	defer ctrl.Finish()

	api.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, models.TokenPair{}, errors.New("invalid credentials"))

	require.Error(t, m.Login(context.Background(), "user@example.com", "bad"))
	require.Equal(t, models.PhaseUnauthenticated, m.State().Phase)
}

func TestLogin_FromAuthenticated_InvalidState(t *testing.T) {
	t.Parallel()

	m, api, _, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	api.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testUser(), testPair(), nil)

	require.NoError(t, m.Login(ctx, "user@example.com", "pw"))
	require.ErrorIs(t, m.Login(ctx, "user@example.com", "pw"), ErrInvalidState)
}

// Логаут чистит локальную сессию синхронно, даже если серверный вызов упал.
func TestLogout_LocalFirst_RemoteBestEffort(t *testing.T) {
	t.Parallel()

	m, api, store, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	unauthFired := 0
	m.OnUnauthenticated(func() { unauthFired++ })

	remoteCalled := make(chan struct{})

	api.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testUser(), testPair(), nil)
	api.EXPECT().Logout(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(remoteCalled)
		return errors.New("server unreachable")
	})

	require.NoError(t, m.Login(ctx, "user@example.com", "pw"))
	require.NoError(t, m.Logout(ctx))

	// Локально уже разлогинены — до/независимо от исхода серверного вызова.
	require.Equal(t, models.PhaseUnauthenticated, m.State().Phase)
	require.Equal(t, 1, unauthFired)

	_, err := creds.New(store).Get(ctx)
	require.ErrorIs(t, err, creds.ErrNoCredentials)

	select {
	case <-remoteCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("remote logout was not dispatched")
	}
}

func TestLogout_InvalidState(t *testing.T) {
	t.Parallel()

	m, _, _, ctrl := newManager(t)
	defer ctrl.Finish()

	require.ErrorIs(t, m.Logout(context.Background()), ErrInvalidState)
}

func TestForceExpire(t *testing.T) {
	t.Parallel()

	m, api, _, ctrl := newManager(t)
	defer ctrl.Finish()

	unauthFired := 0
	m.OnUnauthenticated(func() { unauthFired++ })

	api.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testUser(), testPair(), nil)

	require.NoError(t, m.Login(context.Background(), "user@example.com", "pw"))

	m.ForceExpire()
	require.Equal(t, models.PhaseUnauthenticated, m.State().Phase)
	require.Equal(t, 1, unauthFired)

	// Идемпотентен.
	m.ForceExpire()
	require.Equal(t, 1, unauthFired)
}

// Восстановление: токены авторитетны, расходящиеся флаги исправляются.
func TestRestore_TokensWin(t *testing.T) {
	t.Parallel()

	m, _, store, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	// Токены есть, флага isLoggedIn нет.
	require.NoError(t, creds.New(store).Put(ctx, testPair()))
	require.NoError(t, store.Set(ctx, kv.KeyCurrentEmail, "user@example.com"))

	authFired := 0
	m.OnAuthenticated(func() { authFired++ })

	require.NoError(t, m.Restore(ctx))
	require.Equal(t, models.PhaseAuthenticated, m.State().Phase)
	require.Equal(t, "user@example.com", m.State().Email)
	require.Equal(t, 1, authFired)

	// Флаг исправлен.
	v, err := store.Get(ctx, kv.KeyIsLoggedIn)
	require.NoError(t, err)
	require.Equal(t, "1", v)
}

func TestRestore_FlagWithoutTokens_Corrected(t *testing.T) {
	t.Parallel()

	m, _, store, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, kv.KeyIsLoggedIn, "1"))
	require.NoError(t, store.Set(ctx, kv.KeyCurrentEmail, "user@example.com"))

	require.NoError(t, m.Restore(ctx))
	require.Equal(t, models.PhaseUnauthenticated, m.State().Phase)

	_, err := store.Get(ctx, kv.KeyIsLoggedIn)
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestRestore_PendingVerification(t *testing.T) {
	t.Parallel()

	m, _, store, ctrl := newManager(t)
	defer ctrl.Finish()

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, kv.KeyPendingVerification, "1"))
	require.NoError(t, store.Set(ctx, kv.KeyCurrentEmail, "user@example.com"))

	require.NoError(t, m.Restore(ctx))
	require.Equal(t, models.PhasePendingVerification, m.State().Phase)
	require.Equal(t, "user@example.com", m.State().Email)
}

func TestRestore_CleanStart(t *testing.T) {
	t.Parallel()

	m, _, _, ctrl := newManager(t)
	defer ctrl.Finish()

	require.NoError(t, m.Restore(context.Background()))
	require.Equal(t, models.PhaseUnauthenticated, m.State().Phase)
}
