package kv

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Файл интеграционных тестов для Redis-реализации kv.Store:
// - поднимает реальный Redis через testcontainers-go (образ redis:7-alpine);
// - проверяет happy-path, перезапись, удаление и маппинг redis.Nil в ErrNotFound;
// - проверяет изоляцию по префиксу ключей.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/kv -v -race -count=1

// startRedis поднимает временный Redis и возвращает URL и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startRedis(t *testing.T) (string, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")
	u := fmt.Sprintf("redis://%s:%s/0", host, port.Port())

	return u, func() { _ = c.Terminate(ctx) }
}

func TestIntegration_Redis_SetGetRemove(t *testing.T) {
	u, cleanup := startRedis(t)
	defer cleanup()

	s, err := NewRedis(u, "t1:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()

	_, err = s.Get(ctx, KeyRefreshToken)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyRefreshToken, "rt-1"))

	v, err := s.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "rt-1", v)

	require.NoError(t, s.Set(ctx, KeyRefreshToken, "rt-2"))
	v, err = s.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "rt-2", v)

	require.NoError(t, s.Remove(ctx, KeyRefreshToken))
	_, err = s.Get(ctx, KeyRefreshToken)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIntegration_Redis_PrefixIsolation(t *testing.T) {
	u, cleanup := startRedis(t)
	defer cleanup()

	a, err := NewRedis(u, "a:")
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	b, err := NewRedis(u, "b:")
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", "va"))

	_, err = b.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	v, err := a.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "va", v)
}

func TestRedis_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedis("not-a-url", "")
	require.Error(t, err)
}
