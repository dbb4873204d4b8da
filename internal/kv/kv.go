// kv задаёт контракт durable key-value хранилища клиентского ядра
// (аналог защищённого хранилища мобильного устройства) и его реализации:
// Redis для реального окружения и in-memory для тестов/демо.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound — ключ отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrClosed — хранилище уже закрыто.
	ErrClosed = errors.New("store closed")
)

// Ключи, которыми пользуется ядро.
const (
	KeyAccessToken         = "accessToken"
	KeyRefreshToken        = "refreshToken"
	KeyPendingDeepLink     = "pendingDeepLink"
	KeyIsLoggedIn          = "isLoggedIn"
	KeyPendingVerification = "pendingVerification"
	KeyCurrentEmail        = "currentEmail"
)

// Store — контракт key-value хранилища.
// Каждая операция завершается (успехом или ошибкой) до продолжения вызывающего:
// fire-and-forget запись токенов недопустима — потерянная запись молча
// разлогинивает пользователя при следующем запуске.
type Store interface {
	// Get возвращает значение ключа или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set сохраняет значение ключа.
	Set(ctx context.Context, key, value string) error
	// Remove удаляет ключ; отсутствие ключа ошибкой не считается.
	Remove(ctx context.Context, key string) error
	// Close закрывает хранилище.
	Close() error
}
