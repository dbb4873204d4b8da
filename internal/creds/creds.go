// creds — хранилище учётных данных (пары access/refresh токенов) поверх
// durable key-value контракта из пакета kv.
//
// Основные аспекты:
//   - пара записывается и очищается только целиком: половинчатая запись
//     откатывается, половинчатое чтение самовосстанавливается очисткой;
//   - недоступность хранилища при чтении трактуется как отсутствие
//     учётных данных (ErrNoCredentials); при записи — поднимается
//     наверх как ErrStorage.
package creds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storeapp/storeapp-core/internal/kv"
	"github.com/storeapp/storeapp-core/internal/models"
	"github.com/storeapp/storeapp-core/internal/pkg/log"
)

var (
	// ErrNoCredentials — пара токенов отсутствует (или нечитаема).
	ErrNoCredentials = errors.New("no credentials")
	// ErrStorage — durable хранилище недоступно на записи.
	ErrStorage = errors.New("credential storage unavailable")
	// ErrIncompletePair — попытка сохранить пару без одной из частей.
	ErrIncompletePair = errors.New("incomplete token pair")
)

// Store — хранилище пары токенов.
type Store struct {
	kv kv.Store
}

// New создаёт хранилище поверх переданного kv.Store.
func New(s kv.Store) *Store {
	return &Store{kv: s}
}

// Put сохраняет пару целиком. При отказе записи refresh-части access-часть
// откатывается, чтобы на диске не осталась половинчатая пара.
func (s *Store) Put(ctx context.Context, pair models.TokenPair) error {
	const op = "creds.Put"

	lg := log.From(ctx)

	if !pair.Complete() {
		return fmt.Errorf("%s: %w", op, ErrIncompletePair)
	}

	if err := s.kv.Set(ctx, kv.KeyAccessToken, pair.AccessToken); err != nil {
		lg.Error("credentials_write_failed",
			slog.String("op", op),
			slog.String("key", kv.KeyAccessToken),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, ErrStorage)
	}

	if err := s.kv.Set(ctx, kv.KeyRefreshToken, pair.RefreshToken); err != nil {
		lg.Error("credentials_write_failed",
			slog.String("op", op),
			slog.String("key", kv.KeyRefreshToken),
			slog.String("err", err.Error()),
		)

		// Откат access-части: половинчатая пара недопустима.
		if rerr := s.kv.Remove(ctx, kv.KeyAccessToken); rerr != nil {
			lg.Error("credentials_rollback_failed",
				slog.String("op", op),
				slog.String("err", rerr.Error()),
			)
		}

		return fmt.Errorf("%s: %w", op, ErrStorage)
	}

	return nil
}

// Get возвращает сохранённую пару. Отсутствие любой из частей, как и
// недоступность хранилища, трактуется как отсутствие учётных данных;
// обнаруженная половинчатая пара подчищается.
func (s *Store) Get(ctx context.Context) (models.TokenPair, error) {
	const op = "creds.Get"

	lg := log.From(ctx)

	access, aerr := s.kv.Get(ctx, kv.KeyAccessToken)
	refresh, rerr := s.kv.Get(ctx, kv.KeyRefreshToken)

	if aerr == nil && rerr == nil {
		return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
	}

	if aerr != nil && !errors.Is(aerr, kv.ErrNotFound) {
		lg.Warn("credentials_read_failed",
			slog.String("op", op),
			slog.String("err", aerr.Error()),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrNoCredentials)
	}

	if rerr != nil && !errors.Is(rerr, kv.ErrNotFound) {
		lg.Warn("credentials_read_failed",
			slog.String("op", op),
			slog.String("err", rerr.Error()),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrNoCredentials)
	}

	// Ровно одна часть на месте — подчищаем остаток.
	if (aerr == nil) != (rerr == nil) {
		lg.Warn("credentials_half_pair_detected", slog.String("op", op))

		if err := s.Clear(ctx); err != nil {
			lg.Error("credentials_half_pair_cleanup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrNoCredentials)
}

// Clear удаляет обе части пары; возвращает первую встреченную ошибку записи.
func (s *Store) Clear(ctx context.Context) error {
	const op = "creds.Clear"

	var first error
	for _, key := range []string{kv.KeyAccessToken, kv.KeyRefreshToken} {
		if err := s.kv.Remove(ctx, key); err != nil && first == nil {
			first = err
		}
	}

	if first != nil {
		log.From(ctx).Error("credentials_clear_failed",
			slog.String("op", op),
			slog.String("err", first.Error()),
		)
		return fmt.Errorf("%s: %w", op, ErrStorage)
	}

	return nil
}
