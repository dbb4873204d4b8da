package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/storeapp/storeapp-core/internal/models"
	"github.com/storeapp/storeapp-core/internal/pkg/log"
)

// refreshKey — единственный слот single-flight: обновление пары глобально
// одно на процесс, ключ фиксирован.
const refreshKey = "refresh"

type refreshRequest struct {
	RefreshToken   string `json:"refreshToken"`
	TokenExpiresIn string `json:"token_expires_in"`
}

type refreshEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"data"`
}

// refresh выполняет обновление пары через single-flight слот: N конкурентных
// наблюдателей 401 в одном окне дают ровно один сетевой вызов, и все делят
// его исход. Проверка "есть ли refresh в полёте" атомарна внутри
// singleflight.Group — гонка чтение-затем-запись исключена структурно.
//
// Контекст владеет первый вошедший вызов; ожидающие получают его результат.
func (g *Gateway) refresh(ctx context.Context) (models.TokenPair, error) {
	v, err, _ := g.sf.Do(refreshKey, func() (any, error) {
		return g.doRefresh(ctx)
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return v.(models.TokenPair), nil
}

// doRefresh — тело обновления; исполняется только владельцем слота.
//
// Исходы:
//   - refresh-токена нет локально → локальный разлогин, ErrSessionExpired;
//   - транспортный сбой → ErrNetwork, учётные данные НЕ трогаем
//     (мигающая сеть не повод разлогинивать пользователя);
//   - не-2xx ответ → локальный разлогин, ErrSessionExpired;
//   - 2xx без обеих частей пары → локальный разлогин, ErrInvalidAuthResponse;
//   - успех → новая пара записана в хранилище ДО возврата (и значит до
//     ретрая исходного запроса).
func (g *Gateway) doRefresh(ctx context.Context) (models.TokenPair, error) {
	const op = "gateway.doRefresh"

	lg := log.From(ctx)

	pair, err := g.creds.Get(ctx)
	if err != nil {
		lg.Warn("refresh_token_missing", slog.String("op", op))
		g.expireLocal(ctx)

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}

	body, err := json.Marshal(refreshRequest{
		RefreshToken:   pair.RefreshToken,
		TokenExpiresIn: g.cfg.TokenExpiresIn,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := g.dispatch(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh-token",
		Body:   body,
	}, "")
	if err != nil {
		lg.Warn("refresh_transport_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		if errors.Is(err, ErrNetwork) {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrNetwork)
		}

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !resp.OK() {
		lg.Warn("refresh_rejected",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
		)
		g.expireLocal(ctx)

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}

	var env refreshEnvelope
	if uerr := json.Unmarshal(resp.Body, &env); uerr != nil ||
		!env.Success || env.Data.AccessToken == "" || env.Data.RefreshToken == "" {
		lg.Error("refresh_malformed_response", slog.String("op", op))
		g.expireLocal(ctx)

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidAuthResponse)
	}

	newPair := models.TokenPair{
		AccessToken:  env.Data.AccessToken,
		RefreshToken: env.Data.RefreshToken,
	}

	if err := g.creds.Put(ctx, newPair); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("token_pair_refreshed", slog.String("op", op))

	return newPair, nil
}
