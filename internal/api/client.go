// api — тонкий клиент API маркетплейса поверх гейтвея.
// Никакого рендеринга и валидации данных — JSON-декодирование и маппинг
// статусов в ошибки ядра; всё остальное (токены, ретраи, таймауты)
// делает пакет gateway.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/storeapp/storeapp-core/internal/gateway"
)

var (
	// ErrInvalidCredentials — логин/регистрация/OTP отвергнуты сервером.
	// Показывается пользователю; состояние сессии не меняется.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound — ресурс отсутствует (товар снят с продажи и т.п.).
	ErrNotFound = errors.New("not found")

	// ErrUnexpectedStatus — сервер ответил статусом вне контракта.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Client — клиент API.
type Client struct {
	gw *gateway.Gateway
}

// New создаёт клиент поверх гейтвея.
func New(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// envelope — общий конверт ответов API: {success, message, data}.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// doJSON выполняет запрос, проверяет статус и разворачивает конверт.
// При data == nil тело data не разбирается.
func (c *Client) doJSON(ctx context.Context, req *gateway.Request, data any) error {
	const op = "api.doJSON"

	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case !resp.OK():
		return fmt.Errorf("%s: %w: %d", op, ErrUnexpectedStatus, resp.StatusCode)
	}

	var env envelope
	if err := resp.DecodeJSON(&env); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !env.Success {
		return fmt.Errorf("%s: %w: %d", op, ErrUnexpectedStatus, resp.StatusCode)
	}

	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// decodeData разбирает поле data конверта; пустое data — ошибка протокола.
func decodeData(env envelope, v any) error {
	if len(env.Data) == 0 {
		return errors.New("empty data field")
	}

	return json.Unmarshal(env.Data, v)
}

// marshalBody сериализует тело запроса.
func marshalBody(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("api.marshalBody: %w", err)
	}

	return b, nil
}
