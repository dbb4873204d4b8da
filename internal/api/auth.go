package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/storeapp/storeapp-core/internal/gateway"
	"github.com/storeapp/storeapp-core/internal/models"
)

// authData — содержимое data в ответах логина/верификации.
// Правило инвалидации общее с refresh: "успех" без обеих частей пары —
// нарушение протокола, а не успех.
type authData struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// Signup регистрирует пользователя; успех переводит его в ожидание OTP.
func (c *Client) Signup(ctx context.Context, email, password string) error {
	const op = "api.Signup"

	body, err := marshalBody(credentialsRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.doAuth(ctx, "/auth/signup", body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VerifyOTP подтверждает e-mail кодом и возвращает пользователя с парой токенов.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*models.User, models.TokenPair, error) {
	const op = "api.VerifyOTP"

	body, err := marshalBody(otpRequest{Email: email, OTP: otp})
	if err != nil {
		return nil, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return c.authCall(ctx, op, "/auth/verify-otp", body)
}

// ResendOTP запрашивает повторную отправку кода.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	const op = "api.ResendOTP"

	body, err := marshalBody(emailRequest{Email: email})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.doAuth(ctx, "/auth/resend-otp", body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Login выполняет вход и возвращает пользователя с парой токенов.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, models.TokenPair, error) {
	const op = "api.Login"

	body, err := marshalBody(credentialsRequest{Email: email, Password: password})
	if err != nil {
		return nil, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return c.authCall(ctx, op, "/auth/login", body)
}

// Logout сообщает серверу о выходе. Вызов best-effort: локальная сессия
// к этому моменту уже очищена менеджером.
func (c *Client) Logout(ctx context.Context) error {
	const op = "api.Logout"

	if err := c.doAuth(ctx, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// authCall — общий путь логина/верификации: вызов + проверка полноты пары.
func (c *Client) authCall(ctx context.Context, op, path string, body []byte) (*models.User, models.TokenPair, error) {
	var data authData
	if err := c.doAuth(ctx, path, body, &data); err != nil {
		return nil, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair := models.TokenPair{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	}
	if !pair.Complete() {
		return nil, models.TokenPair{}, fmt.Errorf("%s: %w", op, gateway.ErrInvalidAuthResponse)
	}

	return data.User, pair, nil
}

// doAuth — как doJSON, но 4xx аутентификационных эндпоинтов маппится
// в ErrInvalidCredentials (на auth-путях гейтвей не запускает refresh,
// и 401 здесь означает именно отказ в учётных данных).
func (c *Client) doAuth(ctx context.Context, path string, body []byte, data any) error {
	const op = "api.doAuth"

	resp, err := c.gw.Do(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden,
		http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !resp.OK() {
		return fmt.Errorf("%s: %w: %d", op, ErrUnexpectedStatus, resp.StatusCode)
	}

	var env envelope
	if err := resp.DecodeJSON(&env); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !env.Success {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if data != nil {
		if err := decodeData(env, data); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}
