// gateway — единая точка исходящих вызовов API маркетплейса.
//
// Обязанности:
//   - прикладывает bearer-токен из хранилища учётных данных;
//   - детектирует 401 и прозрачно обновляет пару токенов ровно один раз
//     на запрос, single-flight для всех конкурентных наблюдателей 401;
//   - до заведомого 401 проверяет exp access-токена и обновляет пару
//     проактивно (через тот же single-flight слот);
//   - классифицирует транспортные сбои отдельно от авторизационных.
//
// Порядок при ретрае жёсткий: повторный запрос уходит строго после того,
// как владеющий refresh завершился и новая пара записана в хранилище.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/storeapp/storeapp-core/internal/config"
	"github.com/storeapp/storeapp-core/internal/creds"
	"github.com/storeapp/storeapp-core/internal/pkg/log"
)

// Request — описание исходящего вызова в терминах ядра.
// Body хранится байтами, а не ридером, чтобы запрос можно было
// повторить после обновления пары.
type Request struct {
	Method string
	// Path — путь относительно базового URL API, например "/products".
	Path  string
	Query url.Values
	// Body — JSON-тело; nil для запросов без тела.
	Body []byte
	// Fetch помечает точечную выборку одного ресурса:
	// для неё действует укороченный таймаут.
	Fetch bool
}

// Response — ответ сервера с прочитанным телом.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK сообщает об успешном (2xx) статусе.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON разбирает тело ответа в v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Gateway — шлюз исходящих запросов.
type Gateway struct {
	httpc *http.Client
	base  *url.URL
	cfg   config.APIConfig
	creds *creds.Store

	// sf — координационный токен обновления пары: первый наблюдатель 401
	// становится владельцем, остальные ждут его исход.
	sf singleflight.Group

	// onSessionExpired выставляется при сборке приложения до первого запроса
	// (обычно session.Manager.ForceExpire) и далее не меняется.
	onSessionExpired func()
}

// New создаёт гейтвей поверх хранилища учётных данных.
func New(cfg config.APIConfig, cr *creds.Store) (*Gateway, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway.New: parse base url: %w", err)
	}

	return &Gateway{
		httpc: &http.Client{},
		base:  base,
		cfg:   cfg,
		creds: cr,
	}, nil
}

// SetSessionExpiredHook регистрирует колбэк принудительного разлогина.
// Вызывается из сборки приложения до начала запросов.
func (g *Gateway) SetSessionExpiredHook(f func()) {
	g.onSessionExpired = f
}

// Do выполняет запрос по алгоритму из шапки пакета.
func (g *Gateway) Do(ctx context.Context, req *Request) (*Response, error) {
	const op = "gateway.Do"

	lg := log.From(ctx)
	authEndpoint := isAuthPath(req.Path)

	token := ""
	refreshed := false

	pair, err := g.creds.Get(ctx)
	switch {
	case err == nil:
		token = pair.AccessToken
	case !authEndpoint:
		// Запрос без токена к защищённому эндпоинту не блокируем —
		// поведение исходного клиента намеренно разрешительное.
		lg.Warn("missing_token_policy_violation",
			slog.String("op", op),
			slog.String("path", req.Path),
		)
	}

	// Проактивное обновление: истёкший JWT гарантированно принесёт 401,
	// нет смысла жечь на него сетевой вызов.
	if token != "" && !authEndpoint && accessExpired(token) {
		lg.Debug("access_token_expired_proactive_refresh",
			slog.String("op", op),
			slog.String("path", req.Path),
		)

		newPair, rerr := g.refresh(ctx)
		if rerr != nil {
			return nil, fmt.Errorf("%s: %w", op, rerr)
		}

		token = newPair.AccessToken
		refreshed = true
	}

	resp, err := g.dispatch(ctx, req, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !authEndpoint && !refreshed {
		lg.Debug("unauthorized_attempting_refresh",
			slog.String("op", op),
			slog.String("path", req.Path),
		)

		newPair, rerr := g.refresh(ctx)
		if rerr != nil {
			return nil, fmt.Errorf("%s: %w", op, rerr)
		}

		// Ровно один повтор; второй 401 отдаётся вызывающему как есть,
		// чтобы не зациклиться на неисправном сервере.
		retry, err := g.dispatch(ctx, req, newPair.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return retry, nil
	}

	return resp, nil
}

// dispatch собирает и отправляет HTTP-запрос, читает тело ответа целиком.
// Любой транспортный сбой (включая таймаут) маппится в ErrNetwork.
func (g *Gateway) dispatch(ctx context.Context, r *Request, bearer string) (*Response, error) {
	const op = "gateway.dispatch"

	// Уважаем существующий deadline; иначе навешиваем свой.
	if _, ok := ctx.Deadline(); !ok {
		d := g.cfg.Timeout
		if r.Fetch && g.cfg.FetchTimeout > 0 {
			d = g.cfg.FetchTimeout
		}

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	u := g.base.JoinPath(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", uuid.NewString())
	if len(r.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	httpResp, err := g.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNetwork)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNetwork)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// isAuthPath — эндпоинты аутентификации: для них не выполняется ни
// прикладывание обязательного токена, ни обновление пары (refresh
// никогда не обновляет сам себя), ни принудительный разлогин по их ошибкам.
func isAuthPath(p string) bool {
	return strings.HasPrefix(p, "/auth/")
}

// expiryLeeway — допуск на рассинхронизацию часов при проверке exp.
const expiryLeeway = 5 * time.Second

// accessExpired проверяет exp access-токена без проверки подписи
// (подпись — дело сервера). Непарсибельный или безэкспайерный токен
// считается живым и отправляется как есть.
func accessExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return time.Now().After(exp.Time.Add(expiryLeeway))
}

// expireLocal очищает учётные данные и сигналит менеджеру сессии.
func (g *Gateway) expireLocal(ctx context.Context) {
	const op = "gateway.expireLocal"

	if err := g.creds.Clear(ctx); err != nil {
		log.From(ctx).Error("credentials_clear_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	if g.onSessionExpired != nil {
		g.onSessionExpired()
	}
}
