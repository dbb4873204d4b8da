package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/storeapp/storeapp-core/internal/config"
	"github.com/storeapp/storeapp-core/internal/creds"
	"github.com/storeapp/storeapp-core/internal/gateway"
	"github.com/storeapp/storeapp-core/internal/kv"
	"github.com/storeapp/storeapp-core/internal/models"
)

// newClient поднимает фейковый API на httptest и собирает клиент поверх
// гейтвея с уже записанной парой токенов (непарсящийся access-токен не
// триггерит проактивный refresh).
func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.APIConfig{
		BaseURL:        srv.URL,
		Timeout:        2 * time.Second,
		FetchTimeout:   2 * time.Second,
		TokenExpiresIn: "30d",
	}

	cr := creds.New(kv.NewMemory())
	require.NoError(t, cr.Put(context.Background(), models.TokenPair{
		AccessToken:  "opaque-at",
		RefreshToken: "opaque-rt",
	}))

	gw, err := gateway.New(cfg, cr)
	require.NoError(t, err)

	return New(gw)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestLogin_DecodesUserAndPair(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.Equal(t, "user@example.com", body.Email)
		require.Equal(t, "pw", body.Password)

		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"user":         map[string]any{"email": "user@example.com", "name": "User"},
				"accessToken":  "new-at",
				"refreshToken": "new-rt",
			},
		})
	})

	c := newClient(t, r)

	user, pair, err := c.Login(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "user@example.com", user.Email)
	require.Equal(t, models.TokenPair{AccessToken: "new-at", RefreshToken: "new-rt"}, pair)
}

func TestLogin_Rejected(t *testing.T) {
	t.Parallel()

	// 4xx аутентификационного эндпоинта и success:false при 200 —
	// одна и та же ошибка для вызывающего.
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "401",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid credentials"})
			},
		},
		{
			name: "422",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusUnprocessableEntity, map[string]any{"success": false})
			},
		},
		{
			name: "success false",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusOK, map[string]any{"success": false, "message": "wrong password"})
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := chi.NewRouter()
			r.Post("/auth/login", tc.handler)

			c := newClient(t, r)

			_, _, err := c.Login(context.Background(), "user@example.com", "bad")
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

// "Успех" без обеих частей пары — нарушение протокола, а не успех.
func TestLogin_IncompletePair(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"accessToken": "new-at"},
		})
	})

	c := newClient(t, r)

	_, _, err := c.Login(context.Background(), "user@example.com", "pw")
	require.ErrorIs(t, err, gateway.ErrInvalidAuthResponse)
}

func TestSignup_OK(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/auth/signup", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusCreated, map[string]any{"success": true, "message": "otp sent"})
	})

	c := newClient(t, r)
	require.NoError(t, c.Signup(context.Background(), "user@example.com", "pw"))
}

func TestVerifyOTP_OK(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/auth/verify-otp", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Email string `json:"email"`
			OTP   string `json:"otp"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.Equal(t, "123456", body.OTP)

		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"user":         map[string]any{"email": body.Email},
				"accessToken":  "new-at",
				"refreshToken": "new-rt",
			},
		})
	})

	c := newClient(t, r)

	user, pair, err := c.VerifyOTP(context.Background(), "user@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, "user@example.com", user.Email)
	require.True(t, pair.Complete())
}

func TestProducts_List(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/products", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "chair", req.URL.Query().Get("search"))
		require.Equal(t, "Bearer opaque-at", req.Header.Get("Authorization"))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "p1", "title": "Chair", "price": 49.9},
				{"id": "p2", "title": "Armchair", "price": 149.0},
			},
		})
	})

	c := newClient(t, r)

	got, err := c.Products(context.Background(), "chair")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "p1", got[0].ID)
	require.Equal(t, 149.0, got[1].Price)
}

func TestProduct_NotFound(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"success": false, "message": "gone"})
	})

	c := newClient(t, r)

	_, err := c.Product(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Delete("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]any{"success": false})
	})

	c := newClient(t, r)

	err := c.DeleteProduct(context.Background(), "p1")
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}
