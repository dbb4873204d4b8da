package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/storeapp/storeapp-core/internal/gateway"
	"github.com/storeapp/storeapp-core/internal/models"
)

// ProfileInput — изменяемые поля профиля.
type ProfileInput struct {
	Name string `json:"name"`
}

// Profile возвращает профиль текущего пользователя.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	const op = "api.Profile"

	var out models.User
	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodGet,
		Path:   "/profile",
		Fetch:  true,
	}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// UpdateProfile обновляет профиль текущего пользователя.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (*models.User, error) {
	const op = "api.UpdateProfile"

	body, err := marshalBody(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.User
	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodPut,
		Path:   "/profile",
		Body:   body,
	}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
