package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/storeapp/storeapp-core/internal/gateway"
)

// CartItem — позиция корзины.
type CartItem struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type cartAddRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart возвращает текущее содержимое корзины.
func (c *Client) Cart(ctx context.Context) ([]CartItem, error) {
	const op = "api.Cart"

	var out []CartItem
	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodGet,
		Path:   "/cart",
	}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// AddToCart кладёт товар в корзину.
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) error {
	const op = "api.AddToCart"

	body, err := marshalBody(cartAddRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/cart",
		Body:   body,
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RemoveFromCart убирает товар из корзины.
func (c *Client) RemoveFromCart(ctx context.Context, productID string) error {
	const op = "api.RemoveFromCart"

	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodDelete,
		Path:   "/cart/" + productID,
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
