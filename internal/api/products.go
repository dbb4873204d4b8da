package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/storeapp/storeapp-core/internal/gateway"
)

// Product — карточка товара, как её отдаёт API.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	OwnerID     uuid.UUID `json:"ownerId"`
}

// ProductInput — тело создания/обновления товара.
type ProductInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// Products возвращает список товаров; search — опциональная поисковая строка.
func (c *Client) Products(ctx context.Context, search string) ([]Product, error) {
	const op = "api.Products"

	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}

	var out []Product
	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodGet,
		Path:   "/products",
		Query:  q,
	}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Product возвращает карточку по идентификатору (точечная выборка —
// укороченный таймаут гейтвея).
func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	const op = "api.Product"

	var out Product
	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodGet,
		Path:   "/products/" + id,
		Fetch:  true,
	}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// CreateProduct публикует новый товар.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	const op = "api.CreateProduct"

	body, err := marshalBody(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out Product
	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/products",
		Body:   body,
	}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// UpdateProduct обновляет товар целиком.
func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	const op = "api.UpdateProduct"

	body, err := marshalBody(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out Product
	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodPut,
		Path:   "/products/" + id,
		Body:   body,
	}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// DeleteProduct снимает товар с публикации.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	const op = "api.DeleteProduct"

	if err := c.doJSON(ctx, &gateway.Request{
		Method: http.MethodDelete,
		Path:   "/products/" + id,
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
