package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	models "storefront-cart/model"
)

// ErrNotFound is wrapped by StatusError when the service answers 404.
var ErrNotFound = errors.New("catalog: not found")

// Lookup is what the cart needs from the catalog service.
type Lookup interface {
	Stock(ctx context.Context, productID int64) (models.Stock, error)
	Product(ctx context.Context, productID int64) (models.Product, error)
}

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: GET %s: status %d: %s", e.Path, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to the catalog service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Stock fetches GET /stock/{id}.
func (c *Client) Stock(ctx context.Context, productID int64) (models.Stock, error) {
	var s models.Stock
	err := c.get(ctx, fmt.Sprintf("/stock/%d", productID), &s)
	return s, err
}

// Product fetches GET /products/{id}. The returned Amount is always zero.
func (c *Client) Product(ctx context.Context, productID int64) (models.Product, error) {
	var p models.Product
	if err := c.get(ctx, fmt.Sprintf("/products/%d", productID), &p); err != nil {
		return models.Product{}, err
	}
	p.Amount = 0
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	return nil
}
