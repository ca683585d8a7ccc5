package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tienda-barrio/internal/domain"
)

// StatusError is returned for non-2xx catalog responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: unexpected status %d: %s", e.Code, e.Body)
}

// Client reads the storefront catalog API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type productsResponse struct {
	Products []domain.Product `json:"products"`
}

type productResponse struct {
	Product domain.Product `json:"product"`
}

type categoriesResponse struct {
	Categories []domain.Category `json:"categories"`
}

func (c *Client) ListProducts(ctx context.Context, f Filter) ([]domain.Product, error) {
	var out productsResponse
	if err := c.get(ctx, "/api/products?"+f.Query().Encode(), &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// GetProduct returns domain.ErrNotFound when the catalog answers 404.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var out productResponse
	if err := c.get(ctx, "/api/products/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out.Product, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out categoriesResponse
	if err := c.get(ctx, "/api/categories", &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
