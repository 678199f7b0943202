package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/storefront/pkg/httpclient"
)

// serviceName qualifies errors parsed from backend responses.
const serviceName = "backend"

// ListProducts fetches the product catalog, optionally filtered by category.
// The catalog is public; no auth is attached.
func (c *Client) ListProducts(ctx context.Context, category string) ([]Product, error) {
	endpoint := "/products/"
	if category != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}

	resp, err := c.Request(ctx, nil, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	var products []Product
	if err := decode(resp, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches a single product by ID.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	resp, err := c.Request(ctx, nil, http.MethodGet, "/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	var product Product
	if err := decode(resp, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Login exchanges credentials for a bearer token. The backend expects a
// form-encoded username/password pair, not JSON.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call backend login: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", httpclient.ParseResponseError(resp, serviceName)
	}

	var token Token
	if err := decode(resp, &token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// RegisterInput is the payload for creating a new user account.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Register creates a new user account. The caller still needs to log in
// afterwards; registration does not issue a token.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*User, error) {
	resp, err := c.Request(ctx, nil, http.MethodPost, "/users/", input)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	var user User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser fetches the profile of the authenticated user.
func (c *Client) CurrentUser(ctx context.Context, ts TokenSource) (*User, error) {
	resp, err := c.Request(ctx, ts, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	var user User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCart fetches the authenticated user's server-side cart.
func (c *Client) GetCart(ctx context.Context, ts TokenSource) (*Cart, error) {
	resp, err := c.Request(ctx, ts, http.MethodGet, "/cart/", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	var cart Cart
	if err := decode(resp, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartItem adds a product to the server-side cart. The server merges
// quantity into an existing line item for the same product.
func (c *Client) AddCartItem(ctx context.Context, ts TokenSource, productID string, quantity int) error {
	body := struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}{ProductID: productID, Quantity: quantity}

	resp, err := c.Request(ctx, ts, http.MethodPost, "/cart/items/", body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	_ = resp.Body.Close()
	return nil
}

// UpdateCartItem sets the quantity of a server-side cart line item.
func (c *Client) UpdateCartItem(ctx context.Context, ts TokenSource, itemID string, quantity int) error {
	body := struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity}

	resp, err := c.Request(ctx, ts, http.MethodPut, "/cart/items/"+url.PathEscape(itemID), body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	_ = resp.Body.Close()
	return nil
}

// DeleteCartItem removes a line item from the server-side cart. A 404 maps to
// an ErrNotFound-wrapping error; callers that want idempotent removal can
// check for it.
func (c *Client) DeleteCartItem(ctx context.Context, ts TokenSource, itemID string) error {
	resp, err := c.Request(ctx, ts, http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	_ = resp.Body.Close()
	return nil
}

// CreateOrderInput is the payload for placing an order. The backend builds
// the order from the user's server-side cart.
type CreateOrderInput struct {
	ShippingAddress string `json:"shipping_address"`
}

// CreateOrder places an order for the authenticated user.
func (c *Client) CreateOrder(ctx context.Context, ts TokenSource, input CreateOrderInput) (*Order, error) {
	resp, err := c.Request(ctx, ts, http.MethodPost, "/orders/", input)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	var order Order
	if err := decode(resp, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders fetches the authenticated user's order history.
func (c *Client) ListOrders(ctx context.Context, ts TokenSource) ([]Order, error) {
	resp, err := c.Request(ctx, ts, http.MethodGet, "/orders/", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	var orders []Order
	if err := decode(resp, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches one order by ID.
func (c *Client) GetOrder(ctx context.Context, ts TokenSource, id string) (*Order, error) {
	resp, err := c.Request(ctx, ts, http.MethodGet, "/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	var order Order
	if err := decode(resp, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
