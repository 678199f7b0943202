package backend

import "time"

// Product is a catalog product as served by the backend API.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"` // cents
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	Inventory   int    `json:"inventory"`
}

// CartItem is a line item in the server-side cart. The backend denormalizes
// the product onto each item so the cart can render without extra fetches.
type CartItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

// Cart is the server-side cart for an authenticated user.
type Cart struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// User is the authenticated user profile.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

// Token is the response of a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// OrderItem is a purchased line item with the price captured at order time.
type OrderItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     int64   `json:"price"` // cents
	Product   Product `json:"product"`
}

// Order is a placed order.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	TotalAmount     int64       `json:"total_amount"` // cents
	Status          string      `json:"status"`
	ShippingAddress string      `json:"shipping_address"`
	CreatedAt       time.Time   `json:"created_at"`
	Items           []OrderItem `json:"items"`
}
