package domain

// ProductSnapshot is a denormalized copy of product display fields captured
// when the item was added to the cart. It is not refreshed when the catalog
// changes: the cart keeps rendering the price the shopper saw at add time.
type ProductSnapshot struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"` // cents
	ImageURL string `json:"image_url"`
	Category string `json:"category"`
}

// LineItem is one product-and-quantity row within a cart. Quantity is always
// positive; reaching zero removes the row instead of storing a zero.
type LineItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// ItemCount returns the total number of units across all line items.
func ItemCount(items []LineItem) int {
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// Subtotal returns the cart subtotal in cents, computed from each line item's
// captured snapshot price rather than the live catalog price.
func Subtotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Product.Price * int64(item.Quantity)
	}
	return total
}

// FindByProduct returns the index of the line item for the given product ID,
// or -1 if the product is not in the cart.
func FindByProduct(items []LineItem, productID string) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// FindByID returns the index of the line item with the given ID, or -1.
func FindByID(items []LineItem, itemID string) int {
	for i := range items {
		if items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// CloneItems returns a copy of the given slice so callers can mutate it
// without aliasing the store's visible state.
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
