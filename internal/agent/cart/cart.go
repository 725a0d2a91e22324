// Package cart implements the single-bouquet cart as pure functions over
// immutable cart values. Every operation returns a new cart; persisting the
// result into the session is the caller's job. Totals are recomputed from
// the line list after every structural change so they can never drift.
package cart

import "github.com/lepestok-ai/server/internal/agent/model"

// Add replaces the entire cart contents with exactly the given item. The
// shop sells one bouquet per order, so there is never more than one line.
// A non-positive quantity is normalized to 1.
func Add(c model.Cart, item model.CartItem) model.Cart {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	c.Items = []model.CartItem{item}
	return Recalculate(c)
}

// SetQuantity updates the quantity of the line identified by productID.
// Quantity zero (or below) removes the line. An unknown key returns the
// cart unchanged.
func SetQuantity(c model.Cart, productID string, quantity int) model.Cart {
	if quantity <= 0 {
		return Remove(c, productID)
	}
	items := make([]model.CartItem, len(c.Items))
	copy(items, c.Items)
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
		}
	}
	c.Items = items
	return Recalculate(c)
}

// Remove drops the line identified by productID. An unknown key returns the
// cart unchanged.
func Remove(c model.Cart, productID string) model.Cart {
	items := make([]model.CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	c.Items = items
	return Recalculate(c)
}

// Recalculate derives line totals and aggregates from the item list.
func Recalculate(c model.Cart) model.Cart {
	items := make([]model.CartItem, len(c.Items))
	copy(items, c.Items)

	var count int
	var total float64
	for i := range items {
		items[i].LineTotal = float64(items[i].Quantity) * items[i].Price
		count += items[i].Quantity
		total += items[i].LineTotal
	}

	c.Items = items
	c.ItemCount = count
	c.TotalPrice = total
	return c
}
