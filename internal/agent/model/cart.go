package model

// CartItem is one bouquet line. LineTotal is derived, never entered.
type CartItem struct {
	ProductID string  `json:"product_id"`
	ShopID    string  `json:"shop_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	LineTotal float64 `json:"line_total"`
}

// Cart holds the current selection. The business rule is a single bouquet at
// a time: adding an item replaces the entire contents. Totals are always
// recomputed from the item list, never patched incrementally.
type Cart struct {
	Items      []CartItem `json:"items"`
	ItemCount  int        `json:"item_count"`
	TotalPrice float64    `json:"total_price"`
}
