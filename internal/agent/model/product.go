package model

// CompositionEntry is one structured flower/color pair of a bouquet.
// Color may be empty when the catalog does not qualify it.
type CompositionEntry struct {
	Flower string `json:"flower"`
	Color  string `json:"color,omitempty"`
}

// Product is a read-only catalog item.
type Product struct {
	ID          string             `json:"id"`
	Slug        string             `json:"slug,omitempty"`
	Name        string             `json:"name"`
	Price       float64            `json:"price"`
	ShopID      string             `json:"shop_id"`
	ShopName    string             `json:"shop_name,omitempty"`
	ImageURL    string             `json:"image_url,omitempty"`
	Composition []CompositionEntry `json:"composition,omitempty"`
	Available   bool               `json:"available"`
}
