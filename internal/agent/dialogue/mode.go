// Package dialogue implements the two-state consultation/search machine
// that decides which tools the model may see and use on a given turn.
//
// The hard business rule behind it: priced products are never shown before
// a delivery city is known.
package dialogue

import "github.com/lepestok-ai/server/internal/agent/model"

// Mode is the dialogue phase.
type Mode string

const (
	// ModeConsultation is the initial phase: the assistant advises and
	// gathers recipient, occasion and city.
	ModeConsultation Mode = "consultation"
	// ModeSearch unlocks catalog and cart tools once recipient, occasion
	// and a resolved city are all known.
	ModeSearch Mode = "search"
)

// Tool names form the closed tool set of the orchestration loop.
const (
	ToolSetCity          = "set_city"
	ToolSaveCustomerInfo = "save_customer_info"
	ToolSearchProducts   = "search_products"
	ToolProductDetails   = "get_product_details"
	ToolAddToCart        = "add_to_cart"
	ToolSetCartQuantity  = "set_cart_quantity"
	ToolRemoveFromCart   = "remove_from_cart"
)

var consultationTools = map[string]bool{
	ToolSetCity:          true,
	ToolSaveCustomerInfo: true,
}

var searchTools = map[string]bool{
	ToolSetCity:          true,
	ToolSaveCustomerInfo: true,
	ToolSearchProducts:   true,
	ToolProductDetails:   true,
	ToolAddToCart:        true,
	ToolSetCartQuantity:  true,
	ToolRemoveFromCart:   true,
}

// ModeFor derives the effective mode from session state merged with the
// current turn's extraction. The transition to search fires the instant
// recipient, occasion and a resolved city are all present; absence of any
// one keeps the session in consultation. Callers that clear the city force
// consultation behavior again.
func ModeFor(s *model.Session, fresh *model.City) Mode {
	city := s.City
	if fresh != nil {
		city = fresh
	}
	if s.Recipient != "" && s.Occasion != "" && city != nil {
		return ModeSearch
	}
	return ModeConsultation
}

// Allowed lists the tool names to advertise for the mode, in a stable order.
func Allowed(m Mode) []string {
	if m == ModeSearch {
		return []string{
			ToolSetCity,
			ToolSaveCustomerInfo,
			ToolSearchProducts,
			ToolProductDetails,
			ToolAddToCart,
			ToolSetCartQuantity,
			ToolRemoveFromCart,
		}
	}
	return []string{ToolSetCity, ToolSaveCustomerInfo}
}

// Permits reports whether the tool may be dispatched in the mode. This is
// enforced at the point of dispatch, not only by omission from the
// advertised list, because the model may still name a forbidden tool.
func Permits(m Mode, tool string) bool {
	if m == ModeSearch {
		return searchTools[tool]
	}
	return consultationTools[tool]
}
