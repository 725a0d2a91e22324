package orchestrator

import (
	"sync"

	"github.com/lepestok-ai/server/internal/agent/model"
)

// turnState accumulates the side effects of tool dispatches within one
// turn. Tool calls from the same model response run concurrently, so all
// writes go through the mutex; the loop reads the state only between model
// calls and after the loop ends.
type turnState struct {
	mu sync.Mutex

	sess        *model.Session
	preferences string // extracted this turn, fallback for the search tool

	cart        model.Cart
	cartChanged bool
	city        *model.City
	products    []model.Product
	customer    *model.CustomerInfo
}

func newTurnState(sess *model.Session, preferences string) *turnState {
	return &turnState{
		sess:        sess,
		preferences: preferences,
		cart:        sess.Cart,
	}
}

func (ts *turnState) City() *model.City {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.city != nil {
		return ts.city
	}
	return ts.sess.City
}

func (ts *turnState) setCity(city *model.City) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.city = city
}

func (ts *turnState) setCart(c model.Cart) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.cart = c
	ts.cartChanged = true
}

func (ts *turnState) currentCart() model.Cart {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.cart
}

func (ts *turnState) setProducts(products []model.Product) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.products = products
}

func (ts *turnState) setCustomer(info *model.CustomerInfo) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.customer = info
}
