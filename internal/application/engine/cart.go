package engine

import (
	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/shopspring/decimal"
)

// AddToCart adds a course snapshot unless the course is already in the cart.
// It reports whether the cart changed.
func (e *Engine) AddToCart(c course.Course) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Add(c)
}

// RemoveFromCart drops the course from the cart. Idempotent.
func (e *Engine) RemoveFromCart(courseID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart.Remove(courseID)
}

// ClearCart empties the cart.
func (e *Engine) ClearCart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart.Clear()
}

// Cart returns the cart contents in insertion order.
func (e *Engine) Cart() []course.CartItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cart.Items()
}

// CartTotal sums the prices of the cart items.
func (e *Engine) CartTotal() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cart.Total()
}
