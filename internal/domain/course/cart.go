package course

import "github.com/shopspring/decimal"

// CartItem is a course selected for purchase, with the course snapshot
// taken at the time it was added.
type CartItem struct {
	CourseID string
	Course   Course
}

// Cart is an ordered set of cart items keyed by course ID.
// The zero value is an empty cart.
type Cart struct {
	items []CartItem
}

// Add appends the course unless an item with the same course ID exists.
// It reports whether the cart changed.
func (c *Cart) Add(course Course) bool {
	if c.Contains(course.ID) {
		return false
	}
	c.items = append(c.items, CartItem{CourseID: course.ID, Course: course})
	return true
}

// Remove filters out the item for courseID. Removing a missing item is a no-op.
func (c *Cart) Remove(courseID string) {
	kept := c.items[:0]
	for _, it := range c.items {
		if it.CourseID != courseID {
			kept = append(kept, it)
		}
	}
	c.items = kept
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Contains reports whether courseID is in the cart.
func (c *Cart) Contains(courseID string) bool {
	for _, it := range c.items {
		if it.CourseID == courseID {
			return true
		}
	}
	return false
}

// Items returns a copy of the cart contents in insertion order.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Cart) Len() int {
	return len(c.items)
}

// Total sums the snapshot prices.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Course.Price)
	}
	return total
}
