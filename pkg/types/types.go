package types

// QuantityMap holds per-variant quantities keyed by variant id.
// It is the serialized shape shared by the cart hot cache and the
// durable snapshot.
type QuantityMap map[string]int

// TotalItems sums the quantities across all variants.
func (m QuantityMap) TotalItems() int {
	total := 0
	for _, qty := range m {
		total += qty
	}
	return total
}
