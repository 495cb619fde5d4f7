package ledger

import "restaurant-ledger/internal/models"

// epsilon absorbs float drift from unit conversion (0.1*3 != 0.3).
const epsilon = 1e-9

// Covers reports whether have is enough for need, within float tolerance.
func Covers(have, need float64) bool {
	return have+epsilon >= need
}

func floorZero(v float64) float64 {
	if v < epsilon {
		return 0
	}
	return v
}

// Available is quantity minus reserved, never below zero.
func Available(p *models.Product) float64 {
	return floorZero(p.Quantity - p.ReservedQuantity)
}

// Reserve places a soft hold of amount on p. Non-positive amounts succeed
// without mutation; otherwise it succeeds only when enough is available.
func Reserve(p *models.Product, amount float64) bool {
	if amount <= 0 {
		return true
	}
	if !Covers(Available(p), amount) {
		return false
	}
	p.ReservedQuantity += amount
	if p.ReservedQuantity > p.Quantity {
		p.ReservedQuantity = p.Quantity
	}
	return true
}

// Release drops up to amount from the hold. It always succeeds.
func Release(p *models.Product, amount float64) {
	if amount <= 0 {
		return
	}
	p.ReservedQuantity = floorZero(p.ReservedQuantity - amount)
}

// Commit finalizes amount of a previous hold, removing it from both the
// hold and the stock. It fails without mutation when amount exceeds the hold.
func Commit(p *models.Product, amount float64) bool {
	if amount <= 0 {
		return true
	}
	if !Covers(p.ReservedQuantity, amount) {
		return false
	}
	p.Quantity = floorZero(p.Quantity - amount)
	p.ReservedQuantity = floorZero(p.ReservedQuantity - amount)
	if p.ReservedQuantity > p.Quantity {
		p.ReservedQuantity = p.Quantity
	}
	return true
}

// Deduct takes amount straight from stock without a prior hold.
func Deduct(p *models.Product, amount float64) {
	if amount <= 0 {
		return
	}
	p.Quantity = floorZero(p.Quantity - amount)
	if p.ReservedQuantity > p.Quantity {
		p.ReservedQuantity = p.Quantity
	}
}

// Snapshot captures the stock figures published with ledger events.
func Snapshot(p *models.Product) models.ProductSnapshot {
	return models.ProductSnapshot{
		ProductID:        p.ID,
		Name:             p.Name,
		Unit:             p.Unit,
		Quantity:         p.Quantity,
		ReservedQuantity: p.ReservedQuantity,
		Available:        Available(p),
		UpdatedAt:        p.UpdatedAt,
	}
}
