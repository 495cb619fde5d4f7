package ledger

import (
	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/models"
)

// RequiredQuantity is the amount of the ingredient's product, in the
// product's unit, that one portion consumes. A recipe line without a unit
// is already in product units. With strict set, a unit pair that has no
// conversion is rejected instead of passed through.
func RequiredQuantity(ing models.DishIngredient, product *models.Product, strict bool) (float64, error) {
	if ing.Quantity <= 0 {
		return 0, nil
	}
	if ing.Unit == "" {
		return ing.Quantity, nil
	}
	qty, ok := ConvertStrict(ing.Quantity, ing.Unit, product.Unit)
	if !ok && strict {
		return 0, apperr.Newf(apperr.CodeValidation,
			"no conversion from %s to %s for %q", ing.Unit, product.Unit, product.Name).
			WithDetails(map[string]any{
				"product_id": product.ID,
				"from_unit":  ing.Unit,
				"to_unit":    product.Unit,
			})
	}
	return qty, nil
}

// ValidateIngredient checks a recipe line before it is stored.
func ValidateIngredient(quantity float64, unit models.Unit) error {
	if quantity <= 0 {
		return apperr.New(apperr.CodeValidation, "ingredient quantity must be positive")
	}
	if unit != "" && !unit.Valid(models.IngredientUnits) {
		return apperr.Newf(apperr.CodeValidation, "unknown unit %q", unit)
	}
	return nil
}
