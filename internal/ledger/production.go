package ledger

import (
	"fmt"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/models"
)

// Requirement is the stock one product must supply for a production run.
type Requirement struct {
	Product    *models.Product
	PerPortion float64
	Total      float64
}

// ProductShortage names a product that cannot cover a production run.
type ProductShortage struct {
	ProductID int64       `json:"product_id"`
	Name      string      `json:"name"`
	Unit      models.Unit `json:"unit"`
	Required  float64     `json:"required"`
	Available float64     `json:"available"`
	Shortfall float64     `json:"shortfall"`
}

// Requirements folds the recipe into one requirement per product, in the
// order products first appear in the recipe. products must hold every
// product the recipe references.
func Requirements(ingredients []models.DishIngredient, products map[int64]*models.Product, count int, strict bool) ([]Requirement, error) {
	index := make(map[int64]int, len(ingredients))
	reqs := make([]Requirement, 0, len(ingredients))

	for _, ing := range ingredients {
		product, ok := products[ing.ProductID]
		if !ok {
			return nil, apperr.Newf(apperr.CodeNotFound, "product %d not found", ing.ProductID)
		}
		perPortion, err := RequiredQuantity(ing, product, strict)
		if err != nil {
			return nil, err
		}

		i, seen := index[product.ID]
		if !seen {
			i = len(reqs)
			index[product.ID] = i
			reqs = append(reqs, Requirement{Product: product})
		}
		reqs[i].PerPortion += perPortion
	}

	for i := range reqs {
		reqs[i].Total = reqs[i].PerPortion * float64(count)
	}
	return reqs, nil
}

// PlanProduction checks that every product covers its share of count
// portions. The first product that falls short fails the whole plan.
// Stock held by reservations is not available to production.
func PlanProduction(ingredients []models.DishIngredient, products map[int64]*models.Product, count int, strict bool) ([]Requirement, error) {
	if count <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "portion count must be positive")
	}

	reqs, err := Requirements(ingredients, products, count, strict)
	if err != nil {
		return nil, err
	}

	for _, req := range reqs {
		available := Available(req.Product)
		if !Covers(available, req.Total) {
			shortage := ProductShortage{
				ProductID: req.Product.ID,
				Name:      req.Product.Name,
				Unit:      req.Product.Unit,
				Required:  req.Total,
				Available: available,
				Shortfall: req.Total - available,
			}
			return nil, apperr.New(apperr.CodeInsufficient, fmt.Sprintf(
				"not enough %s: need %g %s, have %g %s",
				shortage.Name, shortage.Required, shortage.Unit, shortage.Available, shortage.Unit,
			)).WithDetails(shortage)
		}
	}
	return reqs, nil
}

// ApplyProduction takes a checked plan's stock and adds count portions.
func ApplyProduction(dish *models.Dish, reqs []Requirement, count int) []models.StockMovement {
	moves := make([]models.StockMovement, 0, len(reqs))
	for _, req := range reqs {
		Deduct(req.Product, req.Total)
		moves = append(moves, models.StockMovement{
			ProductID: req.Product.ID,
			Quantity:  req.Total,
			Unit:      req.Product.Unit,
		})
	}
	dish.Portions += count
	return moves
}
