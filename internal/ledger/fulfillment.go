package ledger

import (
	"fmt"
	"strings"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/models"
)

// DishShortage is one under-stocked dish in an order.
type DishShortage struct {
	DishID    int64  `json:"dish_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// CheckFulfillment reports every dish whose portions cannot cover the
// order. Lines for the same dish are summed before comparing.
func CheckFulfillment(items []models.OrderItem, dishes map[int64]*models.Dish) error {
	requested := make(map[int64]int, len(items))
	order := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := dishes[item.DishID]; !ok {
			return apperr.Newf(apperr.CodeNotFound, "dish %d not found", item.DishID)
		}
		if _, seen := requested[item.DishID]; !seen {
			order = append(order, item.DishID)
		}
		requested[item.DishID] += item.Quantity
	}

	var shortages []DishShortage
	for _, dishID := range order {
		dish := dishes[dishID]
		if dish.Portions < requested[dishID] {
			shortages = append(shortages, DishShortage{
				DishID:    dish.ID,
				Name:      dish.Name,
				Requested: requested[dishID],
				Available: dish.Portions,
			})
		}
	}
	if len(shortages) == 0 {
		return nil
	}

	parts := make([]string, 0, len(shortages))
	for _, s := range shortages {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", s.Name, s.Requested, s.Available))
	}
	return apperr.New(apperr.CodeInsufficient, "not enough portions: "+strings.Join(parts, "; ")).
		WithDetails(shortages)
}

// ApplyFulfillment takes each line's quantity from its dish.
func ApplyFulfillment(items []models.OrderItem, dishes map[int64]*models.Dish) {
	for _, item := range items {
		dish := dishes[item.DishID]
		dish.Portions -= item.Quantity
		if dish.Portions < 0 {
			dish.Portions = 0
		}
	}
}
