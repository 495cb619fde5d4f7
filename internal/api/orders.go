package api

import (
	"net/http"

	"restaurant-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type addItemRequest struct {
	DishID   int64 `json:"dish_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,gt=0"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// openOrder answers 201 for a new order and 200 when a table's open order
// is returned instead
func (h *Handler) openOrder(c *gin.Context) {
	var req service.OpenOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	view, created, err := h.orders.OpenOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, view)
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) getTable(c *gin.Context) {
	tableID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	table, err := h.orders.GetTable(c.Request.Context(), tableID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) totalPrice(c *gin.Context) {
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	total, err := h.orders.TotalPrice(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":    orderID,
		"total_price": total.StringFixed(2),
	})
}

func (h *Handler) addItem(c *gin.Context) {
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	view, err := h.orders.AddItem(c.Request.Context(), orderID, req.DishID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) updateItem(c *gin.Context) {
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	dishID, ok := h.pathID(c, "dish_id")
	if !ok {
		return
	}
	var req updateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	view, err := h.orders.UpdateItem(c.Request.Context(), orderID, dishID, *req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) removeItem(c *gin.Context) {
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	dishID, ok := h.pathID(c, "dish_id")
	if !ok {
		return
	}

	view, err := h.orders.RemoveItem(c.Request.Context(), orderID, dishID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) completeOrder(c *gin.Context) {
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.orders.CompleteOrder(c.Request.Context(), orderID, c.GetHeader(IdempotencyHeader))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":     res.OrderID,
		"total_price":  res.TotalPrice.StringFixed(2),
		"completed_at": res.CompletedAt,
		"dishes":       res.Dishes,
	})
}
