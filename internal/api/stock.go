package api

import (
	"context"
	"net/http"

	"restaurant-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type amountRequest struct {
	Amount *float64 `json:"amount" binding:"required"`
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.stock.Products(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.stock.Product(c.Request.Context(), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) availableQuantity(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	available, err := h.stock.AvailableQuantity(c.Request.Context(), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"available":  available,
	})
}

func (h *Handler) reserve(c *gin.Context) {
	h.stockOp(c, h.stock.Reserve)
}

func (h *Handler) release(c *gin.Context) {
	h.stockOp(c, h.stock.Release)
}

func (h *Handler) commit(c *gin.Context) {
	h.stockOp(c, h.stock.Commit)
}

// stockOp answers 409 with the unchanged figures when op refuses
func (h *Handler) stockOp(c *gin.Context, op func(ctx context.Context, productID int64, amount float64) (*service.StockResult, error)) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req amountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := op(c.Request.Context(), productID, *req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if !res.OK {
		status = http.StatusConflict
	}
	c.JSON(status, res)
}
