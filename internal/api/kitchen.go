package api

import (
	"net/http"
	"strconv"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type addPortionsRequest struct {
	Count int `json:"count" binding:"required,gt=0"`
}

func (h *Handler) listDishes(c *gin.Context) {
	dishes, err := h.kitchen.Dishes(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dishes": dishes})
}

func (h *Handler) portions(c *gin.Context) {
	dishID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	portions, err := h.kitchen.Portions(c.Request.Context(), dishID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dish_id":  dishID,
		"portions": portions,
	})
}

func (h *Handler) addPortions(c *gin.Context) {
	dishID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req addPortionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.kitchen.AddPortions(c.Request.Context(), dishID, req.Count, c.GetHeader(IdempotencyHeader))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) requirements(c *gin.Context) {
	dishID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil {
		h.writeError(c, apperr.Newf(apperr.CodeValidation, "invalid count %q", c.Query("count")))
		return
	}

	view, err := h.kitchen.Requirements(c.Request.Context(), dishID, count)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) addIngredient(c *gin.Context) {
	dishID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req service.AddIngredientRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ing, err := h.kitchen.AddIngredient(c.Request.Context(), dishID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ing)
}
