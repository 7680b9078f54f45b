package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListCoins godoc
// @Summary      List the supported assets
// @Description  Returns every coin the service tracks, in registry order
// @Tags         market
// @Produce      json
// @Success      200  {array}  domain.CoinConfig
// @Router       /api/coins [get]
func (h *Handler) ListCoins(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.list-coins")
	defer span.End()

	c.JSON(http.StatusOK, h.registry.Coins())
}
