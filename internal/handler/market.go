package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetMarket godoc
// @Summary      Get the reconciled live market snapshot for a symbol
// @Description  Averages all responding price feeds into one value with a consistency score
// @Tags         market
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  domain.MarketSnapshot
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/market/{symbol} [get]
func (h *Handler) GetMarket(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-market")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	snapshot, err := h.market.GetMarket(ctx, symbol)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
