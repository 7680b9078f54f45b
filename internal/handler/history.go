package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetHistory godoc
// @Summary      Get a symbol's stored price history for a named range
// @Description  Slices the durable series to one of 24h, 7d, 30d, 90d, 1y, 5y, all
// @Tags         history
// @Produce      json
// @Param        symbol  path   string  true   "Asset symbol (e.g., BTC, ETH)"
// @Param        range   query  string  false  "Range token"  default(30d)
// @Success      200  {object}  domain.TimeSeries
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/history/{symbol} [get]
func (h *Handler) GetHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	rangeToken := c.DefaultQuery("range", "30d")
	series, err := h.history.GetHistory(ctx, symbol, rangeToken)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// BackfillSymbol godoc
// @Summary      Backfill one symbol's full price history
// @Description  Fetches historical windows from all capable feeds and persists year chunks. Idempotent unless force=true.
// @Tags         history
// @Produce      json
// @Param        symbol  path   string  true   "Asset symbol"
// @Param        days    query  int     false  "Window in days; omit or 0 for all available history"
// @Param        force   query  bool    false  "Rebuild even when the window is already covered"
// @Success      200  {object}  service.BackfillResult
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/history/{symbol}/backfill [post]
func (h *Handler) BackfillSymbol(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.backfill-symbol")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	days, ok := parseDays(c)
	if !ok {
		return
	}
	force := c.Query("force") == "true"

	result, err := h.history.BackfillSymbol(ctx, symbol, days, force)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BackfillAll godoc
// @Summary      Backfill every registered symbol
// @Description  Fans out across all symbols; a single symbol's failure is reported in its status entry
// @Tags         history
// @Produce      json
// @Param        days   query  string  false  "Window in days; omit or 'all' for full history"
// @Param        force  query  bool    false  "Rebuild even when covered"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/history/backfill [post]
func (h *Handler) BackfillAll(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.backfill-all")
	defer span.End()

	days, ok := parseDays(c)
	if !ok {
		return
	}
	force := c.Query("force") == "true"

	statuses := h.history.BackfillAll(ctx, days, force)
	c.JSON(http.StatusOK, gin.H{"results": statuses})
}

// RefreshHistory godoc
// @Summary      Merge the most recent window into an existing series
// @Description  Cheap incremental refresh; 404 with a hint when the symbol was never backfilled
// @Tags         history
// @Produce      json
// @Param        symbol  path   string  true   "Asset symbol"
// @Param        days    query  int     false  "Recent window in days"  default(1)
// @Param        force   query  bool    false  "Refresh even when recently updated"
// @Success      200  {object}  service.RefreshResult
// @Failure      404  {object}  map[string]string
// @Router       /api/history/{symbol}/refresh [post]
func (h *Handler) RefreshHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.refresh-history")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	days, ok := parseDays(c)
	if !ok {
		return
	}
	force := c.Query("force") == "true"

	result, err := h.history.RefreshHistory(ctx, symbol, days, force)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClearHistory godoc
// @Summary      Delete one symbol's stored history
// @Tags         admin
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol"
// @Security     ApiKeyAuth
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/history/{symbol} [delete]
func (h *Handler) ClearHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.clear-history")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if err := h.history.ClearHistory(ctx, symbol); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "status": "cleared"})
}

// ClearAllHistory godoc
// @Summary      Delete every symbol's stored history
// @Description  Per-symbol failures are collected, not fatal to the batch
// @Tags         admin
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /api/history [delete]
func (h *Handler) ClearAllHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.clear-all-history")
	defer span.End()

	statuses := h.history.ClearAllHistory(ctx)
	c.JSON(http.StatusOK, gin.H{"results": statuses})
}

// parseDays reads the days query param. Empty or "all" means full history
// (0). Writes the 400 itself and reports false on garbage input.
func parseDays(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("days"))
	if raw == "" || strings.EqualFold(raw, "all") {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days: " + raw})
		return 0, false
	}
	return n, true
}
