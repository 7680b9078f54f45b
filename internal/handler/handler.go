package handler

import (
	"context"
	"errors"
	"net/http"

	"coinlens/internal/domain"
	"coinlens/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// MarketReader is the live reconciled snapshot surface.
type MarketReader interface {
	GetMarket(ctx context.Context, symbol string) (*domain.MarketSnapshot, error)
}

// HistoryManager is the durable history surface: reads, backfill, refresh,
// and the destructive admin operations.
type HistoryManager interface {
	GetHistory(ctx context.Context, symbol, rangeToken string) (*domain.TimeSeries, error)
	BackfillSymbol(ctx context.Context, symbol string, days int, force bool) (*service.BackfillResult, error)
	BackfillAll(ctx context.Context, days int, force bool) []service.BackfillStatus
	RefreshHistory(ctx context.Context, symbol string, days int, force bool) (*service.RefreshResult, error)
	ClearHistory(ctx context.Context, symbol string) error
	ClearAllHistory(ctx context.Context) []service.ClearStatus
}

type Handler struct {
	tracer   trace.Tracer
	registry *domain.Registry
	market   MarketReader
	history  HistoryManager
}

func New(tracer trace.Tracer, registry *domain.Registry, market MarketReader, history HistoryManager) *Handler {
	return &Handler{
		tracer:   tracer,
		registry: registry,
		market:   market,
		history:  history,
	}
}

// RegisterRoutes mounts the API. Destructive history operations sit behind
// the admin API key.
func (h *Handler) RegisterRoutes(r *gin.Engine, adminKey string) {
	r.GET("/health", h.Health)
	r.GET("/api/coins", h.ListCoins)
	r.GET("/api/market/:symbol", h.GetMarket)
	r.GET("/api/history/:symbol", h.GetHistory)
	r.POST("/api/history/:symbol/backfill", h.BackfillSymbol)
	r.POST("/api/history/backfill", h.BackfillAll)
	r.POST("/api/history/:symbol/refresh", h.RefreshHistory)

	admin := r.Group("/", APIKeyAuth(adminKey))
	admin.DELETE("/api/history/:symbol", h.ClearHistory)
	admin.DELETE("/api/history", h.ClearAllHistory)
}

// errorResponse maps domain errors onto HTTP statuses.
func errorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownSymbol), errors.Is(err, domain.ErrUnknownRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrHistoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoSourcesAvailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
