package http

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fastlane/backend/internal/domain"
	"github.com/fastlane/backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

const serviceName = "fastlane-price"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	prices *usecase.PriceService
	stats  *usecase.StatsService
	now    func() time.Time
}

// NewHandler creates a new HTTP handler. stats may be nil, in which case
// requests are not recorded and /stats reports itself unavailable.
func NewHandler(prices *usecase.PriceService, stats *usecase.StatsService) *Handler {
	return &Handler{
		prices: prices,
		stats:  stats,
		now:    time.Now,
	}
}

// PriceResponse is the success payload of GET /price
type PriceResponse struct {
	Price      int       `json:"price"`
	Cached     bool      `json:"cached"`
	ObservedAt time.Time `json:"observedAt"`
	Timestamp  time.Time `json:"timestamp"`
	TextHe     string    `json:"text_he"`
	TextEn     string    `json:"text_en"`
	Currency   string    `json:"currency"`
}

// newPriceResponse renders a price result with its localized strings
func newPriceResponse(result domain.FetchResult, now time.Time) PriceResponse {
	return PriceResponse{
		Price:      result.Price,
		Cached:     result.Cached(),
		ObservedAt: result.ObservedAt,
		Timestamp:  now,
		TextHe:     fmt.Sprintf("המחיר בנתיב המהיר: %d שקלים", result.Price),
		TextEn:     fmt.Sprintf("Fast lane toll price: %d shekels", result.Price),
		Currency:   domain.Currency,
	}
}

// Root describes the service and its endpoints
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Fast Lane Price Service",
		"version": "1.0.0",
		"endpoints": gin.H{
			"/price":  "Get current toll price",
			"/health": "Health check",
			"/stats":  "Request statistics",
		},
	})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": h.now(),
	})
}

// GetPrice returns the current toll price
func (h *Handler) GetPrice(c *gin.Context) {
	if h.stats != nil {
		h.stats.RecordRequest(c.Request.Context(), c.ClientIP())
	}
	log.Printf("[HTTP] Price request from %s", c.ClientIP())

	if h.prices == nil {
		respondUnavailable(c)
		return
	}

	result := h.prices.CurrentPrice(c.Request.Context())
	if !result.Available() {
		log.Printf("[HTTP] Price unavailable: %v", result.Err)
		respondUnavailable(c)
		return
	}

	maxAge := int(h.prices.ValidityWindow().Seconds())
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	c.JSON(http.StatusOK, newPriceResponse(result, h.now()))
}

// Stats returns request and cache statistics
func (h *Handler) Stats(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Statistics unavailable"})
		return
	}

	stats, err := h.stats.Snapshot(c.Request.Context())
	if err != nil {
		log.Printf("[HTTP] Stats error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Statistics unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests_today": stats.RequestsToday,
		"cache":          stats.Cache,
		"timestamp":      h.now(),
	})
}

func respondUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Service temporarily unavailable",
		"message": "Could not retrieve current price",
	})
}
