package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/dto"
	"github.com/Kseniia567/fraud-detection-ADD/internal/service"
)

type Handler struct {
	analyticsService service.AnalyticsServicer
	router           *gin.Engine
	log              *zap.Logger
}

func NewHandler(analyticsService service.AnalyticsServicer, log *zap.Logger) *Handler {
	h := &Handler{
		analyticsService: analyticsService,
		router:           gin.Default(),
		log:              log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)

	analytics := h.router.Group("/analytics")
	analytics.GET("/summary", h.getSummary)
	analytics.GET("/breakdown", h.getBreakdown)
	analytics.GET("/merchants/top", h.getTopMerchants)
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check that the service can reach the store
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	if err := h.analyticsService.Health(c.Request.Context()); err != nil {
		h.log.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "unavailable",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// getSummary handles GET /analytics/summary
// @Summary Get fraud summary
// @Description Total transactions, total frauds and the fraud rate
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.SummaryResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analytics/summary [get]
func (h *Handler) getSummary(c *gin.Context) {
	response, err := h.analyticsService.GetSummary(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get summary", err)
		return
	}

	h.log.Info("Summary retrieved",
		zap.Int64("total_transactions", response.TotalTransactions),
		zap.Int64("total_frauds", response.TotalFrauds))

	c.JSON(http.StatusOK, response)
}

// getBreakdown handles GET /analytics/breakdown
// @Summary Get fraud breakdown
// @Description Transaction and fraud counts grouped by one column
// @Tags analytics
// @Produce json
// @Param group_by query string true "Column to group by" Enums(hour, day_of_week, month, year, gender, category, job_category, state)
// @Success 200 {object} dto.BreakdownResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analytics/breakdown [get]
func (h *Handler) getBreakdown(c *gin.Context) {
	var req dto.BreakdownRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid breakdown request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.analyticsService.GetBreakdown(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to get breakdown", err, zap.String("group_by", req.GroupBy))
		return
	}

	h.log.Info("Breakdown retrieved",
		zap.String("group_by", response.GroupBy),
		zap.Int("group_count", len(response.Groups)))

	c.JSON(http.StatusOK, response)
}

// getTopMerchants handles GET /analytics/merchants/top
// @Summary Get top fraud merchants
// @Description Merchants with the most fraudulent transactions
// @Tags analytics
// @Produce json
// @Param limit query int false "Number of merchants (1-100)" default(10)
// @Success 200 {object} dto.TopMerchantsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analytics/merchants/top [get]
func (h *Handler) getTopMerchants(c *gin.Context) {
	var req dto.TopMerchantsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid top merchants request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.analyticsService.GetTopMerchants(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to get top merchants", err, zap.Int("limit", req.Limit))
		return
	}

	h.log.Info("Top merchants retrieved",
		zap.Int("limit", response.Limit),
		zap.Int("merchant_count", len(response.Merchants)))

	c.JSON(http.StatusOK, response)
}

// respondError maps invalid input to 400 and everything else to 500
func (h *Handler) respondError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	if errors.Is(err, service.ErrInvalidRequest) {
		h.log.Warn(msg, append(fields, zap.Error(err))...)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Error(msg, append(fields, zap.Error(err))...)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}
