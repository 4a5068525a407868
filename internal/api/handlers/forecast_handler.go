package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/service"
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(service *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

func (h *ForecastHandler) parseFilter(c *gin.Context) domain.ForecastFilter {
	filter := domain.ForecastFilter{}

	if v := strings.TrimSpace(c.Query("item_filter")); v != "" {
		filter.ItemFilter = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("location_id", "0"), 10, 64); err == nil && v > 0 {
		filter.LocationID = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("days_ahead", "7")); err == nil && v > 0 {
		filter.DaysAhead = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("top_n", "0")); err == nil && v > 0 {
		filter.TopN = v
	}
	return filter
}

func (h *ForecastHandler) GetForecast(c *gin.Context) {
	filter := h.parseFilter(c)

	points, meta, err := h.service.Forecast(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to build forecast: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"forecasts": points,
		"metadata":  meta,
	})
}

type coldStartRequest struct {
	ProductName string  `json:"product_name" binding:"required"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	DaysAhead   int     `json:"days_ahead"`
}

func (h *ForecastHandler) ColdStart(c *gin.Context) {
	var req coldStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	estimate, err := h.service.ColdStart(c.Request.Context(), req.ProductName, req.Category)
	if err != nil {
		if errors.Is(err, domain.ErrNoObservations) || errors.Is(err, domain.ErrInsufficientHistory) {
			errorResponse(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, "cold start estimation failed: "+err.Error())
		return
	}

	days := req.DaysAhead
	if days <= 0 {
		days = 7
	}
	c.JSON(http.StatusOK, gin.H{
		"estimate":       estimate,
		"days_ahead":     days,
		"total_estimate": estimate.EstimatedDaily * float64(days),
	})
}

func (h *ForecastHandler) GetSignals(c *gin.Context) {
	date := time.Now()
	if v := strings.TrimSpace(c.Query("date")); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	payload, degraded := h.service.Signals(c.Request.Context(), date)
	c.JSON(http.StatusOK, gin.H{
		"signals":  payload,
		"degraded": degraded,
	})
}
