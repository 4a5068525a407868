package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/service"
)

type PlanningHandler struct {
	service *service.PlanningService
}

func NewPlanningHandler(service *service.PlanningService) *PlanningHandler {
	return &PlanningHandler{service: service}
}

func (h *PlanningHandler) GetIngredientForecast(c *gin.Context) {
	daysAhead := 7
	if v, err := strconv.Atoi(c.DefaultQuery("days_ahead", "7")); err == nil && v > 0 {
		daysAhead = v
	}
	topN := 0
	if v, err := strconv.Atoi(c.DefaultQuery("top_n", "0")); err == nil && v > 0 {
		topN = v
	}

	ingredients, summary, err := h.service.IngredientForecast(c.Request.Context(), daysAhead, topN)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "ingredient forecast failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ingredients": ingredients,
		"summary":     summary,
	})
}

func (h *PlanningHandler) GetPrepRecommendations(c *gin.Context) {
	filter := domain.ForecastFilter{DaysAhead: 7}

	if v, err := strconv.Atoi(c.DefaultQuery("days_ahead", "7")); err == nil && v > 0 {
		filter.DaysAhead = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("location_id", "0"), 10, 64); err == nil && v > 0 {
		filter.LocationID = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("top_n", "0")); err == nil && v > 0 {
		filter.TopN = v
	}

	recs, meta, err := h.service.PrepRecommendations(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "prep recommendations failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"metadata":        meta,
	})
}
