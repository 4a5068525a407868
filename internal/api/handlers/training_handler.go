package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/service"
)

type TrainingHandler struct {
	service *service.TrainingService
}

func NewTrainingHandler(service *service.TrainingService) *TrainingHandler {
	return &TrainingHandler{service: service}
}

type trainRequest struct {
	ModelIdentity string `json:"model_identity"`
}

func (h *TrainingHandler) Train(c *gin.Context) {
	var req trainRequest
	// Body is optional; an empty request trains the default identity.
	_ = c.ShouldBindJSON(&req)

	run, err := h.service.Train(c.Request.Context(), strings.TrimSpace(req.ModelIdentity))
	if err != nil {
		if errors.Is(err, domain.ErrTrainingInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, domain.ErrNoObservations) || errors.Is(err, domain.ErrInsufficientHistory) {
			errorResponse(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, "training failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (h *TrainingHandler) Status(c *gin.Context) {
	identity := strings.TrimSpace(c.Query("model_identity"))
	c.JSON(http.StatusOK, h.service.Status(c.Request.Context(), identity))
}
