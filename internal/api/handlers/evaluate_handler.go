package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/cost"
)

type EvaluateHandler struct {
	evaluator *cost.Evaluator
}

func NewEvaluateHandler() *EvaluateHandler {
	return &EvaluateHandler{evaluator: cost.NewEvaluator(config.Load().Cost)}
}

type evaluateRequest struct {
	ModelName          string    `json:"model_name"`
	Actual             []float64 `json:"actual" binding:"required"`
	Predicted          []float64 `json:"predicted" binding:"required"`
	UnitPrices         []float64 `json:"unit_prices"`
	Scheme             string    `json:"scheme"`
	WasteMultiplier    *float64  `json:"waste_multiplier"`
	StockoutMultiplier *float64  `json:"stockout_multiplier"`
	AllSchemes         bool      `json:"all_schemes"`
}

// Evaluate scores one (actual, predicted) series. Custom multipliers
// override the named scheme; all_schemes returns the three named schemes
// from one measurement pass.
func (h *EvaluateHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = "candidate"
	}

	if req.AllSchemes {
		schemes := []cost.Scheme{cost.SchemeBalanced, cost.SchemeProfit, cost.SchemeSustainability}
		evals, err := h.evaluator.EvaluateSchemes(modelName, req.Actual, req.Predicted, req.UnitPrices, schemes)
		if err != nil {
			h.evaluationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"evaluations": evals})
		return
	}

	scheme, ok := cost.SchemeByName(req.Scheme)
	if !ok {
		errorResponse(c, http.StatusBadRequest, "unknown scheme: "+req.Scheme)
		return
	}
	if req.WasteMultiplier != nil || req.StockoutMultiplier != nil {
		custom := cost.Scheme{Name: "custom", WasteMultiplier: scheme.WasteMultiplier, StockoutMultiplier: scheme.StockoutMultiplier}
		if req.WasteMultiplier != nil {
			custom.WasteMultiplier = *req.WasteMultiplier
		}
		if req.StockoutMultiplier != nil {
			custom.StockoutMultiplier = *req.StockoutMultiplier
		}
		scheme = custom
	}

	eval, err := h.evaluator.Evaluate(modelName, req.Actual, req.Predicted, req.UnitPrices, scheme)
	if err != nil {
		h.evaluationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": eval})
}

func (h *EvaluateHandler) evaluationError(c *gin.Context, err error) {
	if errors.Is(err, cost.ErrLengthMismatch) {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	errorResponse(c, http.StatusInternalServerError, "evaluation failed: "+err.Error())
}
