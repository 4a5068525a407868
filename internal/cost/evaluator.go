// internal/cost/evaluator.go
package cost

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
)

var ErrLengthMismatch = errors.New("actual and predicted series differ in length")

// Scheme is the waste-vs-stockout decision lever. The multipliers scale
// the two cost components of one evaluated series.
type Scheme struct {
	Name               string  `json:"name"`
	WasteMultiplier    float64 `json:"waste_multiplier"`
	StockoutMultiplier float64 `json:"stockout_multiplier"`
}

var (
	SchemeBalanced       = Scheme{Name: "balanced", WasteMultiplier: 1.0, StockoutMultiplier: 1.5}
	SchemeProfit         = Scheme{Name: "profit", WasteMultiplier: 1.0, StockoutMultiplier: 2.0}
	SchemeSustainability = Scheme{Name: "sustainability", WasteMultiplier: 2.0, StockoutMultiplier: 1.0}
)

// SchemeByName resolves a named scheme, defaulting to balanced for the
// empty string.
func SchemeByName(name string) (Scheme, bool) {
	switch name {
	case "", SchemeBalanced.Name:
		return SchemeBalanced, true
	case SchemeProfit.Name:
		return SchemeProfit, true
	case SchemeSustainability.Name:
		return SchemeSustainability, true
	}
	return Scheme{}, false
}

// Evaluator prices the gap between an actual and a predicted demand
// series. It is stateless; one evaluator serves concurrent requests.
type Evaluator struct {
	wasteFraction    float64
	defaultUnitPrice float64
}

func NewEvaluator(cfg config.CostConfig) *Evaluator {
	return &Evaluator{
		wasteFraction:    cfg.WasteFraction,
		defaultUnitPrice: cfg.DefaultUnitPrice,
	}
}

// components holds everything derivable from one (actual, predicted,
// prices) triple independent of the weighting scheme, so the same series
// can be scored under several schemes without a second pass.
type components struct {
	wasteCost    float64
	stockoutCost float64
	overUnits    float64
	underUnits   float64
	absErr       float64
	sqErr        float64
	sumActual    float64
	n            int
}

func (e *Evaluator) measure(actual, predicted, unitPrices []float64) (components, error) {
	if len(actual) != len(predicted) {
		return components{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(actual), len(predicted))
	}
	c := components{n: len(actual)}
	for i := range actual {
		price := e.defaultUnitPrice
		if i < len(unitPrices) && unitPrices[i] > 0 {
			price = unitPrices[i]
		}
		diff := predicted[i] - actual[i]
		if diff > 0 {
			c.overUnits += diff
			c.wasteCost += diff * price * e.wasteFraction
		} else {
			c.underUnits -= diff
			c.stockoutCost += -diff * price
		}
		c.absErr += math.Abs(diff)
		c.sqErr += diff * diff
		c.sumActual += actual[i]
	}
	return c, nil
}

func (e *Evaluator) score(modelName string, c components, scheme Scheme) domain.CostEvaluation {
	ev := domain.CostEvaluation{
		ModelName:       modelName,
		WeightingScheme: scheme.Name,
		WasteCost:       c.wasteCost,
		StockoutCost:    c.stockoutCost,
		TotalCost:       scheme.WasteMultiplier*c.wasteCost + scheme.StockoutMultiplier*c.stockoutCost,
		OverstockUnits:  c.overUnits,
		UnderstockUnits: c.underUnits,
		Samples:         c.n,
	}
	if c.n > 0 {
		ev.MAE = c.absErr / float64(c.n)
		ev.RMSE = math.Sqrt(c.sqErr / float64(c.n))
	}
	if c.sumActual > 0 {
		ev.WMAPE = 100 * c.absErr / c.sumActual
	}
	ev.ForecastAccuracy = math.Max(0, 100-ev.WMAPE)
	return ev
}

// Evaluate scores one series under one scheme. Missing or non-positive
// unit prices fall back to the configured default.
func (e *Evaluator) Evaluate(modelName string, actual, predicted, unitPrices []float64, scheme Scheme) (domain.CostEvaluation, error) {
	c, err := e.measure(actual, predicted, unitPrices)
	if err != nil {
		return domain.CostEvaluation{}, err
	}
	return e.score(modelName, c, scheme), nil
}

// EvaluateSchemes scores the same series under every given scheme from a
// single measurement pass.
func (e *Evaluator) EvaluateSchemes(modelName string, actual, predicted, unitPrices []float64, schemes []Scheme) ([]domain.CostEvaluation, error) {
	c, err := e.measure(actual, predicted, unitPrices)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CostEvaluation, len(schemes))
	for i, s := range schemes {
		out[i] = e.score(modelName, c, s)
	}
	return out, nil
}

// Comparison ranks candidate models on one actual series.
type Comparison struct {
	Rankings       []domain.CostEvaluation `json:"rankings"`
	BestModel      string                  `json:"best_model"`
	WorstModel     string                  `json:"worst_model"`
	SavingsVsWorst float64                 `json:"savings_vs_worst"`
}

// Compare evaluates every candidate's predictions against the same actual
// series under one scheme and ranks them by total cost ascending.
func (e *Evaluator) Compare(actual []float64, candidates map[string][]float64, unitPrices []float64, scheme Scheme) (*Comparison, error) {
	if len(candidates) == 0 {
		return nil, errors.New("compare: no candidate models")
	}
	rankings := make([]domain.CostEvaluation, 0, len(candidates))
	for name, predicted := range candidates {
		ev, err := e.Evaluate(name, actual, predicted, unitPrices, scheme)
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", name, err)
		}
		rankings = append(rankings, ev)
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].TotalCost != rankings[j].TotalCost {
			return rankings[i].TotalCost < rankings[j].TotalCost
		}
		return rankings[i].ModelName < rankings[j].ModelName
	})

	best, worst := rankings[0], rankings[len(rankings)-1]
	return &Comparison{
		Rankings:       rankings,
		BestModel:      best.ModelName,
		WorstModel:     worst.ModelName,
		SavingsVsWorst: worst.TotalCost - best.TotalCost,
	}, nil
}
