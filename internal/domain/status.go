package domain

import "errors"

// DemandRisk is the qualitative volatility label derived from the
// coefficient of variation of recent demand.
type DemandRisk string

const (
	RiskLow    DemandRisk = "low"
	RiskMedium DemandRisk = "medium"
	RiskHigh   DemandRisk = "high"
)

// ClassifyDemandRisk maps a coefficient of variation to a risk label.
func ClassifyDemandRisk(cv float64) DemandRisk {
	switch {
	case cv > 1.0:
		return RiskHigh
	case cv > 0.5:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AlertLevel flags prep recommendations by demand variability.
type AlertLevel string

const (
	AlertGreen  AlertLevel = "green"
	AlertYellow AlertLevel = "yellow"
	AlertRed    AlertLevel = "red"
)

// ClassifyAlertLevel maps a coefficient of variation to an alert level.
func ClassifyAlertLevel(cv float64) AlertLevel {
	switch {
	case cv > 0.8:
		return AlertRed
	case cv > 0.4:
		return AlertYellow
	default:
		return AlertGreen
	}
}

// ReorderUrgency classifies an ingredient after BOM explosion.
type ReorderUrgency string

const (
	UrgencyCritical ReorderUrgency = "critical"
	UrgencySoon     ReorderUrgency = "soon"
	UrgencyLowStock ReorderUrgency = "low_stock"
	UrgencyOK       ReorderUrgency = "ok"
)

// SKUKind distinguishes raw ingredients from composite products.
type SKUKind string

const (
	SKURaw       SKUKind = "raw"
	SKUComposite SKUKind = "composite"
)

// Model source tags carried on every forecast response so callers can tell
// a full-ensemble answer from a degraded fallback.
const (
	SourceEnsemble3 = "ensemble_3model"
	SourceEnsemble2 = "ensemble_2model"
	SourceFallback  = "fallback"
	SourceColdStart = "cold_start"
)

// Sentinel errors for the recoverable failure classes. Per-item failures
// are recorded in BatchMetadata and never abort a multi-item batch.
var (
	ErrInsufficientHistory = errors.New("insufficient demand history")
	ErrModelUnavailable    = errors.New("no trained model available")
	ErrBOMCycle            = errors.New("cycle detected in bill of materials")
	ErrNoObservations      = errors.New("no demand observations")
	ErrTrainingInFlight    = errors.New("training already in progress")
)
