package capacity

import (
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// UTILIZATION
// =============================================================================

// Percent returns round(allocated / capacity * 100), half away from zero.
// It is 0 whenever capacity <= 0.
func Percent(allocated, capacity decimal.Decimal) int64 {
	if !capacity.IsPositive() {
		return 0
	}
	return generic.Percent(allocated, capacity).Round(0).IntPart()
}

// Available returns max(0, capacity - allocated).
func Available(capacity, allocated decimal.Decimal) decimal.Decimal {
	if !capacity.IsPositive() {
		return decimal.Zero
	}
	return generic.NonNegative(capacity.Sub(allocated))
}

// =============================================================================
// STATUS BAND - summary cards
// =============================================================================

type Band string

const (
	BandLow           Band = "low"
	BandOptimal       Band = "optimal"
	BandHigh          Band = "high"
	BandOverallocated Band = "overallocated"
)

// Band upper bounds, inclusive.
const (
	lowMax     = 30
	optimalMax = 80
	highMax    = 100
)

// BandFor classifies a utilization percent. Negative input is treated as low.
func BandFor(percent int64) Band {
	switch {
	case percent <= lowMax:
		return BandLow
	case percent <= optimalMax:
		return BandOptimal
	case percent <= highMax:
		return BandHigh
	default:
		return BandOverallocated
	}
}

var bandColors = map[Band]string{
	BandLow:           "#3b82f6",
	BandOptimal:       "#22c55e",
	BandHigh:          "#f59e0b",
	BandOverallocated: "#ef4444",
}

// Color is the fixed display color of the band.
func (b Band) Color() string {
	return bandColors[b]
}

// =============================================================================
// WARNING LEVEL - allocation input fields
// =============================================================================

type WarningLevel string

const (
	WarningNormal   WarningLevel = "normal"
	WarningWarning  WarningLevel = "warning"
	WarningDanger   WarningLevel = "danger"
	WarningExceeded WarningLevel = "exceeded"
)

// exceededPercent is fixed; only the warn/danger thresholds are tunable.
const exceededPercent = 200

// Thresholds configures WarningLevelFor.
type Thresholds struct {
	Warn   int64
	Danger int64
}

// DefaultThresholds flag entries at 150% and 180% of capacity.
var DefaultThresholds = Thresholds{Warn: 150, Danger: 180}

// WarningLevelFor flags over-entry in allocation inputs. It is deliberately
// coarser at the top than BandFor: 120% is "normal" here.
func WarningLevelFor(percent int64, t Thresholds) WarningLevel {
	switch {
	case percent > exceededPercent:
		return WarningExceeded
	case percent >= t.Danger:
		return WarningDanger
	case percent >= t.Warn:
		return WarningWarning
	default:
		return WarningNormal
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary bundles the figures shown on a utilization card.
type Summary struct {
	Capacity  decimal.Decimal
	Allocated decimal.Decimal
	Available decimal.Decimal
	Percent   int64
	Band      Band
}

// Summarize computes the card figures for one (allocated, capacity) pair.
func Summarize(allocated, capacity decimal.Decimal) Summary {
	pct := Percent(allocated, capacity)
	return Summary{
		Capacity:  capacity,
		Allocated: allocated,
		Available: Available(capacity, allocated),
		Percent:   pct,
		Band:      BandFor(pct),
	}
}
