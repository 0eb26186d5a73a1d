// Package roi projects the return on investment of replacing manual analyst
// hours with the analysis service.
//
// FORMULA:
//
//	annualHours       = hoursPerWeekPerAnalyst × 52
//	currentAnnualCost = teamSize × annualHours × hourlyRate
//	serviceCost       = teamSize × monthlyUnitCost × 12
//	annualSavings     = currentAnnualCost × efficiencyFactor − serviceCost
//	roiPercent        = annualSavings / serviceCost × 100
//	breakEvenMonths   = ⌈serviceCost / (annualSavings / 12)⌉
//
// All arithmetic is decimal so the identities above hold exactly.
package roi

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/dyike/FinDocHub/models"
)

const (
	// DefaultMonthlyUnitCost is the per-seat monthly price of the professional plan.
	DefaultMonthlyUnitCost = 2347
	// DefaultEfficiencyFactor is the share of analyst time the service replaces.
	DefaultEfficiencyFactor = 0.968
)

var (
	weeksPerYear  = decimal.NewFromInt(52)
	monthsPerYear = decimal.NewFromInt(12)
	hundred       = decimal.NewFromInt(100)
)

// Inputs are the user-supplied business parameters.
type Inputs struct {
	TeamSize               int     `json:"team_size"`
	HoursPerWeekPerAnalyst float64 `json:"hours_per_week_per_analyst"`
	HourlyRate             float64 `json:"hourly_rate"`
}

// DefaultInputs are the values the dashboard opens with.
func DefaultInputs() Inputs {
	return Inputs{TeamSize: 5, HoursPerWeekPerAnalyst: 32, HourlyRate: 150}
}

func (in Inputs) Validate() error {
	if in.TeamSize < 1 {
		return &models.Error{Kind: models.KindInvalidInput, Detail: fmt.Sprintf("team size must be at least 1, got %d", in.TeamSize)}
	}
	if !(in.HoursPerWeekPerAnalyst > 0) || math.IsInf(in.HoursPerWeekPerAnalyst, 1) {
		return &models.Error{Kind: models.KindInvalidInput, Detail: fmt.Sprintf("hours per week must be a positive number, got %v", in.HoursPerWeekPerAnalyst)}
	}
	if !(in.HourlyRate > 0) || math.IsInf(in.HourlyRate, 1) {
		return &models.Error{Kind: models.KindInvalidInput, Detail: fmt.Sprintf("hourly rate must be a positive number, got %v", in.HourlyRate)}
	}
	return nil
}

// Result holds the derived metrics. BreakEvenMonths is nil when the service
// never pays for itself (annual savings ≤ 0).
type Result struct {
	AnnualHours       decimal.Decimal `json:"annual_hours"`
	CurrentAnnualCost decimal.Decimal `json:"current_annual_cost"`
	ServiceCost       decimal.Decimal `json:"service_cost"`
	AnnualSavings     decimal.Decimal `json:"annual_savings"`
	ROIPercent        decimal.Decimal `json:"roi_percent"`
	BreakEvenMonths   *int64          `json:"break_even_months"`
}

// BreakEven reports the break-even month count and whether it exists.
func (r Result) BreakEven() (int64, bool) {
	if r.BreakEvenMonths == nil {
		return 0, false
	}
	return *r.BreakEvenMonths, true
}

// Calculator carries the fixed pricing constants.
type Calculator struct {
	monthlyUnitCost  decimal.Decimal
	efficiencyFactor decimal.Decimal
}

func NewCalculator(monthlyUnitCost, efficiencyFactor float64) (Calculator, error) {
	if !(monthlyUnitCost > 0) || math.IsInf(monthlyUnitCost, 1) {
		return Calculator{}, fmt.Errorf("monthly unit cost must be positive, got %v", monthlyUnitCost)
	}
	if !(efficiencyFactor > 0 && efficiencyFactor <= 1) {
		return Calculator{}, fmt.Errorf("efficiency factor must be in (0,1], got %v", efficiencyFactor)
	}
	return Calculator{
		monthlyUnitCost:  decimal.NewFromFloat(monthlyUnitCost),
		efficiencyFactor: decimal.NewFromFloat(efficiencyFactor),
	}, nil
}

// DefaultCalculator uses the published plan price and efficiency gain.
func DefaultCalculator() Calculator {
	c, _ := NewCalculator(DefaultMonthlyUnitCost, DefaultEfficiencyFactor)
	return c
}

func (c Calculator) MonthlyUnitCost() decimal.Decimal  { return c.monthlyUnitCost }
func (c Calculator) EfficiencyFactor() decimal.Decimal { return c.efficiencyFactor }

// Calculate is pure: identical inputs always give identical results.
func (c Calculator) Calculate(in Inputs) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	teamSize := decimal.NewFromInt(int64(in.TeamSize))
	annualHours := decimal.NewFromFloat(in.HoursPerWeekPerAnalyst).Mul(weeksPerYear)
	currentCost := teamSize.Mul(annualHours).Mul(decimal.NewFromFloat(in.HourlyRate))
	serviceCost := teamSize.Mul(c.monthlyUnitCost).Mul(monthsPerYear)
	savings := currentCost.Mul(c.efficiencyFactor).Sub(serviceCost)

	res := Result{
		AnnualHours:       annualHours,
		CurrentAnnualCost: currentCost,
		ServiceCost:       serviceCost,
		AnnualSavings:     savings,
		ROIPercent:        savings.Div(serviceCost).Mul(hundred),
	}

	// serviceCost / (savings / 12) rearranged to avoid rounding the monthly figure.
	if savings.IsPositive() {
		months := serviceCost.Mul(monthsPerYear).Div(savings).Ceil().IntPart()
		res.BreakEvenMonths = &months
	}
	return res, nil
}
