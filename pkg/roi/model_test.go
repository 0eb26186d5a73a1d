package roi

import (
	"errors"
	"testing"

	"github.com/dyike/FinDocHub/models"
)

func TestModelRecomputesOnEveryChange(t *testing.T) {
	m := NewModel(DefaultCalculator(), DefaultInputs())

	var seen []Projection
	m.SetObserver(func(p Projection) { seen = append(seen, p) })

	initial := m.Projection()
	if initial.Result == nil || initial.Result.CurrentAnnualCost.String() != "1248000" {
		t.Fatalf("unexpected initial projection %+v", initial)
	}

	p := m.SetTeamSize(10)
	if p.Result == nil || p.Result.ServiceCost.String() != "281640" {
		t.Fatalf("expected service cost 281640 after team size 10, got %+v", p.Result)
	}

	p = m.SetHoursPerWeek(40)
	if p.Inputs.TeamSize != 10 || p.Inputs.HoursPerWeekPerAnalyst != 40 {
		t.Fatalf("setter lost earlier input: %+v", p.Inputs)
	}
	if p.Result.AnnualHours.String() != "2080" {
		t.Fatalf("expected 2080 annual hours, got %s", p.Result.AnnualHours)
	}

	m.SetHourlyRate(200)
	if len(seen) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(seen))
	}
	if m.Projection().Result.CurrentAnnualCost.String() != "4160000" {
		t.Fatalf("unexpected cost %s", m.Projection().Result.CurrentAnnualCost)
	}
}

func TestModelKeepsInvalidInputs(t *testing.T) {
	m := NewModel(DefaultCalculator(), DefaultInputs())

	p := m.SetTeamSize(0)
	if p.Result != nil {
		t.Fatalf("expected no result for invalid inputs")
	}
	if !errors.Is(p.Err, models.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", p.Err)
	}
	if m.Projection().Inputs.TeamSize != 0 {
		t.Fatalf("expected inputs to be kept")
	}

	p = m.SetTeamSize(5)
	if p.Err != nil || p.Result == nil {
		t.Fatalf("expected recovery after valid input, got %v", p.Err)
	}
}

func TestModelSetCalculator(t *testing.T) {
	m := NewModel(DefaultCalculator(), DefaultInputs())

	calc, err := NewCalculator(1000, 0.5)
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	p := m.SetCalculator(calc)
	// 1,248,000 × 0.5 − 5 × 1000 × 12
	if p.Result.AnnualSavings.String() != "564000" {
		t.Fatalf("expected savings 564000, got %s", p.Result.AnnualSavings)
	}
}
