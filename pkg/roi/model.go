package roi

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dyike/FinDocHub/models"
)

// Projection is what the dashboard shows: the current inputs and either the
// derived result or the reason the inputs are unusable.
type Projection struct {
	Inputs Inputs  `json:"inputs"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

func (p Projection) MarshalJSON() ([]byte, error) {
	type projection Projection
	out := struct {
		projection
		Error *models.Error `json:"error,omitempty"`
	}{projection: projection(p)}
	if p.Err != nil {
		var me *models.Error
		if !errors.As(p.Err, &me) {
			me = &models.Error{Kind: models.KindInvalidInput, Detail: p.Err.Error()}
		}
		out.Error = me
	}
	return json.Marshal(out)
}

// Model keeps a Projection consistent with its inputs. Every setter
// recomputes synchronously before returning.
type Model struct {
	mu         sync.RWMutex
	calc       Calculator
	projection Projection
	observer   func(Projection)
}

func NewModel(calc Calculator, initial Inputs) *Model {
	m := &Model{calc: calc}
	m.projection = m.compute(initial)
	return m
}

// SetObserver registers fn to receive every recomputed projection.
func (m *Model) SetObserver(fn func(Projection)) {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
}

func (m *Model) Projection() Projection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.projection
}

func (m *Model) Calculator() Calculator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calc
}

func (m *Model) SetTeamSize(n int) Projection {
	return m.update(func(in *Inputs) { in.TeamSize = n })
}

func (m *Model) SetHoursPerWeek(hours float64) Projection {
	return m.update(func(in *Inputs) { in.HoursPerWeekPerAnalyst = hours })
}

func (m *Model) SetHourlyRate(rate float64) Projection {
	return m.update(func(in *Inputs) { in.HourlyRate = rate })
}

func (m *Model) SetInputs(inputs Inputs) Projection {
	return m.update(func(in *Inputs) { *in = inputs })
}

// SetCalculator swaps the pricing constants and recomputes.
func (m *Model) SetCalculator(calc Calculator) Projection {
	return m.apply(func(_ *Inputs, c *Calculator) { *c = calc })
}

func (m *Model) update(mutate func(*Inputs)) Projection {
	return m.apply(func(in *Inputs, _ *Calculator) { mutate(in) })
}

func (m *Model) apply(mutate func(*Inputs, *Calculator)) Projection {
	m.mu.Lock()
	inputs := m.projection.Inputs
	mutate(&inputs, &m.calc)
	p := m.compute(inputs)
	m.projection = p
	fn := m.observer
	m.mu.Unlock()

	if fn != nil {
		fn(p)
	}
	return p
}

func (m *Model) compute(inputs Inputs) Projection {
	res, err := m.calc.Calculate(inputs)
	if err != nil {
		return Projection{Inputs: inputs, Err: err}
	}
	return Projection{Inputs: inputs, Result: &res}
}
