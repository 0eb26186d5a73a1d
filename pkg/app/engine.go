package app

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dyike/FinDocHub/config"
	"github.com/dyike/FinDocHub/pkg/analysis"
	"github.com/dyike/FinDocHub/pkg/roi"
)

// Engine is everything derived from one config revision.
type Engine struct {
	Config     config.Config
	Client     *analysis.Client
	Calculator roi.Calculator
	BuiltAt    time.Time
	Version    uint64
}

var engineSeq atomic.Uint64

func BuildEngine(cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	calc, err := roi.NewCalculator(cfg.MonthlyUnitCost, cfg.EfficiencyFactor)
	if err != nil {
		return nil, fmt.Errorf("build roi calculator: %w", err)
	}
	return &Engine{
		Config:     cfg,
		Client:     analysis.NewClient(&cfg),
		Calculator: calc,
		BuiltAt:    time.Now(),
		Version:    engineSeq.Add(1),
	}, nil
}
