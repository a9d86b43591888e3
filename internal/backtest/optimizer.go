package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ducminhle1904/signal-backtester/internal/strategy"
)

// Axis is one swept parameter, named by its JSON key in the variant's params block
type Axis struct {
	Param  string    `json:"param" yaml:"param" validate:"required"`
	Values []float64 `json:"values" yaml:"values" validate:"required,min=1"`
}

// Grid is the cartesian product of axes applied on top of a base policy config
type Grid struct {
	Base strategy.Config
	Axes []Axis
}

// Size is the number of combinations
func (g Grid) Size() int {
	if len(g.Axes) == 0 {
		return 1
	}
	n := 1
	for _, a := range g.Axes {
		n *= len(a.Values)
	}
	return n
}

// Jobs expands the grid into sweep jobs, first axis varying slowest
func (g Grid) Jobs() ([]SweepJob, error) {
	base := g.Base
	if err := base.ApplyDefaults(); err != nil {
		return nil, err
	}

	baseParams, err := paramsMap(base)
	if err != nil {
		return nil, err
	}
	for _, a := range g.Axes {
		if _, ok := baseParams[a.Param]; !ok {
			return nil, fmt.Errorf("unknown parameter %q for variant %s", a.Param, base.Variant)
		}
	}

	jobs := make([]SweepJob, 0, g.Size())
	idx := make([]int, len(g.Axes))
	for {
		params := make(map[string]interface{}, len(baseParams))
		for k, v := range baseParams {
			params[k] = v
		}
		labels := make([]string, 0, len(g.Axes))
		for i, a := range g.Axes {
			v := a.Values[idx[i]]
			params[a.Param] = v
			labels = append(labels, fmt.Sprintf("%s=%s", a.Param, formatValue(v)))
		}

		cfg, err := withParams(base.Variant, params)
		if err != nil {
			return nil, err
		}
		label := strings.Join(labels, ",")
		if label == "" {
			label = base.Variant
		}
		jobs = append(jobs, SweepJob{
			ID:     uuid.NewString(),
			Index:  len(jobs),
			Label:  label,
			Config: cfg,
		})

		if !advance(idx, g.Axes) {
			break
		}
	}
	return jobs, nil
}

// advance steps the odometer; false once every combination was produced
func advance(idx []int, axes []Axis) bool {
	for i := len(axes) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(axes[i].Values) {
			return true
		}
		idx[i] = 0
	}
	return false
}

func paramsMap(cfg strategy.Config) (map[string]interface{}, error) {
	var block interface{}
	switch cfg.Variant {
	case strategy.VariantFixedCrossover:
		block = cfg.Crossover
	case strategy.VariantRiskSizedTrailing:
		block = cfg.Trailing
	case strategy.VariantMeanReversionTP:
		block = cfg.MeanReversion
	default:
		block = cfg.Adaptive
	}

	raw, err := json.Marshal(block)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// withParams decodes a params map back into the variant's block. Integer fields
// reject fractional values.
func withParams(variant string, params map[string]interface{}) (strategy.Config, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return strategy.Config{}, err
	}

	cfg := strategy.Config{Variant: variant}
	var target interface{}
	switch variant {
	case strategy.VariantFixedCrossover:
		cfg.Crossover = &strategy.CrossoverParams{}
		target = cfg.Crossover
	case strategy.VariantRiskSizedTrailing:
		cfg.Trailing = &strategy.TrailingParams{}
		target = cfg.Trailing
	case strategy.VariantMeanReversionTP:
		cfg.MeanReversion = &strategy.MeanReversionParams{}
		target = cfg.MeanReversion
	case strategy.VariantAdaptiveRegime:
		cfg.Adaptive = &strategy.AdaptiveParams{}
		target = cfg.Adaptive
	default:
		return strategy.Config{}, fmt.Errorf("unknown strategy variant %q", variant)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return strategy.Config{}, fmt.Errorf("apply sweep parameters: %w", err)
	}
	return cfg, nil
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// Ranking orders sweep results for a leaderboard
type Ranking string

const (
	RankByProfit  Ranking = "profit"
	RankByWinRate Ranking = "winrate"
	RankBySharpe  Ranking = "sharpe"
)

// Rank returns the successful results ordered best first
func Rank(results []SweepResult, by Ranking) []SweepResult {
	ok := make([]SweepResult, 0, len(results))
	for _, r := range results {
		if r.Error == nil && r.Result != nil {
			ok = append(ok, r)
		}
	}

	key := func(r SweepResult) float64 {
		switch by {
		case RankByWinRate:
			return r.Result.Summary.WinRate
		case RankBySharpe:
			return r.Result.Summary.SharpeRatio
		default:
			return r.Result.Summary.ProfitPct
		}
	}
	sort.SliceStable(ok, func(i, j int) bool { return key(ok[i]) > key(ok[j]) })
	return ok
}
