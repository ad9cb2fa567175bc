package risk

import (
	"fmt"
	"sort"
	"strings"

	"BitDCA/internal/domain/models"
	domsvc "BitDCA/internal/domain/service"
	"BitDCA/pkg/config"
)

// Registry resolves strategies by name and knows which one is the default.
type Registry struct {
	strategies map[string]domsvc.RiskStrategy
	order      []string
	def        string
}

// NewRegistry indexes the given strategies; def must be one of them.
func NewRegistry(def string, strategies ...domsvc.RiskStrategy) (*Registry, error) {
	r := &Registry{strategies: make(map[string]domsvc.RiskStrategy, len(strategies))}
	for _, s := range strategies {
		if _, dup := r.strategies[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate strategy %q", s.Name())
		}
		r.strategies[s.Name()] = s
		r.order = append(r.order, s.Name())
	}
	if _, ok := r.strategies[def]; !ok {
		return nil, fmt.Errorf("default strategy %q: %w", def, models.ErrUnknownStrategy)
	}
	r.def = def
	return r, nil
}

// NewRegistryFromConfig builds the three strategies from the engine section.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	e := cfg.Engine
	dev, err := NewDeviationRatio(DeviationConfig{
		Window:        e.Deviation.Window,
		Variant:       DeviationVariant(e.Deviation.Variant),
		Mode:          MultiplierMode(e.Deviation.MultiplierMode),
		MinMultiplier: e.Deviation.MinMultiplier,
		MaxMultiplier: e.Deviation.MaxMultiplier,
	})
	if err != nil {
		return nil, fmt.Errorf("deviation strategy: %w", err)
	}
	th, err := NewTanhMomentum(TanhConfig{K: e.Tanh.K, Window: e.Tanh.Window})
	if err != nil {
		return nil, fmt.Errorf("tanh strategy: %w", err)
	}
	bl, err := NewCycleLiquidityBlend(BlendConfig{
		CycleLength:     e.Blend.CycleLength,
		PhaseShift:      e.Blend.PhaseShift,
		K:               e.Blend.K,
		Window:          e.Blend.Window,
		CycleWeight:     e.Blend.CycleWeight,
		LiquidityWeight: e.Blend.LiquidityWeight,
		Mode:            MultiplierMode(e.Blend.MultiplierMode),
		MinMultiplier:   e.Blend.MinMultiplier,
		MaxMultiplier:   e.Blend.MaxMultiplier,
	})
	if err != nil {
		return nil, fmt.Errorf("blend strategy: %w", err)
	}
	return NewRegistry(e.DefaultStrategy, dev, th, bl)
}

// Get resolves name, falling back to the default when name is empty.
func (r *Registry) Get(name string) (domsvc.RiskStrategy, error) {
	if name == "" {
		name = r.def
	}
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", models.ErrUnknownStrategy, name, strings.Join(r.order, ", "))
	}
	return s, nil
}

func (r *Registry) Default() domsvc.RiskStrategy { return r.strategies[r.def] }

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Infos lists every strategy in registration order, flagging the default.
func (r *Registry) Infos() []models.StrategyInfo {
	out := make([]models.StrategyInfo, 0, len(r.order))
	for _, name := range r.order {
		info := r.strategies[name].Info()
		info.Default = name == r.def
		out = append(out, info)
	}
	return out
}

// Requirements merges every strategy's needs so one ingestion serves them all.
func (r *Registry) Requirements(minLookback int) models.StrategyRequirements {
	req := models.StrategyRequirements{LookbackDays: minLookback}
	seen := make(map[int]bool)
	for _, name := range r.order {
		sr := r.strategies[name].Requirements()
		if sr.LookbackDays > req.LookbackDays {
			req.LookbackDays = sr.LookbackDays
		}
		for _, w := range sr.PctChangeWindows {
			if !seen[w] {
				seen[w] = true
				req.PctChangeWindows = append(req.PctChangeWindows, w)
			}
		}
	}
	sort.Ints(req.PctChangeWindows)
	return req
}
