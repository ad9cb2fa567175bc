package service

import "BitDCA/internal/domain/models"

// RiskStrategy turns extracted signals into a bounded score and maps that
// score to a purchase multiplier. Each implementation owns its sign convention.
type RiskStrategy interface {
	Name() string
	Score(sig models.Signals) (models.RiskScore, error)
	Multiplier(score models.RiskScore) float64
	Requirements() models.StrategyRequirements
	Info() models.StrategyInfo
}
