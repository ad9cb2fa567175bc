package risk

import (
	"strings"

	"BitDCA/internal/domain/models"
	domsvc "BitDCA/internal/domain/service"

	"github.com/shopspring/decimal"
)

const (
	usdPlaces = 2
	btcPlaces = 8
)

// ValidateAmount parses a user-entered base amount at the boundary.
// Empty input is not an error; it reports present=false.
func ValidateAmount(raw string) (amount float64, present bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false, &models.InputValidationError{Field: "amount", Reason: "must be a number"}
	}
	if d.IsNegative() {
		return 0, false, &models.InputValidationError{Field: "amount", Reason: "must not be negative"}
	}
	f := d.InexactFloat64()
	if !finite(f) {
		return 0, false, &models.InputValidationError{Field: "amount", Reason: "is out of range"}
	}
	return f, true, nil
}

// Recommend applies the strategy multiplier to base. It returns nil when the
// inputs cannot support a recommendation: zero base, missing spot, or no score.
func Recommend(base, spot float64, score *models.RiskScore, s domsvc.RiskStrategy) *models.Recommendation {
	if score == nil || s == nil || !(base > 0) || !(spot > 0) || !finite(base, spot) {
		return nil
	}
	mult := s.Multiplier(*score)
	if !finite(mult) || mult < 0 {
		mult = 0
	}
	usd := base * mult
	btc := usd / spot
	return &models.Recommendation{
		Strategy:   s.Name(),
		BaseUSD:    base,
		Multiplier: mult,
		USD:        usd,
		BTC:        btc,
		SpotPrice:  spot,
		USDDisplay: decimal.NewFromFloat(usd).StringFixed(usdPlaces),
		BTCDisplay: decimal.NewFromFloat(btc).StringFixed(btcPlaces),
	}
}
