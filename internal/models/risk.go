package models

import "github.com/shopspring/decimal"

const derivedPlaces = 2

// RiskReward holds the per-unit risk and reward of a trade and their ratio.
// A nil field means the value cannot be derived.
type RiskReward struct {
	RiskPerUnit   *float64
	RewardPerUnit *float64
	Ratio         *float64
}

// ComputeRiskReward derives risk, reward and their ratio from the price levels.
// Risk needs a stop-loss, reward needs a target, and the ratio needs both with
// a non-zero risk.
func ComputeRiskReward(entry float64, stopLoss, target *float64) RiskReward {
	var rr RiskReward
	e := decimal.NewFromFloat(entry)

	var risk, reward decimal.Decimal
	if stopLoss != nil {
		risk = e.Sub(decimal.NewFromFloat(*stopLoss)).Abs().Round(derivedPlaces)
		rr.RiskPerUnit = toFloat(risk)
	}
	if target != nil {
		reward = decimal.NewFromFloat(*target).Sub(e).Abs().Round(derivedPlaces)
		rr.RewardPerUnit = toFloat(reward)
	}
	if stopLoss != nil && target != nil && !risk.IsZero() {
		rr.Ratio = toFloat(reward.DivRound(risk, derivedPlaces))
	}
	return rr
}

// ApplyDerived recomputes the derived fields of t from its price levels.
func (t *Trade) ApplyDerived() {
	rr := ComputeRiskReward(t.Entry, t.StopLoss, t.Target)
	t.RiskPerUnit = rr.RiskPerUnit
	t.RewardPerUnit = rr.RewardPerUnit
	t.RiskRewardRatio = rr.Ratio
}

func toFloat(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}
