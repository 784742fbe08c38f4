package rubric

import "math"

type Band string

const (
	BandOK   Band = "ok"
	BandWarn Band = "warn"
	BandBad  Band = "bad"

	bandOKFrom   = 90
	bandWarnFrom = 75
)

// TotalWeight sums the weights of all entries. It does not have to be 100.
func TotalWeight(inst Instance) float64 {
	var total float64
	for _, e := range inst.Entries {
		total += e.Weight
	}
	return total
}

// Score is the weighted percentage earned by the instance, rounded half-up to one decimal.
// An instance whose weights are all zero scores 0.
func Score(inst Instance) float64 {
	var total, earned float64
	for _, e := range inst.Entries {
		total += e.Weight
		earned += e.Weight * e.Grade.Factor()
	}
	if total <= 0 {
		return 0
	}
	return round1(100 * earned / total)
}

func round1(v float64) float64 {
	return math.Floor(v*10+.5) / 10
}

func BandFor(score float64) Band {
	switch {
	case score >= bandOKFrom:
		return BandOK
	case score >= bandWarnFrom:
		return BandWarn
	default:
		return BandBad
	}
}
