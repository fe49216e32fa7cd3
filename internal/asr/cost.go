package asr

import "math"

// rateCard describes the per-minute billing rate and rounding increment
// for a provider/model/billing-plan tuple.
type rateCard struct {
	RatePerMinute    float64
	IncrementSeconds float64
}

// costTable mirrors the pipeline's deterministic, table-driven cost model:
// rates live in code, never fetched over the network, so a run's estimated
// cost is reproducible from its manifest alone.
var costTable = map[costKey]rateCard{
	{provider: "whisperapi", model: "default", billing: "per_minute"}:   {RatePerMinute: 0.006, IncrementSeconds: 60},
	{provider: "whisperapi", model: "large-v2", billing: "per_minute"}:  {RatePerMinute: 0.012, IncrementSeconds: 60},
	{provider: "whisperapi", model: "large-v3", billing: "per_minute"}:  {RatePerMinute: 0.012, IncrementSeconds: 60},
	{provider: "stub", model: "default", billing: "per_minute"}:        {RatePerMinute: 0, IncrementSeconds: 60},
}

var defaultRateCard = rateCard{RatePerMinute: 0.006, IncrementSeconds: 60}

type costKey struct {
	provider string
	model    string
	billing  string
}

func lookupRate(provider, model, billing string) rateCard {
	if model == "" {
		model = "default"
	}
	if billing == "" {
		billing = "per_minute"
	}
	if card, ok := costTable[costKey{provider: provider, model: model, billing: billing}]; ok {
		return card
	}
	if card, ok := costTable[costKey{provider: provider, model: "default", billing: billing}]; ok {
		return card
	}
	return defaultRateCard
}

// EstimateCost computes the USD cost of transcribing durationSeconds of
// audio, rounding the billed duration up to the rate card's increment and
// rounding the resulting cost to 4 decimal places for stable equality in
// the run manifest.
func EstimateCost(durationSeconds float64, provider, model, billingPlan string) float64 {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	card := lookupRate(provider, model, billingPlan)

	billed := durationSeconds
	if card.IncrementSeconds > 0 {
		billed = math.Ceil(durationSeconds/card.IncrementSeconds) * card.IncrementSeconds
	}
	minutes := billed / 60.0
	cost := card.RatePerMinute * minutes
	return math.Round(cost*10000) / 10000
}
