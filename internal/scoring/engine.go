// Package scoring sums MBI-HSS subscales, classifies them into tiers and
// derives the overall burnout risk of a respondent.
package scoring

import (
	"github.com/dotcommander/mbiscore/internal/instrument"
)

// ResponseVector is one respondent's 22 answers, item 1 at index 0.
// It is a value type, so a constructed vector cannot be changed by the caller.
type ResponseVector [instrument.ItemCount]int

// NewResponseVector validates raw answers and copies them into a vector
func NewResponseVector(values []int) (ResponseVector, error) {
	var v ResponseVector
	if len(values) != instrument.ItemCount {
		return v, &ResponseError{Kind: ErrInvalidResponseShape, Count: len(values)}
	}
	for i, value := range values {
		if value < instrument.MinValue || value > instrument.MaxValue {
			return ResponseVector{}, &ResponseError{Kind: ErrInvalidResponseValue, Item: i + 1, Value: value}
		}
		v[i] = value
	}
	return v, nil
}

// Engine scores responses against one instrument
type Engine struct {
	instrument *instrument.Instrument
	indexes    map[instrument.Subscale][]int
}

// NewEngine creates an engine for a validated instrument
func NewEngine(in *instrument.Instrument) *Engine {
	indexes := make(map[instrument.Subscale][]int, len(instrument.Subscales))
	for _, s := range instrument.Subscales {
		items := in.Items(s)
		zeroBased := make([]int, len(items))
		for i, item := range items {
			zeroBased[i] = item - 1
		}
		indexes[s] = zeroBased
	}
	return &Engine{instrument: in, indexes: indexes}
}

// Instrument returns the instrument the engine scores against
func (e *Engine) Instrument() *instrument.Instrument {
	return e.instrument
}

// Score sums the responses of each subscale
func (e *Engine) Score(v ResponseVector) Scores {
	return Scores{
		EE: e.sum(v, instrument.EmotionalExhaustion),
		DP: e.sum(v, instrument.Depersonalization),
		PA: e.sum(v, instrument.PersonalAccomplishment),
	}
}

// ScoreValues validates raw answers and scores them.
// Invalid input yields no scores at all.
func (e *Engine) ScoreValues(values []int) (Scores, error) {
	v, err := NewResponseVector(values)
	if err != nil {
		return Scores{}, err
	}
	return e.Score(v), nil
}

func (e *Engine) sum(v ResponseVector, s instrument.Subscale) int {
	total := 0
	for _, idx := range e.indexes[s] {
		total += v[idx]
	}
	return total
}

// Classify maps a score onto a tier. A score equal to a boundary falls in the lower tier.
func Classify(score int, b instrument.Bounds) Tier {
	switch {
	case score <= b.Low:
		return TierLow
	case score <= b.High:
		return TierModerate
	default:
		return TierHigh
	}
}

// OverallRisk combines the three tiers, checking high risk first, then moderate
func OverallRisk(ee, dp, pa Tier) Risk {
	if ee == TierHigh && dp == TierHigh && pa == TierLow {
		return RiskHigh
	}
	if ee == TierModerate || dp == TierModerate {
		return RiskModerate
	}
	return RiskLow
}

// Evaluate scores and classifies one respondent
func (e *Engine) Evaluate(id string, v ResponseVector) RespondentResult {
	scores := e.Score(v)
	result := RespondentResult{ID: id}
	result.EE = e.subscaleResult(instrument.EmotionalExhaustion, scores.EE)
	result.DP = e.subscaleResult(instrument.Depersonalization, scores.DP)
	result.PA = e.subscaleResult(instrument.PersonalAccomplishment, scores.PA)
	result.Risk = OverallRisk(result.EE.Tier, result.DP.Tier, result.PA.Tier)
	return result
}

// EvaluateValues validates raw answers and evaluates them
func (e *Engine) EvaluateValues(id string, values []int) (RespondentResult, error) {
	v, err := NewResponseVector(values)
	if err != nil {
		return RespondentResult{}, err
	}
	return e.Evaluate(id, v), nil
}

func (e *Engine) subscaleResult(s instrument.Subscale, score int) SubscaleResult {
	return SubscaleResult{
		Subscale: s,
		Score:    score,
		Tier:     Classify(score, e.instrument.Bounds(s)),
	}
}
