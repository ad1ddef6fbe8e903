package batch

import (
	"math"

	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/scoring"
)

// TierCount is the number of respondents in one tier of a subscale.
// Percent is nil when no respondent was scored.
type TierCount struct {
	Tier    scoring.Tier `json:"tier"`
	Count   int          `json:"count"`
	Percent *float64     `json:"percent"`
}

// Distribution is the tier distribution of one subscale
type Distribution struct {
	Subscale instrument.Subscale `json:"subscale"`
	Name     string              `json:"name"`
	Tiers    []TierCount         `json:"tiers"`
}

// Count returns the number of respondents in a tier
func (d Distribution) Count(t scoring.Tier) int {
	for _, tc := range d.Tiers {
		if tc.Tier == t {
			return tc.Count
		}
	}
	return 0
}

// RiskCount is the number of respondents with one overall risk label
type RiskCount struct {
	Risk    scoring.Risk `json:"risk"`
	Count   int          `json:"count"`
	Percent *float64     `json:"percent"`
}

// Summary aggregates a batch. It is always rebuilt from the full result set.
type Summary struct {
	Scored    int            `json:"scored"`
	Failed    int            `json:"failed"`
	Subscales []Distribution `json:"subscales"`
	Risks     []RiskCount    `json:"risks"`
}

// Summarize counts tiers and risk labels over results
func Summarize(results []scoring.RespondentResult, failed int) Summary {
	total := len(results)

	tierCounts := make(map[instrument.Subscale]map[scoring.Tier]int, len(instrument.Subscales))
	for _, s := range instrument.Subscales {
		tierCounts[s] = make(map[scoring.Tier]int, len(scoring.Tiers))
	}
	riskCounts := make(map[scoring.Risk]int, len(scoring.Risks))

	for _, r := range results {
		for _, sr := range r.Subscales() {
			tierCounts[sr.Subscale][sr.Tier]++
		}
		riskCounts[r.Risk]++
	}

	summary := Summary{Scored: total, Failed: failed}
	for _, s := range instrument.Subscales {
		d := Distribution{Subscale: s, Name: s.Name()}
		for _, t := range scoring.Tiers {
			n := tierCounts[s][t]
			d.Tiers = append(d.Tiers, TierCount{Tier: t, Count: n, Percent: percent(n, total)})
		}
		summary.Subscales = append(summary.Subscales, d)
	}
	for _, risk := range scoring.Risks {
		n := riskCounts[risk]
		summary.Risks = append(summary.Risks, RiskCount{Risk: risk, Count: n, Percent: percent(n, total)})
	}
	return summary
}

// Distribution returns the distribution of a subscale
func (s Summary) Distribution(sub instrument.Subscale) Distribution {
	for _, d := range s.Subscales {
		if d.Subscale == sub {
			return d
		}
	}
	return Distribution{Subscale: sub, Name: sub.Name()}
}

// RiskCount returns the number of respondents with a risk label
func (s Summary) RiskCount(r scoring.Risk) int {
	for _, rc := range s.Risks {
		if rc.Risk == r {
			return rc.Count
		}
	}
	return 0
}

// percent is count/total*100 rounded to two decimals, nil when total is 0
func percent(count, total int) *float64 {
	if total == 0 {
		return nil
	}
	p := math.Round(float64(count)/float64(total)*100*100) / 100
	return &p
}
