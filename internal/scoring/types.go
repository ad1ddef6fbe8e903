package scoring

import "github.com/dotcommander/mbiscore/internal/instrument"

// Tier is the three-level severity of a subscale score
type Tier string

const (
	TierLow      Tier = "Low"
	TierModerate Tier = "Moderate"
	TierHigh     Tier = "High"
)

// Tiers lists tiers in ascending order
var Tiers = []Tier{TierLow, TierModerate, TierHigh}

// Risk is the overall burnout risk label of a respondent
type Risk string

const (
	RiskHigh     Risk = "High Risk"
	RiskModerate Risk = "Moderate Risk"
	RiskLow      Risk = "Low Risk"
)

// Risks lists risk labels from most to least severe
var Risks = []Risk{RiskHigh, RiskModerate, RiskLow}

// Severity orders risk labels: 2 high, 1 moderate, 0 low
func (r Risk) Severity() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskModerate:
		return 1
	default:
		return 0
	}
}

// Scores holds the raw subscale sums of one respondent
type Scores struct {
	EE int `json:"ee"`
	DP int `json:"dp"`
	PA int `json:"pa"`
}

// Of returns the score of a subscale
func (s Scores) Of(sub instrument.Subscale) int {
	switch sub {
	case instrument.EmotionalExhaustion:
		return s.EE
	case instrument.Depersonalization:
		return s.DP
	case instrument.PersonalAccomplishment:
		return s.PA
	default:
		return 0
	}
}

// SubscaleResult is the score and tier of one subscale
type SubscaleResult struct {
	Subscale instrument.Subscale `json:"subscale"`
	Score    int                 `json:"score"`
	Tier     Tier                `json:"tier"`
}

// RespondentResult is the full evaluation of one respondent.
// It holds no reference to the responses it was computed from.
type RespondentResult struct {
	ID   string         `json:"id"`
	EE   SubscaleResult `json:"emotional_exhaustion"`
	DP   SubscaleResult `json:"depersonalization"`
	PA   SubscaleResult `json:"personal_accomplishment"`
	Risk Risk           `json:"risk"`
}

// Subscales returns the three subscale results in reporting order
func (r RespondentResult) Subscales() []SubscaleResult {
	return []SubscaleResult{r.EE, r.DP, r.PA}
}

// Advisory returns the fixed advisory message shown with a risk label
func Advisory(r Risk) string {
	switch r {
	case RiskHigh:
		return "Burnout alert: your scores indicate a high likelihood of burnout. Please consider speaking with a mental health professional."
	case RiskModerate:
		return "Moderate signs of burnout: some dimensions indicate risk. Pay attention to the warning signs."
	default:
		return "No signs of burnout: your results indicate low levels of burnout. Keep looking after your wellbeing."
	}
}
