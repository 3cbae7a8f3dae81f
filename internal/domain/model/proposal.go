package model

import "strings"

// Objective biases which score component dominates search and ranking.
type Objective string

// Objectives.
const (
	ObjectiveWinNow     Objective = "win-now"
	ObjectiveBalanced   Objective = "balanced"
	ObjectiveFutureLean Objective = "future-lean"
)

// ParseObjective accepts hyphen or underscore spellings; empty means balanced.
func ParseObjective(s string) (Objective, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "win-now", "winnow":
		return ObjectiveWinNow, nil
	case "", "balanced":
		return ObjectiveBalanced, nil
	case "future-lean", "future":
		return ObjectiveFutureLean, nil
	}
	return "", NewValidationError("objective", "unknown objective "+s)
}

// Value returns the score component the objective compares.
func (o Objective) Value(a ScoredAsset) float64 {
	switch o {
	case ObjectiveWinNow:
		return a.Now
	case ObjectiveFutureLean:
		return a.Future
	default:
		return a.Composite
	}
}

// Proposal is an ephemeral trade suggestion. Give and Get are sorted.
type Proposal struct {
	OpponentID    string    `json:"opponent_id"`
	Give          []AssetID `json:"give"`
	Get           []AssetID `json:"get"`
	GiveValue     float64   `json:"give_value"`
	GetValue      float64   `json:"get_value"`
	FairnessDelta float64   `json:"fairness_delta"`
	MutualBenefit float64   `json:"mutual_benefit"`
	Rationale     string    `json:"rationale"`
}

// Size is the total number of assets exchanged.
func (p Proposal) Size() int { return len(p.Give) + len(p.Get) }

// Key is a stable identity used as the final ranking tie-break.
func (p Proposal) Key() string {
	var b strings.Builder
	for i, id := range p.Give {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(id))
	}
	b.WriteString("=>")
	for i, id := range p.Get {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(id))
	}
	return b.String()
}

// RankedOpponent is one row of a matchmaking result.
type RankedOpponent struct {
	TeamID            string   `json:"team_id"`
	Timeline          Timeline `json:"timeline"`
	Score             float64  `json:"score"`
	ProposalCount     int      `json:"proposal_count"`
	BestFairnessDelta float64  `json:"best_fairness_delta"`
	Truncated         bool     `json:"truncated"`
	Rationale         string   `json:"rationale"`
}
