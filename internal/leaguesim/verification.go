package leaguesim

import (
	"fmt"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/types"
)

// verifyChart checks that the chart page is ranked 1..n by non-increasing
// composite and that every row agrees with the asset's own rank lookup.
func verifyChart(chart []types.ChartEntry, ranks map[model.AssetID]types.ChartEntry) []string {
	var problems []string
	for i, e := range chart {
		if e.Rank != i+1 {
			problems = append(problems, fmt.Sprintf("chart row %d has rank %d", i, e.Rank))
		}
		if i > 0 && e.Composite > chart[i-1].Composite {
			problems = append(problems, fmt.Sprintf("chart rank %d (%.3f) outranks rank %d (%.3f)",
				e.Rank, e.Composite, chart[i-1].Rank, chart[i-1].Composite))
		}
		single, ok := ranks[e.AssetID]
		if !ok {
			continue
		}
		if single.Rank != e.Rank || single.Composite != e.Composite {
			problems = append(problems, fmt.Sprintf("asset %s: chart says rank %d (%.3f), lookup says rank %d (%.3f)",
				e.AssetID, e.Rank, e.Composite, single.Rank, single.Composite))
		}
	}
	return problems
}

// bandTolerance absorbs float rounding in the server's band check.
const bandTolerance = 1e-9

// verifyProposals checks that every proposal stays within the fairness band.
func verifyProposals(proposals []model.Proposal, band float64) []string {
	var problems []string
	for i, p := range proposals {
		if p.FairnessDelta > band+bandTolerance {
			problems = append(problems, fmt.Sprintf("proposal %d fairness delta %.3f exceeds band %.3f", i, p.FairnessDelta, band))
		}
	}
	return problems
}
