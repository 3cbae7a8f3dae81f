package model

import "strings"

// League is the read-only snapshot the ingest layer hands the engine: shared
// settings, every team's profile and the asset catalog the rosters refer to.
type League struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Settings LeagueSettings `json:"settings"`
	Teams    []TeamProfile  `json:"teams"`
	Assets   []Asset        `json:"assets"`
}

// Validate checks that every holding resolves to a catalog asset and that no
// asset is held by two teams.
func (l League) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return NewValidationError("league.id", "must not be empty")
	}
	if err := l.Settings.WithDefaults().Validate(); err != nil {
		return err
	}
	catalog := make(map[AssetID]struct{}, len(l.Assets))
	for _, a := range l.Assets {
		if err := a.Validate(); err != nil {
			return err
		}
		if _, dup := catalog[a.ID()]; dup {
			return NewValidationError("league.assets", "duplicate asset "+string(a.ID()))
		}
		catalog[a.ID()] = struct{}{}
	}
	owner := make(map[AssetID]string, len(l.Assets))
	teams := make(map[string]struct{}, len(l.Teams))
	for _, t := range l.Teams {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := teams[t.TeamID]; dup {
			return NewValidationError("league.teams", "duplicate team "+t.TeamID)
		}
		teams[t.TeamID] = struct{}{}
		for _, id := range t.Holdings() {
			if _, ok := catalog[id]; !ok {
				return NewValidationError("league.teams", "team "+t.TeamID+" holds unknown asset "+string(id))
			}
			if prev, taken := owner[id]; taken {
				return NewValidationError("league.teams", "asset "+string(id)+" held by "+prev+" and "+t.TeamID)
			}
			owner[id] = t.TeamID
		}
	}
	return nil
}
