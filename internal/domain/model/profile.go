package model

import "strings"

// Timeline is a team's strategic horizon.
type Timeline string

// Timelines.
const (
	TimelineContend Timeline = "contend"
	TimelineRetool  Timeline = "retool"
	TimelineRebuild Timeline = "rebuild"
)

// ParseTimeline returns the timeline for s.
func ParseTimeline(s string) (Timeline, bool) {
	switch Timeline(strings.ToLower(strings.TrimSpace(s))) {
	case TimelineContend:
		return TimelineContend, true
	case TimelineRetool:
		return TimelineRetool, true
	case TimelineRebuild:
		return TimelineRebuild, true
	}
	return "", false
}

// RiskTolerance steers recommendations toward volatile or proven assets.
type RiskTolerance string

// Risk tolerances.
const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// ParseRiskTolerance returns the tolerance for s; "med" is accepted.
func ParseRiskTolerance(s string) (RiskTolerance, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, true
	case "medium", "med":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	}
	return "", false
}

// TeamProfile is owned by one team and read-only to the engine.
type TeamProfile struct {
	TeamID         string         `json:"team_id"`
	Name           string         `json:"name,omitempty"`
	Timeline       Timeline       `json:"timeline"`
	RiskTolerance  RiskTolerance  `json:"risk_tolerance"`
	Roster         []AssetID      `json:"roster"`
	OwnedPicks     []AssetID      `json:"owned_picks"`
	LeagueSettings LeagueSettings `json:"league_settings"`
}

// Holdings returns roster and pick ids together.
func (p TeamProfile) Holdings() []AssetID {
	out := make([]AssetID, 0, len(p.Roster)+len(p.OwnedPicks))
	out = append(out, p.Roster...)
	return append(out, p.OwnedPicks...)
}

// Owns reports whether id is on the roster or among the owned picks.
func (p TeamProfile) Owns(id AssetID) bool {
	for _, h := range p.Roster {
		if h == id {
			return true
		}
	}
	for _, h := range p.OwnedPicks {
		if h == id {
			return true
		}
	}
	return false
}

// Validate checks the enumerations.
func (p TeamProfile) Validate() error {
	if strings.TrimSpace(p.TeamID) == "" {
		return NewValidationError("profile.team_id", "must not be empty")
	}
	if _, ok := ParseTimeline(string(p.Timeline)); !ok {
		return NewValidationError("profile.timeline", "unknown timeline "+string(p.Timeline))
	}
	if _, ok := ParseRiskTolerance(string(p.RiskTolerance)); !ok {
		return NewValidationError("profile.risk_tolerance", "unknown risk tolerance "+string(p.RiskTolerance))
	}
	return nil
}
