package model

import (
	"math"
	"strings"
)

// ScoringFormat is the league's reception scoring rule.
type ScoringFormat string

// Scoring formats.
const (
	FormatPPR      ScoringFormat = "ppr"
	FormatHalf     ScoringFormat = "half"
	FormatStandard ScoringFormat = "standard"
)

// ParseScoringFormat accepts the canonical names plus common aliases.
func ParseScoringFormat(s string) (ScoringFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ppr", "full", "full_ppr":
		return FormatPPR, true
	case "half", "half_ppr", "0.5":
		return FormatHalf, true
	case "standard", "std", "non_ppr":
		return FormatStandard, true
	}
	return "", false
}

// LeagueSettings is pure league configuration.
type LeagueSettings struct {
	ScoringFormat ScoringFormat `json:"scoring_format"`
	Superflex     bool          `json:"superflex"`
	TEPremium     float64       `json:"te_premium"`
	LeagueSize    int           `json:"league_size"`
}

// Default league shape.
const (
	defaultLeagueSize = 12
	maxLeagueSize     = 32
)

// DefaultLeagueSettings returns the reference settings every input is
// validated against.
func DefaultLeagueSettings() LeagueSettings {
	return LeagueSettings{
		ScoringFormat: FormatPPR,
		Superflex:     false,
		TEPremium:     0,
		LeagueSize:    defaultLeagueSize,
	}
}

// WithDefaults fills zero-valued fields from DefaultLeagueSettings.
func (s LeagueSettings) WithDefaults() LeagueSettings {
	d := DefaultLeagueSettings()
	if strings.TrimSpace(string(s.ScoringFormat)) == "" {
		s.ScoringFormat = d.ScoringFormat
	}
	if s.LeagueSize == 0 {
		s.LeagueSize = d.LeagueSize
	}
	return s
}

// Validate rejects settings that cannot be scored.
func (s LeagueSettings) Validate() error {
	if _, ok := ParseScoringFormat(string(s.ScoringFormat)); !ok {
		return NewValidationError("settings.scoring_format", "unknown format "+string(s.ScoringFormat))
	}
	if math.IsNaN(s.TEPremium) || math.IsInf(s.TEPremium, 0) || s.TEPremium < 0 {
		return NewValidationError("settings.te_premium", "must be a finite number >= 0")
	}
	if s.LeagueSize <= 0 || s.LeagueSize > maxLeagueSize {
		return NewValidationError("settings.league_size", "must be between 1 and 32")
	}
	return nil
}

// Normalized returns the settings with defaults applied and the format
// canonicalized, or a ValidationError.
func (s LeagueSettings) Normalized() (LeagueSettings, error) {
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return LeagueSettings{}, err
	}
	f, _ := ParseScoringFormat(string(s.ScoringFormat))
	s.ScoringFormat = f
	return s, nil
}
