// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strings"
)

// AssetID identifies a tradeable asset within a league.
type AssetID string

// AssetKind discriminates the Asset variant.
type AssetKind string

// Asset kinds.
const (
	KindPlayer AssetKind = "player"
	KindPick   AssetKind = "pick"
)

// Position is a roster position such as QB or TE.
type Position string

// Known positions. Unknown positions are allowed and score neutrally.
const (
	PositionQB Position = "QB"
	PositionRB Position = "RB"
	PositionWR Position = "WR"
	PositionTE Position = "TE"

	// PositionPick is the pseudo-position reported for draft picks.
	PositionPick Position = "PICK"
)

// IsQuarterback reports whether superflex bonuses apply.
func (p Position) IsQuarterback() bool { return strings.EqualFold(string(p), string(PositionQB)) }

// IsTightEnd reports whether TE-premium bonuses apply.
func (p Position) IsTightEnd() bool { return strings.EqualFold(string(p), string(PositionTE)) }

// Normalize upper-cases and trims the position code.
func (p Position) Normalize() Position {
	return Position(strings.ToUpper(strings.TrimSpace(string(p))))
}

// PlayerAsset is an athlete on a fantasy roster. Raw values are resolved by
// the ingest layer and are expected on a 0-100 scale.
type PlayerAsset struct {
	ID       AssetID  `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Age      float64  `json:"age"`
	Team     string   `json:"team"`

	MarketValue float64 `json:"market_value"`
	Production  float64 `json:"production"`
	Potential   float64 `json:"potential"`
}

// PickAsset is a future rookie draft selection.
type PickAsset struct {
	ID    AssetID `json:"id"`
	Year  int     `json:"year"`
	Round int     `json:"round"`
}

// Asset is a tagged variant: Kind selects which of Player or Pick is set.
type Asset struct {
	Kind   AssetKind    `json:"kind"`
	Player *PlayerAsset `json:"player,omitempty"`
	Pick   *PickAsset   `json:"pick,omitempty"`
}

// NewPlayer wraps a player into an Asset.
func NewPlayer(p PlayerAsset) Asset {
	return Asset{Kind: KindPlayer, Player: &p}
}

// NewPick wraps a pick into an Asset.
func NewPick(p PickAsset) Asset {
	return Asset{Kind: KindPick, Pick: &p}
}

// ID returns the identity of whichever variant is set.
func (a Asset) ID() AssetID {
	switch a.Kind {
	case KindPlayer:
		if a.Player != nil {
			return a.Player.ID
		}
	case KindPick:
		if a.Pick != nil {
			return a.Pick.ID
		}
	}
	return ""
}

// Position returns the player's position, or PositionPick for picks.
func (a Asset) Position() Position {
	switch a.Kind {
	case KindPlayer:
		if a.Player != nil {
			return a.Player.Position.Normalize()
		}
	case KindPick:
		return PositionPick
	}
	return ""
}

// Age returns the player's age, or 0 for picks.
func (a Asset) Age() float64 {
	if a.Kind == KindPlayer && a.Player != nil {
		return a.Player.Age
	}
	return 0
}

// Label returns a short human-readable description used in rationales.
func (a Asset) Label() string {
	switch a.Kind {
	case KindPlayer:
		if a.Player != nil && a.Player.Name != "" {
			return a.Player.Name
		}
	case KindPick:
		if a.Pick != nil {
			return string(a.Pick.ID)
		}
	}
	return string(a.ID())
}

// Validate checks the variant shape and the semantic ranges of its fields.
func (a Asset) Validate() error {
	switch a.Kind {
	case KindPlayer:
		if a.Player == nil || a.Pick != nil {
			return NewValidationError("kind", "player asset must carry exactly the player variant")
		}
		return a.Player.validate()
	case KindPick:
		if a.Pick == nil || a.Player != nil {
			return NewValidationError("kind", "pick asset must carry exactly the pick variant")
		}
		return a.Pick.validate()
	default:
		return NewValidationError("kind", "unknown asset kind "+string(a.Kind))
	}
}

// maxPlayerAge bounds plausible athlete ages.
const maxPlayerAge = 50

func (p *PlayerAsset) validate() error {
	switch {
	case strings.TrimSpace(string(p.ID)) == "":
		return NewValidationError("player.id", "must not be empty")
	case p.Position.Normalize() == "":
		return NewValidationError("player.position", "must not be empty")
	case math.IsNaN(p.Age) || p.Age <= 0:
		return NewValidationError("player.age", "must be positive")
	case p.Age > maxPlayerAge:
		return NewValidationError("player.age", "exceeds plausible range")
	}
	values := []struct {
		field string
		v     float64
	}{
		{"player.market_value", p.MarketValue},
		{"player.production", p.Production},
		{"player.potential", p.Potential},
	}
	for _, fv := range values {
		if math.IsNaN(fv.v) || math.IsInf(fv.v, 0) || fv.v < 0 {
			return NewValidationError(fv.field, "must be a finite non-negative number")
		}
	}
	return nil
}

func (p *PickAsset) validate() error {
	switch {
	case strings.TrimSpace(string(p.ID)) == "":
		return NewValidationError("pick.id", "must not be empty")
	case p.Round < 1:
		return NewValidationError("pick.round", "must be at least 1")
	case p.Year <= 0:
		return NewValidationError("pick.year", "must be positive")
	}
	return nil
}

// ScoredAsset is an Asset with scores attached under one configuration version.
type ScoredAsset struct {
	Asset         Asset   `json:"asset"`
	Now           float64 `json:"now_score"`
	Future        float64 `json:"future_score"`
	Composite     float64 `json:"composite"`
	ConfigVersion int     `json:"config_version"`
}

// ID is a shortcut for Asset.ID.
func (s ScoredAsset) ID() AssetID { return s.Asset.ID() }

// Position is a shortcut for Asset.Position.
func (s ScoredAsset) Position() Position { return s.Asset.Position() }
