// Package leaguegen builds synthetic leagues and realized outcomes for demos,
// the league-sim tool and tests. Output depends only on the Config, so the
// same seed always yields the same league.
package leaguegen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/tradeval/internal/domain/model"
)

// Default generator shape.
const (
	DefaultTeams      = 12
	DefaultRosterSize = 16
	DefaultPickRounds = 3
	DefaultPickYears  = 2

	minAge = 21
	maxAge = 34
)

// namespace scopes the deterministic ids.
var namespace = uuid.MustParse("6f1c2a52-4d0e-4f7e-9a57-3b8c1e0d7a21")

// positionMix is how a roster is split, cycled in order.
var positionMix = []model.Position{
	model.PositionQB, model.PositionRB, model.PositionWR, model.PositionWR,
	model.PositionTE, model.PositionRB, model.PositionWR, model.PositionQB,
}

var timelines = []model.Timeline{model.TimelineContend, model.TimelineRetool, model.TimelineRebuild}

var risks = []model.RiskTolerance{model.RiskLow, model.RiskMedium, model.RiskHigh}

// Config controls the generated league.
type Config struct {
	Seed       uint64
	Name       string
	Teams      int
	RosterSize int
	PickRounds int
	PickYears  int
	Season     int
	Settings   model.LeagueSettings
}

// Option applies a configuration option to Config.
type Option func(*Config)

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithName sets the league name, which also keys the league id.
func WithName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Name = name
		}
	}
}

// WithTeams sets the number of teams.
func WithTeams(n int) Option {
	return func(c *Config) {
		if n > 1 {
			c.Teams = n
		}
	}
}

// WithRosterSize sets the players per team.
func WithRosterSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.RosterSize = n
		}
	}
}

// WithPicks sets how many rounds and future seasons of picks each team owns.
// Zero rounds generates no picks.
func WithPicks(rounds, years int) Option {
	return func(c *Config) {
		if rounds >= 0 {
			c.PickRounds = rounds
		}
		if years > 0 {
			c.PickYears = years
		}
	}
}

// WithSettings sets the league settings.
func WithSettings(s model.LeagueSettings) Option {
	return func(c *Config) { c.Settings = s }
}

// NewConfig returns the default configuration with opts applied.
func NewConfig(opts ...Option) Config {
	c := Config{
		Seed:       1,
		Name:       "demo",
		Teams:      DefaultTeams,
		RosterSize: DefaultRosterSize,
		PickRounds: DefaultPickRounds,
		PickYears:  DefaultPickYears,
		Season:     model.DefaultSeason,
		Settings:   model.DefaultLeagueSettings(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.Settings.LeagueSize = c.Teams
	return c
}

// Generator produces leagues and outcomes from one Config.
type Generator struct {
	cfg Config
}

// New creates a generator.
func New(opts ...Option) *Generator {
	return &Generator{cfg: NewConfig(opts...)}
}

// Config returns the effective configuration.
func (g *Generator) Config() Config { return g.cfg }

func (g *Generator) rng(stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(g.cfg.Seed, stream))
}

// id derives a stable UUID from the league name and a path.
func (g *Generator) id(parts ...string) string {
	key := g.cfg.Name + "/" + strconv.FormatUint(g.cfg.Seed, 10)
	for _, p := range parts {
		key += "/" + p
	}
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// League builds the league snapshot. Every team holds RosterSize players and
// PickRounds*PickYears of its own picks.
func (g *Generator) League() (model.League, error) {
	r := g.rng(1)
	c := g.cfg
	league := model.League{
		ID:       g.id("league"),
		Name:     c.Name,
		Settings: c.Settings,
		Teams:    make([]model.TeamProfile, 0, c.Teams),
		Assets:   make([]model.Asset, 0, c.Teams*(c.RosterSize+c.PickRounds*c.PickYears)),
	}

	for t := 0; t < c.Teams; t++ {
		teamKey := "team-" + strconv.Itoa(t+1)
		profile := model.TeamProfile{
			TeamID:        g.id(teamKey),
			Name:          fmt.Sprintf("Team %d", t+1),
			Timeline:      timelines[r.IntN(len(timelines))],
			RiskTolerance: risks[r.IntN(len(risks))],
		}
		for i := 0; i < c.RosterSize; i++ {
			p := g.player(r, teamKey, i)
			league.Assets = append(league.Assets, model.NewPlayer(p))
			profile.Roster = append(profile.Roster, p.ID)
		}
		for y := 0; y < c.PickYears; y++ {
			for round := 1; round <= c.PickRounds; round++ {
				year := c.Season + y
				pick := model.PickAsset{
					ID:    model.AssetID(fmt.Sprintf("%d-R%d-T%d", year, round, t+1)),
					Year:  year,
					Round: round,
				}
				league.Assets = append(league.Assets, model.NewPick(pick))
				profile.OwnedPicks = append(profile.OwnedPicks, pick.ID)
			}
		}
		league.Teams = append(league.Teams, profile)
	}

	if err := league.Validate(); err != nil {
		return model.League{}, fmt.Errorf("generated league invalid: %w", err)
	}
	return league, nil
}

func (g *Generator) player(r *rand.Rand, teamKey string, slot int) model.PlayerAsset {
	pos := positionMix[slot%len(positionMix)]
	age := float64(minAge) + r.Float64()*float64(maxAge-minAge)
	// Talent drives all three raw values so they stay correlated.
	talent := clamp(50+r.NormFloat64()*18, 5, 99)
	youth := (float64(maxAge) - age) / float64(maxAge-minAge)
	return model.PlayerAsset{
		ID:          model.AssetID(g.id(teamKey, "player", strconv.Itoa(slot))),
		Name:        fmt.Sprintf("%s %s-%d", pos, teamKey, slot+1),
		Position:    pos,
		Age:         math.Round(age*10) / 10,
		Team:        teamKey,
		MarketValue: round1(clamp(talent+r.NormFloat64()*8, 0, 100)),
		Production:  round1(clamp(talent*(0.7+0.3*(1-youth))+r.NormFloat64()*10, 0, 100)),
		Potential:   round1(clamp(talent*(0.6+0.6*youth)+r.NormFloat64()*10, 0, 100)),
	}
}

// Outcomes pairs every player in league with a realized value. The realized
// value leans on production and youth plus noise, so a calibration run has
// a signal to fit without the default weights being exact.
func (g *Generator) Outcomes(league model.League) []model.Outcome {
	r := g.rng(2)
	out := make([]model.Outcome, 0, len(league.Assets))
	for _, a := range league.Assets {
		if a.Kind != model.KindPlayer {
			continue
		}
		p := a.Player
		youth := clamp((float64(maxAge)-p.Age)/float64(maxAge-minAge), 0, 1)
		realized := 0.25*p.MarketValue + 0.55*p.Production + 0.2*p.Potential*youth + r.NormFloat64()*6
		out = append(out, model.Outcome{
			Asset:    a,
			Settings: league.Settings,
			Realized: round1(math.Max(0, realized)),
		})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
