package proposal

import (
	"time"

	"github.com/okian/tradeval/internal/domain/roster"
)

// Default search parameters.
const (
	DefaultFairnessBand   = 0.10
	DefaultMaxSideSize    = 2
	MaxSideSizeCap        = 3
	DefaultMaxEvaluations = 50000
	DefaultMaxProposals   = 25
	DefaultCandidateLimit = 20
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithFairnessBand sets the maximum relative difference between sides.
func WithFairnessBand(band float64) Option {
	return func(g *Generator) {
		if band > 0 && band < 1 {
			g.band = band
		}
	}
}

// WithMaxSideSize bounds how many assets one side may exchange. Values above
// MaxSideSizeCap are clamped.
func WithMaxSideSize(n int) Option {
	return func(g *Generator) {
		if n <= 0 {
			return
		}
		if n > MaxSideSizeCap {
			n = MaxSideSizeCap
		}
		g.maxSide = n
	}
}

// WithMaxEvaluations bounds the number of in-band pairs evaluated.
func WithMaxEvaluations(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxEvaluations = n
		}
	}
}

// WithMaxProposals caps the number of proposals returned.
func WithMaxProposals(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxProposals = n
		}
	}
}

// WithMaxCandidates stops the search once n fair candidates are collected.
// Zero means no limit.
func WithMaxCandidates(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.maxCandidates = n
		}
	}
}

// WithCandidateLimit keeps only the n most valuable assets per side before
// enumerating subsets.
func WithCandidateLimit(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.candidateLimit = n
		}
	}
}

// WithTimeout sets a per-search time budget applied on top of the caller's
// context.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithAnalyzer sets the roster analyzer used to score mutual benefit.
func WithAnalyzer(a *roster.Analyzer) Option {
	return func(g *Generator) {
		if a != nil {
			g.analyzer = a
		}
	}
}

// WithRequireMutualBenefit drops proposals where either side's fit is negative.
func WithRequireMutualBenefit(v bool) Option {
	return func(g *Generator) {
		g.requireMutual = v
	}
}
