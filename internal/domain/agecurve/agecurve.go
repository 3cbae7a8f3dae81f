// Package agecurve resolves position-specific age decay multipliers.
package agecurve

import (
	"math"

	"github.com/okian/tradeval/internal/domain/model"
)

// neutral is returned for positions without a curve.
const neutral = 1.0

// Model looks up multipliers from a fixed set of curves. It is safe for
// concurrent use because it never mutates after construction.
type Model struct {
	curves map[model.Position]model.AgeCurve
}

// New copies curves into a Model, normalizing position keys.
func New(curves map[model.Position]model.AgeCurve) *Model {
	m := &Model{curves: make(map[model.Position]model.AgeCurve, len(curves))}
	for pos, c := range curves {
		m.curves[pos.Normalize()] = c
	}
	return m
}

// MultiplierFor returns a value in (0,1]. Unknown positions and malformed
// curves score neutrally instead of failing.
func (m *Model) MultiplierFor(pos model.Position, age float64) float64 {
	if m == nil {
		return neutral
	}
	c, ok := m.curves[pos.Normalize()]
	if !ok {
		return neutral
	}
	return Multiplier(c, age)
}

// Multiplier walks the breakpoints in increasing order and returns the
// multiplier of the first breakpoint age is strictly below, or the final
// multiplier once age reaches the last breakpoint.
func Multiplier(c model.AgeCurve, age float64) float64 {
	if len(c.Multipliers) == 0 || math.IsNaN(age) {
		return neutral
	}
	for i, bp := range c.Breakpoints {
		if age < bp {
			if i < len(c.Multipliers) {
				return clamp(c.Multipliers[i])
			}
			break
		}
	}
	return clamp(c.Multipliers[len(c.Multipliers)-1])
}

func clamp(m float64) float64 {
	if math.IsNaN(m) || m > 1 {
		return neutral
	}
	if m <= 0 {
		return math.SmallestNonzeroFloat64
	}
	return m
}
