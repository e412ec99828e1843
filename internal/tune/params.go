// Package tune holds the tunable evaluation coefficients.
//
// A Set is an explicit value handed to the evaluator; nothing here is global,
// so several configurations can live side by side (one per engine, or one per
// test).
package tune

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// PawnValue is the value of a pawn in parameter units.
const PawnValue = 1000

// Scaling says how a parameter is weighted by game phase.
type Scaling int

const (
	None Scaling = iota
	Midgame
	Endgame
	Any
)

func (s Scaling) String() string {
	switch s {
	case None:
		return "none"
	case Midgame:
		return "midgame"
	case Endgame:
		return "endgame"
	case Any:
		return "any"
	}
	return fmt.Sprintf("Scaling(%d)", int(s))
}

// Param is one named coefficient with its permitted range.
type Param struct {
	Index   int
	Name    string
	Current int
	Min     int
	Max     int
	Scaling Scaling
	Tunable bool
}

// Range returns Max - Min.
func (p Param) Range() int {
	return p.Max - p.Min
}

// Normalized maps Current into [0, 1] relative to the range.
func (p Param) Normalized() float64 {
	if p.Range() == 0 {
		return 0
	}
	return float64(p.Current-p.Min) / float64(p.Range())
}

// Denormalize is the inverse of Normalized, clamped to the range.
func (p *Param) Denormalize(x float64) {
	p.Current = clamp(int(math.Round(x*float64(p.Range())))+p.Min, p.Min, p.Max)
}

// ErrUnknownParam is returned for a parameter name that is not in the set.
var ErrUnknownParam = errors.New("tune: unknown parameter")

// Set is an ordered collection of parameters plus the material-scale table
// used for phase weighting.
type Set struct {
	params        []Param
	byName        map[string]int
	MaterialScale [32]int
}

// NewSet builds a set from params. Parameter indexes are reassigned to match
// their position.
func NewSet(params []Param) *Set {
	s := &Set{
		params:        make([]Param, len(params)),
		byName:        make(map[string]int, len(params)),
		MaterialScale: defaultMaterialScale,
	}
	copy(s.params, params)
	for i := range s.params {
		s.params[i].Index = i
		s.byName[s.params[i].Name] = i
	}
	return s
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	c := NewSet(s.params)
	c.MaterialScale = s.MaterialScale
	return c
}

// Len returns the number of parameters.
func (s *Set) Len() int {
	return len(s.params)
}

// Param returns parameter i.
func (s *Set) Param(i int) Param {
	return s.params[i]
}

// Value returns the current value of parameter i.
func (s *Set) Value(i int) int {
	return s.params[i].Current
}

// SetValue sets parameter i. Values outside the range are kept; Check reports
// them.
func (s *Set) SetValue(i, v int) {
	s.params[i].Current = v
}

// Find returns the index of the named parameter.
func (s *Set) Find(name string) (int, error) {
	i, ok := s.byName[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return i, nil
}

// Tunable returns the indexes of parameters open to tuning.
func (s *Set) Tunable() []int {
	var idx []int
	for i, p := range s.params {
		if p.Tunable {
			idx = append(idx, i)
		}
	}
	return idx
}

// Check verifies every parameter against its bounds.
func (s *Set) Check() error {
	var errs []error
	for i, p := range s.params {
		if p.Index != i {
			errs = append(errs, fmt.Errorf("param %s: index %d at position %d", p.Name, p.Index, i))
		}
		if p.Min > p.Max {
			errs = append(errs, fmt.Errorf("param %s: min %d > max %d", p.Name, p.Min, p.Max))
		}
		if p.Current < p.Min {
			errs = append(errs, fmt.Errorf("param %s: current %d < min %d", p.Name, p.Current, p.Min))
		}
		if p.Current > p.Max {
			errs = append(errs, fmt.Errorf("param %s: current %d > max %d", p.Name, p.Current, p.Max))
		}
	}
	return errors.Join(errs...)
}

// Scale weights value by parameter i's phase class. materialLevel runs from
// 0 (bare kings) to 31 (full material).
func (s *Set) Scale(value, i, materialLevel int) float64 {
	level := clamp(materialLevel, 0, len(s.MaterialScale)-1)
	switch s.params[i].Scaling {
	case Any:
		return float64(value)
	case Midgame:
		return float64(value*s.MaterialScale[level]) / 128.0
	case Endgame:
		return float64(value*(128-s.MaterialScale[level])) / 128.0
	}
	return 0
}

// KingAttackSigmoid maps an attack weight onto the king-safety curve.
func (s *Set) KingAttackSigmoid(weight int) int {
	bias := float64(s.Value(KingAttackScaleBias))
	peak := float64(s.Value(KingAttackScaleMax))
	factor := float64(s.Value(KingAttackScaleFactor))
	inflect := float64(s.Value(KingAttackScaleInflect))
	return int(math.Round(bias + peak/(1+math.Exp(-factor*(float64(weight)-inflect)/1000.0))))
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
