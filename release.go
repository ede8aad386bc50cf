/*
Copyright © 2024 the Plume authors.
This file is part of Plume.

Plume is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Plume is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Plume.  If not, see <http://www.gnu.org/licenses/>.
*/

package plume

import (
	"fmt"
	"math"

	"github.com/ctessum/unit"
)

// Release amounts are declared in whatever unit the source inventory
// uses (PBq for reactor releases, tons for spills) and converted to the
// species base unit (GBq or kg) as dimensioned quantities, so that a
// phase declared in becquerels cannot be attached to a mass tracer.

// activity is the radioactivity dimension, s⁻¹ (becquerel).
var activity = unit.Dimensions{unit.TimeDim: -1}

// massDim is the mass dimension (kilogram).
var massDim = unit.Dimensions{unit.MassDim: 1}

// amountFactors converts a named release unit to SI (Bq or kg).
var amountFactors = map[string]struct {
	factor float64
	dims   unit.Dimensions
}{
	"Bq":   {1, activity},
	"GBq":  {1e9, activity},
	"TBq":  {1e12, activity},
	"PBq":  {1e15, activity},
	"kg":   {1, massDim},
	"tons": {1e3, massDim},
}

// amount converts v in the named unit to a dimensioned SI quantity.
func amount(v float64, unitName string) (*unit.Unit, error) {
	f, ok := amountFactors[unitName]
	if !ok {
		return nil, ConfigurationError{Problem: fmt.Sprintf("unknown release unit %q", unitName)}
	}
	return unit.New(v*f.factor, f.dims), nil
}

// convertToBase converts v in unitName to the species base unit.
func convertToBase(v float64, unitName, baseUnit string) (float64, error) {
	q, err := amount(v, unitName)
	if err != nil {
		return 0, err
	}
	base, err := amount(1, baseUnit)
	if err != nil {
		return 0, err
	}
	if !unit.DimensionsMatch(q, base) {
		return 0, ConfigurationError{Problem: fmt.Sprintf(
			"release unit %q is not convertible to species base unit %q", unitName, baseUnit)}
	}
	return unit.Div(q, base).Value(), nil
}

// Phase is one interval of a release schedule: Total units of tracer
// released at a uniform rate over simulation days [Start, End).
type Phase struct {
	Start, End float64 // simulation days
	Total      float64 // in Unit
	Unit       string

	totalBase float64 // Total converted to the species base unit
}

// Rate returns the phase's release rate in base units per day.
func (ph *Phase) Rate() float64 { return ph.totalBase / (ph.End - ph.Start) }

// TotalBase returns the phase total in the species base unit.
func (ph *Phase) TotalBase() float64 { return ph.totalBase }

// ReleaseSchedule converts a set of non-overlapping release phases into
// whole-particle emissions per step. Fractional emissions accumulate in a
// residual counter so that the total released converges to the declared
// inventory regardless of step size.
type ReleaseSchedule struct {
	species *Species
	phases  []*Phase

	residual float64

	// unitsPerParticle is the tracer quantity each emitted particle
	// carries: the summed phase inventory divided by the pool capacity.
	unitsPerParticle float64
}

// NewReleaseSchedule creates an empty schedule for species sp. Call
// AddPhase for each release interval, then Finalize with the particle
// capacity before the first Advance.
func NewReleaseSchedule(sp *Species) *ReleaseSchedule {
	return &ReleaseSchedule{species: sp}
}

// AddPhase appends a release interval. Phases must not overlap and must
// have End > Start and Total > 0; the phase unit must be convertible to
// the species base unit.
func (rs *ReleaseSchedule) AddPhase(start, end, total float64, unitName string) error {
	if end <= start {
		return ConfigurationError{Problem: fmt.Sprintf(
			"release phase [%g, %g) is inverted or empty", start, end)}
	}
	if total <= 0 {
		return ConfigurationError{Problem: fmt.Sprintf(
			"release phase [%g, %g) has non-positive total %g", start, end, total)}
	}
	for _, ph := range rs.phases {
		if start < ph.End && ph.Start < end {
			return ConfigurationError{Problem: fmt.Sprintf(
				"release phase [%g, %g) overlaps [%g, %g)", start, end, ph.Start, ph.End)}
		}
	}
	totalBase, err := convertToBase(total, unitName, rs.species.BaseUnit)
	if err != nil {
		return err
	}
	ph := &Phase{Start: start, End: end, Total: total, Unit: unitName, totalBase: totalBase}
	// Keep sorted by start day.
	i := len(rs.phases)
	for i > 0 && rs.phases[i-1].Start > start {
		i--
	}
	rs.phases = append(rs.phases, nil)
	copy(rs.phases[i+1:], rs.phases[i:])
	rs.phases[i] = ph
	return nil
}

// Phases returns the schedule's phases sorted by start day.
func (rs *ReleaseSchedule) Phases() []*Phase { return rs.phases }

// TotalBase returns the summed inventory over all phases in the species
// base unit.
func (rs *ReleaseSchedule) TotalBase() float64 {
	var sum float64
	for _, ph := range rs.phases {
		sum += ph.totalBase
	}
	return sum
}

// Finalize fixes the per-particle quantity for a pool of the given
// capacity.
func (rs *ReleaseSchedule) Finalize(capacity int) error {
	if capacity <= 0 {
		return ConfigurationError{Problem: "particle capacity must be positive"}
	}
	if len(rs.phases) == 0 {
		return ConfigurationError{Problem: "release schedule has no phases"}
	}
	rs.unitsPerParticle = rs.TotalBase() / float64(capacity)
	return nil
}

// UnitsPerParticle returns the tracer quantity carried by each particle
// in the species base unit.
func (rs *ReleaseSchedule) UnitsPerParticle() float64 { return rs.unitsPerParticle }

// RateAt returns the release rate in base units per day at the given
// simulation day, along with the active phase, or (0, nil) outside all
// phases.
func (rs *ReleaseSchedule) RateAt(day float64) (float64, *Phase) {
	for _, ph := range rs.phases {
		if day >= ph.Start && day < ph.End {
			return ph.Rate(), ph
		}
	}
	return 0, nil
}

// Advance accumulates the release over [day, day+deltaDays) and returns
// the number of whole particles to emit now. The rate is integrated over
// the overlap with each phase, so steps straddling a phase boundary
// release exactly the boundary's share and the run total converges to
// the declared inventory for any step size. The fractional remainder
// stays in the residual counter.
func (rs *ReleaseSchedule) Advance(day, deltaDays float64) int {
	if rs.unitsPerParticle > 0 && deltaDays > 0 {
		end := day + deltaDays
		var amount float64
		for _, ph := range rs.phases {
			lo := math.Max(day, ph.Start)
			hi := math.Min(end, ph.End)
			if hi > lo {
				amount += ph.Rate() * (hi - lo)
			}
		}
		rs.residual += amount / rs.unitsPerParticle
	}
	n := int(math.Floor(rs.residual))
	rs.residual -= float64(n)
	return n
}

// Refund returns n unemitted particles to the residual counter. The
// Emissions step stage calls this when emission fails (full pool, or no ocean position found)
// so the inventory is released later instead of lost.
func (rs *ReleaseSchedule) Refund(n int) {
	rs.residual += float64(n)
}

// Residual returns the fractional-particle accumulator, for diagnostics.
func (rs *ReleaseSchedule) Residual() float64 { return rs.residual }

// ResetResidual zeroes the fractional-particle accumulator for a rerun.
func (rs *ReleaseSchedule) ResetResidual() { rs.residual = 0 }
