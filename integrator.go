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
	"math"

	"github.com/ctessum/geom"
)

// mpsToKmPerDay converts a velocity in m/s to km per simulation day.
const mpsToKmPerDay = 86.4

// Land-rejection defaults: how far (in bucket rings) to hunt for open
// water around a grounded particle, and how hard to push it back toward
// the coastline's water side [km/day].
const (
	DefaultLandSearchRadius = 10
	DefaultCoastalPush      = 3.0
)

// Vertical mixing parameterization. K_z is piecewise by depth; the
// deterministic terms are a constant Ekman pumping and a
// winter-and-shallow convective term.
const (
	kzMixedLayer   = 1e-2 // m²/s above 50 m
	kzThermocline  = 1e-4 // m²/s between 50 and 200 m
	kzDeep         = 5e-5 // m²/s below 200 m
	ekmanPumping   = 5e-6 // m/s, downward
	convectiveMix  = 2e-6 // m/s, winter, above 100 m
	convectionCapM = 100.0
)

// RK4Settings tunes the adaptive-substep fourth-order integrator. The
// substep aims to move a particle about Safety kilometers, clamped into
// [MinStep, min(MaxStep, δt)] days.
type RK4Settings struct {
	Safety  float64 // km per substep
	MinStep float64 // days
	MaxStep float64 // days
}

// DefaultRK4Settings are stable for Pacific-scale currents at the
// archive's resolution.
var DefaultRK4Settings = RK4Settings{Safety: 5, MinStep: 0.01, MaxStep: 0.25}

// rk4Eps keeps the substep-size heuristic finite in still water.
const rk4Eps = 1e-6

// Transport returns the horizontal-transport manipulator: advection by
// the day's currents (Euler or adaptive RK4), the stochastic random walk
// from the eddy diffusivity, then coastline rejection. A particle whose
// trial position lands ashore is reverted in all three coordinates and
// nudged toward the nearest water; if no water is found within the
// search radius it freezes in place for the step and is counted in the
// on-land gauge.
func Transport() ParticleManipulator {
	return func(p *Particle, env *StepEnv) {
		x0, y0, z0 := p.X, p.Y, p.Depth
		depthM := p.Depth * 1000
		pos := p.LonLat(env.Sim.Pool.Ref())

		// Advection.
		v := env.Currents.VelocityAt(pos, depthM)
		if v.Found {
			p.U, p.V = v.U, v.V
			if env.Sim.Scheme == RK4 {
				dx, dy := rk4Advect(p, env, depthM, v)
				p.X += dx
				p.Y += dy
			} else {
				p.X += v.U * mpsToKmPerDay * env.Dt
				p.Y += v.V * mpsToKmPerDay * env.Dt
				p.Scheme = Euler
			}
		}
		// A missed lookup contributes no advection; diffusion still applies.

		// Horizontal random walk from the eddy diffusivity.
		scale := env.Sim.DiffusivityScale * p.Species.DiffusivityScale
		if scale > 0 {
			k := MinDiffusivity
			if env.Diffusivity != nil {
				k = env.Diffusivity.DiffusivityAt(pos)
			}
			stepKm := math.Sqrt(2*k*scale*env.Dt*86400) / 1000
			p.X += stepKm * env.Rng.NormFloat64()
			p.Y += stepKm * env.Rng.NormFloat64()
		}

		// Coastline rejection.
		trial := p.LonLat(env.Sim.Pool.Ref())
		if env.Currents.IsOcean(trial, p.Depth*1000) {
			return
		}
		p.X, p.Y, p.Depth = x0, y0, z0
		ci := env.Currents.NearestOceanCell(pos, depthM, env.Sim.LandSearchRadius)
		if ci < 0 {
			env.onLand++
			return
		}
		cell := env.Currents.CellPoint(ci)
		dx := (cell.X - pos.X) * LonScale
		dy := (cell.Y - pos.Y) * LatScale
		if norm := math.Hypot(dx, dy); norm > 0 {
			push := env.Sim.CoastalPush * env.Dt
			p.X += dx / norm * push
			p.Y += dy / norm * push
		}
		// The push must not itself strand the particle.
		if !env.Currents.IsOcean(p.LonLat(env.Sim.Pool.Ref()), p.Depth*1000) {
			p.X, p.Y = x0, y0
		}
	}
}

// rk4Advect advances one particle by env.Dt days of RK4 advection and
// returns the displacement in km. Substeps whose midpoint or endpoint
// slopes leave the grid degrade to an Euler step on the initial slope.
func rk4Advect(p *Particle, env *StepEnv, depthM float64, v0 Velocity) (float64, float64) {
	set := env.Sim.RK4
	speed := math.Hypot(v0.U, v0.V) * mpsToKmPerDay
	h := set.Safety / (speed + rk4Eps)
	if h < set.MinStep {
		h = set.MinStep
	}
	if hMax := math.Min(set.MaxStep, env.Dt); h > hMax {
		h = hMax
	}
	n := int(math.Ceil(env.Dt / h))
	if n < 1 {
		n = 1
	}
	h = env.Dt / float64(n)

	p.Scheme = RK4
	x, y := p.X, p.Y
	for i := 0; i < n; i++ {
		k1x, k1y, ok := env.slopeAt(x, y, depthM)
		if !ok {
			// Stranded slope; no advection for this substep.
			p.Scheme = Euler
			continue
		}
		k2x, k2y, ok := env.slopeAt(x+k1x*h/2, y+k1y*h/2, depthM)
		if !ok {
			x += k1x * h
			y += k1y * h
			p.Scheme = Euler
			continue
		}
		k3x, k3y, ok := env.slopeAt(x+k2x*h/2, y+k2y*h/2, depthM)
		if !ok {
			x += k1x * h
			y += k1y * h
			p.Scheme = Euler
			continue
		}
		k4x, k4y, ok := env.slopeAt(x+k3x*h, y+k3y*h, depthM)
		if !ok {
			x += k1x * h
			y += k1y * h
			p.Scheme = Euler
			continue
		}
		x += h / 6 * (k1x + 2*k2x + 2*k3x + k4x)
		y += h / 6 * (k1y + 2*k2y + 2*k3y + k4y)
	}
	return x - p.X, y - p.Y
}

// slopeAt samples the pinned current day at a position given in km
// relative to the release origin, returning the velocity in km/day.
func (env *StepEnv) slopeAt(xKm, yKm, depthM float64) (float64, float64, bool) {
	ref := env.Sim.Pool.Ref()
	v := env.Currents.VelocityAt(geom.Point{
		X: ref.X + xKm/LonScale,
		Y: ref.Y + yKm/LatScale,
	}, depthM)
	if !v.Found {
		return 0, 0, false
	}
	return v.U * mpsToKmPerDay, v.V * mpsToKmPerDay, true
}

// VerticalMotion returns the vertical-transport manipulator: a random
// walk on the depth-dependent vertical diffusivity plus Ekman pumping,
// winter convective mixing in the upper 100 m, and the species settling
// velocity. Depth stays clamped to [0, MaxDepthKm].
func VerticalMotion() ParticleManipulator {
	return func(p *Particle, env *StepEnv) {
		if !env.Sim.VerticalMixing {
			return
		}
		dtSec := env.Dt * 86400
		depthM := p.Depth * 1000

		dzM := math.Sqrt(2*verticalDiffusivity(depthM)*dtSec) * env.Rng.NormFloat64()
		dzM += ekmanPumping * dtSec
		if isWinter(env.Date.YearDay()) && depthM < convectionCapM {
			dzM += convectiveMix * dtSec
		}
		dzM += p.Species.SettlingMPerDay * env.Dt

		p.Depth += dzM / 1000
		if p.Depth < 0 {
			p.Depth = 0
		}
		if p.Depth > MaxDepthKm {
			p.Depth = MaxDepthKm
		}
	}
}

func verticalDiffusivity(depthM float64) float64 {
	switch {
	case depthM < 50:
		return kzMixedLayer
	case depthM < 200:
		return kzThermocline
	}
	return kzDeep
}

// isWinter reports Northern-hemisphere winter for convective mixing:
// day-of-year in [335, 365] ∪ [0, 90].
func isWinter(yearDay int) bool {
	return yearDay >= 335 || yearDay <= 90
}

// RetireMassFraction is the retirement floor as a fraction of the
// initial per-particle mass.
const RetireMassFraction = 1e-3

// DecaySettling returns the mass-evolution manipulator: radioactive
// decay for decay-enabled species and first-order evaporation for
// species with an evaporation rate. Particles whose mass falls below
// the retirement floor are queued for retirement at the end of the
// step.
func DecaySettling() ParticleManipulator {
	return func(p *Particle, env *StepEnv) {
		sp := p.Species
		before := p.Mass
		if sp.Decays && sp.HalfLifeDays > 0 {
			p.Mass *= math.Exp2(-env.Dt / sp.HalfLifeDays)
		}
		if sp.EvaporationPerDay > 0 {
			p.Mass *= math.Exp(-sp.EvaporationPerDay * env.Dt / 30)
		}
		env.decayedMass += before - p.Mass
		if p.Mass < RetireMassFraction*env.Sim.Schedule.UnitsPerParticle() {
			env.retire = append(env.retire, p)
		}
	}
}

// UpdateConcentration returns the manipulator that refreshes each
// particle's reported concentration from its current mass and depth.
func UpdateConcentration() ParticleManipulator {
	return func(p *Particle, env *StepEnv) {
		p.Conc = Concentration(p.Species, p.Mass, p.Depth)
	}
}

// AgeAndTrail returns the manipulator that advances particle age and
// appends to the visualization trail when the particle has moved far
// enough.
func AgeAndTrail() ParticleManipulator {
	return func(p *Particle, env *StepEnv) {
		p.Age += env.Dt
		p.recordTrail()
	}
}
