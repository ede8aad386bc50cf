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
	"math/rand"

	"github.com/ctessum/geom"
)

// EmitSigmaKm sets the spread of the Gaussian cloud that new particles
// are scattered over around the release site: the standard deviation is
// EmitSigmaKm/LonScale degrees on both axes, which is EmitSigmaKm
// kilometers eastward and EmitSigmaKm·LatScale/LonScale kilometers
// northward.
const EmitSigmaKm = 30.0

// MaxEmitAttempts bounds the resampling loop for emission positions that
// land on the coast.
const MaxEmitAttempts = 1000

// RetireReason says why a particle left the active population.
type RetireReason int

const (
	// RetireDecayed marks mass falling below the retirement floor.
	RetireDecayed RetireReason = iota
	// RetireStuck marks a particle abandoned on land beyond rescue.
	RetireStuck
)

// ParticlePool owns the simulation's particle storage: a dense
// fixed-capacity array reused across emissions so the step loop never
// allocates. Emit activates free slots; Retire returns them. All other
// components receive views into the same backing array.
type ParticlePool struct {
	particles []Particle
	ref       geom.Point // release origin (lon, lat)
	scan      int        // next-free-slot search hint
	nextID    int

	// CoastSnapRadius, when positive, moves an emission position that
	// falls on land to the nearest ocean cell within that many bucket
	// rings instead of discarding the sample.
	CoastSnapRadius int

	// Counters for the conservation invariant:
	// released = active + decayed + stuckRetired.
	released     int
	decayed      int
	stuckRetired int
}

// NewParticlePool creates a pool of the given capacity with all slots
// inactive, centered on the release origin ref.
func NewParticlePool(capacity int, ref geom.Point) *ParticlePool {
	pp := &ParticlePool{particles: make([]Particle, capacity), ref: ref}
	for i := range pp.particles {
		pp.particles[i].ID = -1
	}
	return pp
}

// Capacity returns the pool's fixed particle capacity.
func (pp *ParticlePool) Capacity() int { return len(pp.particles) }

// Ref returns the release origin.
func (pp *ParticlePool) Ref() geom.Point { return pp.ref }

// Particles returns the pool's backing storage. The integrator iterates
// it in place; other callers must treat it as read-only.
func (pp *ParticlePool) Particles() []Particle { return pp.particles }

// Released returns the number of particles emitted over the run.
func (pp *ParticlePool) Released() int { return pp.released }

// Decayed returns the number of particles retired by mass loss.
func (pp *ParticlePool) Decayed() int { return pp.decayed }

// StuckRetired returns the number of particles retired on land.
func (pp *ParticlePool) StuckRetired() int { return pp.stuckRetired }

// ActiveCount returns the number of active particles.
func (pp *ParticlePool) ActiveCount() int {
	n := 0
	for i := range pp.particles {
		if pp.particles[i].Active {
			n++
		}
	}
	return n
}

// Emit activates up to n particles around the release origin on the
// given archive day, each carrying unitsPerParticle of sp. Positions are
// sampled from a Gaussian about the origin with σ = EmitSigmaKm/LonScale
// degrees on both axes, clipped at ±3σ, and resampled (up to MaxEmitAttempts) while they fall on land.
// It returns the number actually emitted, which is less than n when the
// pool is full or the coastline defeats the sampler; the release
// schedule retains the unreleased remainder.
func (pp *ParticlePool) Emit(day *CurrentDay, rng *rand.Rand, n int, sp *Species, unitsPerParticle float64) int {
	const sigmaDeg = EmitSigmaKm / LonScale
	emitted := 0
	for ; emitted < n; emitted++ {
		slot := pp.freeSlot()
		if slot < 0 {
			break
		}
		pos, ok := pp.samplePosition(day, rng, sigmaDeg)
		if !ok {
			break
		}
		p := &pp.particles[slot]
		*p = Particle{
			ID:      pp.nextID,
			Active:  true,
			Species: sp,
			X:       (pos.X - pp.ref.X) * LonScale,
			Y:       (pos.Y - pp.ref.Y) * LatScale,
			Mass:    unitsPerParticle,
			Trail:   p.Trail[:0],
		}
		p.Conc = Concentration(sp, p.Mass, 0)
		p.Trail = append(p.Trail, TrailPoint{X: p.X, Y: p.Y})
		pp.nextID++
		pp.released++
	}
	return emitted
}

func (pp *ParticlePool) samplePosition(day *CurrentDay, rng *rand.Rand, sigmaDeg float64) (geom.Point, bool) {
	for attempt := 0; attempt < MaxEmitAttempts; attempt++ {
		pos := geom.Point{
			X: pp.ref.X + clip3(rng.NormFloat64())*sigmaDeg,
			Y: pp.ref.Y + clip3(rng.NormFloat64())*sigmaDeg,
		}
		if day.IsOcean(pos, 0) {
			return pos, true
		}
		if pp.CoastSnapRadius > 0 {
			if ci := day.NearestOceanCell(pos, 0, pp.CoastSnapRadius); ci >= 0 {
				return day.CellPoint(ci), true
			}
		}
	}
	return geom.Point{}, false
}

func clip3(v float64) float64 {
	if v > 3 {
		return 3
	}
	if v < -3 {
		return -3
	}
	return v
}

func (pp *ParticlePool) freeSlot() int {
	for i := 0; i < len(pp.particles); i++ {
		slot := (pp.scan + i) % len(pp.particles)
		if !pp.particles[slot].Active {
			pp.scan = slot + 1
			return slot
		}
	}
	return -1
}

// Retire deactivates p and records why.
func (pp *ParticlePool) Retire(p *Particle, reason RetireReason) {
	if !p.Active {
		return
	}
	p.Active = false
	switch reason {
	case RetireDecayed:
		pp.decayed++
	case RetireStuck:
		pp.stuckRetired++
	}
}

// Reset deactivates every particle and zeroes the run counters.
func (pp *ParticlePool) Reset() {
	for i := range pp.particles {
		pp.particles[i].Active = false
		pp.particles[i].Trail = pp.particles[i].Trail[:0]
	}
	pp.scan = 0
	pp.nextID = 0
	pp.released = 0
	pp.decayed = 0
	pp.stuckRetired = 0
}
