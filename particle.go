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

import "github.com/ctessum/geom"

// Flat-Earth scale factors for converting between degrees and kilometers.
// Valid near 37°N; the model domain is Pacific-scale so the error stays
// small relative to the eddy diffusivity.
const (
	LonScale = 88.8  // km per degree longitude
	LatScale = 111.0 // km per degree latitude
)

// MaxDepthKm is the lower boundary of the modeled water column.
const MaxDepthKm = 1.0

// maxTrail is the number of recent positions retained per particle for
// visualization.
const maxTrail = 8

// Scheme selects the advection integrator.
type Scheme int

const (
	// Euler is first-order forward advection.
	Euler Scheme = iota
	// RK4 is adaptive-substep fourth-order Runge-Kutta advection.
	RK4
)

func (s Scheme) String() string {
	if s == RK4 {
		return "rk4"
	}
	return "euler"
}

// TrailPoint is one historical particle position.
type TrailPoint struct {
	X, Y, Depth float64 // km
}

// Particle is one fictitious parcel carrying a fraction of the released
// mass or activity. An inactive particle has no meaningful position, age,
// or mass; its slot is available for re-emission.
type Particle struct {
	ID      int
	Active  bool
	Species *Species

	// Position in kilometers relative to the release origin. X increases
	// eastward, Y northward. Depth is positive downward, in [0, MaxDepthKm].
	X, Y, Depth float64

	Age  float64 // simulation-days since emission
	Mass float64 // remaining mass or activity in the species base unit
	Conc float64 // last computed concentration

	// Last sampled velocity components [m/s], kept for the adaptive-step
	// heuristic.
	U, V float64

	Trail  []TrailPoint
	Scheme Scheme // integrator used on the last step
}

// LonLat returns the particle's geographic position given the release
// origin.
func (p *Particle) LonLat(ref geom.Point) geom.Point {
	return geom.Point{
		X: ref.X + p.X/LonScale,
		Y: ref.Y + p.Y/LatScale,
	}
}

// recordTrail appends the current position to the trail if it has moved
// more than a kilometer in either horizontal direction since the last
// recorded point, evicting the oldest point beyond maxTrail.
func (p *Particle) recordTrail() {
	if n := len(p.Trail); n > 0 {
		last := p.Trail[n-1]
		dx := p.X - last.X
		dy := p.Y - last.Y
		if dx <= 1 && dx >= -1 && dy <= 1 && dy >= -1 {
			return
		}
	}
	p.Trail = append(p.Trail, TrailPoint{X: p.X, Y: p.Y, Depth: p.Depth})
	if len(p.Trail) > maxTrail {
		p.Trail = p.Trail[1:]
	}
}
