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
	"time"

	"gonum.org/v1/gonum/stat"
)

// ParticleRecord is the read-only per-particle view handed to external
// consumers (renderers, raster aggregation). Positions are kilometers
// relative to the release origin.
type ParticleRecord struct {
	ID            int
	XKm, YKm      float64
	DepthKm       float64
	Concentration float64
	AgeDays       float64
	Mass          float64
	Active        bool
	SpeciesID     string
	Trail         []TrailPoint
}

// FrameStats aggregates one snapshot.
type FrameStats struct {
	ReleasedTotal     int
	DecayedTotal      int
	ActiveCount       int
	ParticlesOnLand   int
	MaxDepthM         float64
	MaxConcentration  float64
	MeanConcentration float64
}

// Frame is a deep copy of the active particle population at one
// simulation instant. Frames are immutable once taken; the playback
// buffer stores them in simulation-day order.
type Frame struct {
	SimDay    float64
	DateUTC   time.Time
	Particles []ParticleRecord
	Stats     FrameStats
}

// Snapshot deep-copies the active particle population with aggregate
// statistics. The copy shares nothing with the pool, so the caller may
// hold it across steps.
func (s *Sim) Snapshot() *Frame {
	particles := s.Pool.Particles()
	f := &Frame{
		SimDay:  s.Day,
		DateUTC: SimDate(s.StartDate, s.Day),
	}
	var concs []float64
	for i := range particles {
		p := &particles[i]
		if !p.Active {
			continue
		}
		rec := ParticleRecord{
			ID:            p.ID,
			XKm:           p.X,
			YKm:           p.Y,
			DepthKm:       p.Depth,
			Concentration: p.Conc,
			AgeDays:       p.Age,
			Mass:          p.Mass,
			Active:        true,
			SpeciesID:     p.Species.ID,
			Trail:         append([]TrailPoint(nil), p.Trail...),
		}
		f.Particles = append(f.Particles, rec)
		concs = append(concs, p.Conc)
		if d := p.Depth * 1000; d > f.Stats.MaxDepthM {
			f.Stats.MaxDepthM = d
		}
		if p.Conc > f.Stats.MaxConcentration {
			f.Stats.MaxConcentration = p.Conc
		}
	}
	f.Stats.ActiveCount = len(f.Particles)
	f.Stats.ReleasedTotal = s.Pool.Released()
	f.Stats.DecayedTotal = s.Pool.Decayed()
	f.Stats.ParticlesOnLand = s.onLandGauge
	if len(concs) > 0 {
		f.Stats.MeanConcentration = stat.Mean(concs, nil)
	}
	return f
}
