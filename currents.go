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
	"context"
	"math"
	"sync"
	"time"

	"github.com/ctessum/geom"
)

// Spatial-index build parameters for the current archive (the native grid
// has millions of cells, so buckets hold a strided sample).
const (
	currentIndexGrid         = 100
	currentIndexStride       = 10
	currentIndexBoundsStride = 1000
)

// landSpeed is the velocity-magnitude land sentinel: any |u| or |v| above
// it (the legacy archives use -9999) marks a land or fill cell, as does
// NaN.
const landSpeed = 1000.0

// Velocity is the result of a current-field lookup.
type Velocity struct {
	U, V float64 // m/s, eastward and northward
	// Found is false when the position is outside the grid, on land, or
	// over a fill value.
	Found bool
	// Layer is the depth-layer index the sample came from.
	Layer int
}

// CurrentField serves (u, v) lookups at arbitrary positions, depths and
// simulation days, lazily loading one archive day at a time through an
// LRU cache. The spatial index is built once, on the first day load, and
// shared by all days: the native grid is invariant across the archive.
type CurrentField struct {
	meta  *ArchiveMetadata
	start time.Time // simulation start date (sim-day 0)
	cache *dayCache

	depths []float64 // layer depths [m], surface first

	mu    sync.Mutex
	index *SpatialIndex
}

// CurrentDay is one resident day of the current archive: a non-owning
// handle valid for the duration of a simulation step.
type CurrentDay struct {
	Date   time.Time
	File   *CurrentFile
	Index  *SpatialIndex
	Depths []float64
}

// NewCurrentField opens the current archive described by the metadata
// document at metaPath. start anchors simulation day 0.
func NewCurrentField(metaPath string, start time.Time, cacheSize int) (*CurrentField, error) {
	meta, err := ReadArchiveMetadata(metaPath)
	if err != nil {
		return nil, err
	}
	cf := &CurrentField{
		meta:   meta,
		start:  start,
		depths: meta.DepthsM,
	}
	if len(cf.depths) == 0 {
		cf.depths = []float64{0}
	}
	cf.cache = newDayCache(cacheSize, cf.load)
	return cf, nil
}

// Start returns the date of simulation day 0.
func (cf *CurrentField) Start() time.Time { return cf.start }

// Meta returns the archive metadata.
func (cf *CurrentField) Meta() *ArchiveMetadata { return cf.meta }

func (cf *CurrentField) load(_ context.Context, date time.Time) (interface{}, error) {
	path, err := cf.meta.PathFor(date)
	if err != nil {
		return nil, err
	}
	f, err := ReadCurrentFile(path)
	if err != nil {
		return nil, err
	}
	cf.mu.Lock()
	if cf.index == nil {
		cf.index = NewSpatialIndex(f.Lon, f.Lat,
			currentIndexGrid, currentIndexStride, currentIndexBoundsStride)
	}
	idx := cf.index
	cf.mu.Unlock()
	return &CurrentDay{Date: date, File: f, Index: idx, Depths: cf.depths}, nil
}

// Day returns a handle to the archive day covering simDay, loading it if
// necessary. The handle remains valid after eviction, but holding a day
// across steps defeats the cache; fetch one per step.
func (cf *CurrentField) Day(ctx context.Context, simDay float64) (*CurrentDay, error) {
	d, err := cf.cache.day(ctx, SimDate(cf.start, simDay))
	if err != nil {
		return nil, err
	}
	return d.(*CurrentDay), nil
}

// VelocityAt samples the current at one position. Convenience wrapper
// over Day for emission checks and tests; the step loop uses the day
// handle directly.
func (cf *CurrentField) VelocityAt(ctx context.Context, p geom.Point, depthM, simDay float64) (Velocity, error) {
	d, err := cf.Day(ctx, simDay)
	if err != nil {
		return Velocity{}, err
	}
	return d.VelocityAt(p, depthM), nil
}

// IsOcean reports whether p is over water at depthM on simDay.
func (cf *CurrentField) IsOcean(ctx context.Context, p geom.Point, depthM, simDay float64) (bool, error) {
	d, err := cf.Day(ctx, simDay)
	if err != nil {
		return false, err
	}
	return d.IsOcean(p, depthM), nil
}

// DepthLayer returns the index of the layer nearest depthM, ties going to
// the shallower layer.
func (d *CurrentDay) DepthLayer(depthM float64) int {
	n := d.File.NDepth
	best := 0
	bestDiff := math.Inf(1)
	for k := 0; k < n && k < len(d.Depths); k++ {
		diff := math.Abs(depthM - d.Depths[k])
		if diff < bestDiff {
			best = k
			bestDiff = diff
		}
	}
	return best
}

// VelocityAt samples the day's currents at p and depthM using
// nearest-cell, nearest-layer lookup (no interpolation).
func (d *CurrentDay) VelocityAt(p geom.Point, depthM float64) Velocity {
	ci := d.Index.Nearest(p)
	if ci < 0 {
		return Velocity{}
	}
	k := d.DepthLayer(depthM)
	return d.velocityAtCell(ci, k)
}

// VelocitiesAt is the batched form of VelocityAt: one depth-layer pick
// and one index lookup per position against a single resident day.
func (d *CurrentDay) VelocitiesAt(ps []geom.Point, depthM float64) []Velocity {
	k := d.DepthLayer(depthM)
	out := make([]Velocity, len(ps))
	for i, p := range ps {
		ci := d.Index.Nearest(p)
		if ci < 0 {
			continue
		}
		out[i] = d.velocityAtCell(ci, k)
	}
	return out
}

func (d *CurrentDay) velocityAtCell(ci, k int) Velocity {
	off := k*d.File.NCells() + ci
	u := d.File.U[off]
	v := d.File.V[off]
	if !validSpeed(u) || !validSpeed(v) {
		return Velocity{Layer: k}
	}
	return Velocity{U: float64(u), V: float64(v), Found: true, Layer: k}
}

// IsOcean reports whether the cell nearest p holds valid water velocity
// at the layer nearest depthM.
func (d *CurrentDay) IsOcean(p geom.Point, depthM float64) bool {
	return d.VelocityAt(p, depthM).Found
}

// CellPoint returns the native coordinates of cell ci.
func (d *CurrentDay) CellPoint(ci int) geom.Point {
	return geom.Point{X: float64(d.File.Lon[ci]), Y: float64(d.File.Lat[ci])}
}

// NearestOceanCell finds the water cell closest to p at depthM,
// spiraling outward bucket ring by bucket ring to at most maxRadius
// rings. It returns -1 if the spiral exhausts without finding water,
// which on this archive means p is deep inland.
func (d *CurrentDay) NearestOceanCell(p geom.Point, depthM float64, maxRadius int) int {
	k := d.DepthLayer(depthM)
	nCells := d.File.NCells()
	for r := 0; r <= maxRadius; r++ {
		best := -1
		bestDist := 0.0
		in := d.Index.VisitRing(p, r, func(ci int32) {
			u := d.File.U[k*nCells+int(ci)]
			if !validSpeed(u) {
				return
			}
			dLon := float64(d.File.Lon[ci]) - p.X
			dLat := float64(d.File.Lat[ci]) - p.Y
			dist := dLon*dLon + dLat*dLat
			if best < 0 || dist < bestDist {
				best = int(ci)
				bestDist = dist
			}
		})
		if !in {
			return -1
		}
		if best >= 0 {
			return best
		}
	}
	return -1
}

func validSpeed(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && math.Abs(f) <= landSpeed
}
