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

// SpatialIndex answers nearest-grid-cell queries over the archive's
// irregular native lon/lat arrays in O(1) expected time. It lays a fixed
// gridSize × gridSize bucket grid over the archive extent and fills each
// bucket with a strided sample of the native cells, which bounds both
// build time and memory for multi-million-cell grids. The native grids
// are invariant across days, so one index serves a whole archive.
type SpatialIndex struct {
	lon, lat []float32

	gridSize int
	bounds   *geom.Bounds
	dx, dy   float64 // bucket extents [degrees]

	buckets [][]int32
}

// NewSpatialIndex builds an index over the native cell centers given by
// lon and lat. Every stride-th cell is inserted into its bucket; bounds
// are estimated from every boundsStride-th cell.
func NewSpatialIndex(lon, lat []float32, gridSize, stride, boundsStride int) *SpatialIndex {
	if stride < 1 {
		stride = 1
	}
	if boundsStride < 1 {
		boundsStride = 1
	}
	// gridSize caps the bucket count; shrink it when the sample set is
	// too small to populate that many buckets, so every 3×3 query
	// neighborhood still sees candidates.
	nSamples := (len(lon) + stride - 1) / stride
	if gs := int(math.Sqrt(float64(nSamples))); gs < gridSize {
		gridSize = gs
	}
	if gridSize < 1 {
		gridSize = 1
	}
	s := &SpatialIndex{
		lon:      lon,
		lat:      lat,
		gridSize: gridSize,
		bounds:   geom.NewBounds(),
		buckets:  make([][]int32, gridSize*gridSize),
	}
	for i := 0; i < len(lon); i += boundsStride {
		s.bounds.Extend(geom.Point{X: float64(lon[i]), Y: float64(lat[i])}.Bounds())
	}
	if n := len(lon); n > 0 {
		// The strided scan can miss the archive edges; the last cell
		// anchors the far corner of row-major grids.
		s.bounds.Extend(geom.Point{X: float64(lon[n-1]), Y: float64(lat[n-1])}.Bounds())
	}
	s.dx = (s.bounds.Max.X - s.bounds.Min.X) / float64(gridSize)
	s.dy = (s.bounds.Max.Y - s.bounds.Min.Y) / float64(gridSize)
	if s.dx <= 0 || s.dy <= 0 {
		// Degenerate extent; every cell lands in bucket (0,0).
		s.dx, s.dy = 1, 1
	}
	for i := 0; i < len(lon); i += stride {
		bx, by, ok := s.bucket(float64(lon[i]), float64(lat[i]))
		if !ok {
			continue
		}
		b := by*gridSize + bx
		s.buckets[b] = append(s.buckets[b], int32(i))
	}
	return s
}

// Bounds returns the indexed extent.
func (s *SpatialIndex) Bounds() *geom.Bounds { return s.bounds }

// GridSize returns the number of buckets per side.
func (s *SpatialIndex) GridSize() int { return s.gridSize }

// BucketDegrees returns the bucket extents in degrees of longitude and
// latitude.
func (s *SpatialIndex) BucketDegrees() (dx, dy float64) { return s.dx, s.dy }

func (s *SpatialIndex) bucket(lon, lat float64) (bx, by int, ok bool) {
	// The extent comes from float32 coordinates; a float64 query on an
	// edge cell center can fall outside it by that rounding.
	const edgeTol = 1e-5 // degrees
	if lon < s.bounds.Min.X-edgeTol || lon > s.bounds.Max.X+edgeTol ||
		lat < s.bounds.Min.Y-edgeTol || lat > s.bounds.Max.Y+edgeTol {
		return 0, 0, false
	}
	bx = int((lon - s.bounds.Min.X) / s.dx)
	by = int((lat - s.bounds.Min.Y) / s.dy)
	// The maximum edge belongs to the last bucket.
	if bx >= s.gridSize {
		bx = s.gridSize - 1
	}
	if by >= s.gridSize {
		by = s.gridSize - 1
	}
	return bx, by, true
}

// Nearest returns the linear index of the native cell closest to p in
// (lon, lat) degrees, searching the 3×3 bucket neighborhood around p's
// bucket. Ties go to the lower linear index. It returns -1 when p falls
// outside the indexed extent or no sampled cell lies in the neighborhood.
func (s *SpatialIndex) Nearest(p geom.Point) int {
	bx, by, ok := s.bucket(p.X, p.Y)
	if !ok {
		return -1
	}
	return s.nearestInRing(p, bx, by, 0, 1)
}

// NearestInRing returns the closest sampled cell whose bucket lies in the
// square ring between radii rMin and rMax (inclusive, in bucket steps)
// around p's bucket, or -1 if the ring holds no candidates. Radius 0 with
// rMax 1 reproduces the 3×3 neighborhood of Nearest; a larger rMin
// excludes the inner buckets.
func (s *SpatialIndex) NearestInRing(p geom.Point, rMin, rMax int) int {
	bx, by, ok := s.bucket(p.X, p.Y)
	if !ok {
		return -1
	}
	return s.nearestInRing(p, bx, by, rMin, rMax)
}

func (s *SpatialIndex) nearestInRing(p geom.Point, bx, by, rMin, rMax int) int {
	best := -1
	bestDist := 0.0
	for dy := -rMax; dy <= rMax; dy++ {
		y := by + dy
		if y < 0 || y >= s.gridSize {
			continue
		}
		for dx := -rMax; dx <= rMax; dx++ {
			if max(abs(dx), abs(dy)) < rMin {
				continue
			}
			x := bx + dx
			if x < 0 || x >= s.gridSize {
				continue
			}
			for _, ci := range s.buckets[y*s.gridSize+x] {
				dLon := float64(s.lon[ci]) - p.X
				dLat := float64(s.lat[ci]) - p.Y
				d := dLon*dLon + dLat*dLat
				if best < 0 || d < bestDist || (d == bestDist && int(ci) < best) {
					best = int(ci)
					bestDist = d
				}
			}
		}
	}
	return best
}

// VisitRing calls visit for every sampled cell whose bucket lies on the
// square ring of radius r (in bucket steps) around p's bucket. Radius 0
// visits p's own bucket. It reports whether p fell inside the indexed
// extent.
func (s *SpatialIndex) VisitRing(p geom.Point, r int, visit func(ci int32)) bool {
	bx, by, ok := s.bucket(p.X, p.Y)
	if !ok {
		return false
	}
	for dy := -r; dy <= r; dy++ {
		y := by + dy
		if y < 0 || y >= s.gridSize {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			if max(abs(dx), abs(dy)) != r {
				continue
			}
			x := bx + dx
			if x < 0 || x >= s.gridSize {
				continue
			}
			for _, ci := range s.buckets[y*s.gridSize+x] {
				visit(ci)
			}
		}
	}
	return true
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
