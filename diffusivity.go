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
	"time"

	"github.com/ctessum/geom"
)

// Physical bounds on the horizontal eddy diffusivity [m²/s]. Values
// below the floor (including the no-data NaN encoding) clamp up to it;
// the ceiling guards against quantization spikes in energetic regions.
const (
	MinDiffusivity = 20.0
	MaxDiffusivity = 500.0
)

// Spatial-index build parameters for the diffusivity archive. The EKE
// grid is coarser than the current grid, so both the bucket count and
// the sampling stride shrink.
const (
	diffusivityIndexGrid         = 50
	diffusivityIndexStride       = 20
	diffusivityIndexBoundsStride = 100
)

// DiffusivityField serves horizontal eddy-diffusivity lookups from the
// 2-D EKE archive. The coordinate grid is shared across all days and
// loaded once from the archive's coordinate file; daily payloads are
// binary16-quantized K values decoded on lookup. Days missing from the
// archive clamp to the nearest following day (or the last available
// day), rather than interpolating.
type DiffusivityField struct {
	meta   *ArchiveMetadata
	coords *CoordsFile
	start  time.Time
	index  *SpatialIndex
	cache  *dayCache
}

// DiffusivityDay is one resident day of the diffusivity archive.
type DiffusivityDay struct {
	Date  time.Time
	File  *DiffusivityFile
	Index *SpatialIndex
}

// NewDiffusivityField opens the diffusivity archive described by the
// metadata document at metaPath, loading the shared coordinate grid from
// coordsPath. start anchors simulation day 0.
func NewDiffusivityField(metaPath, coordsPath string, start time.Time, cacheSize int) (*DiffusivityField, error) {
	meta, err := ReadArchiveMetadata(metaPath)
	if err != nil {
		return nil, err
	}
	coords, err := ReadCoordsFile(coordsPath)
	if err != nil {
		return nil, err
	}
	df := &DiffusivityField{
		meta:   meta,
		coords: coords,
		start:  start,
		index: NewSpatialIndex(coords.Lon, coords.Lat,
			diffusivityIndexGrid, diffusivityIndexStride, diffusivityIndexBoundsStride),
	}
	df.cache = newDayCache(cacheSize, df.load)
	return df, nil
}

// Meta returns the archive metadata.
func (df *DiffusivityField) Meta() *ArchiveMetadata { return df.meta }

func (df *DiffusivityField) load(_ context.Context, date time.Time) (interface{}, error) {
	path, err := df.meta.PathFor(date)
	if err != nil {
		return nil, err
	}
	f, err := ReadDiffusivityFile(path, df.coords.NCells())
	if err != nil {
		return nil, err
	}
	return &DiffusivityDay{Date: date, File: f, Index: df.index}, nil
}

// Day returns a handle to the archive day covering simDay, applying the
// clamp policy for days outside the archive's coverage.
func (df *DiffusivityField) Day(ctx context.Context, simDay float64) (*DiffusivityDay, error) {
	_, date, err := df.meta.PathForClamped(SimDate(df.start, simDay))
	if err != nil {
		return nil, err
	}
	d, err := df.cache.day(ctx, date)
	if err != nil {
		return nil, err
	}
	return d.(*DiffusivityDay), nil
}

// DiffusivityAt samples K [m²/s] at p on simDay.
func (df *DiffusivityField) DiffusivityAt(ctx context.Context, p geom.Point, simDay float64) (float64, error) {
	d, err := df.Day(ctx, simDay)
	if err != nil {
		return 0, err
	}
	return d.DiffusivityAt(p), nil
}

// DiffusivityAt returns the clamped diffusivity at the cell nearest p,
// or MinDiffusivity when p is outside the grid or over a no-data cell.
func (d *DiffusivityDay) DiffusivityAt(p geom.Point) float64 {
	ci := d.Index.Nearest(p)
	if ci < 0 {
		return MinDiffusivity
	}
	return clampDiffusivity(float64(halfToFloat(d.File.K[ci])))
}

func clampDiffusivity(k float64) float64 {
	switch {
	case math.IsNaN(k):
		return MinDiffusivity
	case k < MinDiffusivity:
		return MinDiffusivity
	case k > MaxDiffusivity:
		return MaxDiffusivity
	}
	return k
}
