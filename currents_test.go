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
	"errors"
	"math"
	"testing"

	"github.com/ctessum/geom"
)

func TestVelocityAtPicksDepthLayer(t *testing.T) {
	g := testGrid{nLat: 10, nLon: 10, lon0: 141, lat0: 37, dLon: 0.1, dLat: 0.1}
	depths := []float64{0, 15, 50, 200}
	d := newTestDay(t, g, depths,
		func(lon, lat float64, k int) (float32, float32) {
			return float32(k) / 10, 0.01
		})

	cases := []struct {
		depthM float64
		layer  int
	}{
		{0, 0},
		{5, 0},
		{7.5, 0}, // tie between 0 and 15 goes to the shallower layer
		{8, 1},
		{30, 1},
		{32.5, 1}, // tie between 15 and 50
		{1000, 3},
	}
	for _, c := range cases {
		if got := d.DepthLayer(c.depthM); got != c.layer {
			t.Errorf("DepthLayer(%g) = %d, want %d", c.depthM, got, c.layer)
		}
	}

	v := d.VelocityAt(geom.Point{X: 141.4, Y: 37.4}, 30)
	if !v.Found {
		t.Fatal("lookup missed an interior ocean point")
	}
	if v.Layer != 1 {
		t.Errorf("layer = %d, want 1", v.Layer)
	}
	if different(v.U, 0.1, 1e-6) {
		t.Errorf("u = %g, want layer-1 value 0.1", v.U)
	}
}

func TestIsOceanLandSentinels(t *testing.T) {
	nan := float32(math.NaN())
	g := testGrid{nLat: 10, nLon: 10, lon0: 141, lat0: 37, dLon: 0.1, dLat: 0.1}
	d := newTestDay(t, g, []float64{0},
		func(lon, lat float64, k int) (float32, float32) {
			switch {
			case lat > 37.75: // NaN land in the north
				return nan, nan
			case lat < 37.15: // legacy sentinel land in the south
				return -9999, -9999
			}
			return 0.1, 0
		})

	if !d.IsOcean(geom.Point{X: 141.5, Y: 37.5}, 0) {
		t.Error("middle band should be ocean")
	}
	if d.IsOcean(geom.Point{X: 141.5, Y: 37.9}, 0) {
		t.Error("NaN cells should be land")
	}
	if d.IsOcean(geom.Point{X: 141.5, Y: 37.0}, 0) {
		t.Error("-9999 cells should be land")
	}
}

func TestNearestOceanCellSpiral(t *testing.T) {
	g := testGrid{nLat: 40, nLon: 40, lon0: 140, lat0: 36, dLon: 0.1, dLat: 0.1}
	const coast = 141.95 // everything west is land
	d := newTestDay(t, g, []float64{0}, landWestOf(coast, uniformFlow(0.1, 0)))

	// From a land point near the coast the spiral must find water, and
	// it must be the first water column east of the cut.
	ci := d.NearestOceanCell(geom.Point{X: 141.7, Y: 37.95}, 0, 10)
	if ci < 0 {
		t.Fatal("spiral found no ocean cell")
	}
	p := d.CellPoint(ci)
	if p.X < coast {
		t.Errorf("spiral returned a land cell at lon %g", p.X)
	}
	if different(p.X, 142.0, 1e-6) {
		t.Errorf("spiral returned lon %g; nearest water column is 142.0", p.X)
	}

	// From open water the spiral returns a water cell immediately.
	ci = d.NearestOceanCell(geom.Point{X: 142.5, Y: 37.5}, 0, 10)
	if ci < 0 || !validSpeed(d.File.U[ci]) {
		t.Error("spiral failed from open water")
	}

	// A tiny radius deep inland exhausts without a match.
	if ci := d.NearestOceanCell(geom.Point{X: 140.1, Y: 37.95}, 0, 1); ci >= 0 {
		t.Errorf("spiral with radius 1 reached water at %v", d.CellPoint(ci))
	}
}

func TestVelocitiesAtBatch(t *testing.T) {
	g := testGrid{nLat: 10, nLon: 10, lon0: 141, lat0: 37, dLon: 0.1, dLat: 0.1}
	d := newTestDay(t, g, []float64{0}, uniformFlow(0.2, -0.1))
	ps := []geom.Point{
		{X: 141.2, Y: 37.2},
		{X: 141.8, Y: 37.8},
		{X: 100, Y: 0}, // outside the grid
	}
	vs := d.VelocitiesAt(ps, 0)
	if !vs[0].Found || !vs[1].Found {
		t.Error("interior lookups missed")
	}
	if vs[2].Found {
		t.Error("exterior lookup found")
	}
	if different(vs[0].U, 0.2, 1e-6) || different(vs[1].V, -0.1, 1e-6) {
		t.Errorf("batch velocities: %+v", vs[:2])
	}
}

func TestCurrentFieldLookup(t *testing.T) {
	// End-to-end through the metadata, cache and production index
	// parameters on the full-size synthetic grid.
	cf := newTestCurrents(t, defaultGrid(), []float64{0, 50}, 3, uniformFlow(0.3, 0.1))
	ctx := context.Background()

	v, err := cf.VelocityAt(ctx, testRelease, 0, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Found {
		t.Fatal("release-site lookup missed")
	}
	if different(v.U, 0.3, 1e-6) || different(v.V, 0.1, 1e-6) {
		t.Errorf("velocity = (%g, %g), want (0.3, 0.1)", v.U, v.V)
	}
	ocean, err := cf.IsOcean(ctx, testRelease, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !ocean {
		t.Error("release site should be ocean")
	}
}

func TestMissingDayIsDataUnavailable(t *testing.T) {
	g := testGrid{nLat: 5, nLon: 5, lon0: 141, lat0: 37, dLon: 0.1, dLat: 0.1}
	cf := newTestCurrents(t, g, []float64{0}, 2, uniformFlow(0, 0))
	_, err := cf.Day(context.Background(), 10) // archive has 2 days
	var want DataUnavailableError
	if !errors.As(err, &want) {
		t.Errorf("got %v, want DataUnavailableError", err)
	}
	// A failed load leaves no cache entry: the same lookup fails the
	// same way instead of returning a poisoned bundle.
	_, err2 := cf.Day(context.Background(), 10)
	if !errors.As(err2, &want) {
		t.Errorf("second lookup: got %v, want DataUnavailableError", err2)
	}
}

func TestDayCacheSharesBundles(t *testing.T) {
	g := testGrid{nLat: 5, nLon: 5, lon0: 141, lat0: 37, dLon: 0.1, dLat: 0.1}
	cf := newTestCurrents(t, g, []float64{0}, 5, uniformFlow(0, 0))
	ctx := context.Background()
	d1, err := cf.Day(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := cf.Day(ctx, 0.9) // same calendar day
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("same-day lookups returned different bundles")
	}
	d3, err := cf.Day(ctx, 1.1)
	if err != nil {
		t.Fatal(err)
	}
	if d3 == d1 {
		t.Error("different days shared a bundle")
	}
	if d3.Index != d1.Index {
		t.Error("spatial index must be shared across days")
	}
}
