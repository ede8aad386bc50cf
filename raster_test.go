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
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
)

func TestRasterizeFrame(t *testing.T) {
	ref := geom.Point{X: 141, Y: 37}
	cfg := RasterConfig{MinLon: 140, MaxLon: 142, MinLat: 36, MaxLat: 38, NLon: 4, NLat: 4}
	f := &Frame{Particles: []ParticleRecord{
		// Two particles in the cell containing the origin, one in the
		// cell to the east, one outside the raster.
		{XKm: 0, YKm: 0, Concentration: 10},
		{XKm: 5, YKm: 5, Concentration: 30},
		{XKm: 0.6 * LonScale, YKm: 0, Concentration: 7},
		{XKm: 500 * LonScale, YKm: 0, Concentration: 99},
	}}

	r := RasterizeFrame(f, ref, cfg)
	// (141, 37) falls in column 2, row 2 of the 0.5°-cell raster.
	if got := r.Get(2, 2); different(got, 20, 1e-12) {
		t.Errorf("origin cell = %g, want the mean 20", got)
	}
	if got := r.Get(2, 3); different(got, 7, 1e-12) {
		t.Errorf("east cell = %g, want 7", got)
	}
	// Empty cells stay zero, and the out-of-extent particle is dropped.
	var sum float64
	for _, v := range r.Elements {
		sum += v
	}
	if different(sum, 27, 1e-12) {
		t.Errorf("raster sum = %g, want 27", sum)
	}
}

func TestWriteRasterNetCDF(t *testing.T) {
	ref := geom.Point{X: 141, Y: 37}
	cfg := RasterConfig{MinLon: 140, MaxLon: 142, MinLat: 36, MaxLat: 38, NLon: 8, NLat: 6}
	frames := []*Frame{
		{SimDay: 0, Particles: []ParticleRecord{{XKm: 0, YKm: 0, Concentration: 5}}},
		{SimDay: 1, Particles: []ParticleRecord{{XKm: 10, YKm: 0, Concentration: 6}}},
		{SimDay: 2, Particles: []ParticleRecord{{XKm: 20, YKm: 0, Concentration: 7}}},
	}
	path := filepath.Join(t.TempDir(), "plume.nc")
	sp := mustSpecies(t, "cs137")
	if err := WriteRasterNetCDF(path, ref, cfg, frames, sp); err != nil {
		t.Fatal(err)
	}

	ff, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	nc, err := cdf.Open(ff)
	if err != nil {
		t.Fatal(err)
	}
	if got := nc.Header.Lengths("concentration"); len(got) != 3 ||
		got[0] != 3 || got[1] != 6 || got[2] != 8 {
		t.Fatalf("concentration dimensions = %v", got)
	}

	r := nc.Reader("time", nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		t.Fatal(err)
	}
	days := buf.([]float64)
	if len(days) != 3 || days[2] != 2 {
		t.Errorf("time variable = %v", days)
	}

	if got := nc.Header.GetAttribute("", "tracer"); got.(string) != "cs137" {
		t.Errorf("tracer attribute = %v", got)
	}
}

func TestRasterConfigValidate(t *testing.T) {
	good := RasterConfig{MinLon: 140, MaxLon: 142, MinLat: 36, MaxLat: 38, NLon: 4, NLat: 4}
	if err := good.Validate(); err != nil {
		t.Error(err)
	}
	bad := []RasterConfig{
		{MinLon: 142, MaxLon: 140, MinLat: 36, MaxLat: 38, NLon: 4, NLat: 4},
		{MinLon: 140, MaxLon: 142, MinLat: 36, MaxLat: 38, NLon: 0, NLat: 4},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("config %d accepted", i)
		}
	}
}
