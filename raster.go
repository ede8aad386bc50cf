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
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// RasterConfig describes the regular lon/lat grid that particle
// concentrations are aggregated onto for output.
type RasterConfig struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
	NLon, NLat     int
}

// Validate checks the raster extent and shape.
func (c RasterConfig) Validate() error {
	if c.NLon <= 0 || c.NLat <= 0 {
		return ConfigurationError{Problem: fmt.Sprintf("raster shape %d×%d", c.NLat, c.NLon)}
	}
	if c.MaxLon <= c.MinLon || c.MaxLat <= c.MinLat {
		return ConfigurationError{Problem: "raster extent is inverted or empty"}
	}
	return nil
}

// CellCenters returns the raster's cell-center coordinate axes.
func (c RasterConfig) CellCenters() (lon, lat []float64) {
	dLon := (c.MaxLon - c.MinLon) / float64(c.NLon)
	dLat := (c.MaxLat - c.MinLat) / float64(c.NLat)
	lon = make([]float64, c.NLon)
	for i := range lon {
		lon[i] = c.MinLon + (float64(i)+0.5)*dLon
	}
	lat = make([]float64, c.NLat)
	for j := range lat {
		lat[j] = c.MinLat + (float64(j)+0.5)*dLat
	}
	return lon, lat
}

// RasterizeFrame bins one frame's particles onto the raster grid,
// averaging the concentrations of the particles in each cell. ref is the
// release origin the frame's kilometer offsets are relative to.
func RasterizeFrame(f *Frame, ref geom.Point, cfg RasterConfig) *sparse.DenseArray {
	sum := sparse.ZerosDense(cfg.NLat, cfg.NLon)
	count := sparse.ZerosDense(cfg.NLat, cfg.NLon)
	dLon := (cfg.MaxLon - cfg.MinLon) / float64(cfg.NLon)
	dLat := (cfg.MaxLat - cfg.MinLat) / float64(cfg.NLat)
	for i := range f.Particles {
		p := &f.Particles[i]
		lon := ref.X + p.XKm/LonScale
		lat := ref.Y + p.YKm/LatScale
		ix := int((lon - cfg.MinLon) / dLon)
		iy := int((lat - cfg.MinLat) / dLat)
		if ix < 0 || ix >= cfg.NLon || iy < 0 || iy >= cfg.NLat {
			continue
		}
		sum.AddVal(p.Concentration, iy, ix)
		count.AddVal(1, iy, ix)
	}
	for i, n := range count.Elements {
		if n > 0 {
			sum.Elements[i] /= n
		}
	}
	return sum
}

// WriteRasterNetCDF rasterizes each frame and writes the series to a
// NetCDF file with time, latitude and longitude coordinate variables.
func WriteRasterNetCDF(path string, ref geom.Point, cfg RasterConfig, frames []*Frame, sp *Species) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(frames) == 0 {
		return ConfigurationError{Problem: "no frames to write"}
	}

	h := cdf.NewHeader(
		[]string{"time", "lat", "lon"},
		[]int{len(frames), cfg.NLat, cfg.NLon},
	)
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "description", "simulation day of each frame")
	h.AddAttribute("time", "units", "days since release start")
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable("concentration", []string{"time", "lat", "lon"}, []float32{0})
	h.AddAttribute("concentration", "description",
		fmt.Sprintf("mean %s concentration of particles in cell", sp.Name))
	h.AddAttribute("concentration", "units", concentrationUnits(sp))
	h.AddAttribute("", "tracer", sp.ID)
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("plume: building raster header: %w", err)
	}

	ff, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plume: creating raster file: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h) // writes the header to ff
	if err != nil {
		return fmt.Errorf("plume: creating raster file: %w", err)
	}

	days := make([]float64, len(frames))
	conc := make([]float32, 0, len(frames)*cfg.NLat*cfg.NLon)
	for i, fr := range frames {
		days[i] = fr.SimDay
		r := RasterizeFrame(fr, ref, cfg)
		for _, v := range r.Elements {
			conc = append(conc, float32(v))
		}
	}
	lon, lat := cfg.CellCenters()
	for _, v := range []struct {
		name string
		data interface{}
	}{
		{"time", days},
		{"lat", lat},
		{"lon", lon},
		{"concentration", conc},
	} {
		end := f.Header.Lengths(v.name)
		start := make([]int, len(end))
		w := f.Writer(v.name, start, end)
		if _, err := w.Write(v.data); err != nil {
			return fmt.Errorf("plume: writing raster variable %s: %w", v.name, err)
		}
	}
	return nil
}

// concentrationUnits gives the reported unit for each species taxonomy,
// matching Concentration.
func concentrationUnits(sp *Species) string {
	switch sp.Type {
	case Radionuclide:
		return "Bq m-3"
	case Hydrocarbon:
		return "kg m-2 (surface) | ppm (subsurface)"
	case Particulate:
		return "mg L-1"
	case Pollutant:
		return "ppb"
	case Biological:
		return "organisms m-3"
	}
	return ""
}
