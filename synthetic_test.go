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
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/geom"
)

// Synthetic archives for testing: a small regular grid covering the
// western North Pacific around the release site, with programmable
// velocity and land fields. All day entries of an archive share one
// binary file, which is valid because the reader locates files through
// the metadata document.

var testStart = time.Date(2011, 3, 11, 0, 0, 0, 0, time.UTC)

// testRelease is the release site used throughout the tests.
var testRelease = geom.Point{X: 141.31, Y: 37.42}

type testGrid struct {
	nLat, nLon int
	lon0, lat0 float64 // cell-center origin (SW corner)
	dLon, dLat float64
}

// defaultGrid spans 138–154.1°E, 34–42.1°N at 0.1°: open ocean unless a
// land function says otherwise. The column count is coprime with the
// index sampling stride so the strided samples cover every column.
func defaultGrid() testGrid {
	return testGrid{nLat: 81, nLon: 161, lon0: 138, lat0: 34, dLon: 0.1, dLat: 0.1}
}

func (g testGrid) cellLonLat(ci int) (float64, float64) {
	return g.lon0 + float64(ci%g.nLon)*g.dLon, g.lat0 + float64(ci/g.nLon)*g.dLat
}

// fieldFunc gives the velocity at a cell; return NaN to mark land.
type fieldFunc func(lon, lat float64, layer int) (u, v float32)

// uniformFlow returns a fieldFunc for spatially constant currents.
func uniformFlow(u, v float32) fieldFunc {
	return func(lon, lat float64, layer int) (float32, float32) { return u, v }
}

// landWestOf masks cells west of cutLon as land, with flow elsewhere.
func landWestOf(cutLon float64, f fieldFunc) fieldFunc {
	nan := float32(math.NaN())
	return func(lon, lat float64, layer int) (float32, float32) {
		if lon < cutLon {
			return nan, nan
		}
		return f(lon, lat, layer)
	}
}

func writeI32s(t *testing.T, w *os.File, vals ...int32) {
	t.Helper()
	if err := binary.Write(w, binary.LittleEndian, vals); err != nil {
		t.Fatal(err)
	}
}

func writeF32s(t *testing.T, w *os.File, vals []float32) {
	t.Helper()
	if err := binary.Write(w, binary.LittleEndian, vals); err != nil {
		t.Fatal(err)
	}
}

// writeCurrentDayFile writes one version-4 current file and returns its
// name.
func writeCurrentDayFile(t *testing.T, dir string, g testGrid, depths []float64, date time.Time, f fieldFunc) string {
	t.Helper()
	name := "currents_" + date.Format("20060102") + ".bin"
	w, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	nCells := g.nLat * g.nLon
	writeI32s(t, w, currentVersion3D, int32(g.nLat), int32(g.nLon), int32(len(depths)),
		int32(date.Year()), int32(date.Month()), int32(date.Day()))

	lon := make([]float32, nCells)
	lat := make([]float32, nCells)
	for ci := 0; ci < nCells; ci++ {
		lo, la := g.cellLonLat(ci)
		lon[ci], lat[ci] = float32(lo), float32(la)
	}
	writeF32s(t, w, lon)
	writeF32s(t, w, lat)

	u := make([]float32, len(depths)*nCells)
	v := make([]float32, len(depths)*nCells)
	for k := range depths {
		for ci := 0; ci < nCells; ci++ {
			lo, la := g.cellLonLat(ci)
			u[k*nCells+ci], v[k*nCells+ci] = f(lo, la, k)
		}
	}
	writeF32s(t, w, u)
	writeF32s(t, w, v)
	return name
}

// writeArchiveMeta writes a metadata document whose day entries all
// point at file.
func writeArchiveMeta(t *testing.T, dir, file string, g testGrid, depths []float64, start time.Time, days int) string {
	t.Helper()
	type dayEntry struct {
		Year      int    `json:"year"`
		Month     int    `json:"month"`
		Day       int    `json:"day"`
		File      string `json:"file"`
		DayOffset int    `json:"day_offset"`
	}
	doc := struct {
		Description string `json:"description"`
		Grid        struct {
			NLat            int    `json:"n_lat"`
			NLon            int    `json:"n_lon"`
			CoordinatesFile string `json:"coordinates_file,omitempty"`
		} `json:"grid"`
		DepthsM []float64  `json:"depths_m,omitempty"`
		Files   []dayEntry `json:"files"`
	}{Description: "synthetic test archive", DepthsM: depths}
	doc.Grid.NLat, doc.Grid.NLon = g.nLat, g.nLon
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		doc.Files = append(doc.Files, dayEntry{
			Year: d.Year(), Month: int(d.Month()), Day: d.Day(),
			File: file, DayOffset: i,
		})
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// newTestDay builds a single resident CurrentDay with an exact
// (stride-1) spatial index, for lookup-behavior tests on small grids.
func newTestDay(t *testing.T, g testGrid, depths []float64, f fieldFunc) *CurrentDay {
	t.Helper()
	dir := t.TempDir()
	name := writeCurrentDayFile(t, dir, g, depths, testStart, f)
	cf, err := ReadCurrentFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return &CurrentDay{
		Date:   testStart,
		File:   cf,
		Index:  NewSpatialIndex(cf.Lon, cf.Lat, 50, 1, 1),
		Depths: depths,
	}
}

// newTestCurrents builds a CurrentField over a synthetic archive of the
// given length, all days sharing one velocity field.
func newTestCurrents(t *testing.T, g testGrid, depths []float64, days int, f fieldFunc) *CurrentField {
	t.Helper()
	dir := t.TempDir()
	file := writeCurrentDayFile(t, dir, g, depths, testStart, f)
	meta := writeArchiveMeta(t, dir, file, g, depths, testStart, days)
	cf, err := NewCurrentField(meta, testStart, 0)
	if err != nil {
		t.Fatal(err)
	}
	return cf
}

// writeDiffusivityArchive writes a coordinate file, one daily binary16
// K file, and a metadata document, returning the metadata and coordinate
// paths.
func writeDiffusivityArchive(t *testing.T, g testGrid, days int, k float32) (metaPath, coordsPath string) {
	t.Helper()
	dir := t.TempDir()
	nCells := g.nLat * g.nLon

	coordsPath = filepath.Join(dir, "eke_coords.bin")
	cw, err := os.Create(coordsPath)
	if err != nil {
		t.Fatal(err)
	}
	writeI32s(t, cw, coordsVersion, int32(g.nLat), int32(g.nLon))
	lon := make([]float32, nCells)
	lat := make([]float32, nCells)
	for ci := 0; ci < nCells; ci++ {
		lo, la := g.cellLonLat(ci)
		lon[ci], lat[ci] = float32(lo), float32(la)
	}
	writeF32s(t, cw, lon)
	writeF32s(t, cw, lat)
	cw.Close()

	name := "eke_" + testStart.Format("20060102") + ".bin"
	kw, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	writeI32s(t, kw, diffusivityVersion,
		int32(testStart.Year()), int32(testStart.Month()), int32(testStart.Day()), 50)
	bits := make([]uint16, nCells)
	for i := range bits {
		bits[i] = floatToHalf(k)
	}
	if err := binary.Write(kw, binary.LittleEndian, bits); err != nil {
		t.Fatal(err)
	}
	kw.Close()

	metaPath = writeArchiveMeta(t, dir, name, g, nil, testStart, days)
	return metaPath, coordsPath
}

// newTestDiffusivity builds a DiffusivityField with constant K.
func newTestDiffusivity(t *testing.T, g testGrid, days int, k float32) *DiffusivityField {
	t.Helper()
	meta, coords := writeDiffusivityArchive(t, g, days, k)
	df, err := NewDiffusivityField(meta, coords, testStart, 0)
	if err != nil {
		t.Fatal(err)
	}
	return df
}

// newTestSim assembles a seeded simulation over the given fields with a
// single release phase covering the whole run.
func newTestSim(t *testing.T, cf *CurrentField, df *DiffusivityField, capacity int, days float64, sp *Species, total float64) *Sim {
	t.Helper()
	schedule := NewReleaseSchedule(sp)
	if err := schedule.AddPhase(0, days, total, sp.BaseUnit); err != nil {
		t.Fatal(err)
	}
	s := &Sim{
		Species:          sp,
		Schedule:         schedule,
		Pool:             NewParticlePool(capacity, testRelease),
		Currents:         cf,
		Diffusivity:      df,
		Scheme:           Euler,
		DiffusivityScale: 1,
		StartDate:        testStart,
		EndDay:           days,
		Seed:             42,
	}
	s.StepFuncs = s.DefaultStepFuncs(FixedStep(0.25))
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	return s
}

// different reports whether a and b differ by more than the relative
// tolerance.
func different(a, b, tolerance float64) bool {
	if a == b {
		return false
	}
	return 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b)
}

func absDifferent(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance
}
