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
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestReadCurrentFile(t *testing.T) {
	g := testGrid{nLat: 4, nLon: 5, lon0: 140, lat0: 36, dLon: 0.5, dLat: 0.5}
	depths := []float64{0, 10, 50}
	dir := t.TempDir()
	name := writeCurrentDayFile(t, dir, g, depths, testStart,
		func(lon, lat float64, k int) (float32, float32) {
			return float32(k), float32(lon)
		})

	f, err := ReadCurrentFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	if f.Version != 4 || f.NLat != 4 || f.NLon != 5 || f.NDepth != 3 {
		t.Errorf("header: version=%d shape=%d×%d×%d", f.Version, f.NDepth, f.NLat, f.NLon)
	}
	if f.Year != 2011 || f.Month != 3 || f.Day != 11 {
		t.Errorf("date: %d-%d-%d", f.Year, f.Month, f.Day)
	}
	if len(f.Lon) != 20 || len(f.U) != 60 || len(f.V) != 60 {
		t.Fatalf("payload lengths: lon=%d u=%d v=%d", len(f.Lon), len(f.U), len(f.V))
	}
	// Layer 2, cell 7 (row 1, col 2).
	if got := f.U[2*f.NCells()+7]; got != 2 {
		t.Errorf("u[2][7] = %g, want 2", got)
	}
	wantLon := 140 + 2*0.5
	if got := float64(f.V[2*f.NCells()+7]); got != wantLon {
		t.Errorf("v[2][7] = %g, want %g", got, wantLon)
	}
	if got := float64(f.Lon[7]); got != wantLon {
		t.Errorf("lon[7] = %g, want %g", got, wantLon)
	}
}

func TestReadCurrentFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := ReadCurrentFile(filepath.Join(dir, "nope.bin"))
		var want DataUnavailableError
		if !errors.As(err, &want) {
			t.Errorf("got %v, want DataUnavailableError", err)
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := filepath.Join(dir, "v9.bin")
		w, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		writeI32s(t, w, 9, 2, 2, 2011, 3, 11)
		w.Close()
		_, err = ReadCurrentFile(path)
		var want UnsupportedFormatError
		if !errors.As(err, &want) {
			t.Fatalf("got %v, want UnsupportedFormatError", err)
		}
		if want.Version != 9 {
			t.Errorf("version = %d, want 9", want.Version)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		path := filepath.Join(dir, "short.bin")
		w, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		// Header promises a 3×4 grid but carries no payload.
		writeI32s(t, w, currentVersion2D, 3, 4, 2011, 3, 11)
		w.Close()
		_, err = ReadCurrentFile(path)
		var want CorruptBinaryError
		if !errors.As(err, &want) {
			t.Errorf("got %v, want CorruptBinaryError", err)
		}
	})
}

func TestReadLegacyMonthlyCurrentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monthly.bin")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	writeI32s(t, w, currentVersionMonthly, 1, 2, 2011, 3)
	writeF32s(t, w, []float32{141, 141.5})     // lon
	writeF32s(t, w, []float32{37, 37})         // lat
	writeF32s(t, w, []float32{0.1, -9999})     // u, with legacy land fill
	writeF32s(t, w, []float32{0.05, -9999})    // v
	w.Close()

	f, err := ReadCurrentFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.NDepth != 1 || f.Day != 1 {
		t.Errorf("NDepth=%d Day=%d, want 1, 1", f.NDepth, f.Day)
	}
	if validSpeed(f.U[1]) {
		t.Error("legacy -9999 fill accepted as water")
	}
	if !validSpeed(f.U[0]) {
		t.Error("valid velocity rejected")
	}
}

func TestReadDiffusivityFile(t *testing.T) {
	g := testGrid{nLat: 3, nLon: 3, lon0: 140, lat0: 36, dLon: 1, dLat: 1}
	metaPath, coordsPath := writeDiffusivityArchive(t, g, 1, 123.5)

	coords, err := ReadCoordsFile(coordsPath)
	if err != nil {
		t.Fatal(err)
	}
	if coords.NLat != 3 || coords.NLon != 3 {
		t.Fatalf("coords shape %d×%d", coords.NLat, coords.NLon)
	}

	meta, err := ReadArchiveMetadata(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	path, err := meta.PathFor(testStart)
	if err != nil {
		t.Fatal(err)
	}
	f, err := ReadDiffusivityFile(path, coords.NCells())
	if err != nil {
		t.Fatal(err)
	}
	if f.MaxError != 0.05 {
		t.Errorf("MaxError = %g, want 0.05", f.MaxError)
	}
	got := float64(halfToFloat(f.K[4]))
	if math.Abs(got-123.5) > 0.25 { // binary16 resolution near 128
		t.Errorf("K[4] = %g, want ≈123.5", got)
	}
}

func TestReadDiffusivityFileWrongVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	writeI32s(t, w, 2, 2011, 3, 11, 0)
	w.Close()
	_, err = ReadDiffusivityFile(path, 4)
	var want UnsupportedFormatError
	if !errors.As(err, &want) {
		t.Errorf("got %v, want UnsupportedFormatError", err)
	}
}

func TestCoordinateOrderingMatchesData(t *testing.T) {
	g := testGrid{nLat: 2, nLon: 3, lon0: 140, lat0: 36, dLon: 1, dLat: 1}
	dir := t.TempDir()
	name := writeCurrentDayFile(t, dir, g, []float64{0}, testStart,
		func(lon, lat float64, k int) (float32, float32) {
			return float32(lon), float32(lat)
		})
	f, err := ReadCurrentFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	// Coordinates and data share one cell ordering.
	for ci := 0; ci < f.NCells(); ci++ {
		if f.U[ci] != f.Lon[ci] || f.V[ci] != f.Lat[ci] {
			t.Fatalf("cell %d: data (%g, %g) does not match coords (%g, %g)",
				ci, f.U[ci], f.V[ci], f.Lon[ci], f.Lat[ci])
		}
	}
}
