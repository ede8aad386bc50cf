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
	"fmt"
	"os"
	"unsafe"
)

// The daily archive files are little-endian: a short header of 32-bit
// integers followed by contiguous row-major float32 (currents,
// coordinates) or uint16 binary16 (diffusivity) arrays. The readers below
// slurp each file once and expose the payload as typed slices aliasing the
// backing buffer, so coordinate and data views share the buffer's
// lifetime.

// Current-archive format versions.
const (
	currentVersionMonthly = 2 // legacy monthly mean, no day field
	currentVersion2D      = 3 // daily, single depth level
	currentVersion3D      = 4 // daily, n_depth levels
)

// diffusivityVersion is the only supported EKE-archive payload version
// (binary16 quantized).
const diffusivityVersion = 6

// coordsVersion is the version of the shared coordinate file.
const coordsVersion = 1

// CurrentFile is one decoded day (or legacy month) of the ocean-current
// archive. Lon, Lat, U and V alias the backing buffer; they are valid for
// the lifetime of the CurrentFile.
type CurrentFile struct {
	Path             string
	Version          int32
	NLat, NLon       int
	NDepth           int
	Year, Month, Day int

	// Cell-center coordinates, row-major over latitude then longitude,
	// NLat·NLon each.
	Lon, Lat []float32

	// Velocity components [m/s], NDepth·NLat·NLon each, depth-major.
	// NaN or |·| > 1000 marks land.
	U, V []float32

	buf []byte
}

// NCells returns the number of horizontal grid cells.
func (f *CurrentFile) NCells() int { return f.NLat * f.NLon }

// ReadCurrentFile parses a daily current file. Version 4 files carry
// n_depth velocity levels; versions 2 and 3 are single-level surface
// archives (version 2 is the legacy monthly format without a day field).
func ReadCurrentFile(path string) (*CurrentFile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, DataUnavailableError{Path: path, Err: err}
	}
	if len(buf) < 4 {
		return nil, CorruptBinaryError{Path: path, Reason: "no header"}
	}
	f := &CurrentFile{Path: path, buf: buf}
	f.Version = int32(binary.LittleEndian.Uint32(buf))

	var nHeader int // number of i32 header words
	switch f.Version {
	case currentVersionMonthly:
		nHeader = 5 // version, n_lat, n_lon, year, month
	case currentVersion2D:
		nHeader = 6 // version, n_lat, n_lon, year, month, day
	case currentVersion3D:
		nHeader = 7 // version, n_lat, n_lon, n_depth, year, month, day
	default:
		return nil, UnsupportedFormatError{Path: path, Version: f.Version}
	}
	hdr, err := headerWords(buf, nHeader, path)
	if err != nil {
		return nil, err
	}

	f.NLat = int(hdr[1])
	f.NLon = int(hdr[2])
	switch f.Version {
	case currentVersionMonthly:
		f.NDepth = 1
		f.Year, f.Month, f.Day = int(hdr[3]), int(hdr[4]), 1
	case currentVersion2D:
		f.NDepth = 1
		f.Year, f.Month, f.Day = int(hdr[3]), int(hdr[4]), int(hdr[5])
	case currentVersion3D:
		f.NDepth = int(hdr[3])
		f.Year, f.Month, f.Day = int(hdr[4]), int(hdr[5]), int(hdr[6])
	}
	if f.NLat <= 0 || f.NLon <= 0 || f.NDepth <= 0 {
		return nil, CorruptBinaryError{Path: path,
			Reason: fmt.Sprintf("bad grid shape %d×%d×%d", f.NDepth, f.NLat, f.NLon)}
	}

	nCells := f.NLat * f.NLon
	nVel := f.NDepth * nCells
	off := nHeader * 4
	if f.Lon, off, err = float32View(buf, off, nCells, path); err != nil {
		return nil, err
	}
	if f.Lat, off, err = float32View(buf, off, nCells, path); err != nil {
		return nil, err
	}
	if f.U, off, err = float32View(buf, off, nVel, path); err != nil {
		return nil, err
	}
	if f.V, _, err = float32View(buf, off, nVel, path); err != nil {
		return nil, err
	}
	return f, nil
}

// DiffusivityFile is one decoded day of the eddy-diffusivity archive. K
// holds raw binary16 bits; decode with halfToFloat. The grid shape comes
// from the shared coordinate file, not the daily header.
type DiffusivityFile struct {
	Path             string
	Version          int32
	Year, Month, Day int

	// MaxError is the largest quantization error introduced by the
	// binary16 encoding, in m²/s. Diagnostic only.
	MaxError float64

	K []uint16 // binary16 bits, NLat·NLon

	buf []byte
}

// ReadDiffusivityFile parses a daily diffusivity file whose payload holds
// nCells binary16 values.
func ReadDiffusivityFile(path string, nCells int) (*DiffusivityFile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, DataUnavailableError{Path: path, Err: err}
	}
	if len(buf) < 4 {
		return nil, CorruptBinaryError{Path: path, Reason: "no header"}
	}
	f := &DiffusivityFile{Path: path, buf: buf}
	f.Version = int32(binary.LittleEndian.Uint32(buf))
	if f.Version != diffusivityVersion {
		return nil, UnsupportedFormatError{Path: path, Version: f.Version}
	}
	hdr, err := headerWords(buf, 5, path)
	if err != nil {
		return nil, err
	}
	f.Year, f.Month, f.Day = int(hdr[1]), int(hdr[2]), int(hdr[3])
	f.MaxError = float64(hdr[4]) / 1000

	off := 5 * 4
	if off+2*nCells > len(buf) {
		return nil, CorruptBinaryError{Path: path,
			Reason: fmt.Sprintf("payload needs %d bytes, file has %d", off+2*nCells, len(buf))}
	}
	f.K = unsafe.Slice((*uint16)(unsafe.Pointer(&buf[off])), nCells)
	return f, nil
}

// CoordsFile holds the shared diffusivity-grid coordinates loaded from
// eke_coords.bin. The coordinate arrays alias the backing buffer.
type CoordsFile struct {
	Path       string
	NLat, NLon int
	Lon, Lat   []float32

	buf []byte
}

// NCells returns the number of grid cells.
func (f *CoordsFile) NCells() int { return f.NLat * f.NLon }

// ReadCoordsFile parses the shared coordinate file for the diffusivity
// archive.
func ReadCoordsFile(path string) (*CoordsFile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, DataUnavailableError{Path: path, Err: err}
	}
	hdr, err := headerWords(buf, 3, path)
	if err != nil {
		return nil, err
	}
	if hdr[0] != coordsVersion {
		return nil, UnsupportedFormatError{Path: path, Version: hdr[0]}
	}
	f := &CoordsFile{Path: path, NLat: int(hdr[1]), NLon: int(hdr[2]), buf: buf}
	if f.NLat <= 0 || f.NLon <= 0 {
		return nil, CorruptBinaryError{Path: path,
			Reason: fmt.Sprintf("bad grid shape %d×%d", f.NLat, f.NLon)}
	}
	nCells := f.NLat * f.NLon
	off := 3 * 4
	if f.Lon, off, err = float32View(buf, off, nCells, path); err != nil {
		return nil, err
	}
	if f.Lat, _, err = float32View(buf, off, nCells, path); err != nil {
		return nil, err
	}
	return f, nil
}

func headerWords(buf []byte, n int, path string) ([]int32, error) {
	if len(buf) < 4*n {
		return nil, CorruptBinaryError{Path: path,
			Reason: fmt.Sprintf("header needs %d bytes, file has %d", 4*n, len(buf))}
	}
	w := make([]int32, n)
	for i := range w {
		w[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return w, nil
}

// float32View returns n float32s aliasing buf at byte offset off, plus the
// offset just past them. The archives are little-endian, matching the
// platforms this model targets; no byte swapping is performed.
func float32View(buf []byte, off, n int, path string) ([]float32, int, error) {
	end := off + 4*n
	if off < 0 || end > len(buf) {
		return nil, 0, CorruptBinaryError{Path: path,
			Reason: fmt.Sprintf("array at offset %d needs %d bytes, file has %d", off, 4*n, len(buf))}
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[off])), n), end, nil
}
