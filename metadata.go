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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ArchiveMetadata is the JSON companion document of one binary archive.
// It lists the days the archive covers and, for the current archive, the
// depth levels of the velocity payload.
type ArchiveMetadata struct {
	Description string `json:"description"`

	Grid struct {
		NLat            int    `json:"n_lat"`
		NLon            int    `json:"n_lon"`
		CoordinatesFile string `json:"coordinates_file,omitempty"`
	} `json:"grid"`

	// DepthsM lists the velocity depth levels in meters, ascending from
	// the surface. Empty for 2-D archives.
	DepthsM []float64 `json:"depths_m,omitempty"`

	Files []DayEntry `json:"files"`

	dir    string
	byDate map[string]*DayEntry
	dates  []time.Time
}

// DayEntry locates one day's binary file within an archive.
type DayEntry struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	File      string `json:"file"`
	DayOffset int    `json:"day_offset"`
}

// Date returns the entry's calendar date at UTC midnight.
func (e *DayEntry) Date() time.Time {
	return time.Date(e.Year, time.Month(e.Month), e.Day, 0, 0, 0, 0, time.UTC)
}

// ReadArchiveMetadata loads and indexes an archive metadata document.
// Daily file paths in the document are resolved relative to the metadata
// file's directory.
func ReadArchiveMetadata(path string) (*ArchiveMetadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, DataUnavailableError{Path: path, Err: err}
	}
	m := new(ArchiveMetadata)
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("plume: parsing archive metadata %s: %w", path, err)
	}
	if len(m.Files) == 0 {
		return nil, DataUnavailableError{Path: path, Err: fmt.Errorf("metadata lists no days")}
	}
	m.dir = filepath.Dir(path)
	m.byDate = make(map[string]*DayEntry, len(m.Files))
	for i := range m.Files {
		e := &m.Files[i]
		m.byDate[dateKey(e.Date())] = e
		m.dates = append(m.dates, e.Date())
	}
	sort.Slice(m.dates, func(i, j int) bool { return m.dates[i].Before(m.dates[j]) })
	return m, nil
}

// PathFor returns the on-disk path for the archive day exactly matching
// date, or a DataUnavailableError naming the missing day.
func (m *ArchiveMetadata) PathFor(date time.Time) (string, error) {
	e, ok := m.byDate[dateKey(date)]
	if !ok {
		return "", DataUnavailableError{
			Path: m.dir,
			Err:  fmt.Errorf("no archive entry for %s", date.Format("2006-01-02")),
		}
	}
	return filepath.Join(m.dir, e.File), nil
}

// PathForClamped returns the path for the smallest archive date on or
// after date, falling back to the latest available day when date is past
// the end of the archive. This is the lookup policy for the diffusivity
// archive, whose coverage may lag the current archive.
func (m *ArchiveMetadata) PathForClamped(date time.Time) (string, time.Time, error) {
	i := sort.Search(len(m.dates), func(i int) bool { return !m.dates[i].Before(date) })
	if i == len(m.dates) {
		i = len(m.dates) - 1
	}
	d := m.dates[i]
	p, err := m.PathFor(d)
	return p, d, err
}

// Covers reports whether the archive has an entry for every day in
// [start, end).
func (m *ArchiveMetadata) Covers(start, end time.Time) bool {
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if _, ok := m.byDate[dateKey(d)]; !ok {
			return false
		}
	}
	return true
}

// First returns the earliest archive date.
func (m *ArchiveMetadata) First() time.Time { return m.dates[0] }

// Last returns the latest archive date.
func (m *ArchiveMetadata) Last() time.Time { return m.dates[len(m.dates)-1] }

func dateKey(t time.Time) string { return t.Format("20060102") }

// SimDate converts a fractional simulation day to the calendar day it
// falls in, given the run's start date.
func SimDate(start time.Time, simDay float64) time.Time {
	return start.AddDate(0, 0, int(simDay))
}
