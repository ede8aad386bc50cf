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
	"sort"
)

// SpeciesType is the taxonomic class of a tracer. It selects the
// concentration formula and which mass-evolution terms apply.
type SpeciesType int

const (
	Radionuclide SpeciesType = iota
	Hydrocarbon
	Particulate
	Pollutant
	Biological
)

func (t SpeciesType) String() string {
	switch t {
	case Radionuclide:
		return "radionuclide"
	case Hydrocarbon:
		return "hydrocarbon"
	case Particulate:
		return "particulate"
	case Pollutant:
		return "pollutant"
	case Biological:
		return "biological"
	}
	return "unknown"
}

// Species describes one transportable tracer: its physical behavior
// bundle and the units its mass is accounted in. Species values are
// process-wide constants; simulations hold interned pointers into the
// registry.
type Species struct {
	ID   string
	Name string
	Type SpeciesType

	// HalfLifeDays is the radioactive half-life. Zero means stable.
	HalfLifeDays float64

	// BaseUnit is the unit that particle masses and release totals are
	// accounted in after conversion (GBq for activity, kg for mass).
	BaseUnit string

	// DefaultTotal is the release total used when the configuration does
	// not declare phases, in BaseUnit.
	DefaultTotal float64

	// DiffusivityScale multiplies the horizontal eddy diffusivity.
	DiffusivityScale float64

	// SettlingMPerDay is the vertical settling velocity in m/day;
	// positive sinks, negative is buoyant rise.
	SettlingMPerDay float64

	// EvaporationPerDay is a first-order mass-loss rate [1/day]; only
	// meaningful for surface-bound species such as oil.
	EvaporationPerDay float64

	// SigmaH and SigmaV are the horizontal and vertical Gaussian plume
	// scales [m] of the cloud each particle represents.
	SigmaH, SigmaV float64

	// Decays enables radioactive decay.
	Decays bool
}

// speciesRegistry is the static catalog of supported tracers.
var speciesRegistry = map[string]*Species{
	"cs137": {
		ID: "cs137", Name: "Cesium-137", Type: Radionuclide,
		HalfLifeDays: 30.17 * 365.25, BaseUnit: "GBq", DefaultTotal: 16.2e6,
		DiffusivityScale: 1.0, SigmaH: 15000, SigmaV: 50, Decays: true,
	},
	"cs134": {
		ID: "cs134", Name: "Cesium-134", Type: Radionuclide,
		HalfLifeDays: 2.065 * 365.25, BaseUnit: "GBq", DefaultTotal: 15.0e6,
		DiffusivityScale: 1.0, SigmaH: 15000, SigmaV: 50, Decays: true,
	},
	"h3": {
		ID: "h3", Name: "Tritiated water", Type: Radionuclide,
		HalfLifeDays: 12.32 * 365.25, BaseUnit: "GBq", DefaultTotal: 2.2e3,
		DiffusivityScale: 1.1, SigmaH: 20000, SigmaV: 100, Decays: true,
	},
	"i131": {
		ID: "i131", Name: "Iodine-131", Type: Radionuclide,
		HalfLifeDays: 8.02, BaseUnit: "GBq", DefaultTotal: 11.0e6,
		DiffusivityScale: 1.0, SigmaH: 12000, SigmaV: 50, Decays: true,
	},
	"sr90": {
		ID: "sr90", Name: "Strontium-90", Type: Radionuclide,
		HalfLifeDays: 28.8 * 365.25, BaseUnit: "GBq", DefaultTotal: 1.4e5,
		DiffusivityScale: 1.0, SigmaH: 15000, SigmaV: 50, Decays: true,
	},
	"crude": {
		ID: "crude", Name: "Crude oil", Type: Hydrocarbon,
		BaseUnit: "kg", DefaultTotal: 1.0e6,
		DiffusivityScale: 0.8, SettlingMPerDay: -5, EvaporationPerDay: 0.03,
		SigmaH: 5000, SigmaV: 10,
	},
	"microplastic": {
		ID: "microplastic", Name: "Microplastic", Type: Particulate,
		BaseUnit: "kg", DefaultTotal: 1.0e5,
		DiffusivityScale: 1.0, SettlingMPerDay: 2,
		SigmaH: 10000, SigmaV: 30,
	},
	"chem": {
		ID: "chem", Name: "Dissolved pollutant", Type: Pollutant,
		BaseUnit: "kg", DefaultTotal: 5.0e5,
		DiffusivityScale: 1.2, SigmaH: 15000, SigmaV: 60,
	},
	"plankton": {
		ID: "plankton", Name: "Plankton bloom", Type: Biological,
		BaseUnit: "kg", DefaultTotal: 1.0e4,
		DiffusivityScale: 1.0, SettlingMPerDay: -1,
		SigmaH: 8000, SigmaV: 40,
	},
}

// SpeciesByID returns the registry entry for id.
func SpeciesByID(id string) (*Species, error) {
	s, ok := speciesRegistry[id]
	if !ok {
		return nil, ConfigurationError{Problem: fmt.Sprintf("unknown tracer %q", id)}
	}
	return s, nil
}

// SpeciesIDs lists the registered tracer identifiers in sorted order.
func SpeciesIDs() []string {
	ids := make([]string, 0, len(speciesRegistry))
	for id := range speciesRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
