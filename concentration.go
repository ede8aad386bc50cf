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

import "math"

// Each particle stands for a Gaussian cloud with the species' plume
// scales; its concentration is the remaining mass spread over that
// cloud's volume, post-processed per species taxonomy into the unit the
// species is conventionally reported in.

// concentrationScale rescales radionuclide concentrations for display
// compatibility with the upstream heatmap ramp. It has no physical
// derivation.
const concentrationScale = 1000

// Radionuclide concentration display clamp [Bq/m³].
const (
	minRadioConc = 1e-6
	maxRadioConc = 1e6
)

// slickThicknessM is the assumed oil-slick thickness for expressing a
// surface hydrocarbon particle as an areal density.
const slickThicknessM = 1e-3

// waterDensity is the reference seawater density [kg/m³] for ppm/ppb.
const waterDensity = 1000.0

// PlumeVolume returns the effective mixing volume [m³] represented by
// one particle of sp, floored at 10⁹ m³ so early-plume concentrations
// stay finite.
func PlumeVolume(sp *Species) float64 {
	v := math.Pow(2*math.Pi, 1.5) * sp.SigmaH * sp.SigmaH * sp.SigmaV
	if v < 1e9 {
		v = 1e9
	}
	return v
}

// Concentration computes the reported concentration for a particle of sp
// carrying mass (in the species base unit) at depthKm:
//
//	radionuclide  Bq/m³ (display-scaled and clamped)
//	hydrocarbon   kg/m² at the surface, ppm below
//	particulate   mg/L
//	pollutant     ppb
//	biological    organisms/m³
func Concentration(sp *Species, mass, depthKm float64) float64 {
	vol := PlumeVolume(sp)
	switch sp.Type {
	case Radionuclide:
		// Base unit is GBq; the reported unit is Bq/m³.
		c := mass * 1e9 / vol * concentrationScale
		if c < minRadioConc {
			return minRadioConc
		}
		if c > maxRadioConc {
			return maxRadioConc
		}
		return c
	case Hydrocarbon:
		if depthKm < 0.01 {
			return mass / vol * slickThicknessM
		}
		return mass / vol / waterDensity * 1e6
	case Particulate:
		return mass / vol * 1000
	case Pollutant:
		return mass / (vol * waterDensity) * 1e9
	case Biological:
		return mass / vol
	}
	return mass / vol
}
