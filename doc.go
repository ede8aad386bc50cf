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

// Package plume implements a Lagrangian particle-transport model for
// passive ocean tracers. Particles released from a point source are
// advected by pre-computed daily ocean-current fields, dispersed by a
// stochastic random walk parameterized from daily eddy-kinetic-energy
// diffusivity fields, and subjected to species-specific decay, settling,
// and evaporation. The package provides the simulation engine; rendering
// and user interfaces are external consumers of the snapshot API.
package plume

// Version gives the model version.
const Version = "1.1.0"
