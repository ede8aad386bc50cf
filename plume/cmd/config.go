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

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/oceanmodel/plume"
)

// ConfigData holds a Plume run configuration.
type ConfigData struct {
	// CurrentsMetadata is the path to the current archive's metadata
	// document. Daily binary files are located relative to it. The path
	// can include environment variables.
	CurrentsMetadata string

	// DiffusivityMetadata is the path to the EKE diffusivity archive's
	// metadata document. If empty, the model runs with the minimum
	// background diffusivity everywhere. The path can include
	// environment variables.
	DiffusivityMetadata string

	// DiffusivityCoords is the path to the diffusivity archive's shared
	// coordinate file (eke_coords.bin). Required when
	// DiffusivityMetadata is set. The path can include environment
	// variables.
	DiffusivityCoords string

	// Tracer selects the released species from the tracer registry (see
	// `plume tracers`).
	Tracer string

	// ReleaseLon and ReleaseLat give the release site in degrees.
	ReleaseLon, ReleaseLat float64

	// StartDate and EndDate bound the simulated period, format
	// "YYYY-MM-DD". EndDate must follow StartDate.
	StartDate string
	EndDate   string

	// ParticleCapacity is the size of the particle pool.
	ParticleCapacity int

	// RK4 selects fourth-order advection; false selects Euler.
	RK4 bool

	// DiffusivityScale multiplies the horizontal random walk. Zero
	// disables horizontal diffusion entirely.
	DiffusivityScale float64

	// VerticalMixing enables the vertical random walk, Ekman pumping and
	// convective terms.
	VerticalMixing bool

	// SimulationSpeed is the interactive-clock multiplier in simulated
	// days per wall-clock second.
	SimulationSpeed float64

	// Seed fixes the random sequence for reproducible runs. Zero draws
	// a fresh seed from the entropy source.
	Seed int64

	// DayCacheSize is the number of archive days held resident per
	// field.
	DayCacheSize int

	// OutputFile is the path of the NetCDF concentration-raster output
	// written by prerender. The path can include environment variables.
	OutputFile string

	// Phases lists the release phases. If empty, a single phase covering
	// the whole run releases the tracer's default total.
	Phases []PhaseConfig

	// Raster describes the output aggregation grid.
	Raster RasterConfig

	start, end time.Time
}

// PhaseConfig is one release interval in the configuration file.
type PhaseConfig struct {
	StartDay, EndDay float64
	Total            float64
	Unit             string
}

// RasterConfig mirrors plume.RasterConfig for the configuration file.
type RasterConfig struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
	NLon, NLat     int
}

// ReadConfigFile reads and parses a TOML configuration file.
func ReadConfigFile(filename string) (*ConfigData, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, plume.ConfigurationError{Problem: fmt.Sprintf(
			"the configuration file %q does not appear to exist", filename)}
	}
	config := new(ConfigData)
	if _, err := toml.Decode(string(b), config); err != nil {
		return nil, plume.ConfigurationError{Problem: fmt.Sprintf(
			"parsing configuration file: %v", err)}
	}

	config.CurrentsMetadata = os.ExpandEnv(config.CurrentsMetadata)
	config.DiffusivityMetadata = os.ExpandEnv(config.DiffusivityMetadata)
	config.DiffusivityCoords = os.ExpandEnv(config.DiffusivityCoords)
	config.OutputFile = os.ExpandEnv(config.OutputFile)

	if config.CurrentsMetadata == "" {
		return nil, plume.ConfigurationError{Problem: "CurrentsMetadata is not set"}
	}
	if config.DiffusivityMetadata != "" && config.DiffusivityCoords == "" {
		return nil, plume.ConfigurationError{
			Problem: "DiffusivityCoords must be set when DiffusivityMetadata is"}
	}
	if config.Tracer == "" {
		return nil, plume.ConfigurationError{Problem: "Tracer is not set"}
	}
	if config.start, err = time.Parse("2006-01-02", config.StartDate); err != nil {
		return nil, plume.ConfigurationError{Problem: fmt.Sprintf(
			"StartDate %q: want YYYY-MM-DD", config.StartDate)}
	}
	if config.end, err = time.Parse("2006-01-02", config.EndDate); err != nil {
		return nil, plume.ConfigurationError{Problem: fmt.Sprintf(
			"EndDate %q: want YYYY-MM-DD", config.EndDate)}
	}
	if !config.end.After(config.start) {
		return nil, plume.ConfigurationError{Problem: fmt.Sprintf(
			"date range %s – %s is not ascending", config.StartDate, config.EndDate)}
	}
	if config.ParticleCapacity <= 0 {
		config.ParticleCapacity = 10000
	}
	if config.SimulationSpeed <= 0 {
		config.SimulationSpeed = 1
	}
	return config, nil
}

// Days returns the simulated duration in days.
func (c *ConfigData) Days() float64 {
	return c.end.Sub(c.start).Hours() / 24
}

// buildSim assembles a Sim from the configuration.
func buildSim(c *ConfigData) (*plume.Sim, error) {
	sp, err := plume.SpeciesByID(c.Tracer)
	if err != nil {
		return nil, err
	}

	currents, err := plume.NewCurrentField(c.CurrentsMetadata, c.start, c.DayCacheSize)
	if err != nil {
		return nil, err
	}
	if !currents.Meta().Covers(c.start, c.end) {
		return nil, plume.DataUnavailableError{
			Path: c.CurrentsMetadata,
			Err: fmt.Errorf("current archive does not cover %s – %s (have %s – %s)",
				c.StartDate, c.EndDate,
				currents.Meta().First().Format("2006-01-02"),
				currents.Meta().Last().Format("2006-01-02")),
		}
	}
	var diffusivity *plume.DiffusivityField
	if c.DiffusivityMetadata != "" {
		diffusivity, err = plume.NewDiffusivityField(
			c.DiffusivityMetadata, c.DiffusivityCoords, c.start, c.DayCacheSize)
		if err != nil {
			return nil, err
		}
	}

	schedule := plume.NewReleaseSchedule(sp)
	if len(c.Phases) == 0 {
		if err := schedule.AddPhase(0, c.Days(), sp.DefaultTotal, sp.BaseUnit); err != nil {
			return nil, err
		}
	}
	for _, ph := range c.Phases {
		if err := schedule.AddPhase(ph.StartDay, ph.EndDay, ph.Total, ph.Unit); err != nil {
			return nil, err
		}
	}

	ref := geom.Point{X: c.ReleaseLon, Y: c.ReleaseLat}
	scheme := plume.Euler
	if c.RK4 {
		scheme = plume.RK4
	}
	s := &plume.Sim{
		Species:          sp,
		Schedule:         schedule,
		Pool:             plume.NewParticlePool(c.ParticleCapacity, ref),
		Currents:         currents,
		Diffusivity:      diffusivity,
		Scheme:           scheme,
		DiffusivityScale: c.DiffusivityScale,
		VerticalMixing:   c.VerticalMixing,
		StartDate:        c.start,
		EndDay:           c.Days(),
		Seed:             c.Seed,
	}
	return s, nil
}

func rasterConfig(c *ConfigData) plume.RasterConfig {
	return plume.RasterConfig{
		MinLon: c.Raster.MinLon, MaxLon: c.Raster.MaxLon,
		MinLat: c.Raster.MinLat, MaxLat: c.Raster.MaxLat,
		NLon: c.Raster.NLon, NLat: c.Raster.NLat,
	}
}
