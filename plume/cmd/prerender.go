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
	"context"
	"os"
	"os/signal"

	"github.com/ctessum/geom"
	"github.com/oceanmodel/plume"
	"github.com/spf13/cobra"
)

var (
	prerenderStep     float64
	prerenderInterval float64
)

func init() {
	RootCmd.AddCommand(prerenderCmd)
	prerenderCmd.Flags().Float64Var(&prerenderStep, "step", plume.DefaultPrerenderStep,
		"fixed step length in simulated days")
	prerenderCmd.Flags().Float64Var(&prerenderInterval, "interval", plume.DefaultRecordInterval,
		"simulated days between recorded frames")
}

var prerenderCmd = &cobra.Command{
	Use:   "prerender",
	Short: "Run the model to the end date in batch mode",
	Long: "Run the whole simulated period in a fixed-step loop, record " +
		"periodic particle snapshots, and write the aggregated " +
		"concentration rasters to a NetCDF file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Config.OutputFile == "" {
			return plume.ConfigurationError{Problem: "OutputFile is not set"}
		}
		s, err := buildSim(Config)
		if err != nil {
			return err
		}
		if err := s.Init(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		progress := make(chan plume.Progress)
		go func() {
			for p := range progress {
				log.Infof("%3d%% %s", p.Percent, p.Message)
			}
		}()

		fb, err := s.Prerender(ctx, plume.PrerenderOptions{
			Step:           prerenderStep,
			RecordInterval: prerenderInterval,
			Progress:       progress,
		})
		close(progress)
		if err != nil {
			return err
		}

		ref := geom.Point{X: Config.ReleaseLon, Y: Config.ReleaseLat}
		if err := plume.WriteRasterNetCDF(
			Config.OutputFile, ref, rasterConfig(Config), fb.Frames(), s.Species); err != nil {
			return err
		}

		last := fb.Frames()[fb.Len()-1]
		log.WithField("frames", fb.Len()).
			WithField("released", last.Stats.ReleasedTotal).
			WithField("active", last.Stats.ActiveCount).
			WithField("decayed", last.Stats.DecayedTotal).
			Infof("prerender complete: %s", Config.OutputFile)
		return s.Cleanup()
	},
}
