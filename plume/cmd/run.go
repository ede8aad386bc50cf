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
	"time"

	"github.com/oceanmodel/plume"
	"github.com/spf13/cobra"
)

// stepInterval is how often the interactive loop advances the wall-clock
// simulation.
const stepInterval = 200 * time.Millisecond

func init() {
	RootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model with the interactive wall clock",
	Long: "Run the simulation in real time, scaled by SimulationSpeed, " +
		"logging a status line per step until the configured end date.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildSim(Config)
		if err != nil {
			return err
		}
		clock := plume.NewClock(s.StartDate, Config.SimulationSpeed)
		s.Clock = clock
		s.StepFuncs = s.DefaultStepFuncs(plume.WallClockStep(clock))

		cLog := make(chan *plume.SimulationStatus)
		s.StepFuncs = append(s.StepFuncs, plume.Log(cLog))
		go func() {
			for msg := range cLog {
				log.Info(msg.String())
			}
		}()

		if err := s.Init(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		ticker := time.NewTicker(stepInterval)
		defer ticker.Stop()
		for !s.Done {
			select {
			case <-ctx.Done():
				return plume.ErrCanceled
			case <-ticker.C:
			}
			if err := s.Step(); err != nil {
				return err
			}
		}
		return s.Cleanup()
	},
}
