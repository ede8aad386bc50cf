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

	"github.com/oceanmodel/plume"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string

	// Config holds the global configuration data.
	Config *ConfigData

	log = logrus.StandardLogger()
)

// RootCmd is the main command.
var RootCmd = &cobra.Command{
	Use:           "plume",
	Short:         "A Lagrangian ocean tracer-transport model.",
	Long:          "Plume simulates the drift, dispersal and decay of tracers released into the ocean.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return Startup(configFile)
	},
}

// Startup reads the configuration file and prepares logging.
func Startup(configFile string) error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	var err error
	Config, err = ReadConfigFile(configFile)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"tracer":  Config.Tracer,
		"release": fmt.Sprintf("(%.3f, %.3f)", Config.ReleaseLon, Config.ReleaseLat),
		"start":   Config.StartDate,
		"end":     Config.EndDate,
	}).Infof("plume v%s", plume.Version)
	return nil
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "./plume.toml",
		"configuration file location")
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(tracersCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Plume",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plume v%s\n", plume.Version)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

var tracersCmd = &cobra.Command{
	Use:   "tracers",
	Short: "List the supported tracer species",
	Run: func(cmd *cobra.Command, args []string) {
		for _, id := range plume.SpeciesIDs() {
			sp, _ := plume.SpeciesByID(id)
			fmt.Printf("%-14s %-20s %s (default total %g %s)\n",
				sp.ID, sp.Name, sp.Type, sp.DefaultTotal, sp.BaseUnit)
		}
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}
