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

// Command plume is a command-line interface for the Plume ocean
// tracer-transport model.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/oceanmodel/plume"
	"github.com/oceanmodel/plume/plume/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the model's error taxonomy onto the documented batch
// exit codes.
func exitCode(err error) int {
	var (
		confErr    plume.ConfigurationError
		dataErr    plume.DataUnavailableError
		corruptErr plume.CorruptBinaryError
		formatErr  plume.UnsupportedFormatError
	)
	switch {
	case errors.Is(err, plume.ErrCanceled):
		return 5
	case errors.As(err, &corruptErr), errors.As(err, &formatErr):
		return 4
	case errors.As(err, &dataErr):
		return 3
	case errors.As(err, &confErr):
		return 2
	}
	return 1
}
