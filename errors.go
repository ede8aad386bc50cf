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
	"errors"
	"fmt"
)

// ConfigurationError describes an invalid simulation configuration: a bad
// release phase, an unknown tracer, or a non-ascending date range. A run
// with a configuration error never starts.
type ConfigurationError struct {
	Problem string
}

func (e ConfigurationError) Error() string {
	return "plume: invalid configuration: " + e.Problem
}

// DataUnavailableError indicates that a required archive file or metadata
// document is missing or unreadable.
type DataUnavailableError struct {
	Path string
	Err  error
}

func (e DataUnavailableError) Error() string {
	return fmt.Sprintf("plume: data unavailable: %s: %v", e.Path, e.Err)
}

func (e DataUnavailableError) Unwrap() error { return e.Err }

// UnsupportedFormatError indicates that an archive file declares a format
// version this model does not understand.
type UnsupportedFormatError struct {
	Path    string
	Version int32
}

func (e UnsupportedFormatError) Error() string {
	return fmt.Sprintf("plume: %s: unsupported format version %d", e.Path, e.Version)
}

// CorruptBinaryError indicates that an archive file is truncated or that a
// payload offset falls outside the file.
type CorruptBinaryError struct {
	Path   string
	Reason string
}

func (e CorruptBinaryError) Error() string {
	return fmt.Sprintf("plume: corrupt binary %s: %s", e.Path, e.Reason)
}

// ErrCanceled is returned by Run and Prerender when the caller cancels the
// simulation between steps.
var ErrCanceled = errors.New("plume: simulation canceled")
