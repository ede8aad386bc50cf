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

import "github.com/x448/float16"

// The diffusivity archive stores K in IEEE-754 binary16 to halve the
// on-disk and resident size; values are widened to float32 on lookup.
// Go has no 16-bit float primitive, so conversion goes through the
// float16 package, which implements the full bit layout including
// denormals, infinities and NaN.

// halfToFloat decodes one stored binary16 value.
func halfToFloat(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

// floatToHalf encodes a float32 to the nearest binary16 value,
// round-to-nearest-even. Decoding the result reproduces the stored
// archive value exactly.
func floatToHalf(v float32) uint16 {
	return float16.Fromfloat32(v).Bits()
}
