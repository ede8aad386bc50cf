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

import "time"

// Clock maps wall-clock time to simulation days. Each Step converts the
// real seconds since the previous Step into simulation days through the
// speed multiplier. Pausing halts the mapping; resuming rebases the
// wall-clock anchor so the pause interval never appears as a burst of
// simulated time.
type Clock struct {
	startDate time.Time
	speed     float64 // simulation days per real second

	now     func() time.Time // injectable for tests
	anchor  time.Time
	paused  bool
	pending float64 // days accrued by speed changes, not yet stepped
	day     float64
}

// NewClock creates a running clock at simulation day 0. startDate is the
// calendar date of day 0 and speed is in simulation days per real second.
func NewClock(startDate time.Time, speed float64) *Clock {
	c := &Clock{
		startDate: startDate,
		speed:     speed,
		now:       time.Now,
	}
	c.anchor = c.now()
	return c
}

// Step advances the clock and returns the elapsed simulation days since
// the previous step (zero while paused).
func (c *Clock) Step() float64 {
	if c.paused {
		return 0
	}
	n := c.now()
	dt := c.pending + n.Sub(c.anchor).Seconds()*c.speed
	c.pending = 0
	c.anchor = n
	c.day += dt
	return dt
}

// Pause freezes the clock. Steps while paused return zero.
func (c *Clock) Pause() {
	if c.paused {
		return
	}
	// Bank the time simulated so far in this step interval.
	n := c.now()
	c.pending += n.Sub(c.anchor).Seconds() * c.speed
	c.paused = true
}

// Resume restarts a paused clock from the current instant.
func (c *Clock) Resume() {
	if !c.paused {
		return
	}
	c.anchor = c.now()
	c.paused = false
}

// SetSpeed changes the speed multiplier. Real time already elapsed keeps
// the old speed; the change applies from this instant.
func (c *Clock) SetSpeed(speed float64) {
	if !c.paused {
		n := c.now()
		c.pending += n.Sub(c.anchor).Seconds() * c.speed
		c.anchor = n
	}
	c.speed = speed
}

// Reset returns the clock to simulation day 0 at the current instant,
// keeping the speed and pause state.
func (c *Clock) Reset() {
	c.day = 0
	c.pending = 0
	c.anchor = c.now()
}

// Day returns the current simulation day.
func (c *Clock) Day() float64 { return c.day }

// DateUTC returns the simulated calendar instant.
func (c *Clock) DateUTC() time.Time {
	return c.startDate.Add(time.Duration(c.day * 24 * float64(time.Hour)))
}

// SetNow injects a time source, for tests.
func (c *Clock) SetNow(now func() time.Time) {
	c.now = now
	c.anchor = now()
}
