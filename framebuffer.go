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
	"context"
	"sort"
)

// Pre-render defaults: the fixed step of the batch loop and the
// simulated interval between recorded frames.
const (
	DefaultPrerenderStep   = 0.1 // days
	DefaultRecordInterval  = 1.0 // days
	progressReportInterval = 5   // percent
)

// Progress is one coarse progress report from a pre-render run.
type Progress struct {
	Percent int
	Message string
}

// FrameBuffer records snapshots at a fixed simulated interval and serves
// them back by simulation day for playback. Frames are strictly ordered
// by SimDay.
type FrameBuffer struct {
	frames []*Frame
}

// Add appends f, which must not be earlier than the last recorded frame.
func (fb *FrameBuffer) Add(f *Frame) {
	fb.frames = append(fb.frames, f)
}

// Len returns the number of recorded frames.
func (fb *FrameBuffer) Len() int { return len(fb.frames) }

// Frames returns the recorded frames in simulation-day order.
func (fb *FrameBuffer) Frames() []*Frame { return fb.frames }

// Bracket returns the recorded frames on either side of simDay for
// caller-side interpolation. Before the first frame both returns are the
// first frame; past the last, both are the last.
func (fb *FrameBuffer) Bracket(simDay float64) (lo, hi *Frame) {
	if len(fb.frames) == 0 {
		return nil, nil
	}
	i := sort.Search(len(fb.frames), func(i int) bool {
		return fb.frames[i].SimDay >= simDay
	})
	if i == 0 {
		return fb.frames[0], fb.frames[0]
	}
	if i == len(fb.frames) {
		last := fb.frames[len(fb.frames)-1]
		return last, last
	}
	return fb.frames[i-1], fb.frames[i]
}

// FrameAt returns a position-interpolated frame for continuous playback.
// Particle positions are blended linearly between the bracketing frames,
// matched by particle ID; particles present in only one bracket keep
// that bracket's position. Stats and concentrations come from the lower
// bracket.
func (fb *FrameBuffer) FrameAt(simDay float64) *Frame {
	lo, hi := fb.Bracket(simDay)
	if lo == nil {
		return nil
	}
	if lo == hi || hi.SimDay == lo.SimDay {
		return lo
	}
	t := (simDay - lo.SimDay) / (hi.SimDay - lo.SimDay)

	byID := make(map[int]*ParticleRecord, len(hi.Particles))
	for i := range hi.Particles {
		byID[hi.Particles[i].ID] = &hi.Particles[i]
	}
	out := &Frame{
		SimDay:    simDay,
		DateUTC:   lo.DateUTC,
		Particles: make([]ParticleRecord, len(lo.Particles)),
		Stats:     lo.Stats,
	}
	for i := range lo.Particles {
		rec := lo.Particles[i]
		if h, ok := byID[rec.ID]; ok {
			rec.XKm += (h.XKm - rec.XKm) * t
			rec.YKm += (h.YKm - rec.YKm) * t
			rec.DepthKm += (h.DepthKm - rec.DepthKm) * t
		}
		out.Particles[i] = rec
	}
	return out
}

// PrerenderOptions configures a batch run.
type PrerenderOptions struct {
	Step           float64 // fixed δt [days]; DefaultPrerenderStep if zero
	RecordInterval float64 // days between frames; DefaultRecordInterval if zero

	// Progress, when non-nil, receives coarse percentage reports.
	Progress chan<- Progress
}

// Prerender runs the simulation to its end day in a fixed-step loop,
// recording a frame every RecordInterval simulated days. Cancellation is
// honored between recorded frames; a canceled run returns ErrCanceled
// and the frames recorded so far.
func (s *Sim) Prerender(ctx context.Context, opts PrerenderOptions) (*FrameBuffer, error) {
	step := opts.Step
	if step <= 0 {
		step = DefaultPrerenderStep
	}
	interval := opts.RecordInterval
	if interval <= 0 {
		interval = DefaultRecordInterval
	}
	s.StepFuncs = s.DefaultStepFuncs(FixedStep(step))

	fb := &FrameBuffer{}
	fb.Add(s.Snapshot()) // initial conditions
	nextRecord := interval
	lastPercent := -1

	for !s.Done {
		if err := s.Step(); err != nil {
			return fb, err
		}
		if s.Day+1e-9 < nextRecord {
			continue
		}
		// A frame boundary: record, report, and poll for cancellation.
		fb.Add(s.Snapshot())
		nextRecord += interval

		if pct := int(s.Day / s.EndDay * 100); pct >= lastPercent+progressReportInterval {
			lastPercent = pct
			report(opts.Progress, pct, SimDate(s.StartDate, s.Day).Format("2006-01-02"))
		}
		select {
		case <-ctx.Done():
			return fb, ErrCanceled
		default:
		}
	}
	report(opts.Progress, 100, "complete")
	return fb, nil
}

func report(c chan<- Progress, pct int, msg string) {
	if c == nil {
		return
	}
	c <- Progress{Percent: pct, Message: msg}
}
