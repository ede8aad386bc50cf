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
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"
)

// A SimManipulator is one stage of the simulation pipeline. Manipulators
// compose into the InitFuncs, StepFuncs and CleanupFuncs of a Sim.
type SimManipulator func(*Sim) error

// A ParticleManipulator applies one physical process to one particle
// within a step. Particles are mutually independent, so manipulators may
// be applied to different particles concurrently.
type ParticleManipulator func(*Particle, *StepEnv)

// StepEnv carries the per-step context every particle update needs: the
// step length, the pinned archive days, and the random source. Parallel
// workers each get their own copy; the scratch counters are merged when
// the workers join.
type StepEnv struct {
	Sim  *Sim
	Dt   float64   // step length [days]
	Date time.Time // calendar day whose fields are pinned
	Rng  *rand.Rand

	Currents    *CurrentDay
	Diffusivity *DiffusivityDay // nil when no diffusivity archive is configured

	// scratch, merged after the particle loop
	onLand      int
	decayedMass float64
	retire      []*Particle
}

// Sim is one simulation run. Assemble it, then call Init once, and Step
// until Done (or Run to loop with cancellation checks between steps).
//
// Steps are atomic: emissions, transport, decay and concentration
// updates for every active particle finish before the next step begins,
// and within a step every particle sees the same archive day and δt.
type Sim struct {
	Species     *Species
	Schedule    *ReleaseSchedule
	Pool        *ParticlePool
	Currents    *CurrentField
	Diffusivity *DiffusivityField // optional
	Clock       *Clock            // optional; pre-render runs fixed-step

	Scheme           Scheme
	RK4              RK4Settings
	DiffusivityScale float64
	VerticalMixing   bool
	LandSearchRadius int
	CoastalPush      float64 // km/day

	StartDate time.Time
	EndDay    float64

	// Seed makes the run reproducible: a non-zero seed forces the
	// single-threaded particle loop and a fixed random sequence. Zero
	// seeds from the entropy source and updates particles in parallel.
	Seed int64

	InitFuncs    []SimManipulator
	StepFuncs    []SimManipulator
	CleanupFuncs []SimManipulator

	// Day is the simulation day at the start of the current step; Dt the
	// current step length.
	Day  float64
	Dt   float64
	Done bool

	StepCount int

	rng       *rand.Rand
	env       StepEnv
	startWall time.Time

	onLandGauge int
	decayedMass float64

	frameFns []func(*Frame)
}

// Init validates the configuration and runs the InitFuncs.
func (s *Sim) Init() error {
	if s.Species == nil {
		return ConfigurationError{Problem: "no tracer species selected"}
	}
	if s.Schedule == nil || s.Pool == nil || s.Currents == nil {
		return ConfigurationError{Problem: "simulation is missing schedule, pool, or current field"}
	}
	if s.EndDay <= 0 {
		return ConfigurationError{Problem: fmt.Sprintf("end day %g is not after start", s.EndDay)}
	}
	if err := s.Schedule.Finalize(s.Pool.Capacity()); err != nil {
		return err
	}
	if s.LandSearchRadius == 0 {
		s.LandSearchRadius = DefaultLandSearchRadius
	}
	if s.CoastalPush == 0 {
		s.CoastalPush = DefaultCoastalPush
	}
	if s.RK4 == (RK4Settings{}) {
		s.RK4 = DefaultRK4Settings
	}
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))
	s.startWall = time.Now()
	for _, f := range s.InitFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// Step runs the StepFuncs in order. Any error aborts the step; the run
// halts at the last completed step.
func (s *Sim) Step() error {
	for _, f := range s.StepFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	s.StepCount++
	return nil
}

// Run steps until Done, checking ctx between steps. Canceling returns
// ErrCanceled; an in-flight archive load completes first and its result
// is discarded with the rest of the run.
func (s *Sim) Run(ctx context.Context) error {
	for !s.Done {
		select {
		case <-ctx.Done():
			return ErrCanceled
		default:
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup runs the CleanupFuncs.
func (s *Sim) Cleanup() error {
	for _, f := range s.CleanupFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// Pause freezes the wall clock; subsequent steps simulate zero time.
func (s *Sim) Pause() {
	if s.Clock != nil {
		s.Clock.Pause()
	}
}

// Resume restarts a paused wall clock without replaying the pause.
func (s *Sim) Resume() {
	if s.Clock != nil {
		s.Clock.Resume()
	}
}

// Reset rewinds the run to simulation day 0 with an empty pool and a
// fresh release accumulator. The same configure-and-run sequence then
// reproduces the original trajectory (seeded runs exactly).
func (s *Sim) Reset() {
	if s.Clock != nil {
		s.Clock.Reset()
	}
	s.Pool.Reset()
	s.Schedule.ResetResidual()
	s.Day = 0
	s.Dt = 0
	s.Done = false
	s.StepCount = 0
	s.onLandGauge = 0
	s.decayedMass = 0
	if s.Seed != 0 {
		s.rng = rand.New(rand.NewSource(s.Seed))
	}
}

// OnFrame registers a callback invoked with a fresh snapshot after every
// step that includes the FrameNotify stage.
func (s *Sim) OnFrame(fn func(*Frame)) {
	s.frameFns = append(s.frameFns, fn)
}

// deterministic reports whether the particle loop must be sequential to
// keep the random sequence reproducible.
func (s *Sim) deterministic() bool { return s.Seed != 0 }

// OnLandGauge returns the number of particles frozen on land during the
// last step.
func (s *Sim) OnLandGauge() int { return s.onLandGauge }

// DecayedMass returns the cumulative mass removed by decay and
// evaporation, in the species base unit.
func (s *Sim) DecayedMass() float64 { return s.decayedMass }

// WallClockStep returns the stage that derives this step's δt from the
// simulation clock.
func WallClockStep(c *Clock) SimManipulator {
	return func(s *Sim) error {
		s.Dt = c.Step()
		s.Day = c.Day() - s.Dt
		return nil
	}
}

// FixedStep returns the stage that advances simulated time by a constant
// δt per step, for batch runs.
func FixedStep(dt float64) SimManipulator {
	return func(s *Sim) error {
		s.Dt = dt
		return nil
	}
}

// AdvanceDay returns the stage that moves the simulation day forward by
// the step just taken and raises Done at the configured end day.
func AdvanceDay() SimManipulator {
	return func(s *Sim) error {
		s.Day += s.Dt
		if s.Day >= s.EndDay {
			s.Done = true
		}
		return nil
	}
}

// PinFields returns the stage that loads (or re-activates) the archive
// day every particle update in this step will read. No particle update
// runs before the day is resident, so a missing or corrupt file halts
// the run here with the underlying error.
func PinFields() SimManipulator {
	return func(s *Sim) error {
		ctx := context.Background()
		cd, err := s.Currents.Day(ctx, s.Day)
		if err != nil {
			return err
		}
		var dd *DiffusivityDay
		if s.Diffusivity != nil {
			if dd, err = s.Diffusivity.Day(ctx, s.Day); err != nil {
				return err
			}
		}
		s.env = StepEnv{
			Sim:         s,
			Dt:          s.Dt,
			Date:        SimDate(s.StartDate, s.Day),
			Rng:         s.rng,
			Currents:    cd,
			Diffusivity: dd,
		}
		return nil
	}
}

// Emissions returns the stage that converts the release schedule's rate
// into new particles at the release site. Whole particles the pool
// cannot place (full pool, hostile coastline) are refunded to the
// schedule's accumulator rather than lost.
func Emissions() SimManipulator {
	return func(s *Sim) error {
		n := s.Schedule.Advance(s.Day, s.Dt)
		if n == 0 {
			return nil
		}
		emitted := s.Pool.Emit(s.env.Currents, s.rng, n, s.Species, s.Schedule.UnitsPerParticle())
		if emitted < n {
			s.Schedule.Refund(n - emitted)
		}
		return nil
	}
}

// Physics returns the stage that applies the given manipulators, in
// order, to every active particle. With a seeded run the loop is
// sequential and bit-reproducible; otherwise particles are striped
// across GOMAXPROCS workers, each with an independent random source.
func Physics(ms ...ParticleManipulator) SimManipulator {
	return func(s *Sim) error {
		if s.Dt == 0 {
			return nil
		}
		particles := s.Pool.Particles()
		if s.deterministic() || runtime.GOMAXPROCS(0) == 1 {
			env := s.env
			env.Rng = s.rng
			run(particles, &env, ms)
			s.mergeEnv(&env)
			return nil
		}

		nprocs := runtime.GOMAXPROCS(0)
		envs := make([]StepEnv, nprocs)
		var wg sync.WaitGroup
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			envs[pp] = s.env
			envs[pp].Rng = rand.New(rand.NewSource(s.rng.Int63()))
			go func(pp int) {
				defer wg.Done()
				env := &envs[pp]
				for i := pp; i < len(particles); i += nprocs {
					p := &particles[i]
					if !p.Active {
						continue
					}
					for _, m := range ms {
						m(p, env)
					}
				}
			}(pp)
		}
		wg.Wait()
		for pp := range envs {
			s.mergeEnv(&envs[pp])
		}
		return nil
	}
}

func run(particles []Particle, env *StepEnv, ms []ParticleManipulator) {
	for i := range particles {
		p := &particles[i]
		if !p.Active {
			continue
		}
		for _, m := range ms {
			m(p, env)
		}
	}
}

// mergeEnv folds a worker's scratch counters into the run totals and
// retires the particles the worker flagged.
func (s *Sim) mergeEnv(env *StepEnv) {
	s.onLandGauge += env.onLand
	s.decayedMass += env.decayedMass
	for _, p := range env.retire {
		s.Pool.Retire(p, RetireDecayed)
	}
}

// ResetGauges returns the stage that clears the per-step gauges before
// the particle loop.
func ResetGauges() SimManipulator {
	return func(s *Sim) error {
		s.onLandGauge = 0
		return nil
	}
}

// FrameNotify returns the stage that delivers a snapshot to the
// registered frame callbacks.
func FrameNotify() SimManipulator {
	return func(s *Sim) error {
		if len(s.frameFns) == 0 {
			return nil
		}
		f := s.Snapshot()
		for _, fn := range s.frameFns {
			fn(f)
		}
		return nil
	}
}

// SimulationStatus reports the state of a run after one step.
type SimulationStatus struct {
	Step     int
	Day      float64
	Date     time.Time
	Dt       float64
	Active   int
	Released int
	Decayed  int
	OnLand   int
	Walltime time.Duration
}

func (st *SimulationStatus) String() string {
	return fmt.Sprintf("Step %-5d day=%-8.3f date=%s Δt=%.4fd active=%-6d released=%-6d decayed=%-5d onland=%d walltime=%v",
		st.Step, st.Day, st.Date.Format("2006-01-02"), st.Dt,
		st.Active, st.Released, st.Decayed, st.OnLand,
		st.Walltime.Round(time.Second))
}

// Log returns the stage that reports simulation progress to c after each
// step.
func Log(c chan *SimulationStatus) SimManipulator {
	return func(s *Sim) error {
		c <- &SimulationStatus{
			Step:     s.StepCount,
			Day:      s.Day,
			Date:     SimDate(s.StartDate, s.Day),
			Dt:       s.Dt,
			Active:   s.Pool.ActiveCount(),
			Released: s.Pool.Released(),
			Decayed:  s.Pool.Decayed(),
			OnLand:   s.onLandGauge,
			Walltime: time.Since(s.startWall),
		}
		return nil
	}
}

// DefaultPhysics is the standard per-particle pipeline, in the order the
// model defines: horizontal transport, vertical motion, mass evolution,
// concentration, then bookkeeping.
func DefaultPhysics() []ParticleManipulator {
	return []ParticleManipulator{
		Transport(),
		VerticalMotion(),
		DecaySettling(),
		UpdateConcentration(),
		AgeAndTrail(),
	}
}

// DefaultStepFuncs assembles the standard step pipeline. timeStep is
// WallClockStep for interactive runs or FixedStep for batch runs.
func (s *Sim) DefaultStepFuncs(timeStep SimManipulator) []SimManipulator {
	return []SimManipulator{
		timeStep,
		PinFields(),
		ResetGauges(),
		Emissions(),
		Physics(DefaultPhysics()...),
		FrameNotify(),
		AdvanceDay(),
	}
}
