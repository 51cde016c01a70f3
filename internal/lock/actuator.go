package lock

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pion/logging"
)

// Motion defaults for the stock latch mechanism.
const (
	DefaultStepsPerRevolution = 200
	DefaultUnlockRevolutions  = 0.615
	DefaultLockRevolutions    = 0.615
	DefaultUnlockHalfPeriod   = 1500 * time.Microsecond
	DefaultLockHalfPeriod     = 2000 * time.Microsecond
	DefaultDwell              = 5000 * time.Millisecond
)

// Direction is the motor direction. Unlock drives the direction line low,
// lock drives it high.
type Direction int

const (
	DirectionUnlock Direction = iota
	DirectionLock
)

func (d Direction) String() string {
	if d == DirectionLock {
		return "lock"
	}
	return "unlock"
}

func (d Direction) level() bool {
	return d == DirectionLock
}

// Phase is one directed motion: Steps pulses, each high for HalfPeriod and
// then low for HalfPeriod.
type Phase struct {
	Direction  Direction
	Steps      int
	HalfPeriod time.Duration
}

// Duration returns how long the phase takes.
func (p Phase) Duration() time.Duration {
	return time.Duration(2*p.Steps) * p.HalfPeriod
}

// Profile is the full unlock cycle: unlock motion, dwell, lock motion.
type Profile struct {
	Unlock Phase
	Dwell  time.Duration
	Lock   Phase
}

// Duration returns how long the whole cycle takes.
func (p Profile) Duration() time.Duration {
	return p.Unlock.Duration() + p.Dwell + p.Lock.Duration()
}

// StepsForRevolutions converts a revolution count to whole motor steps.
func StepsForRevolutions(revolutions float64, stepsPerRevolution int) int {
	return int(math.Round(revolutions * float64(stepsPerRevolution)))
}

// DefaultProfile returns the stock motion profile: 123 steps each way,
// unlocking at a 1500us half period and relocking slower at 2000us, with a
// five second dwell between.
func DefaultProfile() Profile {
	return Profile{
		Unlock: Phase{
			Direction:  DirectionUnlock,
			Steps:      StepsForRevolutions(DefaultUnlockRevolutions, DefaultStepsPerRevolution),
			HalfPeriod: DefaultUnlockHalfPeriod,
		},
		Dwell: DefaultDwell,
		Lock: Phase{
			Direction:  DirectionLock,
			Steps:      StepsForRevolutions(DefaultLockRevolutions, DefaultStepsPerRevolution),
			HalfPeriod: DefaultLockHalfPeriod,
		},
	}
}

// Validate checks the profile can be run.
func (p Profile) Validate() error {
	for _, ph := range []Phase{p.Unlock, p.Lock} {
		if ph.Steps < 0 {
			return fmt.Errorf("profile: %s steps %d is negative", ph.Direction, ph.Steps)
		}
		if ph.HalfPeriod <= 0 {
			return fmt.Errorf("profile: %s half period must be positive", ph.Direction)
		}
	}
	if p.Unlock.Direction == p.Lock.Direction {
		return errors.New("profile: unlock and lock phases must turn opposite ways")
	}
	if p.Dwell < 0 {
		return errors.New("profile: dwell is negative")
	}
	return nil
}

// Sequencer runs the unlock cycle on the stepper driver.
type Sequencer struct {
	direction Output
	step      Output
	ind       *Indicators
	sleeper   Sleeper
	profile   Profile
	log       logging.LeveledLogger

	onState func(ActuatorState)
}

// NewSequencer creates an ActuatorSequencer.
func NewSequencer(direction, step Output, ind *Indicators, sleeper Sleeper, profile Profile, log logging.LeveledLogger) *Sequencer {
	return &Sequencer{
		direction: direction,
		step:      step,
		ind:       ind,
		sleeper:   sleeper,
		profile:   profile,
		log:       log,
	}
}

// RunUnlockCycle unlocks, holds open for the dwell, then relocks. It blocks
// for the whole cycle and cannot be interrupted. Output errors do not stop
// the sequence; the lock phase always runs and all errors are returned
// together at the end.
func (s *Sequencer) RunUnlockCycle() error {
	var errs []error
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	s.report(ActuatorUnlocking)
	keep(s.ind.SetSuccess(true))
	s.log.Info("turning anti-clockwise, unlocking")
	keep(s.runPhase(s.profile.Unlock))

	s.report(ActuatorOpen)
	s.log.Infof("holding open for %v", s.profile.Dwell)
	s.sleeper.Sleep(s.profile.Dwell)

	keep(s.ind.SetSuccess(false))
	s.report(ActuatorLocking)
	s.log.Info("turning clockwise, locking")
	keep(s.runPhase(s.profile.Lock))

	s.report(ActuatorIdle)
	return errors.Join(errs...)
}

func (s *Sequencer) runPhase(p Phase) error {
	var first error
	failed := 0

	if err := s.direction.Set(p.Direction.level()); err != nil {
		first = err
		failed++
	}

	for i := 0; i < p.Steps; i++ {
		errHigh := s.step.Set(true)
		s.sleeper.Sleep(p.HalfPeriod)
		errLow := s.step.Set(false)
		s.sleeper.Sleep(p.HalfPeriod)

		if err := errors.Join(errHigh, errLow); err != nil {
			if first == nil {
				first = err
			}
			failed++
		}
	}

	if first != nil {
		return fmt.Errorf("%s phase: %d output writes failed: %w", p.Direction, failed, first)
	}
	return nil
}

func (s *Sequencer) report(state ActuatorState) {
	s.log.Debugf("actuator %s", state)
	if s.onState != nil {
		s.onState(state)
	}
}
