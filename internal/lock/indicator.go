package lock

import (
	"errors"
	"time"

	"github.com/pion/logging"
)

// Indicator timings.
const (
	DefaultFailureFlash  = 1500 * time.Millisecond
	DefaultActivityPulse = 25 * time.Millisecond
)

// Indicators drives the success, failure and activity LEDs.
// Failure and activity may be the same physical output.
type Indicators struct {
	success  Output
	failure  Output
	activity Output
	sleeper  Sleeper

	failureFlash  time.Duration
	activityPulse time.Duration

	log logging.LeveledLogger
}

// NewIndicators creates an IndicatorController over the given outputs.
func NewIndicators(success, failure, activity Output, sleeper Sleeper, failureFlash, activityPulse time.Duration, log logging.LeveledLogger) *Indicators {
	return &Indicators{
		success:       success,
		failure:       failure,
		activity:      activity,
		sleeper:       sleeper,
		failureFlash:  failureFlash,
		activityPulse: activityPulse,
		log:           log,
	}
}

// FlashFailure holds the failure LED on for the failure flash period.
func (i *Indicators) FlashFailure() error {
	i.log.Info("failure LED on")
	err := i.pulse(i.failure, i.failureFlash)
	i.log.Info("failure LED off")
	return err
}

// PulseActivity blinks the activity LED to acknowledge a key press.
func (i *Indicators) PulseActivity() error {
	return i.pulse(i.activity, i.activityPulse)
}

// SetSuccess sets the success LED.
func (i *Indicators) SetSuccess(on bool) error {
	if on {
		i.log.Info("success LED on")
	} else {
		i.log.Info("success LED off")
	}
	return i.success.Set(on)
}

// pulse always drives out low again, even if raising it failed.
func (i *Indicators) pulse(out Output, d time.Duration) error {
	errOn := out.Set(true)
	i.sleeper.Sleep(d)
	errOff := out.Set(false)
	return errors.Join(errOn, errOff)
}
