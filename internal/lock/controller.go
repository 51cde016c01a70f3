package lock

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pion/logging"

	"github.com/sweeney/keypad-lock/internal/keypad"
)

// DefaultSecret is the factory code.
const DefaultSecret = "0102"

// Config holds everything the controller needs besides hardware.
type Config struct {
	Secret        string
	Capacity      int
	Profile       Profile
	FailureFlash  time.Duration
	ActivityPulse time.Duration
}

// DefaultConfig returns the factory configuration.
func DefaultConfig() Config {
	return Config{
		Secret:        DefaultSecret,
		Capacity:      DefaultCapacity,
		Profile:       DefaultProfile(),
		FailureFlash:  DefaultFailureFlash,
		ActivityPulse: DefaultActivityPulse,
	}
}

// Validate checks the secret, capacity and timings.
func (c Config) Validate() error {
	if c.Secret == "" {
		return errors.New("lock config: secret is empty")
	}
	for _, r := range c.Secret {
		k := keypad.Key(r)
		if !k.Valid() || k.IsControl() {
			return fmt.Errorf("lock config: secret contains %q, which cannot be entered", r)
		}
	}
	if c.Capacity < len(c.Secret) {
		return fmt.Errorf("lock config: capacity %d is shorter than the secret", c.Capacity)
	}
	if c.FailureFlash <= 0 || c.ActivityPulse <= 0 {
		return errors.New("lock config: indicator timings must be positive")
	}
	return c.Profile.Validate()
}

// Hardware bundles the outputs and sleeper the controller drives.
type Hardware struct {
	Direction Output
	Step      Output
	Success   Output
	Failure   Output
	Activity  Output
	Sleeper   Sleeper
}

// Controller is the keypad lock state machine. Its only state that affects
// behaviour is the password buffer; counters are for reporting.
// Not safe for concurrent use.
type Controller struct {
	secret string
	buf    *Buffer
	ind    *Indicators
	seq    *Sequencer
	log    logging.LeveledLogger

	counts        Counts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewController validates cfg and wires the controller to hw. A nil
// loggerFactory discards diagnostics.
func NewController(cfg Config, hw Hardware, startTime time.Time, loggerFactory logging.LoggerFactory) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw.Direction == nil || hw.Step == nil || hw.Success == nil || hw.Failure == nil || hw.Sleeper == nil {
		return nil, errors.New("lock: hardware outputs and sleeper are required")
	}
	if hw.Activity == nil {
		hw.Activity = hw.Failure
	}

	if loggerFactory == nil {
		f := logging.NewDefaultLoggerFactory()
		f.Writer = io.Discard
		loggerFactory = f
	}
	log := loggerFactory.NewLogger("lock")

	ind := NewIndicators(hw.Success, hw.Failure, hw.Activity, hw.Sleeper, cfg.FailureFlash, cfg.ActivityPulse, log)
	seq := NewSequencer(hw.Direction, hw.Step, ind, hw.Sleeper, cfg.Profile, log)

	return &Controller{
		secret:        cfg.Secret,
		buf:           NewBuffer(cfg.Capacity),
		ind:           ind,
		seq:           seq,
		log:           log,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}, nil
}

// OnActuatorState registers fn to be called at every unlock cycle phase
// change. fn runs on the controller's goroutine.
func (c *Controller) OnActuatorState(fn func(ActuatorState)) {
	c.seq.onState = fn
}

// Handle processes one key press to completion. A granted submit runs the
// whole unlock cycle before Handle returns. Keys outside the alphabet are
// ignored and ok is false.
func (c *Controller) Handle(key keypad.Key, now time.Time) (ev Event, ok bool) {
	if !key.Valid() {
		c.log.Warnf("ignoring unknown key %q", rune(key))
		return Event{}, false
	}

	c.log.Infof("key pressed: %s", key)
	c.logErr("activity LED", c.ind.PulseActivity())

	ev = Event{Timestamp: now, Key: key}

	switch key {
	case keypad.KeyReset:
		c.buf.Clear()
		c.counts.Resets++
		ev.Type = EventReset
		c.log.Info("reset pressed, password cleared")

	case keypad.KeySubmit:
		ev.Length = c.buf.Len()
		if Validate(c.buf.Contents(), c.secret) {
			c.counts.Granted++
			ev.Type = EventGranted
			c.log.Info("correct password")
			c.logErr("unlock cycle", c.seq.RunUnlockCycle())
		} else {
			c.counts.Denied++
			ev.Type = EventDenied
			c.log.Info("incorrect password, try again")
			c.logErr("failure LED", c.ind.FlashFailure())
		}
		c.buf.Clear()

	default:
		if c.buf.Append(rune(key)) {
			c.counts.Keys++
			ev.Type = EventKey
		} else {
			c.counts.Dropped++
			ev.Type = EventKeyDropped
			c.log.Warnf("password buffer full (%d), key dropped", c.buf.Cap())
		}
		ev.Length = c.buf.Len()
	}

	return ev, true
}

func (c *Controller) logErr(what string, err error) {
	if err != nil {
		c.log.Errorf("%s: %v", what, err)
	}
}

// BufferLen returns the number of keys entered since the last reset or submit.
func (c *Controller) BufferLen() int {
	return c.buf.Len()
}

// Counts returns a copy of the event counters.
func (c *Controller) Counts() Counts {
	return c.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}
