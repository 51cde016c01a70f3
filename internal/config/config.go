// Package config holds the daemon's settings. Values come from command-line
// flags, then KEYPAD_LOCK_* environment variables, then an optional env file,
// then the defaults below.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/sweeney/keypad-lock/internal/console"
	"github.com/sweeney/keypad-lock/internal/gpio"
	"github.com/sweeney/keypad-lock/internal/keypad"
	"github.com/sweeney/keypad-lock/internal/lock"
)

// EnvPrefix is prepended to upper-cased flag names to form variable names,
// so --pin-step becomes KEYPAD_LOCK_PIN_STEP.
const EnvPrefix = "KEYPAD_LOCK_"

// DefaultEnvFile is read when present. A missing file is not an error.
const DefaultEnvFile = "/etc/keypad-lock.env"

// SharedActivityPin means the activity pulse uses the failure LED.
const SharedActivityPin = -1

// Config is everything the daemon can be told at startup.
type Config struct {
	Secret   string
	Capacity int

	Chip         string
	RowPins      []int
	ColPins      []int
	PinDirection int
	PinStep      int
	PinSuccess   int
	PinFailure   int
	PinActivity  int

	StepsPerRevolution int
	UnlockRevolutions  float64
	LockRevolutions    float64
	UnlockHalfPeriod   time.Duration
	LockHalfPeriod     time.Duration
	Dwell              time.Duration
	FailureFlash       time.Duration
	ActivityPulse      time.Duration

	Poll      time.Duration
	Heartbeat time.Duration

	Broker   string
	ClientID string
	HTTPAddr string
	AuditDB  string
	MDNS     bool

	SerialPort string
	SerialBaud int
	LogLevel   string
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Secret:   lock.DefaultSecret,
		Capacity: lock.DefaultCapacity,

		Chip:         "gpiochip0",
		RowPins:      append([]int(nil), keypad.DefaultRowPins...),
		ColPins:      append([]int(nil), keypad.DefaultColPins...),
		PinDirection: gpio.DefaultPinDirection,
		PinStep:      gpio.DefaultPinStep,
		PinSuccess:   gpio.DefaultPinSuccess,
		PinFailure:   gpio.DefaultPinFailure,
		PinActivity:  SharedActivityPin,

		StepsPerRevolution: lock.DefaultStepsPerRevolution,
		UnlockRevolutions:  lock.DefaultUnlockRevolutions,
		LockRevolutions:    lock.DefaultLockRevolutions,
		UnlockHalfPeriod:   lock.DefaultUnlockHalfPeriod,
		LockHalfPeriod:     lock.DefaultLockHalfPeriod,
		Dwell:              lock.DefaultDwell,
		FailureFlash:       lock.DefaultFailureFlash,
		ActivityPulse:      lock.DefaultActivityPulse,

		Poll:      20 * time.Millisecond,
		Heartbeat: 15 * time.Minute,

		Broker:   "tcp://192.168.1.200:1883",
		ClientID: "keypad-lock",
		HTTPAddr: ":80",

		SerialBaud: console.DefaultBaudRate,
		LogLevel:   "info",
	}
}

// BindFlags registers a flag for every field, defaulting to cfg's current values.
func BindFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringVar(&cfg.Secret, "secret", cfg.Secret, "Unlock code (digits and A-D)")
	flags.IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "Maximum keys held before submit")

	flags.StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO character device")
	flags.IntSliceVar(&cfg.RowPins, "row-pins", cfg.RowPins, "BCM pins driving keypad rows")
	flags.IntSliceVar(&cfg.ColPins, "col-pins", cfg.ColPins, "BCM pins reading keypad columns")
	flags.IntVar(&cfg.PinDirection, "pin-dir", cfg.PinDirection, "BCM pin for stepper direction")
	flags.IntVar(&cfg.PinStep, "pin-step", cfg.PinStep, "BCM pin for stepper step")
	flags.IntVar(&cfg.PinSuccess, "pin-success", cfg.PinSuccess, "BCM pin for the success LED")
	flags.IntVar(&cfg.PinFailure, "pin-failure", cfg.PinFailure, "BCM pin for the failure LED")
	flags.IntVar(&cfg.PinActivity, "pin-activity", cfg.PinActivity, "BCM pin for the key activity LED (-1 shares the failure LED)")

	flags.IntVar(&cfg.StepsPerRevolution, "steps-per-rev", cfg.StepsPerRevolution, "Stepper steps per revolution")
	flags.Float64Var(&cfg.UnlockRevolutions, "unlock-revs", cfg.UnlockRevolutions, "Revolutions to unlock")
	flags.Float64Var(&cfg.LockRevolutions, "lock-revs", cfg.LockRevolutions, "Revolutions to relock")
	flags.DurationVar(&cfg.UnlockHalfPeriod, "unlock-half-period", cfg.UnlockHalfPeriod, "Step half period while unlocking")
	flags.DurationVar(&cfg.LockHalfPeriod, "lock-half-period", cfg.LockHalfPeriod, "Step half period while relocking")
	flags.DurationVar(&cfg.Dwell, "dwell", cfg.Dwell, "Time held open before relocking")
	flags.DurationVar(&cfg.FailureFlash, "failure-flash", cfg.FailureFlash, "Failure LED on time after a wrong code")
	flags.DurationVar(&cfg.ActivityPulse, "activity-pulse", cfg.ActivityPulse, "Activity LED pulse per key")

	flags.DurationVar(&cfg.Poll, "poll", cfg.Poll, "Keypad polling interval")
	flags.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")

	flags.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	flags.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "MQTT client ID")
	flags.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	flags.StringVar(&cfg.AuditDB, "audit-db", cfg.AuditDB, "SQLite audit log path (empty keeps attempts in memory)")
	flags.BoolVar(&cfg.MDNS, "mdns", cfg.MDNS, "Advertise the status page over mDNS")

	flags.StringVar(&cfg.SerialPort, "serial", cfg.SerialPort, "Serial port for the diagnostic console (empty to disable)")
	flags.IntVar(&cfg.SerialBaud, "serial-baud", cfg.SerialBaud, "Diagnostic console baud rate")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Diagnostic log level (error, warn, info, debug, trace)")
}

// EnvName returns the environment variable consulted for a flag.
func EnvName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// ReadEnvFile returns the variables in path. A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return vars, nil
}

// ApplyEnv sets every flag not given on the command line from lookup.
// lookup is usually os.LookupEnv layered over an env file.
func ApplyEnv(flags *pflag.FlagSet, lookup func(string) (string, bool)) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		name := EnvName(f.Name)
		v, ok := lookup(name)
		if !ok {
			return
		}
		if err := f.Value.Set(v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", name, v, err))
		}
	})
	return errors.Join(errs...)
}

// LoadEnvFile overlays the process environment and then the env file at path
// onto flags that were not set explicitly.
func LoadEnvFile(flags *pflag.FlagSet, path string) error {
	file, err := ReadEnvFile(path)
	if err != nil {
		return err
	}
	return ApplyEnv(flags, func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := file[name]
		return v, ok
	})
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.LockConfig().Validate(); err != nil {
		return err
	}
	if c.StepsPerRevolution <= 0 {
		return errors.New("config: steps-per-rev must be positive")
	}
	if c.UnlockRevolutions < 0 || c.LockRevolutions < 0 {
		return errors.New("config: revolutions must not be negative")
	}
	if c.Poll <= 0 {
		return errors.New("config: poll must be positive")
	}
	if c.Heartbeat < 0 {
		return errors.New("config: heartbeat must not be negative")
	}
	if _, err := console.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	out := c.OutputPins()
	if err := out.Validate(); err != nil {
		return err
	}
	kp := c.KeypadPins()
	if err := kp.Validate(); err != nil {
		return err
	}
	for _, pin := range append(append([]int{}, kp.Rows...), kp.Cols...) {
		if pin == out.Direction || pin == out.Step || pin == out.Success || pin == out.Failure || pin == out.Activity {
			return fmt.Errorf("config: pin %d used by both the keypad and an output", pin)
		}
	}
	return nil
}

// LockConfig builds the controller configuration.
func (c Config) LockConfig() lock.Config {
	return lock.Config{
		Secret:   c.Secret,
		Capacity: c.Capacity,
		Profile: lock.Profile{
			Unlock: lock.Phase{
				Direction:  lock.DirectionUnlock,
				Steps:      lock.StepsForRevolutions(c.UnlockRevolutions, c.StepsPerRevolution),
				HalfPeriod: c.UnlockHalfPeriod,
			},
			Dwell: c.Dwell,
			Lock: lock.Phase{
				Direction:  lock.DirectionLock,
				Steps:      lock.StepsForRevolutions(c.LockRevolutions, c.StepsPerRevolution),
				HalfPeriod: c.LockHalfPeriod,
			},
		},
		FailureFlash:  c.FailureFlash,
		ActivityPulse: c.ActivityPulse,
	}
}

// OutputPins returns the output wiring.
func (c Config) OutputPins() gpio.Pins {
	p := gpio.Pins{
		Direction: c.PinDirection,
		Step:      c.PinStep,
		Success:   c.PinSuccess,
		Failure:   c.PinFailure,
		Activity:  c.PinActivity,
	}
	if p.Activity == SharedActivityPin {
		p.Activity = p.Failure
	}
	return p
}

// KeypadPins returns the matrix wiring.
func (c Config) KeypadPins() keypad.Pins {
	return keypad.Pins{Rows: c.RowPins, Cols: c.ColPins}
}
