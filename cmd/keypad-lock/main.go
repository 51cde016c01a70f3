// Command keypad-lock reads a 4x4 keypad and drives a stepper latch when the
// right code is entered. Outcomes are published to MQTT, kept in an audit log
// and shown on a read-only status page.
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	code := 0
	if err := newRootCmd().Execute(); err != nil {
		code = 1
	}
	atexit.Exit(code)
}
