package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/keypad-lock/internal/config"
	"github.com/sweeney/keypad-lock/internal/keypad"
)

func newKeysCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Print key presses until interrupted",
		Long:  "Scans the keypad and prints each key as it is pressed. Useful for checking the matrix wiring. The latch and LEDs are not touched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pins := cfg.KeypadPins()
			if err := pins.Validate(); err != nil {
				return err
			}
			matrix, err := keypad.NewMatrix(cfg.Chip, pins, keypad.DefaultLayout)
			if err != nil {
				return fmt.Errorf("init keypad: %w", err)
			}
			defer matrix.Close()

			ticker := time.NewTicker(cfg.Poll)
			defer ticker.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			fmt.Fprintln(cmd.OutOrStdout(), "press keys, Ctrl-C to stop")
			n := printKeys(matrix, cmd.OutOrStdout(), ticker.C, sigCh)
			fmt.Fprintf(cmd.OutOrStdout(), "%d keys\n", n)
			return nil
		},
	}
}

// printKeys writes one line per key press until a signal arrives and returns
// the number of keys seen.
func printKeys(source keypad.Source, w io.Writer, tick <-chan time.Time, sig <-chan os.Signal) int {
	n := 0
	for {
		select {
		case <-sig:
			return n
		case <-tick:
			key, ok, err := source.Poll()
			if err != nil {
				fmt.Fprintf(w, "read error: %v\n", err)
				continue
			}
			if !ok {
				continue
			}
			n++
			label := ""
			switch key {
			case keypad.KeyReset:
				label = " (reset)"
			case keypad.KeySubmit:
				label = " (submit)"
			}
			fmt.Fprintf(w, "key: %s%s\n", key, label)
		}
	}
}
