package main

import (
	"github.com/spf13/cobra"

	"github.com/sweeney/keypad-lock/internal/config"
)

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	envFile := config.DefaultEnvFile

	root := &cobra.Command{
		Use:   "keypad-lock",
		Short: "Keypad-operated door latch daemon",
		Long: `keypad-lock scans a 4x4 matrix keypad, checks entered codes and runs the
stepper latch through an unlock, dwell and relock cycle on a match.

Settings come from flags, then KEYPAD_LOCK_* environment variables, then the
env file, then built-in defaults.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(cmd.Flags(), envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", envFile, "Env file with KEYPAD_LOCK_* settings")
	config.BindFlags(root.PersistentFlags(), &cfg)

	root.AddCommand(newKeysCmd(&cfg))
	root.AddCommand(newAttemptsCmd(&cfg))
	return root
}
