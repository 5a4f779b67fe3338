package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// defaultConfigPath is used when neither --config nor KALEIDO_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "kaleidod",
		Short:         "Kaleido desktop node control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", getConfigPath(),
		"path to config file (env KALEIDO_CONFIG)")

	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kaleidod %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// getConfigPath returns KALEIDO_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv("KALEIDO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
