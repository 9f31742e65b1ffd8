package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/treebench/backend"
	"github.com/YuminosukeSato/treebench/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "treebench",
		Short: "Compare two decision-tree backends across a dataset corpus",
		Long: `treebench evaluates backend A and backend B on every dataset under a
root directory with k-fold cross-validation and prints the per-dataset
quality deltas, speed deltas and disagreement rates.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newConfigCmd(), newBackendsCmd())
	return root
}

// newConfigCmd prints the effective configuration as YAML.
func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (defaults when --config is unset)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "YAML configuration file")
	return cmd
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the backend kinds a configuration may name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, kind := range backend.Kinds() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), kind); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
