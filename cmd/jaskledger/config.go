package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/jaskledger/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Long: `init writes every setting, with defaults and JASKLEDGER_ environment
overrides applied, to --config or the default config path. An existing
file is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.Path()
		}
		_, err := os.Stat(path)
		switch {
		case err == nil && !configForce:
			return fmt.Errorf("%s already exists; pass --force to overwrite", path)
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
