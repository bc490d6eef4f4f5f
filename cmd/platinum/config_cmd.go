package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/platinum/internal/config"
	"github.com/muurk/platinum/internal/ui"
)

var (
	initForce     bool
	addHubPort    int
	addHubTime    time.Duration
	addHubDefault bool
)

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")

	configAddHubCmd.Flags().IntVar(&addHubPort, "hub-port", 0, "Bridge TCP port (default 522)")
	configAddHubCmd.Flags().DurationVar(&addHubTime, "hub-timeout", 0, "Per-exchange timeout, e.g. 5s (default 10s)")
	configAddHubCmd.Flags().BoolVar(&addHubDefault, "default", false, "Make this the default hub")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAddHubCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an empty config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pathOrDefault()
		if err != nil {
			return err
		}
		if config.Exists(path) && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.NewConfig().Save(path); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Config created", ui.Param{Key: "Path", Value: path})
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pathOrDefault()
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !config.Exists(path) {
			fmt.Fprintf(out, "# %s does not exist; showing defaults\n", path)
		} else {
			fmt.Fprintf(out, "# %s\n", path)
		}
		fmt.Fprint(out, string(data))
		return nil
	},
}

var configAddHubCmd = &cobra.Command{
	Use:   "add-hub <name> <address>",
	Short: "Save a bridge under a name",
	Example: `  platinum config add-hub living 192.168.1.50
  platinum config add-hub office office-shades.lan --hub-port 2522 --default`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pathOrDefault()
		if err != nil {
			return err
		}

		hc := &config.HubConfig{Address: args[1], Port: addHubPort, Timeout: addHubTime}

		if err := cfg.SetHub(args[0], hc); err != nil {
			return err
		}
		if addHubDefault {
			cfg.DefaultHub = args[0]
		}
		if err := cfg.Save(path); err != nil {
			return err
		}

		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Hub saved",
			ui.Param{Key: "Name", Value: args[0]},
			ui.Param{Key: "Address", Value: fmt.Sprintf("%s:%d", hc.Address, hc.EffectivePort())},
			ui.Param{Key: "Default", Value: cfg.DefaultHub},
			ui.Param{Key: "Path", Value: path},
		)
		return nil
	},
}

func pathOrDefault() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}
