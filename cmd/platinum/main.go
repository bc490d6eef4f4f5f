// Platinum controls Hunter Douglas Platinum shades from the command line.
//
// It talks to the Platinum bridge over its plain TCP protocol, lists the
// rooms, scenes, and shades the bridge knows about, and moves shades with
// a move-and-verify loop that retries until the reported position matches.
//
// Usage:
//
//	platinum [command] [flags]
//
// See 'platinum --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/platinum/internal/logging"
	"github.com/muurk/platinum/internal/transport"
	"github.com/muurk/platinum/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if cerr := closeCapture(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		logging.Debug("Command failed", zap.Error(err))
	}
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage shortens controller failures to one line naming the bridge.
// Other errors are printed as they are.
func errorMessage(err error) string {
	var te *transport.Error
	if !errors.As(err, &te) {
		return err.Error()
	}
	msg := transport.GetShortErrorMessage(err)
	if te.Address != "" {
		msg += " (" + te.Address + ")"
	}
	return msg
}

var rootCmd = &cobra.Command{
	Use:   "platinum",
	Short: "Hunter Douglas Platinum shade controller",
	Long: `Control Hunter Douglas Platinum shades through the Platinum bridge.

The bridge is reached over TCP (port 522). Name it with --address, or
save it once with 'platinum config add-hub' and refer to it with --hub.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "platinum %s (%s)\n", version.Full(), version.Platform())
	},
}
