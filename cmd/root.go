// Package cmd provides the root command and CLI setup for rotwatch.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var databaseFlag string
var verboseFlag bool

const rootLongDescription = `Rotwatch detects silent data corruption ("bit rot") in a directory
tree. It keeps a ledger of per-file content digests and modification
times, and on each scan flags files whose content changed without a
corresponding timestamp update: the signature of disk-level
corruption rather than an intentional edit.

The ledger lives inside the scanned tree (default .rotwatch.db) and is
excluded from scanning.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotwatch",
		Short: "Bit rot detection for directory trees",
		Long:  rootLongDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&databaseFlag, databaseFlagName, "d",
			viper.GetString(databaseKey),
			"ledger database filename, resolved inside the scan root",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(databaseFlagName), databaseKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "enable debug logging")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). A run that found
// corruption exits with status 1; the evidence lines have already
// been printed by the reporter at that point.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// scanRoot returns the scan root from the positional arguments,
// defaulting to the current working directory.
func scanRoot(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}

	return "."
}

// ledgerPath resolves the configured database filename against the
// scan root. An absolute filename is honored as-is so the ledger can
// live outside the scanned tree.
func ledgerPath(root string) string {
	name := viper.GetString(databaseKey)
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(root, name)
}
