package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coinvest-dev/coinvest/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around rt
func NewRootCmd(rt *commands.Runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coinvest",
		Short: "Coinvest - crypto investment platform client",
		Long: `Coinvest CLI - Manage your Coinvest investments from the terminal.

Browse plans, invest, request withdrawals and read your notifications.
Admins can review withdrawals, manage plans and broadcast announcements.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rt.BindFlags(rootCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coinvest version %s\n", version)
		},
	})

	commands.AddAll(rootCmd, rt)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCmd(&commands.Runtime{})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
