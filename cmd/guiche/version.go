package main

import (
	"fmt"

	"github.com/aretw0/guiche"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of guiche",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "guiche version %s\n", guiche.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
