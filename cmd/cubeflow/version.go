package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/cubeflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cubeflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cubeflow version %s\n", strings.TrimSpace(cubeflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
