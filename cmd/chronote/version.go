package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/chronote"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of chronote",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chronote version %s\n", strings.TrimSpace(chronote.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
