/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shelfsnap",
	Short: "Personal inventory cataloging service",
	Long: `shelfsnap catalogs personal possessions from photographs.

Uploaded images are validated, stored under a virtual /objects/ namespace
backed by local disk or an object-store bucket, and analyzed by a vision
model to extract item attributes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
