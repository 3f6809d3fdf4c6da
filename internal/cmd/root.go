// Package cmd implements the CLI of the bot.
//
// serve - The main bot service entry point
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// BuildVersion is set at build time via ldflags.
//
//nolint:gochecknoglobals
var BuildVersion = "master"

//nolint:gochecknoglobals
var cfgFile string

//nolint:gochecknoglobals
var rootCmd = &cobra.Command{
	Use:   "lobbybot",
	Short: "Discord lobby coordination bot",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	setupCLI()

	if errExecute := rootCmd.Execute(); errExecute != nil {
		os.Exit(1)
	}
}

func setupCLI() {
	rootCmd.Version = BuildVersion
	rootCmd.AddCommand(serveCmd())
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/lobbybot.yml)")
}
