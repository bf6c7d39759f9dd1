// Package main is the entry point for ctxhub.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:          "ctxhub",
		Short:        "Bounded project snapshots for language model context",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ctxhub/config.yaml)")

	root.AddCommand(newServeCmd(&cfgFile))
	root.AddCommand(newSnapshotCmd(&cfgFile))
	return root
}
