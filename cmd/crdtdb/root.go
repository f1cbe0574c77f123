package main

import (
	"github.com/spf13/cobra"

	"github.com/causalgraph/crdtdb/crdt"
)

var (
	configPath string
	cfg        crdt.Config

	rootCmd = &cobra.Command{
		Use:   "crdtdb",
		Short: "Inspect and drive an embedded causal, multi-value CRDT database",
		Long: `crdtdb is a command-line front end for the crdt package: a local
replica that accepts operations, merges them into a causally consistent
state, and answers point queries for the current materialized value.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to built-in defaults)")
	rootCmd.AddCommand(applyCmd, getCmd, serveCmd)
}

func loadConfig() (crdt.Config, error) {
	if configPath == "" {
		return crdt.DefaultConfig(), nil
	}
	return crdt.LoadConfig(configPath)
}
