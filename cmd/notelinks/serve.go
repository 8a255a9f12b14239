package main

import (
	"notelinks/internal/server"

	"github.com/spf13/cobra"
)

func (a *app) newServeCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server over stdio",
		Long: `Run the language server over stdio. Settings are taken from the
initialization options of the editor; log to a file with --logfile since
stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info("starting language server")
			return server.NewServer("notelinks", Version, debug).RunStdio()
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "log protocol messages")
	return cmd
}
