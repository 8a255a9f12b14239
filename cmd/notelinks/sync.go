package main

import (
	"github.com/spf13/cobra"
)

func (a *app) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [paths...]",
		Short: "Update link aliases in the given notes, or in all notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := openVault(ctx, a.cfg, newTerminalPrompter(a.in, a.out))
			if err != nil {
				return err
			}
			defer v.Close()

			if err := v.openNotes(args); err != nil {
				return err
			}
			return v.registry.UpdateAll(ctx, "")
		},
	}
}
