package main

import (
	"context"
	"sync/atomic"

	"notelinks/internal/index"
	"notelinks/internal/scheduler"

	"github.com/spf13/cobra"
)

func (a *app) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Update link aliases whenever a note is added or retitled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := openVault(ctx, a.cfg, newTerminalPrompter(a.in, a.out))
			if err != nil {
				return err
			}
			defer v.Close()
			if err := v.openNotes(nil); err != nil {
				return err
			}

			watcher, err := index.NewWatcher(v.indexer, index.DefaultDebounce)
			if err != nil {
				return err
			}

			s := scheduler.NewScheduler(16)
			s.RunScheduler(ctx)
			defer s.StopScheduler()

			var pending atomic.Bool
			s.SchedulePeriodicTask(a.cfg.RescanInterval(), scheduler.Task{
				Name:    "scan",
				Execute: v.indexer.Scan,
			})

			log.Infof("watching %s", v.indexer.Root())
			return watcher.Run(ctx, func(rel string, removed bool) {
				v.track(rel, removed)
				if !pending.CompareAndSwap(false, true) {
					return
				}
				s.TrySchedule(scheduler.Task{
					Name: "update",
					Execute: func(ctx context.Context) error {
						pending.Store(false)
						return v.registry.UpdateAll(ctx, "")
					},
				})
			})
		},
	}
}
