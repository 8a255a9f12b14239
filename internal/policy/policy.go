// Package policy holds the bus observers that decide which links are
// rewritten and whether a batch of rewrites is applied.
package policy

import (
	"context"
	"path"

	"notelinks/internal/config"
	"notelinks/internal/events"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("notelinks.policy")

// Prompter asks the user whether a batch of changes to the note at path
// may be applied.
type Prompter interface {
	Confirm(ctx context.Context, path string, changes []events.Change) (bool, error)
}

// PrompterFunc adapts a function to a Prompter.
type PrompterFunc func(ctx context.Context, path string, changes []events.Change) (bool, error)

func (f PrompterFunc) Confirm(ctx context.Context, path string, changes []events.Change) (bool, error) {
	return f(ctx, path, changes)
}

// Ignore drops links whose destination matches one of the glob patterns.
func Ignore(patterns []string) events.Observer[*events.FilterEvent] {
	return func(ctx context.Context, e *events.FilterEvent) {
		kept := make([]events.Link, 0, len(e.Links))
		for _, l := range e.Links {
			if ignored(patterns, l.Dest) {
				log.Debugf("%s: ignoring link to %s", e.Path, l.Dest)
				continue
			}
			kept = append(kept, l)
		}
		e.Links = kept
	}
}

func ignored(patterns []string, dest string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, dest); ok {
			return true
		}
	}
	return false
}

// Approval returns the observer implementing mode. In prompt mode the
// prompter is consulted after every earlier decision approved the batch.
func Approval(mode config.Approval, prompter Prompter) events.Observer[*events.ApproveEvent] {
	return func(ctx context.Context, e *events.ApproveEvent) {
		switch mode {
		case config.ApprovalAuto:
		case config.ApprovalNever:
			for _, c := range e.Changes {
				log.Infof("%s: would replace %s with %s", e.Path, c.Old, c.New)
			}
			e.Approve = events.Rejected
		default:
			prev := e.Approve
			path, changes := e.Path, e.Changes
			e.Approve = func(ctx context.Context) (bool, error) {
				if prev != nil {
					ok, err := prev(ctx)
					if err != nil || !ok {
						return ok, err
					}
				}
				return prompter.Confirm(ctx, path, changes)
			}
		}
	}
}

// Install subscribes the observers configured by cfg to bus and returns
// a function removing them again.
func Install(bus *events.Bus, cfg config.Config, prompter Prompter) func() {
	unsubscribe := []func(){
		bus.LinkFilter.Subscribe(Ignore(cfg.Ignore)),
		bus.LinkChangeApprove.Subscribe(Approval(cfg.Approval, prompter)),
	}
	return func() {
		for _, u := range unsubscribe {
			u()
		}
	}
}
