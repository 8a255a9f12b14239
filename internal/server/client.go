package server

import (
	"context"
	"fmt"
	"strings"

	"notelinks/internal/events"
	"notelinks/internal/manager"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	actionApply = "Apply"
	actionSkip  = "Skip"
)

// client sends requests to the editor. Requests still waiting when
// closing is canceled fail with ErrClientClosing.
type client struct {
	call    glsp.CallFunc
	closing context.Context
}

// request performs a call and waits for its result, for ctx or for the
// client to close.
func request[T any](ctx context.Context, c *client, method string, params any) (T, error) {
	var closing <-chan struct{}
	if c.closing != nil {
		closing = c.closing.Done()
	}
	done := make(chan T, 1)
	go func() {
		var result T
		c.call(method, params, &result)
		done <- result
	}()

	var zero T
	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-closing:
		return zero, ErrClientClosing
	}
}

func (c *client) ApplyEdit(ctx context.Context, label string, edit protocol.WorkspaceEdit) error {
	res, err := request[protocol.ApplyWorkspaceEditResponse](ctx, c, "workspace/applyEdit",
		protocol.ApplyWorkspaceEditParams{Label: &label, Edit: edit})
	if err != nil {
		return err
	}
	if !res.Applied {
		reason := "no reason given"
		if res.FailureReason != nil {
			reason = *res.FailureReason
		}
		return fmt.Errorf("%w: %s", manager.ErrEditRejected, reason)
	}
	return nil
}

// Confirm asks the user to approve a batch through a message request.
func (c *client) Confirm(ctx context.Context, path string, changes []events.Change) (bool, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Update %d link title(s) in %s?", len(changes), path)
	for _, ch := range changes {
		fmt.Fprintf(&b, "\n%s -> %s", ch.Old, ch.New)
	}

	res, err := request[*protocol.MessageActionItem](ctx, c, "window/showMessageRequest",
		protocol.ShowMessageRequestParams{
			Type:    protocol.MessageTypeInfo,
			Message: b.String(),
			Actions: []protocol.MessageActionItem{{Title: actionApply}, {Title: actionSkip}},
		})
	if err != nil {
		return false, err
	}
	return res != nil && res.Title == actionApply, nil
}
