package server

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// workspaceExecuteCommand handles the manager commands. enable and
// disable take optional manager IDs, update an optional note URI.
func (s *Server) workspaceExecuteCommand(
	ctx *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	if !s.initialized.Load() {
		return nil, ErrNotInitialized
	}
	args := stringArgs(params.Arguments)

	switch params.Command {
	case CommandEnable, CommandDisable:
		ids := args
		if len(ids) == 0 {
			ids = s.registry.IDs()
		}
		for _, id := range ids {
			m, err := s.registry.Get(id)
			if err != nil {
				return nil, err
			}
			if params.Command == CommandEnable {
				m.Enable()
			} else {
				m.Disable()
			}
			log.Infof("%s: enabled=%v", id, m.IsEnabled())
		}
		return nil, nil

	case CommandUpdate:
		path := ""
		if len(args) > 0 {
			rel, err := s.documents.URIToPath(args[0])
			if err != nil {
				return nil, err
			}
			path = rel
		}
		s.update(path)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, params.Command)
}

func stringArgs(args []any) []string {
	var out []string
	for _, a := range args {
		if str, ok := a.(string); ok && str != "" {
			out = append(out, str)
		}
	}
	return out
}
