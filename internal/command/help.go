package command

import (
	"context"
	"errors"
	"strings"

	"chatroom/pkg/protocol"
)

// Help lists every registered command with its usage and description.
type Help struct {
	engine *Engine
}

// NewHelp returns the /help command reading from engine's registry.
func NewHelp(engine *Engine) *Help {
	return &Help{engine: engine}
}

func (h *Help) Name() string        { return "help" }
func (h *Help) Description() string { return "Show help information about available commands" }
func (h *Help) Usage() string       { return "/help" }

func (h *Help) Validate(args []string) error {
	if len(args) > 0 {
		return errors.New("The /help command takes no arguments")
	}
	return nil
}

func (h *Help) Execute(ctx context.Context, cc *Context, args []string) Response {
	lines := []string{"=== Available Commands ==="}
	for _, cmd := range h.engine.All() {
		lines = append(lines, "\n"+cmd.Usage())
		lines = append(lines, "  "+cmd.Description())
	}
	return Response{
		Success:      true,
		Message:      strings.Join(lines, "\n"),
		ResponseType: protocol.TypeInfo,
	}
}
