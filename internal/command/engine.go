package command

import (
	"context"
	"sort"
	"strings"

	"chatroom/pkg/protocol"
)

// Engine holds the registered commands and dispatches raw chat input to
// them. Register all commands before serving; the table is not locked.
type Engine struct {
	commands map[string]Command
}

// NewEngine returns an empty command engine.
func NewEngine() *Engine {
	return &Engine{commands: make(map[string]Command)}
}

// Register adds cmd to the engine, replacing any command with the same
// name.
func (e *Engine) Register(cmd Command) {
	e.commands[cmd.Name()] = cmd
}

// Get returns the command registered under name.
func (e *Engine) Get(name string) (Command, bool) {
	cmd, ok := e.commands[name]
	return cmd, ok
}

// Names returns the registered command names in sorted order.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.commands))
	for name := range e.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered commands sorted by name.
func (e *Engine) All() []Command {
	names := e.Names()
	cmds := make([]Command, 0, len(names))
	for _, name := range names {
		cmds = append(cmds, e.commands[name])
	}
	return cmds
}

// Dispatch parses one slash-prefixed chat message, validates it, and
// executes the matching command. Every failure mode comes back as an
// error Response; Dispatch never panics the connection.
func (e *Engine) Dispatch(ctx context.Context, cc *Context, message string) Response {
	commandText := strings.TrimSpace(strings.TrimPrefix(message, "/"))
	if commandText == "" {
		return Response{
			Success:      false,
			Message:      "Empty command. Use /help for available commands.",
			ResponseType: protocol.TypeError,
		}
	}

	fields := strings.Fields(commandText)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	cmd, ok := e.commands[name]
	if !ok {
		return Response{
			Success:      false,
			Message:      "Unknown command: /" + name + ". Use /help for available commands.",
			ResponseType: protocol.TypeError,
		}
	}

	if err := cmd.Validate(args); err != nil {
		return Response{
			Success:      false,
			Message:      "Invalid arguments: " + err.Error(),
			ResponseType: protocol.TypeError,
		}
	}

	return cmd.Execute(ctx, cc, args)
}
