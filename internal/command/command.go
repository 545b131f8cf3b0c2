// Package command implements the slash commands reachable from chat
// messages starting with "/". Commands are registered on an Engine once
// at startup; the engine parses, validates, and executes them.
package command

import (
	"context"

	"chatroom/internal/chat"
	"chatroom/internal/types"
)

// Command is one slash command.
type Command interface {
	// Name is the command keyword without the leading slash.
	Name() string
	// Description is the one-line summary shown by /help.
	Description() string
	// Usage is the invocation format shown by /help.
	Usage() string
	// Validate checks args before execution; the returned error text is
	// shown to the user as-is.
	Validate(args []string) error
	// Execute runs the command. cc.Conn is nil when the command runs on
	// behalf of the AI participant instead of a live socket; commands
	// that talk back to the current user must tolerate that.
	Execute(ctx context.Context, cc *Context, args []string) Response
}

// Context carries the execution environment for one command invocation.
type Context struct {
	Conn     *types.Conn
	Username string
	Registry *chat.Registry
}

// Response is the outcome of one command execution. ResponseType uses
// the chat envelope type constants and decides how the caller routes
// Message.
type Response struct {
	Success      bool
	Message      string
	ResponseType string
	TargetUser   string
}
