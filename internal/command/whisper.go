package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatroom/pkg/protocol"
)

// Whisper delivers a private message to one online user without any
// broadcast side effect.
type Whisper struct{}

// NewWhisper returns the /t command.
func NewWhisper() *Whisper {
	return &Whisper{}
}

func (w *Whisper) Name() string        { return "t" }
func (w *Whisper) Description() string { return "Send a private message to a user" }
func (w *Whisper) Usage() string       { return "/t @username <message>" }

func (w *Whisper) Validate(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("Invalid format. Usage: %s", w.Usage())
	}
	username := strings.TrimPrefix(args[0], "@")
	if username == "" {
		return errors.New("Username cannot be empty")
	}
	if strings.TrimSpace(strings.Join(args[1:], " ")) == "" {
		return errors.New("Message cannot be empty")
	}
	return nil
}

func (w *Whisper) Execute(ctx context.Context, cc *Context, args []string) Response {
	target := strings.TrimPrefix(args[0], "@")
	message := strings.TrimSpace(strings.Join(args[1:], " "))

	if target == cc.Username {
		return Response{
			Success:      false,
			Message:      "You cannot send a private message to yourself",
			ResponseType: protocol.TypeError,
		}
	}

	conn, ok := cc.Registry.Resolve(target)
	if !ok {
		return Response{
			Success:      false,
			Message:      fmt.Sprintf("User '%s' is not online", target),
			ResponseType: protocol.TypeError,
		}
	}

	if err := conn.EnqueueJSON(protocol.Private(cc.Username, message)); err != nil {
		return Response{
			Success:      false,
			Message:      fmt.Sprintf("Error sending private message: %v", err),
			ResponseType: protocol.TypeError,
		}
	}

	return Response{
		Success:      true,
		Message:      fmt.Sprintf("Private message sent to %s", target),
		ResponseType: protocol.TypeInfo,
	}
}
