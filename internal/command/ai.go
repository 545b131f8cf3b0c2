package command

import (
	"context"
	"errors"
	"strings"

	"chatroom/internal/agent"
	"chatroom/internal/types"
	"chatroom/pkg/protocol"
)

// AIResponder is the slice of the AI participant the /ai command needs.
type AIResponder interface {
	ProcessMessage(ctx context.Context, msg agent.Message, currentUsers, availableCommands []string) agent.Response
}

// AI forwards a message directly to the AI assistant and returns its
// answer to the invoking user.
type AI struct {
	responder AIResponder
	engine    *Engine
}

// NewAI returns the /ai command. responder may be nil when no AI is
// configured; invocation then reports the assistant as unavailable.
func NewAI(responder AIResponder, engine *Engine) *AI {
	return &AI{responder: responder, engine: engine}
}

func (a *AI) Name() string        { return "ai" }
func (a *AI) Description() string { return "Send a direct message to the AI assistant" }
func (a *AI) Usage() string       { return "/ai <message>" }

func (a *AI) Validate(args []string) error {
	if strings.TrimSpace(strings.Join(args, " ")) == "" {
		return errors.New("Message cannot be empty. Usage: /ai <message>")
	}
	return nil
}

func (a *AI) Execute(ctx context.Context, cc *Context, args []string) Response {
	message := strings.TrimSpace(strings.Join(args, " "))

	if cc.Conn == nil {
		return Response{
			Success:      false,
			Message:      "AI command requires an active connection",
			ResponseType: protocol.TypeError,
		}
	}
	if a.responder == nil {
		return Response{
			Success:      false,
			Message:      "AI assistant is not available. Please check API configuration.",
			ResponseType: protocol.TypeError,
		}
	}

	resp := a.responder.ProcessMessage(ctx, agent.Message{
		Username: cc.Username,
		Content:  message,
		Type:     types.MessageTypeNormal,
	}, cc.Registry.Snapshot(), a.engine.Names())

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "AI processing failed"
		}
		return Response{Success: false, Message: msg, ResponseType: protocol.TypeError}
	}
	return Response{Success: true, Message: resp.Message, ResponseType: protocol.TypeInfo}
}
