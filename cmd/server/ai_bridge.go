package main

import (
	"context"
	"log"

	"chatroom/internal/agent"
	"chatroom/internal/chat"
	"chatroom/internal/command"
	"chatroom/internal/types"
	"chatroom/pkg/protocol"
)

// aiBridge feeds broadcast chat lines to the AI participant and routes
// its responses back into the room: public replies re-enter the
// broadcaster, private replies go straight to the original sender, and
// command responses re-enter the command engine on the AI's behalf.
type aiBridge struct {
	agent       *agent.Agent
	registry    *chat.Registry
	broadcaster *chat.Broadcaster
	engine      *command.Engine
}

// OnChatMessage triggers AI processing for one broadcast line. It
// returns immediately; the pipeline runs on its own goroutine. Lines
// attributed to the AI's own name are skipped so the agent never
// answers itself.
func (b *aiBridge) OnChatMessage(username, content string, sender *types.Conn) {
	if b.agent == nil || username == b.agent.Name() {
		return
	}
	go b.process(username, content, sender)
}

func (b *aiBridge) process(username, content string, sender *types.Conn) {
	users := b.registry.Snapshot()
	b.agent.UpdateUserList(users)

	resp := b.agent.ProcessMessage(context.Background(), agent.Message{
		Username: username,
		Content:  content,
		Type:     types.MessageTypeNormal,
	}, users, b.engine.Names())

	switch {
	case !resp.Success:
		// Ambient replies degrade to a silent drop; the user asked
		// nothing directly.
		log.Printf("🤖 AI reply dropped for %s: %s", username, resp.Message)
	case resp.ResponseType == agent.ResponseCommand && resp.Command != nil:
		b.runCommand(resp.Command)
	case resp.ResponseType == agent.ResponsePrivate:
		b.sendPrivate(sender, resp.Message)
	default:
		b.broadcastReply(resp.Message)
	}
}

// runCommand executes a command on the AI's behalf. The context carries
// no connection; responses that name a target user are delivered
// privately, everything else is broadcast under the AI's name.
func (b *aiBridge) runCommand(cmd *agent.Command) {
	c, ok := b.engine.Get(cmd.Name)
	if !ok {
		log.Printf("🤖 AI requested unknown command /%s", cmd.Name)
		return
	}
	if err := c.Validate(cmd.Args); err != nil {
		log.Printf("🤖 AI command /%s rejected: %v", cmd.Name, err)
		return
	}

	resp := c.Execute(context.Background(), &command.Context{
		Conn:     nil,
		Username: b.agent.Name(),
		Registry: b.registry,
	}, cmd.Args)
	if !resp.Success {
		log.Printf("🤖 AI command /%s failed: %s", cmd.Name, resp.Message)
		return
	}

	if resp.ResponseType == protocol.TypePrivate && resp.TargetUser != "" {
		if conn, ok := b.registry.Resolve(resp.TargetUser); ok {
			if err := conn.EnqueueJSON(protocol.Private(b.agent.Name(), resp.Message)); err != nil {
				log.Printf("🤖 Failed to deliver AI command result to %s: %v", resp.TargetUser, err)
			}
		}
		return
	}
	b.broadcastReply(resp.Message)
}

// sendPrivate delivers an AI reply to the original sender only.
func (b *aiBridge) sendPrivate(sender *types.Conn, message string) {
	if sender == nil {
		return
	}
	if err := sender.EnqueueJSON(protocol.Private(b.agent.Name(), message)); err != nil {
		log.Printf("🤖 Failed to deliver private AI reply: %v", err)
	}
}

// broadcastReply publishes an AI reply as a normal chat line, which
// also persists it like any other message.
func (b *aiBridge) broadcastReply(message string) {
	if message == "" {
		return
	}
	b.broadcaster.Broadcast(b.agent.Name()+": "+message, protocol.Timestamp())
}
