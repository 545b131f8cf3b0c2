// Package agent integrates an OpenAI-compatible chat completion API as a
// chatroom participant. It generates conversational replies, answers
// private messages, and recognizes command requests for the caller to
// execute.
package agent

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"chatroom/internal/types"
)

// Response type discriminators returned by ProcessMessage.
const (
	ResponseInfo    = "info"
	ResponseError   = "error"
	ResponsePrivate = "private"
	ResponseCommand = "command"
)

// DefaultBaseURL is the API endpoint used when none is configured.
const DefaultBaseURL = "https://open.bigmodel.cn/api/paas/v4/"

// replyCacheLimit bounds the reply cache; the whole cache is dropped once
// it grows past this.
const replyCacheLimit = 100

// Config holds the API settings for an Agent. Zero fields other than
// APIKey are filled with defaults by New.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	AgentName     string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Message is one chat event handed to the agent for processing.
type Message struct {
	Username string
	Content  string
	Type     string
}

// Command is a chat command the agent asks the caller to run on its
// behalf.
type Command struct {
	Name string
	Args []string
}

// Response is the agent's reaction to a processed message.
type Response struct {
	Success      bool
	Message      string
	ResponseType string
	Command      *Command
	TargetUser   string
}

// Agent is a chatroom participant backed by a chat completion API.
type Agent struct {
	cfg   Config
	httpc *http.Client
	group singleflight.Group

	mu    sync.Mutex
	users []string
	cache map[string]string
}

// New builds an Agent, filling config defaults for unset fields.
func New(cfg Config) *Agent {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "glm-4-flash"
	}
	if cfg.AgentName == "" {
		cfg.AgentName = "AI"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	return &Agent{cfg: cfg, httpc: &http.Client{}, cache: make(map[string]string)}
}

// Name returns the agent's display name in the chatroom.
func (a *Agent) Name() string {
	return a.cfg.AgentName
}

// UpdateUserList replaces the agent's snapshot of online users.
func (a *Agent) UpdateUserList(users []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users = append([]string(nil), users...)
}

// Users returns a copy of the agent's current online-user snapshot.
func (a *Agent) Users() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.users...)
}

// ClearCache drops all cached replies.
func (a *Agent) ClearCache() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = make(map[string]string)
	log.Printf("agent: message cache cleared")
}

// ProcessMessage routes one chat event by its type and returns the
// agent's response. Command messages are parsed and validated against
// availableCommands but not executed; the caller runs the returned
// Command itself.
func (a *Agent) ProcessMessage(ctx context.Context, msg Message, currentUsers, availableCommands []string) Response {
	a.UpdateUserList(currentUsers)

	switch msg.Type {
	case types.MessageTypeCommand:
		return a.handleCommand(msg, availableCommands)
	case types.MessageTypePrivate:
		return a.handlePrivate(ctx, msg)
	default:
		return a.generateReply(ctx, msg, currentUsers)
	}
}

// generateReply produces a conversational answer to a public chat line,
// serving repeats from the reply cache.
func (a *Agent) generateReply(ctx context.Context, msg Message, currentUsers []string) Response {
	cacheKey := msg.Username + ":" + msg.Content

	a.mu.Lock()
	cached, ok := a.cache[cacheKey]
	a.mu.Unlock()
	if ok {
		return Response{Success: true, Message: cached, ResponseType: ResponseInfo}
	}

	systemPrompt := buildSystemPrompt(a.cfg.AgentName, currentUsers)
	userContent := msg.Username + ": " + msg.Content

	v, err, _ := a.group.Do(cacheKey, func() (interface{}, error) {
		return a.callWithRetry(ctx, []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		})
	})
	if err != nil {
		return a.degradedReply(err)
	}
	reply := v.(string)

	a.mu.Lock()
	if len(a.cache) > replyCacheLimit {
		a.cache = make(map[string]string)
	}
	a.cache[cacheKey] = reply
	a.mu.Unlock()

	log.Printf("agent: generated reply to %s", msg.Username)
	return Response{Success: true, Message: reply, ResponseType: ResponseInfo}
}

// degradedReply maps an exhausted API failure to the user-facing apology
// for a public reply.
func (a *Agent) degradedReply(err error) Response {
	switch {
	case errors.Is(err, errRateLimited) || errors.Is(err, errTimeout):
		log.Printf("agent: rate limit or timeout: %v", err)
		return Response{
			Success:      false,
			Message:      "I'm a bit overwhelmed right now. Please try again in a moment.",
			ResponseType: ResponseInfo,
		}
	case errors.Is(err, errConnection):
		log.Printf("agent: connection error: %v", err)
		return Response{
			Success:      false,
			Message:      "Sorry, I'm having connection issues. Please try again later.",
			ResponseType: ResponseError,
		}
	default:
		log.Printf("agent: api error: %v", err)
		return Response{
			Success:      false,
			Message:      "I encountered an error. Please try again.",
			ResponseType: ResponseError,
		}
	}
}

// handleCommand parses a command request out of msg and hands it back for
// execution.
func (a *Agent) handleCommand(msg Message, availableCommands []string) Response {
	commandText := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(commandText, "/") {
		return Response{
			Success:      false,
			Message:      "Command must start with /",
			ResponseType: ResponseError,
		}
	}

	fields := strings.Fields(commandText[1:])
	if len(fields) == 0 {
		return Response{
			Success:      false,
			Message:      "Error handling command: empty command",
			ResponseType: ResponseError,
		}
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	known := false
	for _, c := range availableCommands {
		if c == name {
			known = true
			break
		}
	}
	if !known {
		return Response{
			Success:      false,
			Message:      "Unknown command: /" + name + ". Use /help for available commands.",
			ResponseType: ResponseError,
		}
	}

	return Response{
		Success:      true,
		Message:      "Executing command: /" + name,
		ResponseType: ResponseCommand,
		Command:      &Command{Name: name, Args: args},
	}
}

// handlePrivate answers a direct message, addressing the reply back to
// the sender only.
func (a *Agent) handlePrivate(ctx context.Context, msg Message) Response {
	systemPrompt := buildSystemPrompt(a.cfg.AgentName, a.Users())
	userContent := "[PRIVATE] " + msg.Username + ": " + msg.Content

	reply, err := a.callWithRetry(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userContent},
	})
	if err != nil {
		log.Printf("agent: private reply failed: %v", err)
		return Response{
			Success:      false,
			Message:      "Sorry, I had an error processing your private message.",
			ResponseType: ResponseError,
		}
	}

	return Response{
		Success:      true,
		Message:      reply,
		ResponseType: ResponsePrivate,
		TargetUser:   msg.Username,
	}
}

// callWithRetry runs one chat completion, retrying transient failures
// with exponential backoff.
func (a *Agent) callWithRetry(ctx context.Context, messages []chatMessage) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= a.cfg.RetryAttempts; attempt++ {
		reply, err := a.completeChat(ctx, messages, a.cfg.MaxTokens, a.cfg.Timeout)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
		if attempt < a.cfg.RetryAttempts {
			wait := a.cfg.RetryDelay * time.Duration(1<<(attempt-1))
			log.Printf("agent: retry attempt %d/%d, waiting %s: %v", attempt, a.cfg.RetryAttempts, wait, err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	log.Printf("agent: max retries exceeded: %v", lastErr)
	return "", lastErr
}

// HealthCheck reports whether the chat completion API answers a minimal
// request.
func (a *Agent) HealthCheck(ctx context.Context) bool {
	_, err := a.completeChat(ctx, []chatMessage{
		{Role: "user", Content: "Hi"},
	}, 10, 5*time.Second)
	if err != nil {
		log.Printf("agent: health check failed: %v", err)
		return false
	}
	return true
}
