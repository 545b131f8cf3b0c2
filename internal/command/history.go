package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chatroom/internal/history"
	"chatroom/pkg/protocol"
)

// HistoryStore is the slice of the message store the /history command
// needs.
type HistoryStore interface {
	Recent(q history.Query) ([]history.Message, int64, error)
}

// History shows recent chat messages with optional limit, username, and
// keyword filters.
type History struct {
	store HistoryStore
}

// NewHistory returns the /history command backed by store.
func NewHistory(store HistoryStore) *History {
	return &History{store: store}
}

func (h *History) Name() string        { return "history" }
func (h *History) Description() string { return "View chat history with optional filters" }
func (h *History) Usage() string {
	return "/history [limit] [@username] [keyword]\nExamples:\n  /history 10\n  /history 20 @alice\n  /history 15 @bob hello"
}

func (h *History) Validate(args []string) error {
	if len(args) == 0 {
		return nil
	}
	// A non-numeric first argument is a username or keyword, not a limit.
	if limit, err := strconv.Atoi(args[0]); err == nil {
		if limit <= 0 || limit > 100 {
			return errors.New("Limit must be between 1 and 100")
		}
	}
	return nil
}

func (h *History) Execute(ctx context.Context, cc *Context, args []string) Response {
	limit := 20
	var username, keyword string

	i := 0
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			limit = n
			i = 1
		}
	}
	if i < len(args) && strings.HasPrefix(args[i], "@") {
		username = strings.TrimPrefix(args[i], "@")
		i++
	}
	if i < len(args) {
		keyword = strings.Join(args[i:], " ")
	}

	msgs, total, err := h.store.Recent(history.Query{
		Limit:    limit,
		Username: username,
		Keyword:  keyword,
	})
	if err != nil {
		return Response{
			Success:      false,
			Message:      fmt.Sprintf("Error retrieving history: %v", err),
			ResponseType: protocol.TypeError,
		}
	}

	if len(msgs) == 0 {
		return Response{
			Success:      true,
			Message:      "No messages found.",
			ResponseType: protocol.TypeInfo,
		}
	}

	display := len(msgs)
	if display > 10 {
		display = 10
	}
	lines := []string{fmt.Sprintf("Recent %d messages (total: %d):", display, total)}
	for _, msg := range msgs[len(msgs)-display:] {
		content := msg.Content
		if runes := []rune(content); len(runes) > 60 {
			content = string(runes[:60]) + "..."
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", msg.Timestamp, msg.Username, content))
	}

	return Response{
		Success:      true,
		Message:      strings.Join(lines, "\n"),
		ResponseType: protocol.TypeInfo,
	}
}
