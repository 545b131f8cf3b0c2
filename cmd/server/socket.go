package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"

	"chatroom/internal/types"
)

// Keepalive tuning for all socket namespaces. Variables so tests can
// shorten them.
var (
	PingInterval     = 30 * time.Second
	PongTimeout      = 60 * time.Second
	WriteTimeout     = 10 * time.Second
	PingWriteTimeout = 5 * time.Second
)

// acceptSocket upgrades the request and wraps it in a Conn with a
// running writer and keepalive pinger. The returned cancel tears both
// down; the caller must invoke it when its read loop exits.
func acceptSocket(c *gin.Context) (*types.Conn, context.Context, context.CancelFunc, error) {
	sock, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return nil, nil, nil, err
	}

	conn := types.NewConn(sock, ksuid.New().String())
	ctx, cancel := context.WithCancel(c.Request.Context())
	go writeLoop(ctx, conn)
	go pingLoop(ctx, conn)
	return conn, ctx, cancel, nil
}

// writeLoop drains the connection's Send queue onto the socket. It
// exits when ctx is cancelled or a write fails; after that, queued
// payloads pile up in the buffer and further enqueues drop, which is
// the intended best-effort behavior for a dying peer.
func writeLoop(ctx context.Context, conn *types.Conn) {
	for {
		select {
		case payload := <-conn.Send:
			wctx, cancel := context.WithTimeout(ctx, WriteTimeout)
			err := conn.Sock.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				log.Printf("WebSocket write error for connection %s: %v", conn.ID, err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// pingLoop keeps the connection alive and closes it when the peer stops
// answering pings, which unblocks the handler's read loop.
func pingLoop(ctx context.Context, conn *types.Conn) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, PongTimeout)
			err := conn.Sock.Ping(pctx)
			cancel()
			if err != nil {
				log.Printf("Ping failed for connection %s, closing: %v", conn.ID, err)
				_ = conn.Sock.Close(websocket.StatusPolicyViolation, "ping timeout")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// socketUsername extracts the identity for the voice and VOIP
// namespaces from the username query parameter.
func socketUsername(c *gin.Context) (string, bool) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username query parameter is required"})
		return "", false
	}
	return username, true
}
