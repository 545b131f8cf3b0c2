package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chatroom/internal/agent"
	"chatroom/internal/chat"
	cidpkg "chatroom/internal/cid"
	"chatroom/internal/command"
	"chatroom/internal/history"
	"chatroom/internal/voice"
	"chatroom/internal/voip"
)

const maxUploadBytes = 5 << 20

// Server wires the chat, voice, and VOIP registries to the HTTP and
// WebSocket surface.
type Server struct {
	cfg         Config
	registry    *chat.Registry
	broadcaster *chat.Broadcaster
	engine      *command.Engine
	voice       *voice.Manager
	voip        *voip.Manager
	store       *history.Store
	agent       *agent.Agent
	ai          *aiBridge
	router      *gin.Engine
}

// NewServer assembles the service registries, registers the built-in
// commands, and builds the HTTP router. store and ag may be nil; the
// matching features degrade to unavailable.
func NewServer(cfg Config, store *history.Store, ag *agent.Agent) *Server {
	s := &Server{
		cfg:      cfg,
		registry: chat.NewRegistry(),
		engine:   command.NewEngine(),
		voice:    voice.NewManager(),
		voip:     voip.NewManager(),
		store:    store,
		agent:    ag,
	}

	var saver chat.MessageSaver
	if store != nil {
		saver = store
	}
	s.broadcaster = chat.NewBroadcaster(s.registry, saver)

	s.engine.Register(command.NewHelp(s.engine))
	s.engine.Register(command.NewWhisper())
	if store != nil {
		s.engine.Register(command.NewHistory(store))
	}
	var responder command.AIResponder
	if ag != nil {
		responder = ag
	}
	s.engine.Register(command.NewAI(responder, s.engine))

	s.ai = &aiBridge{
		agent:       ag,
		registry:    s.registry,
		broadcaster: s.broadcaster,
		engine:      s.engine,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := gin.Default()
	r.Use(s.cidMiddleware())
	r.Use(s.otelMiddleware())

	r.GET("/ws", s.handleChat)
	r.GET("/voice", s.handleVoice)
	r.GET("/voip", s.handleVOIP)

	r.GET("/health", s.handleHealth)
	r.GET("/api/stats", s.handleStats)
	r.GET("/api/history", s.handleHistoryAPI)
	r.GET("/api/voice/rooms", s.handleVoiceRooms)
	r.POST("/upload", s.handleUpload)

	if info, err := os.Stat(s.cfg.StaticDir); err == nil && info.IsDir() {
		r.Static("/static", s.cfg.StaticDir)
		index := filepath.Join(s.cfg.StaticDir, "index.html")
		r.GET("/", func(c *gin.Context) {
			c.File(index)
		})
	}

	s.router = r
}

// cidMiddleware attaches a correlation id to every request, preserving
// one supplied by the caller and minting a KSUID otherwise. The id is
// echoed on the response and stored on the request context.
func (s *Server) cidMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cidpkg.HeaderName)
		if id == "" {
			id = ksuid.New().String()
		}
		c.Request = c.Request.WithContext(cidpkg.WithCID(c.Request.Context(), id))
		c.Writer.Header().Set(cidpkg.HeaderName, id)
		c.Next()
	}
}

// otelMiddleware opens a span per HTTP request and records the method,
// target, status, and correlation id on it.
func (s *Server) otelMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := otel.Tracer("chatroom/server")
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.Request.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer))
		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.target", c.Request.URL.Path),
		)
		if id := cidpkg.CIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String(cidpkg.AttributeName, id))
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		span.End()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"service":          "chatroom",
		"agent_configured": s.agent != nil,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	pending, active := s.voip.Signaling().Stats()
	c.JSON(http.StatusOK, gin.H{
		"online_users":  s.registry.Count(),
		"voice_rooms":   len(s.voice.Rooms()),
		"pending_calls": pending,
		"active_calls":  active,
	})
}

func (s *Server) handleVoiceRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.voice.Rooms()})
}

// handleHistoryAPI serves paged chat history. The limit is clamped to
// [1,500] with a default of 50.
func (s *Server) handleHistoryAPI(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "history storage is not available",
		})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}

	msgs, total, err := s.store.Recent(history.Query{
		Limit:    limit,
		Offset:   offset,
		Username: c.Query("username"),
		Keyword:  c.Query("keyword"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":  false,
			"error":    err.Error(),
			"messages": []history.Message{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": msgs,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleUpload stores one image file under the static uploads directory
// and returns its URL. Filenames are sanitized and prefixed with a
// fresh UUID fragment so uploads cannot collide or escape the
// directory.
func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files are allowed."})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum size is 5 MB."})
		return
	}

	filename := filepath.Base(strings.TrimSpace(file.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) ||
		strings.HasPrefix(filename, ".") || strings.ContainsAny(filename, `/\`) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}
	filename = uuid.New().String()[:8] + "_" + filename

	uploadDir := filepath.Join(s.cfg.StaticDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file: " + err.Error()})
		return
	}
	if err := c.SaveUploadedFile(file, filepath.Join(uploadDir, filename)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": "/static/uploads/" + filename})
}
