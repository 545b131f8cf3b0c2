package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"

	"chatroom/internal/agent"
	"chatroom/internal/history"
	"chatroom/internal/otelutil"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	cfg := LoadConfig()

	if err := otelutil.Init(); err != nil {
		log.Printf("Tracing disabled: %v", err)
	}

	store, err := history.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open message database: %v", err)
	}
	log.Printf("Message database ready at %s", cfg.DBPath)

	var ag *agent.Agent
	if cfg.Agent.APIKey != "" {
		ag = agent.New(cfg.Agent)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if ag.HealthCheck(ctx) {
				log.Printf("🤖 AI assistant %s is ready", ag.Name())
			} else {
				log.Printf("🤖 AI assistant %s failed its health check; replies may be degraded", ag.Name())
			}
		}()
	} else {
		log.Printf("OPENAI_API_KEY not set; AI assistant disabled")
	}

	server := NewServer(cfg, store, ag)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.router,
	}

	go func() {
		var err error
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			log.Printf("Starting chatroom server on %s (TLS, Ctrl+C to stop)", cfg.Addr)
			err = httpServer.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			log.Printf("Starting chatroom server on %s (Ctrl+C to stop)", cfg.Addr)
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				log.Println("🛑 Shutting down server...")
				return httpServer.Shutdown(ctx)
			},
			"message-store": func(ctx context.Context) error {
				return store.Close()
			},
			"tracing": func(ctx context.Context) error {
				otelutil.Flush()
				return nil
			},
		},
	)

	exitCode := <-wait
	log.Printf("✅ Server shutdown complete (exit code %d)", exitCode)
	os.Exit(exitCode)
}
