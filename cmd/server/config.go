package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"chatroom/internal/agent"
)

// Config carries every runtime setting of the server. All of it comes
// from environment variables; main loads a .env file first when one is
// present.
type Config struct {
	Addr      string
	DBPath    string
	StaticDir string
	CertFile  string
	KeyFile   string
	Agent     agent.Config
}

// LoadConfig reads the configuration from the environment, applying
// defaults for everything except the AI credentials.
func LoadConfig() Config {
	return Config{
		Addr:      getEnv("CHATROOM_ADDR", ":8000"),
		DBPath:    getEnv("CHATROOM_DB", "chatroom.db"),
		StaticDir: getEnv("CHATROOM_STATIC_DIR", "static"),
		CertFile:  getEnv("CHATROOM_CERT_FILE", ""),
		KeyFile:   getEnv("CHATROOM_KEY_FILE", ""),
		Agent: agent.Config{
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			BaseURL:       getEnv("OPENAI_BASE_URL", ""),
			Model:         getEnv("OPENAI_MODEL", ""),
			AgentName:     getEnv("AGENT_NAME", ""),
			Timeout:       getEnvSeconds("AGENT_TIMEOUT_SECONDS", 0),
			RetryAttempts: getEnvInt("AGENT_RETRY_ATTEMPTS", 0),
			RetryDelay:    getEnvSeconds("AGENT_RETRY_DELAY_SECONDS", 0),
		},
	}
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvSeconds returns environment variable as a whole-second duration
// or default.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		log.Printf("Warning: invalid seconds value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
