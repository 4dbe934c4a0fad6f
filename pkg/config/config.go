package config

import (
	"os"
	"strconv"
	"time"

	"github.com/mikeboe/web-research/pkg/research"
)

type Config struct {
	GoogleApiKey       string
	ResearchModel      string
	ChatModel          string
	OllamaBaseURL      string
	OllamaModel        string
	Port               string
	MaxRetries         int
	MinRequestSeconds  int
	BrowserTimeoutSecs int
	SourceLimit        int
}

func Load() *Config {

	if os.Getenv("GOOGLE_API_KEY") != "" {
		return &Config{
			GoogleApiKey:       getEnv("GOOGLE_API_KEY", ""),
			ResearchModel:      getEnv("RESEARCH_MODEL", "gemini-3-flash-preview"),
			ChatModel:          getEnv("CHAT_MODEL", "gemini-3-flash-preview"),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_MODEL", "deepseek-r1:7b"),
			Port:               getEnv("PORT", "3000"),
			MaxRetries:         getEnvAsInt("MAX_RETRIES", 3),
			MinRequestSeconds:  getEnvAsInt("MIN_REQUEST_INTERVAL_SECONDS", 3),
			BrowserTimeoutSecs: getEnvAsInt("BROWSER_TIMEOUT_SECONDS", 30),
			SourceLimit:        getEnvAsInt("SOURCE_LIMIT", 3),
		}
	}

	return &Config{
		GoogleApiKey:       "",
		ResearchModel:      "",
		ChatModel:          "",
		OllamaBaseURL:      "http://localhost:11434",
		OllamaModel:        "deepseek-r1:7b",
		Port:               "3000",
		MaxRetries:         3,
		MinRequestSeconds:  3,
		BrowserTimeoutSecs: 30,
		SourceLimit:        3,
	}
}

// ResearchConfig maps the environment settings onto the pipeline tuning
// knobs. Fields without an environment override stay zero and take the
// pipeline defaults.
func (c *Config) ResearchConfig() research.Config {
	return research.Config{
		MaxRetries:         c.MaxRetries,
		MinRequestInterval: time.Duration(c.MinRequestSeconds) * time.Second,
		BrowserTimeout:     time.Duration(c.BrowserTimeoutSecs) * time.Second,
		SourceLimit:        c.SourceLimit,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
