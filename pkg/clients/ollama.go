package clients

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	defaultOllamaModel = "deepseek-r1:7b"
	defaultOllamaURL   = "http://localhost:11434"
)

// Ollama builds the local model client that takes over when the hosted
// provider fails or runs out of quota.
func Ollama() (*ollama.LLM, error) {
	_ = godotenv.Load()

	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = defaultOllamaModel
	}
	serverURL := os.Getenv("OLLAMA_BASE_URL")
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}

	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(serverURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return llm, nil
}
