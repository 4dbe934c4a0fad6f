package clients

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms/googleai"
)

// ModelType is an enum for the available Google AI models.
type ModelType string

const (
	// DefaultModel is the default model to use if none is specified
	DefaultModel ModelType = "gemini-3-flash-preview"
	ProModel     ModelType = "gemini-3-pro-preview"
)

// GoogleAi builds the Gemini client used as the primary research model.
// Generation runs cool for structured output; safety thresholds are off so
// that security and policy topics do not come back filtered.
func GoogleAi(ctx context.Context, model ModelType) (*googleai.GoogleAI, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
	}

	modelName := string(model)
	if modelName == "" {
		modelName = string(DefaultModel)
	}

	// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
	return googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(modelName),
		googleai.WithDefaultTemperature(0.4),
		googleai.WithDefaultTopP(0.95),
		googleai.WithDefaultTopK(40),
		googleai.WithDefaultMaxTokens(2048),
		googleai.WithHarmThreshold(googleai.HarmBlockNone),
	)
}
