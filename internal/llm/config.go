package llm

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Provider names accepted in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Config is injected into the gateway at construction.
type Config struct {
	Provider  string `validate:"oneof=openai gemini mock"`
	APIKey    string `validate:"required_unless=Provider mock"`
	ModelName string `validate:"required"`
	// BaseURL overrides the OpenAI-compatible endpoint (ollama, OpenRouter).
	BaseURL             string  `validate:"omitempty,url"`
	ResponseTemperature float64 `validate:"gte=0,lte=2"`
	// MaxPromptChars caps the prompt length in characters; 0 disables the cap.
	MaxPromptChars int           `validate:"gte=0"`
	Timeout        time.Duration `validate:"gte=0"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Provider:            ProviderGemini,
		ModelName:           "gemini-2.0-flash",
		ResponseTemperature: 0.2,
		MaxPromptChars:      20000,
		Timeout:             90 * time.Second,
	}
}

var validate = validator.New()

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid LLM config: %w", err)
	}
	return nil
}
