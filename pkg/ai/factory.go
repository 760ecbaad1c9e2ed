package ai

import "fmt"

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// NewAnalyzerService creates an AnalyzerService based on the config.
// "auto" uses Gemini with Ollama as fallback when both are configured.
func NewAnalyzerService(cfg Config) (AnalyzerService, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		if cfg.GeminiAPIKey == "" {
			return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil
		}
		if cfg.OllamaBaseURL == "" {
			return NewGeminiService(cfg.GeminiAPIKey), nil
		}
		return NewFallbackService(
			NewGeminiService(cfg.GeminiAPIKey),
			NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel),
		), nil
	}
}
