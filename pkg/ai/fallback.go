package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService routes analysis calls across two providers:
// Gemini first (better structured output), Ollama when Gemini is
// quota-limited or unreachable.
type FallbackService struct {
	gemini AnalyzerService
	ollama *OllamaService
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(gemini AnalyzerService, ollama *OllamaService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// AnalyzeEmail tries Gemini first, falls back to Ollama on quota or connection errors
func (f *FallbackService) AnalyzeEmail(ctx context.Context, emailText string, candidateNames []string, preferredName string) (*EmailAnalysis, error) {
	if f.gemini != nil {
		result, err := f.gemini.AnalyzeEmail(ctx, emailText, candidateNames, preferredName)
		if err == nil {
			return result, nil
		}

		if isQuotaError(err) {
			log.Printf("[AI] Gemini quota exhausted: %v, falling back to Ollama", err)
		} else {
			log.Printf("[AI] Gemini analysis error: %v, falling back to Ollama", err)
		}
	}

	if f.ollama != nil {
		result, err := f.ollama.AnalyzeEmail(ctx, emailText, candidateNames, preferredName)
		if err == nil {
			return result, nil
		}

		// Ollama unreachable, give Gemini one more try before giving up
		if isConnectionError(err) && f.gemini != nil {
			log.Printf("[AI] Ollama connection failed: %v, retrying Gemini", err)
			return f.gemini.AnalyzeEmail(ctx, emailText, candidateNames, preferredName)
		}

		return nil, fmt.Errorf("ollama analysis failed: %w", err)
	}

	return nil, fmt.Errorf("no AI provider available for analysis")
}

// GenerateDraftReply tries Gemini first, falls back to Ollama the same way
func (f *FallbackService) GenerateDraftReply(ctx context.Context, subject, sender, summary string) (string, error) {
	if f.gemini != nil {
		result, err := f.gemini.GenerateDraftReply(ctx, subject, sender, summary)
		if err == nil {
			return result, nil
		}
		log.Printf("[AI] Gemini draft error: %v, falling back to Ollama", err)
	}

	if f.ollama != nil {
		result, err := f.ollama.GenerateDraftReply(ctx, subject, sender, summary)
		if err == nil {
			return result, nil
		}
		return "", fmt.Errorf("ollama draft failed: %w", err)
	}

	return "", fmt.Errorf("no AI provider available for draft replies")
}
