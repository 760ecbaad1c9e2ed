package ai

import "context"

// ExtractedEvent is a calendar entry the model pulled out of an email
type ExtractedEvent struct {
	Title    string `json:"title"`
	Date     string `json:"date"` // ISO date string
	Time     string `json:"time,omitempty"`
	Location string `json:"location,omitempty"`
}

// ExtractedAction is a parent to-do the model pulled out of an email
type ExtractedAction struct {
	Title    string `json:"title"`
	Deadline string `json:"deadline"` // ISO date string
}

// EmailAnalysis is the structured result of classifying one school email.
// ChildName is empty when the model could not attribute the email; callers
// must check it against their own candidate list and never trust an
// out-of-set value.
type EmailAnalysis struct {
	ChildName string            `json:"childName"`
	Category  string            `json:"category"`
	Urgency   string            `json:"urgency"`
	Summary   string            `json:"summary"`
	Events    []ExtractedEvent  `json:"events"`
	Actions   []ExtractedAction `json:"actions"`
}

// AnalyzerService is the interface for AI email analysis.
// Implement this interface to add new AI providers (Gemini, Ollama, etc.)
type AnalyzerService interface {
	// AnalyzeEmail classifies an email against the given candidate child
	// names. preferredName is an optional hint from deterministic sender
	// matching; providers may use it to bias attribution.
	AnalyzeEmail(ctx context.Context, emailText string, candidateNames []string, preferredName string) (*EmailAnalysis, error)
	// GenerateDraftReply drafts a short reply to a school email on the
	// parent's behalf.
	GenerateDraftReply(ctx context.Context, subject, sender, summary string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
