package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiService implements AnalyzerService against the Gemini REST API
type GeminiService struct {
	ApiKey  string
	BaseURL string
	Model   string
	client  *http.Client
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{
		ApiKey:  apiKey,
		BaseURL: defaultBaseURL,
		Model:   "gemini-2.5-flash",
		client:  &http.Client{},
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// analysisSchema constrains the model to the exact JSON shape of
// EmailAnalysis so the response can be decoded strictly.
var analysisSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "childName": {"type": "STRING", "nullable": true},
    "category": {"type": "STRING", "enum": ["Action Required", "Event - Attendance", "Event - Parent Attendance", "Date to Note", "Information Only", "Payment Due"]},
    "summary": {"type": "STRING"},
    "urgency": {"type": "STRING", "enum": ["Low", "Medium", "High", "Critical"]},
    "events": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "title": {"type": "STRING"},
          "date": {"type": "STRING"},
          "time": {"type": "STRING"},
          "location": {"type": "STRING"}
        }
      }
    },
    "actions": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "title": {"type": "STRING"},
          "deadline": {"type": "STRING"}
        }
      }
    }
  }
}`)

// AnalyzeEmail implements AnalyzerService
func (g *GeminiService) AnalyzeEmail(ctx context.Context, emailText string, candidateNames []string, preferredName string) (*EmailAnalysis, error) {
	hint := ""
	if preferredName != "" {
		hint = fmt.Sprintf("\n    Sender matching suggests this email concerns %s; only pick a different child if the text clearly says otherwise.", preferredName)
	}

	prompt := fmt.Sprintf(`You are an intelligent assistant for the "SchoolSync" app.
    Analyze the following school email text.

    Context - Known Children: %s.%s

    Task:
    1. Identify which child this relates to (or null if unsure). The answer must be one of the known children.
    2. Categorize the email.
    3. Extract a short summary.
    4. Determine urgency.
    5. Extract any specific events (dates, times).
    6. Extract any specific actions required by the parent.

    Email Content:
    "%s"`, strings.Join(candidateNames, ", "), hint, emailText)

	body, err := g.generate(ctx, &generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   analysisSchema,
		},
	})
	if err != nil {
		return nil, err
	}

	return decodeAnalysis(body)
}

// GenerateDraftReply implements AnalyzerService
func (g *GeminiService) GenerateDraftReply(ctx context.Context, subject, sender, summary string) (string, error) {
	if summary == "" {
		summary = "General school update"
	}

	prompt := fmt.Sprintf(`You are an assistant for a busy parent.
    Draft a polite, professional, and concise email reply.

    Incoming Email Subject: "%s"
    Sender: %s
    Context/Summary of incoming email: "%s"

    If it's about a payment, confirm it will be handled.
    If it's about an event, acknowledge receipt.
    If the context is unclear, draft a generic polite acknowledgement.
    Keep it short (under 50 words). Do not include placeholders like [Your Name], just sign off as 'Parent'.`, subject, sender, summary)

	return g.generate(ctx, &generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
}

// generate posts one generateContent call and returns the first candidate text
func (g *GeminiService) generate(ctx context.Context, req *generateRequest) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.BaseURL, g.Model, g.ApiKey)

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := g.client
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// decodeAnalysis validates the model's JSON into a typed analysis.
// The text must be a single JSON object; anything else is an error so the
// caller can fall back to rule-based attribution.
func decodeAnalysis(text string) (*EmailAnalysis, error) {
	var analysis EmailAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &analysis); err != nil {
		return nil, fmt.Errorf("gemini returned invalid analysis JSON: %w", err)
	}
	return &analysis, nil
}
