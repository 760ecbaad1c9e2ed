package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// OllamaService implements AnalyzerService using a local Ollama LLM
type OllamaService struct {
	BaseURL string
	Model   string
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaService{BaseURL: baseURL, Model: model}
}

// AnalyzeEmail implements AnalyzerService
func (o *OllamaService) AnalyzeEmail(ctx context.Context, emailText string, candidateNames []string, preferredName string) (*EmailAnalysis, error) {
	hint := ""
	if preferredName != "" {
		hint = fmt.Sprintf("\nSender matching suggests the child is %s. Only pick a different child if the email clearly says otherwise.", preferredName)
	}

	prompt := fmt.Sprintf(`You are an assistant that analyzes school emails for parents.

Known children: %s.%s

Read the email and return ONE JSON object with exactly these fields:
- "childName": which known child the email relates to, or "" if unsure. Must be one of the known children.
- "category": one of "Action Required", "Event - Attendance", "Event - Parent Attendance", "Date to Note", "Information Only", "Payment Due"
- "urgency": one of "Low", "Medium", "High", "Critical"
- "summary": one short sentence
- "events": array of {"title", "date" (ISO), "time", "location"}
- "actions": array of {"title", "deadline" (ISO)}

Return ONLY the JSON object, no other text.

EMAIL:
%s

JSON OUTPUT:`, strings.Join(candidateNames, ", "), hint, emailText)

	raw, err := o.generate(ctx, prompt, 600, 0.2)
	if err != nil {
		return nil, err
	}

	jsonText := extractJSONObject(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("ollama returned no JSON object: %s", truncate(raw, 200))
	}

	var analysis EmailAnalysis
	if err := json.Unmarshal([]byte(jsonText), &analysis); err != nil {
		return nil, fmt.Errorf("ollama returned invalid analysis JSON: %w", err)
	}
	return &analysis, nil
}

// GenerateDraftReply implements AnalyzerService
func (o *OllamaService) GenerateDraftReply(ctx context.Context, subject, sender, summary string) (string, error) {
	if summary == "" {
		summary = "General school update"
	}

	prompt := fmt.Sprintf(`You are an assistant for a busy parent. Draft a polite, concise reply (under 50 words) to this school email. Sign off as 'Parent'. Return only the reply text.

Subject: "%s"
Sender: %s
Summary: "%s"`, subject, sender, summary)

	reply, err := o.generate(ctx, prompt, 150, 0.4)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// generate performs one non-streaming /api/generate call
func (o *OllamaService) generate(ctx context.Context, prompt string, numPredict int, temperature float64) (string, error) {
	url := o.BaseURL + "/api/generate"

	payload := map[string]interface{}{
		"model":  o.Model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": temperature,
			"num_predict": numPredict,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Response, nil
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSONObject pulls the first JSON object out of a model response that
// may be wrapped in prose or markdown fences.
func extractJSONObject(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return jsonObjectRe.FindString(cleaned)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
