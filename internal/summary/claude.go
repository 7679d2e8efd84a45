package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newsdesk/kiji/internal/models"
)

// Claude defaults.
const (
	DefaultClaudeBaseURL   = "https://api.anthropic.com"
	DefaultClaudeModel     = "claude-3-5-haiku-latest"
	DefaultClaudeTimeout   = 60 * time.Second
	defaultClaudeMaxChars  = 150000
	defaultClaudeConfident = 0.9

	anthropicVersion = "2023-06-01"
)

// ClaudeConfig configures the remote-API summarization backend.
type ClaudeConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MinTextLen  int
	MaxChars    int
	Confidence  float64
	MaxKeywords int
}

// ClaudeProvider summarizes through the Anthropic /v1/messages API.
type ClaudeProvider struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	minTextLen  int
	maxChars    int
	confidence  float64
	maxKeywords int
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClaudeProvider creates the remote-API provider. The API key is required.
func NewClaudeProvider(cfg ClaudeConfig) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultClaudeBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultClaudeModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultClaudeTimeout
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = defaultClaudeMaxChars
	}
	if cfg.Confidence == 0 {
		cfg.Confidence = defaultClaudeConfident
	}
	if cfg.MaxKeywords == 0 {
		cfg.MaxKeywords = defaultMaxKeywords
	}
	return &ClaudeProvider{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		minTextLen:  cfg.MinTextLen,
		maxChars:    cfg.MaxChars,
		confidence:  cfg.Confidence,
		maxKeywords: cfg.MaxKeywords,
	}, nil
}

// Name returns "claude".
func (p *ClaudeProvider) Name() string { return "claude" }

const claudeSummarizeSystem = "You summarize tech-news articles. Be concise, capture the key points, and return only the summary text."

// Summarize produces a summary via the remote API.
func (p *ClaudeProvider) Summarize(ctx context.Context, text string, maxLen int) (*models.Summary, error) {
	input, truncated, err := prepareInput(text, p.minTextLen, p.maxChars)
	if err != nil {
		return nil, err
	}
	if maxLen <= 0 {
		maxLen = 400
	}
	prompt := fmt.Sprintf("Summarize the following article in %d characters or less:\n\n%s", maxLen, input)
	out, err := p.send(ctx, claudeSummarizeSystem, prompt, maxLen/4+50)
	if err != nil {
		return nil, err
	}
	return &models.Summary{
		Text:       out,
		Keywords:   ExtractKeywords(input, p.maxKeywords),
		Provider:   p.Name(),
		Confidence: p.confidence,
		Truncated:  truncated,
	}, nil
}

const claudeAnswerSystem = "Answer the user's question using only the provided context. If the context does not contain the answer, say so."

// Answer generates an answer conditioned on contextText.
func (p *ClaudeProvider) Answer(ctx context.Context, question, contextText string) (*models.Summary, error) {
	input, truncated, err := prepareInput(contextText, p.minTextLen, p.maxChars)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", input, question)
	out, err := p.send(ctx, claudeAnswerSystem, prompt, 1024)
	if err != nil {
		return nil, err
	}
	return &models.Summary{
		Text:       out,
		Provider:   p.Name(),
		Confidence: p.confidence,
		Truncated:  truncated,
	}, nil
}

func (p *ClaudeProvider) send(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(claudeRequest{
		Model:       p.model,
		Messages:    []claudeMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", transportErr(ctx, p.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", transportErr(ctx, p.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, string(msg)))
	}
	var msgResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", transportErr(ctx, p.Name(), fmt.Errorf("decode response: %w", err))
	}
	if msgResp.Error != nil {
		return "", transportErr(ctx, p.Name(), fmt.Errorf("%s: %s", msgResp.Error.Type, msgResp.Error.Message))
	}
	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Available checks that an API key is configured and the endpoint resolves.
// A HEAD-style models listing keeps the probe cheap; any error means unavailable.
func (p *ClaudeProvider) Available(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
