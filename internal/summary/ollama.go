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

// Ollama defaults.
const (
	DefaultOllamaBaseURL   = "http://localhost:11434"
	DefaultOllamaModel     = "llama3.2"
	DefaultOllamaTimeout   = 120 * time.Second
	defaultOllamaMaxChars  = 24000
	defaultOllamaConfident = 0.6
	probeTimeout           = 2 * time.Second
)

// OllamaConfig configures the local-inference summarization backend.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MinTextLen  int
	MaxChars    int
	Confidence  float64
	MaxKeywords int
}

// OllamaProvider summarizes through a local Ollama server's /api/generate
// endpoint. Grouped with the Claude provider behind the Provider interface so
// the router owns the local-versus-remote policy.
type OllamaProvider struct {
	client      *http.Client
	baseURL     string
	model       string
	minTextLen  int
	maxChars    int
	confidence  float64
	maxKeywords int
}

type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaProvider creates the local-inference provider.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOllamaTimeout
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = defaultOllamaMaxChars
	}
	if cfg.Confidence == 0 {
		cfg.Confidence = defaultOllamaConfident
	}
	if cfg.MaxKeywords == 0 {
		cfg.MaxKeywords = defaultMaxKeywords
	}
	return &OllamaProvider{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		minTextLen:  cfg.MinTextLen,
		maxChars:    cfg.MaxChars,
		confidence:  cfg.Confidence,
		maxKeywords: cfg.MaxKeywords,
	}
}

// Name returns "ollama".
func (p *OllamaProvider) Name() string { return "ollama" }

const summarizePrompt = `Summarize the following news article in %d characters or less.
Be concise and capture the key points. Return only the summary.

Article:
%s

Summary:`

// Summarize produces a summary via local inference.
func (p *OllamaProvider) Summarize(ctx context.Context, text string, maxLen int) (*models.Summary, error) {
	input, truncated, err := prepareInput(text, p.minTextLen, p.maxChars)
	if err != nil {
		return nil, err
	}
	if maxLen <= 0 {
		maxLen = 400
	}
	out, err := p.generate(ctx, fmt.Sprintf(summarizePrompt, maxLen, input), maxLen/4+50)
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

const answerPrompt = `Answer the question using only the context below. If the context
does not contain the answer, say so.

Context:
%s

Question: %s

Answer:`

// Answer generates an answer conditioned on contextText.
func (p *OllamaProvider) Answer(ctx context.Context, question, contextText string) (*models.Summary, error) {
	input, truncated, err := prepareInput(contextText, p.minTextLen, p.maxChars)
	if err != nil {
		return nil, err
	}
	out, err := p.generate(ctx, fmt.Sprintf(answerPrompt, input, question), 512)
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

func (p *OllamaProvider) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   p.model,
		Prompt:  prompt,
		Stream:  false,
		Options: &generateOptions{NumPredict: maxTokens, Temperature: 0.3},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", transportErr(ctx, p.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", transportErr(ctx, p.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, string(msg)))
	}
	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", transportErr(ctx, p.Name(), fmt.Errorf("decode response: %w", err))
	}
	return strings.TrimSpace(genResp.Response), nil
}

// Available probes /api/tags; connectivity only, no inference.
func (p *OllamaProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
