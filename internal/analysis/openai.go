package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/botdeck/botdeck/internal/config"
)

const systemPrompt = "You are a Discord bot code analyzer. Analyze the given code and provide " +
	"suggestions for improvements, security concerns, and performance optimizations. " +
	"Response must be in JSON format with arrays of strings for suggestions, security, and performance."

// OpenAIClient calls an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string

	httpClient *http.Client
}

// NewOpenAIClient constructs a client from provider configuration. The HTTP
// client timeout bounds the whole call so a stalled provider cannot hold a
// request forever.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze sends the snippet to the provider and parses the JSON report it
// returns.
func (c *OpenAIClient) Analyze(ctx context.Context, code string) (*Report, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("%w: no api key configured", ErrAnalysisFailed)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: code},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, errMarshal := json.Marshal(reqBody)
	if errMarshal != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrAnalysisFailed, errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if errReq != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrAnalysisFailed, errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrAnalysisFailed, errRead)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: provider returned status %d: %s", ErrAnalysisFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if errUnmarshal := json.Unmarshal(body, &parsed); errUnmarshal != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrAnalysisFailed, errUnmarshal)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: provider returned no choices", ErrAnalysisFailed)
	}

	var report Report
	if errUnmarshal := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &report); errUnmarshal != nil {
		return nil, fmt.Errorf("%w: parse analysis: %v", ErrAnalysisFailed, errUnmarshal)
	}
	if report.Suggestions == nil {
		report.Suggestions = []string{}
	}
	if report.Security == nil {
		report.Security = []string{}
	}
	if report.Performance == nil {
		report.Performance = []string{}
	}
	return &report, nil
}
