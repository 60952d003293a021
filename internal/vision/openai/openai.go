// Package openai labels images with the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/mystuff/internal/vision"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o"

	completionsPath = "/v1/chat/completions"
	maxTokens       = 300
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// request types mirror the chat completions API structure.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// KeyFunc returns the current API key.
type KeyFunc func() (string, error)

type Analyzer struct {
	key     KeyFunc
	model   string
	baseURL string
	client  *http.Client
}

type Option func(*Analyzer)

func WithBaseURL(u string) Option {
	return func(a *Analyzer) {
		if u != "" {
			a.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(a *Analyzer) { a.client = c }
}

func NewAnalyzer(key KeyFunc, model string, opts ...Option) *Analyzer {
	if model == "" {
		model = DefaultModel
	}
	a := &Analyzer{
		key:     key,
		model:   model,
		baseURL: DefaultBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Analyze(ctx context.Context, jpeg []byte) (string, error) {
	if len(jpeg) == 0 {
		return "", &vision.AnalysisError{Kind: vision.ImageProcessingFailed, Err: fmt.Errorf("empty image")}
	}
	key, err := a.key()
	if err != nil {
		return "", err
	}

	body := chatRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: vision.AnalysisPrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg),
				}},
			},
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &vision.AnalysisError{Kind: vision.ImageProcessingFailed, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", &vision.AnalysisError{Kind: vision.Transport, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", vision.RequestFailed(ctx, fmt.Errorf("failed to call openai: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close openai response body", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", vision.RequestFailed(ctx, fmt.Errorf("failed to read response: %w", err))
	}

	return parseResponse(resp.StatusCode, data)
}

func parseResponse(status int, data []byte) (string, error) {
	if status != http.StatusOK {
		var parsed chatResponse
		if json.Unmarshal(data, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return "", &vision.AnalysisError{Kind: vision.APIError, Message: parsed.Error.Message, StatusCode: status}
		}
		return "", &vision.AnalysisError{Kind: vision.HTTPError, StatusCode: status}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return "", &vision.AnalysisError{Kind: vision.NoDataReceived}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &vision.AnalysisError{Kind: vision.InvalidResponse, Err: err}
	}
	if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
		return vision.NormalizeLabels(parsed.Choices[0].Message.Content), nil
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", &vision.AnalysisError{Kind: vision.APIError, Message: parsed.Error.Message}
	}
	return "", &vision.AnalysisError{Kind: vision.InvalidResponse}
}
