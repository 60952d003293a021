// Package ollama labels images with a local Ollama server. No credential is
// needed.
package ollama

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

const DefaultModel = "moondream"

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

type Analyzer struct {
	host   string
	model  string
	client *http.Client
}

func NewAnalyzer(host, model string) *Analyzer {
	if model == "" {
		model = DefaultModel
	}
	return &Analyzer{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

func (a *Analyzer) Analyze(ctx context.Context, jpeg []byte) (string, error) {
	if len(jpeg) == 0 {
		return "", &vision.AnalysisError{Kind: vision.ImageProcessingFailed, Err: fmt.Errorf("empty image")}
	}

	payload, err := json.Marshal(generateRequest{
		Model:  a.model,
		Prompt: vision.AnalysisPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(jpeg)},
		Stream: false,
	})
	if err != nil {
		return "", &vision.AnalysisError{Kind: vision.ImageProcessingFailed, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", &vision.AnalysisError{Kind: vision.Transport, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", vision.RequestFailed(ctx, fmt.Errorf("failed to call ollama: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", vision.RequestFailed(ctx, fmt.Errorf("failed to read response: %w", err))
	}

	var respBody generateResponse
	decodeErr := json.Unmarshal(data, &respBody)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && respBody.Error != "" {
			return "", &vision.AnalysisError{Kind: vision.APIError, Message: respBody.Error, StatusCode: resp.StatusCode}
		}
		return "", &vision.AnalysisError{Kind: vision.HTTPError, StatusCode: resp.StatusCode}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", &vision.AnalysisError{Kind: vision.NoDataReceived}
	}
	if decodeErr != nil {
		return "", &vision.AnalysisError{Kind: vision.InvalidResponse, Err: decodeErr}
	}
	if strings.TrimSpace(respBody.Response) == "" {
		return "", &vision.AnalysisError{Kind: vision.InvalidResponse}
	}

	return vision.NormalizeLabels(respBody.Response), nil
}
