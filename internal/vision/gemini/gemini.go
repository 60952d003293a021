// Package gemini labels images with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/vbonduro/mystuff/internal/vision"
)

const DefaultModel = "gemini-2.0-flash"

type KeyFunc func() (string, error)

type Analyzer struct {
	key     KeyFunc
	model   string
	baseURL string
}

type Option func(*Analyzer)

func WithBaseURL(u string) Option {
	return func(a *Analyzer) { a.baseURL = u }
}

func NewAnalyzer(key KeyFunc, model string, opts ...Option) *Analyzer {
	if model == "" {
		model = DefaultModel
	}
	a := &Analyzer{key: key, model: model}
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

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: a.baseURL},
	})
	if err != nil {
		return "", &vision.AnalysisError{Kind: vision.Transport, Err: fmt.Errorf("failed to initialize gemini client: %w", err)}
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: vision.AnalysisPrompt},
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: jpeg}},
		},
	}}

	resp, err := client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", classify(ctx, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &vision.AnalysisError{Kind: vision.NoDataReceived}
	}

	var text strings.Builder
	if c := resp.Candidates[0].Content; c != nil {
		for _, part := range c.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", &vision.AnalysisError{Kind: vision.InvalidResponse}
	}
	return vision.NormalizeLabels(text.String()), nil
}

func classify(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiError(*apiErrPtr, err)
	}
	return vision.RequestFailed(ctx, fmt.Errorf("failed to call gemini: %w", err))
}

func apiError(e genai.APIError, err error) error {
	if e.Message == "" {
		return &vision.AnalysisError{Kind: vision.HTTPError, StatusCode: e.Code, Err: err}
	}
	return &vision.AnalysisError{Kind: vision.APIError, Message: e.Message, StatusCode: e.Code, Err: err}
}
