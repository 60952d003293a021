// Package claude labels images with the Anthropic Messages API.
package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/mystuff/internal/vision"
)

const DefaultModel = "claude-sonnet-4-5"

// maxTokens matches the reply budget of the other backends; a label list for
// one photo is far shorter.
const maxTokens = 300

type KeyFunc func() (string, error)

type Analyzer struct {
	key     KeyFunc
	model   string
	baseURL string
}

type Option func(*Analyzer)

// WithBaseURL points the client at another Messages API root, e.g.
// "http://localhost:8080/v1".
func WithBaseURL(u string) Option {
	return func(a *Analyzer) { a.baseURL = strings.TrimRight(u, "/") }
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

func (a *Analyzer) client(key string) *anthropic.Client {
	var opts []anthropic.ClientOption
	if a.baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(a.baseURL))
	}
	return anthropic.NewClient(key, opts...)
}

func (a *Analyzer) Analyze(ctx context.Context, jpeg []byte) (string, error) {
	if len(jpeg) == 0 {
		return "", &vision.AnalysisError{Kind: vision.ImageProcessingFailed, Err: fmt.Errorf("empty image")}
	}
	key, err := a.key()
	if err != nil {
		return "", err
	}

	resp, err := a.client(key).CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					"image/jpeg",
					base64.StdEncoding.EncodeToString(jpeg),
				)),
				anthropic.NewTextMessageContent(vision.AnalysisPrompt),
			},
		}},
	})
	if err != nil {
		return "", classify(ctx, err)
	}

	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			if text := blk.GetText(); strings.TrimSpace(text) != "" {
				return vision.NormalizeLabels(text), nil
			}
		}
	}
	if len(resp.Content) == 0 {
		return "", &vision.AnalysisError{Kind: vision.NoDataReceived}
	}
	return "", &vision.AnalysisError{Kind: vision.InvalidResponse}
}

func classify(ctx context.Context, err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return &vision.AnalysisError{Kind: vision.APIError, Message: apiErr.Message, Err: err}
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
		return &vision.AnalysisError{Kind: vision.HTTPError, StatusCode: reqErr.StatusCode, Err: err}
	}
	return vision.RequestFailed(ctx, fmt.Errorf("failed to call claude: %w", err))
}
