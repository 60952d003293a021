package vision

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AnalysisPrompt is the shared prompt used by all vision adapters.
const AnalysisPrompt = "What objects (not humans or pets) can you identify in this image? Please list them as comma-separated values."

// DefaultTimeout bounds a single analysis call.
const DefaultTimeout = 30 * time.Second

// Analyzer labels the objects in a JPEG image. The result is a
// comma-delimited label string.
type Analyzer interface {
	Analyze(ctx context.Context, jpeg []byte) (string, error)
}

type Kind int

const (
	ImageProcessingFailed Kind = iota + 1
	NoDataReceived
	InvalidResponse
	APIError
	HTTPError
	Timeout
	// Transport covers connection failures before any response arrives.
	Transport
)

func (k Kind) String() string {
	switch k {
	case ImageProcessingFailed:
		return "image processing failed"
	case NoDataReceived:
		return "no data received"
	case InvalidResponse:
		return "invalid response"
	case APIError:
		return "api error"
	case HTTPError:
		return "http error"
	case Timeout:
		return "timeout"
	case Transport:
		return "transport error"
	default:
		return "unknown"
	}
}

// AnalysisError is returned by every Analyzer. Message is set for APIError,
// StatusCode for HTTPError.
type AnalysisError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *AnalysisError) Error() string {
	switch {
	case e.Kind == APIError && e.Message != "":
		return fmt.Sprintf("analysis: %s: %s", e.Kind, e.Message)
	case e.Kind == HTTPError:
		return fmt.Sprintf("analysis: %s: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("analysis: %s: %v", e.Kind, e.Err)
	default:
		return "analysis: " + e.Kind.String()
	}
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Is matches another *AnalysisError of the same kind, so callers can write
// errors.Is(err, &vision.AnalysisError{Kind: vision.Timeout}).
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of an analysis error, or 0 if err is not one.
func KindOf(err error) Kind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// RequestFailed classifies an error returned while sending a request. Context
// deadlines become Timeout; everything else is a Transport failure.
func RequestFailed(ctx context.Context, err error) *AnalysisError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &AnalysisError{Kind: Timeout, Err: err}
	}
	return &AnalysisError{Kind: Transport, Err: err}
}

type timeoutAnalyzer struct {
	next    Analyzer
	timeout time.Duration
}

// WithTimeout bounds every call to a by d. A call that runs out of time fails
// with a Timeout error even when the backend reports something else.
func WithTimeout(a Analyzer, d time.Duration) Analyzer {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutAnalyzer{next: a, timeout: d}
}

func (t *timeoutAnalyzer) Analyze(ctx context.Context, jpeg []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	labels, err := t.next.Analyze(ctx, jpeg)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", &AnalysisError{Kind: Timeout, Err: err}
	}
	return labels, err
}
