package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/imaging"
	"github.com/vbonduro/mystuff/internal/vision"
)

var (
	// ErrSessionClosed is returned by an AnalysisSession after Close.
	ErrSessionClosed = errors.New("analysis session closed")
	// ErrNoLabels is returned when applying a session whose analysis did not
	// produce a result.
	ErrNoLabels = errors.New("analysis has no result")
)

// AnalysisSession is one background analysis of an entry's photo. The result
// is only delivered while the session is open; a result arriving after Close
// is dropped.
type AnalysisSession struct {
	svc     *JournalService
	entryID uuid.UUID
	task    *vision.Task

	mu       sync.Mutex
	closed   bool
	finished bool
	labels   string
	err      error
}

// StartAnalysis prepares the entry's photo and sends it to the vision backend
// on a background goroutine.
func (s *JournalService) StartAnalysis(ctx context.Context, id uuid.UUID) (*AnalysisSession, error) {
	if s.analyzer == nil {
		return nil, ErrAnalysisUnavailable
	}
	if !s.APIKeyConfigured() {
		return nil, fmt.Errorf("%s: %w", s.backend, domain.ErrCredentialRequired)
	}

	data, err := s.Photo(ctx, id)
	if err != nil {
		return nil, err
	}
	jpeg, err := imaging.PrepareForAnalysis(data)
	if err != nil {
		s.metrics.ObserveAnalysis(s.backend, vision.ImageProcessingFailed.String(), 0)
		return nil, &vision.AnalysisError{Kind: vision.ImageProcessingFailed, Err: err}
	}

	s.logger.Info("analysis started", "entry_id", id, "backend", s.backend, "bytes", len(jpeg))
	task := vision.Start(context.WithoutCancel(ctx), &observedAnalyzer{svc: s, next: s.analyzer}, jpeg)
	return &AnalysisSession{svc: s, entryID: id, task: task}, nil
}

// Analyze runs an analysis to completion and returns the labels.
func (s *JournalService) Analyze(ctx context.Context, id uuid.UUID) (string, error) {
	session, err := s.StartAnalysis(ctx, id)
	if err != nil {
		return "", err
	}
	labels, err := session.Wait(ctx)
	if err != nil {
		session.Close()
		return "", err
	}
	return labels, nil
}

func (a *AnalysisSession) EntryID() uuid.UUID { return a.entryID }

// Done is closed when the backend call has returned.
func (a *AnalysisSession) Done() <-chan struct{} { return a.task.Done() }

// Wait blocks until the analysis finishes, ctx ends or the session is closed.
func (a *AnalysisSession) Wait(ctx context.Context) (string, error) {
	if a.isClosed() {
		return "", ErrSessionClosed
	}
	select {
	case <-a.task.Done():
	case <-ctx.Done():
		return "", ctx.Err()
	}
	labels, err := a.task.Wait(context.Background())

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.svc.logger.Info("analysis result discarded", "entry_id", a.entryID)
		return "", ErrSessionClosed
	}
	a.finished = true
	a.labels, a.err = labels, err
	return labels, err
}

// Close abandons the session. The backend call is cancelled and any result
// is discarded.
func (a *AnalysisSession) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.task.Cancel()
}

// ApplyCaption stores the labels as the entry's caption.
func (a *AnalysisSession) ApplyCaption(ctx context.Context) (domain.PhotoEntry, error) {
	labels, err := a.result()
	if err != nil {
		return domain.PhotoEntry{}, err
	}
	return a.svc.UpdateCaption(ctx, a.entryID, labels)
}

// ApplyItems turns the labels into zero-priced items and attaches them to the
// entry, replacing any existing list.
func (a *AnalysisSession) ApplyItems(ctx context.Context) ([]domain.LineItem, error) {
	labels, err := a.result()
	if err != nil {
		return nil, err
	}
	items := domain.ItemsFromLabels(labels)
	if len(items) == 0 {
		return nil, ErrNoLabels
	}
	if err := a.svc.entries.AttachItemList(ctx, a.entryID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *AnalysisSession) result() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.closed:
		return "", ErrSessionClosed
	case !a.finished || a.err != nil:
		return "", ErrNoLabels
	}
	return a.labels, nil
}

func (a *AnalysisSession) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// observedAnalyzer records latency and outcome of each backend call.
type observedAnalyzer struct {
	svc  *JournalService
	next vision.Analyzer
}

func (o *observedAnalyzer) Analyze(ctx context.Context, jpeg []byte) (string, error) {
	start := time.Now()
	labels, err := o.next.Analyze(ctx, jpeg)

	result := "ok"
	if err != nil {
		result = "error"
		if kind := vision.KindOf(err); kind != 0 {
			result = kind.String()
		}
		o.svc.logger.Warn("analysis failed", "backend", o.svc.backend, "error", err)
	}
	o.svc.metrics.ObserveAnalysis(o.svc.backend, result, time.Since(start))
	return labels, err
}
