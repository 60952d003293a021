package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/vision"
)

func TestAnalyze(t *testing.T) {
	env := newTestService(t)
	entry := addPhoto(t, env, "")

	labels, err := env.svc.Analyze(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp, Chair", labels)
	assert.Contains(t, scrape(t, env.metrics), `mystuff_analyses_total{backend="ollama",outcome="ok"} 1`)
}

func TestAnalyzeBackendError(t *testing.T) {
	env := newTestService(t)
	env.vision.err = &vision.AnalysisError{Kind: vision.APIError, Message: "invalid key"}
	entry := addPhoto(t, env, "")

	_, err := env.svc.Analyze(context.Background(), entry.ID)
	assert.Equal(t, vision.APIError, vision.KindOf(err))
	assert.Contains(t, scrape(t, env.metrics), `mystuff_analyses_total{backend="ollama",outcome="api error"} 1`)
}

func TestAnalyzeWithoutAnalyzer(t *testing.T) {
	env := newTestService(t, withoutAnalyzer())
	entry := addPhoto(t, env, "")

	_, err := env.svc.StartAnalysis(context.Background(), entry.ID)
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestAnalyzeRequiresCredential(t *testing.T) {
	env := newTestService(t, withCredentials(""))
	entry := addPhoto(t, env, "")

	_, err := env.svc.StartAnalysis(context.Background(), entry.ID)
	assert.ErrorIs(t, err, domain.ErrCredentialRequired)
	assert.Zero(t, env.vision.calls)

	require.NoError(t, env.svc.SetAPIKey(context.Background(), "sk-test"))
	labels, err := env.svc.Analyze(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp, Chair", labels)
}

func TestAnalyzeMissingPhoto(t *testing.T) {
	env := newTestService(t)
	entry := addPhoto(t, env, "")
	env.blobs.Delete(context.Background(), entry.ImageRef)

	_, err := env.svc.StartAnalysis(context.Background(), entry.ID)
	assert.Error(t, err)
	assert.Zero(t, env.vision.calls)
}

func TestAnalysisSessionApplyCaption(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	entry := addPhoto(t, env, "before")

	session, err := env.svc.StartAnalysis(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, session.EntryID())

	_, err = session.ApplyCaption(ctx)
	assert.ErrorIs(t, err, ErrNoLabels, "nothing to apply before the result arrives")

	_, err = session.Wait(ctx)
	require.NoError(t, err)
	updated, err := session.ApplyCaption(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lamp, Chair", updated.Caption)
}

func TestAnalysisSessionApplyItems(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	entry := addPhoto(t, env, "desk")
	_, err := env.svc.SetEntryItems(ctx, entry.ID, []ItemInput{{Name: "Old", Price: decimal.NewFromInt(9)}})
	require.NoError(t, err)

	session, err := env.svc.StartAnalysis(ctx, entry.ID)
	require.NoError(t, err)
	_, err = session.Wait(ctx)
	require.NoError(t, err)

	items, err := session.ApplyItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	got, total, err := env.svc.EntryItems(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lamp", got[0].Name)
	assert.Equal(t, "Chair", got[1].Name)
	assert.True(t, total.IsZero())
}

func TestAnalysisSessionApplyAfterFailure(t *testing.T) {
	env := newTestService(t)
	env.vision.err = &vision.AnalysisError{Kind: vision.NoDataReceived}
	ctx := context.Background()
	entry := addPhoto(t, env, "keep")

	session, err := env.svc.StartAnalysis(ctx, entry.ID)
	require.NoError(t, err)
	_, err = session.Wait(ctx)
	require.Error(t, err)

	_, err = session.ApplyCaption(ctx)
	assert.ErrorIs(t, err, ErrNoLabels)
	got, err := env.svc.GetEntry(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Caption)
}

func TestAnalysisSessionCloseDiscardsResult(t *testing.T) {
	env := newTestService(t)
	env.vision.block = make(chan struct{})
	ctx := context.Background()
	entry := addPhoto(t, env, "keep")

	session, err := env.svc.StartAnalysis(ctx, entry.ID)
	require.NoError(t, err)
	session.Close()

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("closing the session did not cancel the backend call")
	}

	_, err = session.Wait(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = session.ApplyCaption(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)

	got, err := env.svc.GetEntry(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Caption)
}

func TestAnalysisSessionWaitContext(t *testing.T) {
	env := newTestService(t)
	env.vision.block = make(chan struct{})
	entry := addPhoto(t, env, "")

	session, err := env.svc.StartAnalysis(context.Background(), entry.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = session.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(env.vision.block)
	labels, err := session.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lamp, Chair", labels)
}

func TestAnalysisSurvivesCallerCancel(t *testing.T) {
	env := newTestService(t)
	env.vision.block = make(chan struct{})
	entry := addPhoto(t, env, "")

	ctx, cancel := context.WithCancel(context.Background())
	session, err := env.svc.StartAnalysis(ctx, entry.ID)
	require.NoError(t, err)
	cancel()

	close(env.vision.block)
	labels, err := session.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lamp, Chair", labels)
}
