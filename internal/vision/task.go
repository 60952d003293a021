package vision

import "context"

// Task is an analysis call running on its own goroutine.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	labels string
	err    error
}

// Start runs a.Analyze in the background. The call is abandoned when ctx is
// cancelled or Cancel is called.
func Start(ctx context.Context, a Analyzer, jpeg []byte) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		t.labels, t.err = a.Analyze(ctx, jpeg)
	}()
	return t
}

// Done is closed once the call has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the call returns or ctx ends. Ending ctx does not cancel
// the task.
func (t *Task) Wait(ctx context.Context) (string, error) {
	select {
	case <-t.done:
		return t.labels, t.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Task) Cancel() { t.cancel() }
