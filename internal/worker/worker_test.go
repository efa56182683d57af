package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"panorama/internal/queue"
)

type fakeConsumer struct {
	ch chan queue.Delivery
}

func (f *fakeConsumer) Consume(context.Context) (<-chan queue.Delivery, error) { return f.ch, nil }
func (f *fakeConsumer) Close() error                                           { return nil }

type fakeRecorder struct {
	mu     sync.Mutex
	states map[string][]queue.Status
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{states: make(map[string][]queue.Status)}
}

func (r *fakeRecorder) Record(_ context.Context, task *queue.Task, status queue.Status, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[task.ID] = append(r.states[task.ID], status)
	return nil
}

type hookCounter struct {
	acks, nacks, drops int
}

func (h *hookCounter) delivery(task *queue.Task) queue.Delivery {
	return queue.NewDelivery(task,
		func() error { h.acks++; return nil },
		func() error { h.nacks++; return nil },
		func() error { h.drops++; return nil },
	)
}

// runWorker feeds the deliveries through a worker and returns when the
// (closed) channel is drained.
func runWorker(t *testing.T, w *Worker, f *fakeConsumer, deliveries ...queue.Delivery) {
	t.Helper()
	for _, d := range deliveries {
		f.ch <- d
	}
	close(f.ch)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestWorkerSuccessAcksEarly(t *testing.T) {
	task, _ := queue.NewTask("ok", nil)
	rec := newFakeRecorder()
	f := &fakeConsumer{ch: make(chan queue.Delivery, 1)}
	hooks := &hookCounter{}

	handlers := map[string]HandlerFunc{
		"ok": func(context.Context, *queue.Task) error { return nil },
	}
	w := New(f, rec, handlers, false)
	runWorker(t, w, f, hooks.delivery(task))

	if hooks.acks != 1 {
		t.Fatalf("acks = %d, want 1", hooks.acks)
	}
	if hooks.nacks != 0 || hooks.drops != 0 {
		t.Fatalf("unexpected nacks/drops: %d/%d", hooks.nacks, hooks.drops)
	}
	want := []queue.Status{queue.StatusStarted, queue.StatusSuccess}
	got := rec.states[task.ID]
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("recorded states = %v, want %v", got, want)
	}
}

func TestWorkerFailureAcksEarlyStillConsumes(t *testing.T) {
	task, _ := queue.NewTask("boom", nil)
	rec := newFakeRecorder()
	f := &fakeConsumer{ch: make(chan queue.Delivery, 1)}
	hooks := &hookCounter{}

	handlers := map[string]HandlerFunc{
		"boom": func(context.Context, *queue.Task) error { return errors.New("render failed") },
	}
	w := New(f, rec, handlers, false)
	runWorker(t, w, f, hooks.delivery(task))

	// acks-early: the delivery was acknowledged before the handler ran,
	// so a failure must not requeue.
	if hooks.acks != 1 || hooks.nacks != 0 {
		t.Fatalf("acks/nacks = %d/%d, want 1/0", hooks.acks, hooks.nacks)
	}
	got := rec.states[task.ID]
	if len(got) != 2 || got[1] != queue.StatusFailure {
		t.Fatalf("recorded states = %v, want failure last", got)
	}
}

func TestWorkerFailureAcksLateRequeues(t *testing.T) {
	task, _ := queue.NewTask("boom", nil)
	rec := newFakeRecorder()
	f := &fakeConsumer{ch: make(chan queue.Delivery, 1)}
	hooks := &hookCounter{}

	handlers := map[string]HandlerFunc{
		"boom": func(context.Context, *queue.Task) error { return errors.New("render failed") },
	}
	w := New(f, rec, handlers, true)
	runWorker(t, w, f, hooks.delivery(task))

	if hooks.acks != 0 || hooks.nacks != 1 {
		t.Fatalf("acks/nacks = %d/%d, want 0/1", hooks.acks, hooks.nacks)
	}
}

func TestWorkerSuccessAcksLate(t *testing.T) {
	task, _ := queue.NewTask("ok", nil)
	rec := newFakeRecorder()
	f := &fakeConsumer{ch: make(chan queue.Delivery, 1)}
	hooks := &hookCounter{}

	handlers := map[string]HandlerFunc{
		"ok": func(context.Context, *queue.Task) error { return nil },
	}
	w := New(f, rec, handlers, true)
	runWorker(t, w, f, hooks.delivery(task))

	if hooks.acks != 1 || hooks.nacks != 0 {
		t.Fatalf("acks/nacks = %d/%d, want 1/0", hooks.acks, hooks.nacks)
	}
}

func TestWorkerUnknownTaskDiscarded(t *testing.T) {
	task, _ := queue.NewTask("nobody.handles.this", nil)
	rec := newFakeRecorder()
	f := &fakeConsumer{ch: make(chan queue.Delivery, 1)}
	hooks := &hookCounter{}

	w := New(f, rec, map[string]HandlerFunc{}, false)
	runWorker(t, w, f, hooks.delivery(task))

	if hooks.drops != 1 {
		t.Fatalf("drops = %d, want 1", hooks.drops)
	}
	if len(rec.states[task.ID]) != 0 {
		t.Fatalf("unknown task should not reach the result backend, got %v", rec.states[task.ID])
	}
}

func TestRegistryResolveHonorsImports(t *testing.T) {
	reg := NewRegistry()
	noop := func(context.Context, *queue.Task) error { return nil }
	reg.Register("panorama.reports", "reports.run", noop)
	reg.Register("panorama.thumbnails", "thumbnails.render", noop)

	handlers := reg.Resolve([]string{"panorama.reports"})
	if _, ok := handlers["reports.run"]; !ok {
		t.Fatal("enabled import's handler missing")
	}
	if _, ok := handlers["thumbnails.render"]; ok {
		t.Fatal("disabled import's handler leaked into the dispatch table")
	}
}
