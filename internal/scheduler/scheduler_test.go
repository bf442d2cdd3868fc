package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rcampos/macrodesk/pkg/logger"
)

type fakeJob struct{ name string }

func (j *fakeJob) Name() string                  { return j.name }
func (j *fakeJob) Run(ctx context.Context) error { return nil }
func (j *fakeJob) Schedule() string              { return "0 0 * * * *" }

// blockingJob runs until its context is cancelled.
type blockingJob struct {
	started chan struct{}
	err     chan error
}

func (j *blockingJob) Name() string     { return "blocking" }
func (j *blockingJob) Schedule() string { return "0 0 * * * *" }
func (j *blockingJob) Run(ctx context.Context) error {
	close(j.started)
	<-ctx.Done()
	j.err <- ctx.Err()
	return ctx.Err()
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(logger.NewNop())

	if err := s.AddJob(&fakeJob{name: "demo"}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.AddJob(&fakeJob{name: "demo"}); err == nil {
		t.Fatal("duplicate job name accepted")
	}
	if err := s.RunNow("missing"); err == nil {
		t.Fatal("RunNow on unknown job should fail")
	}

	stats := s.Stats()
	if _, ok := stats["demo"]; !ok {
		t.Fatal("registered job missing from stats")
	}
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := New(logger.NewNop())
	job := &blockingJob{
		started: make(chan struct{}),
		err:     make(chan error, 1),
	}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.RunNow("blocking"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	select {
	case <-job.started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}

	s.Stop()

	select {
	case err := <-job.err:
		if err != context.Canceled {
			t.Fatalf("job context error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running job's context")
	}
}

func TestJobHistory_Bounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "demo", Success: i%2 == 0})
	}
	if len(h.Results) != 100 {
		t.Fatalf("history length = %d, want 100", len(h.Results))
	}
	if h.Latest() == nil {
		t.Fatal("Latest returned nil for non-empty history")
	}
	if rate := h.SuccessRate(); rate < 0.4 || rate > 0.6 {
		t.Fatalf("success rate = %f", rate)
	}

	empty := &JobHistory{}
	if empty.Latest() != nil || empty.SuccessRate() != 0 {
		t.Fatal("empty history should have no latest result and zero rate")
	}
}
