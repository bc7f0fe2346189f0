package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/tasks"
)

type fakeRebuilder struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
	ran   chan struct{}
}

func (f *fakeRebuilder) Rebuild(ctx context.Context) (service.CorpusStats, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.ran != nil {
		f.ran <- struct{}{}
	}
	return service.CorpusStats{Records: 3}, f.err
}

func (f *fakeRebuilder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []tasks.CorpusRebuildTask
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, task tasks.CorpusRebuildTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return nil
}

func TestProcessorPropagatesError(t *testing.T) {
	rb := &fakeRebuilder{err: errors.New("corpus unavailable")}
	p := NewProcessor(rb)
	if err := p.Process(context.Background(), service.NewRebuildTask(tasks.ReasonManual, 0)); err == nil {
		t.Error("Process swallowed rebuild error")
	}
	rb.err = nil
	if err := p.Process(context.Background(), service.NewRebuildTask(tasks.ReasonManual, 0)); err != nil {
		t.Errorf("Process: %v", err)
	}
}

func TestLocalDispatcherCoalesces(t *testing.T) {
	rb := &fakeRebuilder{block: make(chan struct{}), ran: make(chan struct{}, 10)}
	d := NewLocalDispatcher(NewProcessor(rb))
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// 第一个任务被取出后阻塞在 Rebuild，随后最多只有一个任务排队
	_ = d.Dispatch(ctx, service.NewRebuildTask(tasks.ReasonRecordAdded, 0))
	deadline := time.Now().Add(2 * time.Second)
	for len(d.pending) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		_ = d.Dispatch(ctx, service.NewRebuildTask(tasks.ReasonRecordAdded, 0))
	}
	close(rb.block)

	for i := 0; i < 2; i++ {
		select {
		case <-rb.ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("rebuild %d did not run", i+1)
		}
	}
	cancel()
	d.Wait()
	if got := rb.count(); got != 2 {
		t.Errorf("rebuilds = %d, want 2", got)
	}
}

func TestLocalDispatcherWaitsForInFlightRebuild(t *testing.T) {
	rb := &fakeRebuilder{block: make(chan struct{}), ran: make(chan struct{}, 1)}
	d := NewLocalDispatcher(NewProcessor(rb))
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	_ = d.Dispatch(ctx, service.NewRebuildTask(tasks.ReasonManual, 0))
	deadline := time.Now().Add(2 * time.Second)
	for len(d.pending) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Wait returned while a rebuild was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(rb.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the rebuild finished")
	}
	if got := rb.count(); got != 1 {
		t.Errorf("rebuilds = %d, want 1", got)
	}
}

func TestNewScheduler(t *testing.T) {
	disp := &recordingDispatcher{}
	if s, err := NewScheduler("", disp); s != nil || err != nil {
		t.Errorf("empty schedule = %v, %v", s, err)
	}
	if _, err := NewScheduler("every tuesday", disp); err == nil {
		t.Error("invalid schedule accepted")
	}
	s, err := NewScheduler("0 3 * * *", disp)
	if err != nil || s == nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start()
	s.tick()
	s.Stop()
	if len(disp.tasks) != 1 || disp.tasks[0].Reason != tasks.ReasonScheduled {
		t.Errorf("tasks = %+v", disp.tasks)
	}
}
