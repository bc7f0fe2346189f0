package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"helpdesk-go/internal/model"
	"helpdesk-go/internal/recommend"
	"helpdesk-go/internal/repository"
	"helpdesk-go/pkg/database"
	"helpdesk-go/pkg/llm"
	"helpdesk-go/pkg/tasks"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func vpnHistory() []model.HistoricalRecord {
	return []model.HistoricalRecord{
		{Category: "Network", Issue: "vpn drops connection", Resolution: "reinstall vpn client"},
		{Category: "Network", Issue: "vpn disconnects often", Resolution: "reinstall vpn client"},
		{Category: "Network", Issue: "vpn slow speed", Resolution: "switch vpn server"},
		{Category: "Hardware", Issue: "printer jammed paper", Resolution: "remove jammed paper"},
		{Category: "Hardware", Issue: "monitor flickering screen", Resolution: "replace monitor cable"},
	}
}

type fakeSource struct {
	mu      sync.Mutex
	records []model.HistoricalRecord
	err     error
	calls   int
}

func (f *fakeSource) Load(ctx context.Context) ([]model.HistoricalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.HistoricalRecord(nil), f.records...), nil
}

type memSnapshots struct {
	snap  *recommend.Snapshot
	saves int
}

func (m *memSnapshots) Load(ctx context.Context) (*recommend.Snapshot, error) {
	if m.snap == nil {
		return nil, repository.ErrSnapshotNotFound
	}
	return m.snap, nil
}

func (m *memSnapshots) Save(ctx context.Context, snap *recommend.Snapshot) error {
	m.snap = snap
	m.saves++
	return nil
}

type fakeSynth struct {
	text    string
	chunks  []string
	err     error
	calls   int
	prompts []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeSynth) StreamSynthesize(ctx context.Context, system, prompt string, writer llm.MessageWriter) error {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	for _, c := range f.chunks {
		if err := writer.WriteMessage(1, []byte(c)); err != nil {
			return err
		}
	}
	return f.err
}

type captureWriter struct {
	messages []string
}

func (w *captureWriter) WriteMessage(messageType int, data []byte) error {
	w.messages = append(w.messages, string(data))
	return nil
}

type fakeNotifier struct {
	tickets []uint
	reasons []string
}

func (f *fakeNotifier) Escalated(ctx context.Context, ticket *model.Ticket, reason string) error {
	f.tickets = append(f.tickets, ticket.ID)
	f.reasons = append(f.reasons, reason)
	return nil
}

type fakeDispatcher struct {
	tasks []tasks.CorpusRebuildTask
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, task tasks.CorpusRebuildTask) error {
	f.tasks = append(f.tasks, task)
	return nil
}

var errSourceDown = errors.New("source down")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newRecommendationService(t *testing.T, source repository.RecordSource, synth llm.Synthesizer) RecommendationService {
	t.Helper()
	svc, err := NewRecommendationService(context.Background(), RecommendationConfig{
		Source:      source,
		Snapshots:   &memSnapshots{},
		Synthesizer: synth,
		Options:     recommend.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("NewRecommendationService: %v", err)
	}
	return svc
}
