package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/recommend"
	"helpdesk-go/pkg/storage"
)

func testSnapshot() *recommend.Snapshot {
	return recommend.NewEngine([]recommend.Record{
		{Category: "Network", IssueText: "cannot connect to wifi", ResolutionText: "restart router"},
		{Category: "Hardware", IssueText: "battery draining fast", ResolutionText: "replace battery"},
	}, recommend.DefaultOptions()).Snapshot()
}

func TestFileSnapshotStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	store, err := NewSnapshotStore(config.SnapshotConfig{Backend: "file", Path: path}, nil)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Load(ctx); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("Load before save: err = %v", err)
	}

	snap := testSnapshot()
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DocCount != snap.DocCount || len(got.Vocabulary) != len(snap.Vocabulary) {
		t.Errorf("loaded snapshot differs: %+v", got)
	}
}

type memObjects struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memObjects) Put(ctx context.Context, object string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[object] = append([]byte(nil), data...)
	return nil
}

func (m *memObjects) Get(ctx context.Context, object string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[object]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return d, nil
}

func TestObjectSnapshotStore(t *testing.T) {
	objects := &memObjects{data: map[string][]byte{}}
	store, err := NewSnapshotStore(config.SnapshotConfig{Backend: "minio"}, objects)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Load(ctx); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("Load before save: err = %v", err)
	}
	if err := store.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := objects.data["snapshots/recommend.json"]; !ok {
		t.Error("default object name not used")
	}
	if _, err := store.Load(ctx); err != nil {
		t.Errorf("Load: %v", err)
	}
}

func TestNewSnapshotStoreErrors(t *testing.T) {
	if _, err := NewSnapshotStore(config.SnapshotConfig{Backend: "file"}, nil); err == nil {
		t.Error("file store without path accepted")
	}
	if _, err := NewSnapshotStore(config.SnapshotConfig{Backend: "minio"}, nil); err == nil {
		t.Error("minio store without object store accepted")
	}
	store, err := NewSnapshotStore(config.SnapshotConfig{}, nil)
	if err != nil {
		t.Fatalf("default store: %v", err)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("noop Load err = %v", err)
	}
}
