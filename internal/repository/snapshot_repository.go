package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/recommend"
	"helpdesk-go/pkg/storage"
)

// ErrSnapshotNotFound 表示存储中还没有快照。
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore 保存和读取引擎快照。
type SnapshotStore interface {
	Load(ctx context.Context) (*recommend.Snapshot, error)
	Save(ctx context.Context, snap *recommend.Snapshot) error
}

// NewSnapshotStore 按配置选择快照存储。minio 类型需要 objects。
func NewSnapshotStore(cfg config.SnapshotConfig, objects storage.ObjectStore) (SnapshotStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return noopSnapshotStore{}, nil
	case "file":
		if cfg.Path == "" {
			return nil, errors.New("file snapshot store requires a path")
		}
		return &FileSnapshotStore{Path: cfg.Path}, nil
	case "minio":
		if objects == nil {
			return nil, errors.New("minio snapshot store requires an object store")
		}
		object := cfg.Object
		if object == "" {
			object = "snapshots/recommend.json"
		}
		return &objectSnapshotStore{objects: objects, object: object}, nil
	}
	return nil, fmt.Errorf("unknown snapshot backend: %s", cfg.Backend)
}

// FileSnapshotStore 将快照写入本地文件，先写临时文件再重命名。
type FileSnapshotStore struct {
	Path string
}

func (s *FileSnapshotStore) Load(ctx context.Context) (*recommend.Snapshot, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	defer f.Close()
	return recommend.DecodeSnapshot(f)
}

func (s *FileSnapshotStore) Save(ctx context.Context, snap *recommend.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := recommend.EncodeSnapshot(&buf, snap); err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

type objectSnapshotStore struct {
	objects storage.ObjectStore
	object  string
}

func (s *objectSnapshotStore) Load(ctx context.Context) (*recommend.Snapshot, error) {
	data, err := s.objects.Get(ctx, s.object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return recommend.DecodeSnapshot(bytes.NewReader(data))
}

func (s *objectSnapshotStore) Save(ctx context.Context, snap *recommend.Snapshot) error {
	var buf bytes.Buffer
	if err := recommend.EncodeSnapshot(&buf, snap); err != nil {
		return err
	}
	return s.objects.Put(ctx, s.object, buf.Bytes(), "application/json")
}

type noopSnapshotStore struct{}

func (noopSnapshotStore) Load(ctx context.Context) (*recommend.Snapshot, error) {
	return nil, ErrSnapshotNotFound
}

func (noopSnapshotStore) Save(ctx context.Context, snap *recommend.Snapshot) error { return nil }
