package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"
)

// SnapshotVersion 是快照结构的当前版本，结构变化时递增。
const SnapshotVersion = 2

var (
	// ErrSnapshotVersion 表示快照版本与当前代码不兼容。
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
	// ErrSnapshotMismatch 表示快照的建索引参数与当前配置不一致，需要重新构建。
	ErrSnapshotMismatch = errors.New("snapshot indexing options differ from current options")
	// ErrSnapshotCorrupt 表示快照内容不自洽。
	ErrSnapshotCorrupt = errors.New("snapshot is corrupt")
)

// Snapshot 是引擎可序列化的完整状态。
// 加载后的引擎与构建时的引擎对任意查询给出完全相同的排序。
type Snapshot struct {
	Version     int            `json:"version"`
	BuiltAt     time.Time      `json:"built_at"`
	Fingerprint string         `json:"fingerprint"`
	Options     Options        `json:"options"`
	Records     []Record       `json:"records"`
	Vocabulary  []string       `json:"vocabulary"`
	DocFreq     map[string]int `json:"doc_freq"`
	DocCount    int            `json:"doc_count"`
	Vectors     []Vector       `json:"vectors"`
}

// Snapshot 导出引擎当前状态。
func (e *Engine) Snapshot() *Snapshot {
	df := make(map[string]int, len(e.index.docFreq))
	for t, c := range e.index.docFreq {
		df[t] = c
	}
	vectors := make([]Vector, len(e.vectors))
	for i, v := range e.vectors {
		vectors[i] = append(Vector(nil), v...)
	}
	return &Snapshot{
		Version:     SnapshotVersion,
		BuiltAt:     e.builtAt,
		Fingerprint: e.fingerprint,
		Options:     e.opts,
		Records:     e.Records(),
		Vocabulary:  e.index.Terms(),
		DocFreq:     df,
		DocCount:    e.index.docCount,
		Vectors:     vectors,
	}
}

// FromSnapshot 由快照恢复引擎。opts 提供当前的排序参数；
// 建索引参数必须与快照一致，否则返回 ErrSnapshotMismatch。
func FromSnapshot(s *Snapshot, opts Options) (*Engine, error) {
	if s == nil {
		return nil, ErrSnapshotCorrupt
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, s.Version, SnapshotVersion)
	}
	opts = opts.withDefaults()
	if !opts.sameIndexing(s.Options.withDefaults()) {
		return nil, ErrSnapshotMismatch
	}
	if len(s.Records) != len(s.Vectors) || s.DocCount != len(s.Records) {
		return nil, fmt.Errorf("%w: %d records, %d vectors, doc_count %d", ErrSnapshotCorrupt, len(s.Records), len(s.Vectors), s.DocCount)
	}

	vocab := make(map[string]struct{}, len(s.Vocabulary))
	df := make(map[string]int, len(s.Vocabulary))
	for _, t := range s.Vocabulary {
		c, ok := s.DocFreq[t]
		if !ok {
			return nil, fmt.Errorf("%w: term %q has no document frequency", ErrSnapshotCorrupt, t)
		}
		vocab[t] = struct{}{}
		df[t] = c
	}

	vectors := make([]Vector, len(s.Vectors))
	for i, v := range s.Vectors {
		vec := append(Vector(nil), v...)
		if !sort.SliceIsSorted(vec, func(a, b int) bool { return vec[a].Word < vec[b].Word }) {
			sort.Slice(vec, func(a, b int) bool { return vec[a].Word < vec[b].Word })
		}
		vectors[i] = vec
	}

	records := make([]Record, len(s.Records))
	copy(records, s.Records)
	if fp := fingerprintOf(records); fp != s.Fingerprint {
		return nil, fmt.Errorf("%w: fingerprint does not match records", ErrSnapshotCorrupt)
	}

	return &Engine{
		opts:        opts,
		records:     records,
		index:       &Index{vocabulary: vocab, docFreq: df, docCount: s.DocCount},
		vectors:     vectors,
		builtAt:     s.BuiltAt,
		fingerprint: s.Fingerprint,
	}, nil
}

// EncodeSnapshot 将快照以 JSON 写出。
func EncodeSnapshot(w io.Writer, s *Snapshot) error {
	if err := json.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot 从 JSON 读取快照。
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}
