package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"helpdesk-go/internal/model"
	"helpdesk-go/internal/recommend"
	"helpdesk-go/internal/repository"
	"helpdesk-go/pkg/llm"
	"helpdesk-go/pkg/log"

	"github.com/gorilla/websocket"
)

// 增强结果的状态
const (
	EnhanceStatusOK            = "ok"
	EnhanceStatusNotConfigured = "not_configured"
	EnhanceStatusUnavailable   = "unavailable"
	EnhanceStatusNoMatches     = "no_matches"
)

const (
	notConfiguredNote = "Text generation is not configured. Showing the top matching historical resolutions instead."
	unavailableNote   = "Text generation is temporarily unavailable. Showing the top matching historical resolutions instead."

	defaultEnhanceTimeout = 30 * time.Second
)

// EnhancedRecommendation 是带文本生成结果的推荐。生成失败时 Status 说明原因，
// EnhancedResolution 为说明文字，BaseRecommendations 始终为原始排序结果。
type EnhancedRecommendation struct {
	EnhancedResolution  string                `json:"enhanced_resolution"`
	Status              string                `json:"status"`
	BaseRecommendations []recommend.Candidate `json:"base_recommendations"`
}

// CorpusStats 描述当前发布的语料快照。
type CorpusStats struct {
	Records         int       `json:"records"`
	VocabularySize  int       `json:"vocabularySize"`
	BuiltAt         time.Time `json:"builtAt"`
	SnapshotVersion int       `json:"snapshotVersion"`
}

// RecommendationService 负责维护推荐引擎并对外提供推荐。
type RecommendationService interface {
	Recommend(q recommend.Query) []recommend.Candidate
	Enhance(ctx context.Context, q recommend.Query) EnhancedRecommendation
	StreamEnhance(ctx context.Context, q recommend.Query, writer llm.MessageWriter) EnhancedRecommendation
	Rebuild(ctx context.Context) (CorpusStats, error)
	Stats() CorpusStats
}

// RecommendationConfig 汇总推荐服务的依赖。Synthesizer 可以为 nil。
type RecommendationConfig struct {
	Source         repository.RecordSource
	Snapshots      repository.SnapshotStore
	Synthesizer    llm.Synthesizer
	Options        recommend.Options
	SystemPrompt   string
	EnhanceTimeout time.Duration
}

type recommendationService struct {
	engine atomic.Pointer[recommend.Engine]

	source    repository.RecordSource
	snapshots repository.SnapshotStore
	synth     llm.Synthesizer
	opts      recommend.Options
	system    string
	timeout   time.Duration

	rebuildMu sync.Mutex
}

// NewRecommendationService 读取语料来源，快照与语料一致时直接使用快照，否则重新构建。
// 语料来源不可读时返回错误。
func NewRecommendationService(ctx context.Context, cfg RecommendationConfig) (RecommendationService, error) {
	if cfg.Source == nil {
		return nil, errors.New("recommendation service requires a record source")
	}
	s := &recommendationService{
		source:    cfg.Source,
		snapshots: cfg.Snapshots,
		synth:     cfg.Synthesizer,
		opts:      cfg.Options,
		system:    cfg.SystemPrompt,
		timeout:   cfg.EnhanceTimeout,
	}
	if s.system == "" {
		s.system = defaultSystemPrompt
	}
	if s.timeout <= 0 {
		s.timeout = defaultEnhanceTimeout
	}

	records, err := s.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	if engine := s.loadSnapshot(ctx, recommend.Fingerprint(records)); engine != nil {
		s.engine.Store(engine)
		log.Infof("[RecommendationService] 已从快照加载语料, records: %d, vocabulary: %d", engine.Len(), engine.VocabularySize())
		return s, nil
	}

	engine := recommend.NewEngine(records, s.opts)
	s.engine.Store(engine)
	s.saveSnapshot(ctx, engine)
	log.Infof("[RecommendationService] 语料构建完成, records: %d, vocabulary: %d", engine.Len(), engine.VocabularySize())
	return s, nil
}

// loadSnapshot 只在快照与当前语料摘要一致时返回引擎。
func (s *recommendationService) loadSnapshot(ctx context.Context, fingerprint string) *recommend.Engine {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			log.Warnf("[RecommendationService] 读取快照失败，将重新构建: %v", err)
		}
		return nil
	}
	engine, err := recommend.FromSnapshot(snap, s.opts)
	if err != nil {
		log.Warnf("[RecommendationService] 快照不可用，将重新构建: %v", err)
		return nil
	}
	if engine.Fingerprint() != fingerprint {
		log.Infof("[RecommendationService] 语料已变化(快照 %d 条)，将重新构建", engine.Len())
		return nil
	}
	return engine
}

func (s *recommendationService) saveSnapshot(ctx context.Context, engine *recommend.Engine) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, engine.Snapshot()); err != nil {
		log.Warnf("[RecommendationService] 保存快照失败: %v", err)
	}
}

func (s *recommendationService) loadRecords(ctx context.Context) ([]recommend.Record, error) {
	rows, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载历史记录失败: %w", err)
	}
	return toRecords(rows), nil
}

func (s *recommendationService) build(ctx context.Context) (*recommend.Engine, error) {
	records, err := s.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	return recommend.NewEngine(records, s.opts), nil
}

func toRecords(rows []model.HistoricalRecord) []recommend.Record {
	records := make([]recommend.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, recommend.Record{
			Category:       r.Category,
			TicketType:     r.TicketType,
			Subject:        r.Subject,
			IssueText:      r.Issue,
			ResolutionText: r.Resolution,
			Priority:       r.Priority,
		})
	}
	return records
}

// Recommend 使用当前发布的引擎计算推荐。
func (s *recommendationService) Recommend(q recommend.Query) []recommend.Candidate {
	return s.engine.Load().Recommend(q)
}

// Enhance 计算推荐并请求文本生成服务进行整合，失败时降级为原始结果。
func (s *recommendationService) Enhance(ctx context.Context, q recommend.Query) EnhancedRecommendation {
	candidates := s.Recommend(q)
	if res, done := s.precheck(candidates); done {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.synth.Synthesize(ctx, s.system, buildEnhancePrompt(q, candidates))
	if err != nil {
		log.Warnf("[RecommendationService] 文本生成失败，返回原始推荐: %v", err)
		return EnhancedRecommendation{EnhancedResolution: unavailableNote, Status: EnhanceStatusUnavailable, BaseRecommendations: candidates}
	}
	return EnhancedRecommendation{EnhancedResolution: text, Status: EnhanceStatusOK, BaseRecommendations: candidates}
}

// StreamEnhance 与 Enhance 相同，但把生成的文本分块写入 writer。
// 返回值中的 EnhancedResolution 为已写出文本的拼接。
func (s *recommendationService) StreamEnhance(ctx context.Context, q recommend.Query, writer llm.MessageWriter) EnhancedRecommendation {
	candidates := s.Recommend(q)
	if res, done := s.precheck(candidates); done {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rec := &recordingWriter{inner: writer}
	if err := s.synth.StreamSynthesize(ctx, s.system, buildEnhancePrompt(q, candidates), rec); err != nil {
		log.Warnf("[RecommendationService] 流式文本生成失败，返回原始推荐: %v", err)
		return EnhancedRecommendation{EnhancedResolution: unavailableNote, Status: EnhanceStatusUnavailable, BaseRecommendations: candidates}
	}
	return EnhancedRecommendation{EnhancedResolution: rec.text(), Status: EnhanceStatusOK, BaseRecommendations: candidates}
}

// precheck 处理无需调用文本生成服务的情况。
func (s *recommendationService) precheck(candidates []recommend.Candidate) (EnhancedRecommendation, bool) {
	if len(candidates) == 0 {
		return EnhancedRecommendation{EnhancedResolution: recommend.NoSuggestionsText, Status: EnhanceStatusNoMatches, BaseRecommendations: candidates}, true
	}
	if s.synth == nil {
		return EnhancedRecommendation{EnhancedResolution: notConfiguredNote, Status: EnhanceStatusNotConfigured, BaseRecommendations: candidates}, true
	}
	return EnhancedRecommendation{}, false
}

// Rebuild 在旁路构建新引擎，成功后原子替换；失败时保留旧引擎。
func (s *recommendationService) Rebuild(ctx context.Context) (CorpusStats, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	engine, err := s.build(ctx)
	if err != nil {
		log.Errorf("[RecommendationService] 语料重建失败，继续使用旧快照: %v", err)
		return s.Stats(), err
	}
	s.engine.Store(engine)
	s.saveSnapshot(ctx, engine)
	log.Infof("[RecommendationService] 语料重建完成, records: %d, vocabulary: %d", engine.Len(), engine.VocabularySize())
	return s.Stats(), nil
}

func (s *recommendationService) Stats() CorpusStats {
	e := s.engine.Load()
	return CorpusStats{
		Records:         e.Len(),
		VocabularySize:  e.VocabularySize(),
		BuiltAt:         e.BuiltAt(),
		SnapshotVersion: recommend.SnapshotVersion,
	}
}

// recordingWriter 转发消息并记录文本内容。
type recordingWriter struct {
	inner llm.MessageWriter
	mu    sync.Mutex
	buf   []byte
}

func (w *recordingWriter) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.TextMessage {
		w.mu.Lock()
		w.buf = append(w.buf, data...)
		w.mu.Unlock()
	}
	if w.inner == nil {
		return nil
	}
	return w.inner.WriteMessage(messageType, data)
}

func (w *recordingWriter) text() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}

// chunkMessage 是推送给 WebSocket 客户端的文本分块。
type chunkMessage struct {
	Chunk string `json:"chunk"`
}

// ChunkWriter 把原始文本分块包装为 {"chunk": "..."} JSON 消息。
type ChunkWriter struct {
	Conn llm.MessageWriter
}

func (w ChunkWriter) WriteMessage(messageType int, data []byte) error {
	b, err := json.Marshal(chunkMessage{Chunk: string(data)})
	if err != nil {
		return err
	}
	return w.Conn.WriteMessage(messageType, b)
}
