package recommend

import (
	"time"
)

// Query 是一张新工单的查询字段。
type Query struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	TicketType  string `json:"ticket_type,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Priority    string `json:"priority,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
}

// Engine 持有不可变的语料快照：记录、词表、文档频率与语料向量。
// 构建完成后不再修改，可被并发查询。
type Engine struct {
	opts        Options
	records     []Record
	index       *Index
	vectors     []Vector
	builtAt     time.Time
	fingerprint string
}

// NewEngine 基于历史记录构建引擎。解决方案为空的记录在构建时被剔除。
func NewEngine(records []Record, opts Options) *Engine {
	opts = opts.withDefaults()

	kept := corpusRecords(records)

	docs := make([][]string, len(kept))
	for i, r := range kept {
		docs[i] = Normalize(opts.documentText(r))
	}
	index := BuildIndex(docs, opts.MinDF, opts.MaxDFRatio)

	vectors := make([]Vector, len(kept))
	for i, tokens := range docs {
		vectors[i] = index.Vectorize(tokens, opts.SublinearTF)
	}

	return &Engine{
		opts:        opts,
		records:     kept,
		index:       index,
		vectors:     vectors,
		builtAt:     time.Now().UTC(),
		fingerprint: fingerprintOf(kept),
	}
}

// Recommend 返回与查询最相关的前 k 条不同解决方案。
// 语料为空或无候选通过阈值时返回空切片。
func (e *Engine) Recommend(q Query) []Candidate {
	if len(e.records) == 0 {
		return []Candidate{}
	}
	topK := q.TopK
	if topK <= 0 {
		topK = e.opts.TopK
	}

	tokens := Normalize(e.opts.weightedText(q.TicketType, q.Subject, q.Description))
	queryVec := e.index.Vectorize(tokens, e.opts.SublinearTF)

	ranked := Rank(queryVec, e.vectors, e.records, RankParams{
		Category:       q.Category,
		QueryText:      q.Description,
		CategoryBoost:  e.opts.CategoryBoost,
		SubstringBoost: e.opts.SubstringBoost,
		ClampScore:     e.opts.ClampScore,
	})
	return Select(ranked, topK, e.opts.MinScore, e.opts.Deduplicate, e.opts.DedupWindow)
}

// Len 返回语料中的记录数。
func (e *Engine) Len() int { return len(e.records) }

// VocabularySize 返回词表大小。
func (e *Engine) VocabularySize() int { return e.index.Size() }

// BuiltAt 返回语料向量的构建时间。
func (e *Engine) BuiltAt() time.Time { return e.builtAt }

// Fingerprint 返回构建引擎所用语料的摘要。
func (e *Engine) Fingerprint() string { return e.fingerprint }

// Records 返回语料记录的副本。
func (e *Engine) Records() []Record {
	out := make([]Record, len(e.records))
	copy(out, e.records)
	return out
}
