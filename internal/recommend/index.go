package recommend

import (
	"math"
	"sort"
)

// Index 是语料的词表与文档频率表，构建后只读。
type Index struct {
	vocabulary map[string]struct{}
	docFreq    map[string]int
	docCount   int
}

// BuildIndex 基于已分词的语料文档构建词表与文档频率。
// 每个文档内的词按集合计数（同一文档重复出现只算一次）。
// minDF 为词至少出现的文档数；maxDFRatio 为词最多出现的文档比例，<=0 或 >=1 表示不限制。
func BuildIndex(docs [][]string, minDF int, maxDFRatio float64) *Index {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, t := range doc {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	n := len(docs)
	maxDF := n
	if maxDFRatio > 0 && maxDFRatio < 1 {
		maxDF = int(math.Floor(maxDFRatio * float64(n)))
	}

	vocab := make(map[string]struct{}, len(df))
	for term, count := range df {
		if count < minDF || count > maxDF {
			delete(df, term)
			continue
		}
		vocab[term] = struct{}{}
	}

	return &Index{vocabulary: vocab, docFreq: df, docCount: n}
}

// Contains 判断词是否在词表中。
func (ix *Index) Contains(term string) bool {
	_, ok := ix.vocabulary[term]
	return ok
}

// DocFreq 返回包含该词的文档数。
func (ix *Index) DocFreq(term string) int {
	return ix.docFreq[term]
}

// DocCount 返回参与构建的文档数。
func (ix *Index) DocCount() int {
	return ix.docCount
}

// Size 返回词表大小。
func (ix *Index) Size() int {
	return len(ix.vocabulary)
}

// Terms 返回排序后的词表。
func (ix *Index) Terms() []string {
	terms := make([]string, 0, len(ix.vocabulary))
	for t := range ix.vocabulary {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// IDF 计算 log(N / (1 + df))。出现在所有文档中的词得到负值，空语料返回 0。
func (ix *Index) IDF(term string) float64 {
	if ix.docCount == 0 {
		return 0
	}
	return math.Log(float64(ix.docCount) / (1 + float64(ix.docFreq[term])))
}
