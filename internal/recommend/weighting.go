package recommend

import (
	"math"
	"sort"
)

// Term 是稀疏向量中的一个词权重对。
type Term struct {
	Word   string  `json:"w"`
	Weight float64 `json:"v"`
}

// Vector 是按词排序的稀疏 TF-IDF 向量，未出现的词权重为 0。
// 固定的排序保证点积与范数的累加顺序一致，结果可复现。
type Vector []Term

// NewVector 由词权重映射构造排序后的 Vector。
func NewVector(weights map[string]float64) Vector {
	v := make(Vector, 0, len(weights))
	for word, w := range weights {
		v = append(v, Term{Word: word, Weight: w})
	}
	sort.Slice(v, func(i, j int) bool { return v[i].Word < v[j].Word })
	return v
}

// Weight 返回词的权重，不存在时为 0。
func (v Vector) Weight(word string) float64 {
	i := sort.Search(len(v), func(i int) bool { return v[i].Word >= word })
	if i < len(v) && v[i].Word == word {
		return v[i].Weight
	}
	return 0
}

// Norm 返回向量的 L2 范数。
func (v Vector) Norm() float64 {
	var sum float64
	for _, t := range v {
		sum += t.Weight * t.Weight
	}
	return math.Sqrt(sum)
}

// TermFrequency 计算词频：出现次数 / 总词数。
// sublinear 为 true 时出现次数 c 先替换为 1+ln(c)。
func TermFrequency(tokens []string, sublinear bool) map[string]float64 {
	tf := make(map[string]float64)
	if len(tokens) == 0 {
		return tf
	}
	for _, t := range tokens {
		tf[t]++
	}
	total := float64(len(tokens))
	for t, c := range tf {
		if sublinear {
			c = 1 + math.Log(c)
		}
		tf[t] = c / total
	}
	return tf
}

// Vectorize 将词序列转换为 TF-IDF 向量，词表外的词不计入。
func (ix *Index) Vectorize(tokens []string, sublinear bool) Vector {
	tf := TermFrequency(tokens, sublinear)
	weights := make(map[string]float64, len(tf))
	for term, freq := range tf {
		if !ix.Contains(term) {
			continue
		}
		weights[term] = freq * ix.IDF(term)
	}
	return NewVector(weights)
}

// CosineSimilarity 用归并方式计算两个排序稀疏向量的余弦相似度。
// 任一向量范数为 0 时返回 0。
func CosineSimilarity(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Word == b[j].Word:
			dot += a[i].Weight * b[j].Weight
			normA += a[i].Weight * a[i].Weight
			normB += b[j].Weight * b[j].Weight
			i++
			j++
		case a[i].Word < b[j].Word:
			normA += a[i].Weight * a[i].Weight
			i++
		default:
			normB += b[j].Weight * b[j].Weight
			j++
		}
	}
	for ; i < len(a); i++ {
		normA += a[i].Weight * a[i].Weight
	}
	for ; j < len(b); j++ {
		normB += b[j].Weight * b[j].Weight
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
