package recommend

import (
	"math"
	"sort"
	"strings"
)

// Record 是一条历史工单及其解决方案。
type Record struct {
	Category       string `json:"category"`
	TicketType     string `json:"ticket_type,omitempty"`
	Subject        string `json:"subject,omitempty"`
	IssueText      string `json:"issue_text"`
	ResolutionText string `json:"resolution_text"`
	Priority       string `json:"priority,omitempty"`
}

// Candidate 是一次查询的排序结果项。Score 为排序实际使用的调整后得分。
type Candidate struct {
	RecordIndex    int     `json:"record_index"`
	RawSimilarity  float64 `json:"raw_similarity"`
	Score          float64 `json:"score"`
	Category       string  `json:"category"`
	TicketType     string  `json:"ticket_type,omitempty"`
	Subject        string  `json:"subject,omitempty"`
	IssueText      string  `json:"issue_text"`
	ResolutionText string  `json:"resolution_text"`
	Priority       string  `json:"priority,omitempty"`
}

// RankParams 描述查询侧用于加权的信息与加权系数。
type RankParams struct {
	Category       string
	QueryText      string
	CategoryBoost  float64
	SubstringBoost float64
	ClampScore     bool
}

// Rank 计算查询向量与每个语料向量的余弦相似度，依次乘以类别加权、子串加权，
// 并按调整后得分降序稳定排序（同分时语料序号小者在前）。
// vectors 与 records 必须一一对应。
func Rank(query Vector, vectors []Vector, records []Record, p RankParams) []Candidate {
	category := strings.TrimSpace(p.Category)
	queryText := strings.ToLower(strings.TrimSpace(p.QueryText))

	out := make([]Candidate, 0, len(records))
	for i, rec := range records {
		raw := CosineSimilarity(query, vectors[i])
		score := raw

		if category != "" && strings.EqualFold(strings.TrimSpace(rec.Category), category) {
			score *= p.CategoryBoost
		}
		if substringMatch(queryText, strings.ToLower(strings.TrimSpace(rec.IssueText))) {
			score *= p.SubstringBoost
		}
		if p.ClampScore {
			score = math.Min(score, 1.0)
		}

		out = append(out, Candidate{
			RecordIndex:    i,
			RawSimilarity:  raw,
			Score:          score,
			Category:       rec.Category,
			TicketType:     rec.TicketType,
			Subject:        rec.Subject,
			IssueText:      rec.IssueText,
			ResolutionText: rec.ResolutionText,
			Priority:       rec.Priority,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// substringMatch 两段文本任一包含另一段即命中；任一为空不算命中。
func substringMatch(query, issue string) bool {
	if query == "" || issue == "" {
		return false
	}
	return strings.Contains(query, issue) || strings.Contains(issue, query)
}

// Select 从已排序候选中取前 topK 个得分高于 minScore 的结果。
// dedupe 为 true 时只扫描前 window*topK 个候选，并跳过解决方案文本与已选结果完全相同的项；
// 扫描窗口内不足 topK 个时直接返回较少的结果。
func Select(ranked []Candidate, topK int, minScore float64, dedupe bool, window int) []Candidate {
	if topK <= 0 || len(ranked) == 0 {
		return []Candidate{}
	}

	limit := len(ranked)
	if dedupe {
		if window <= 0 {
			window = 1
		}
		// 等价于 topK*window < limit，避免乘法溢出
		if topK < (limit-1)/window+1 {
			limit = topK * window
		}
	}

	results := make([]Candidate, 0, min(topK, limit))
	seen := make(map[string]struct{})
	for _, c := range ranked[:limit] {
		if len(results) >= topK {
			break
		}
		if !(c.Score > minScore) {
			continue
		}
		if dedupe {
			if _, dup := seen[c.ResolutionText]; dup {
				continue
			}
			seen[c.ResolutionText] = struct{}{}
		}
		results = append(results, c)
	}
	return results
}
