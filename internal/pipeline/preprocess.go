// Package pipeline 包含语料的离线清洗与在线重建流程。
package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"helpdesk-go/internal/repository"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// 清洗规则按顺序执行
var (
	productPurchasedRe = regexp.MustCompile(`\{product_purchased\}`)
	productPlaceholder = regexp.MustCompile(`\{product_\w+\}`)
	emailRe            = regexp.MustCompile(`\S+@\S+`)
	urlRe              = regexp.MustCompile(`http\S+|www\.\S+`)
	phoneRe            = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)
	intlPhoneRe        = regexp.MustCompile(`\d{1,2}[-.\s]?\d{3,4}[-.\s]?\d{4}`)
	zipRe              = regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)
	punctRe            = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
	numberRe           = regexp.MustCompile(`\b\d+\b`)
	spaceRe            = regexp.MustCompile(`\s+`)

	lower = cases.Lower(language.Und)
)

// CleanText 规范化一段工单文本：小写，产品占位符替换为 product，
// 删除邮箱、URL、电话、邮编、标点和独立数字，并压缩空白。
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = lower.String(text)
	text = productPurchasedRe.ReplaceAllString(text, "product")
	text = productPlaceholder.ReplaceAllString(text, "product")
	text = emailRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")
	text = phoneRe.ReplaceAllString(text, "")
	text = intlPhoneRe.ReplaceAllString(text, "")
	text = zipRe.ReplaceAllString(text, "")
	text = punctRe.ReplaceAllString(text, " ")
	text = numberRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Count 是某个取值出现的次数。
type Count struct {
	Value string
	Count int
}

// Stats 记录每一步过滤后的行数与分布。
type Stats struct {
	InputRows         int
	AfterResolution   int
	AfterDescription  int
	Duplicates        int
	OutputRows        int
	TypeDistribution  []Count
	PriorityBreakdown []Count
}

// 类型分布只保留前若干项
const topTypes = 10

// Preprocess 过滤无解决方案或无描述的行，清洗文本字段，并按（描述，解决方案）去重。
// 优先级与分类保持原值。
func Preprocess(rows []repository.TicketRow) ([]repository.TicketRow, Stats) {
	st := Stats{InputRows: len(rows)}

	kept := make([]repository.TicketRow, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Resolution) == "" {
			continue
		}
		kept = append(kept, r)
	}
	st.AfterResolution = len(kept)

	withDesc := kept[:0]
	for _, r := range kept {
		if strings.TrimSpace(r.Description) == "" {
			continue
		}
		withDesc = append(withDesc, r)
	}
	st.AfterDescription = len(withDesc)

	out := make([]repository.TicketRow, 0, len(withDesc))
	seen := make(map[[2]string]struct{}, len(withDesc))
	for _, r := range withDesc {
		r.TicketType = CleanText(r.TicketType)
		r.Subject = CleanText(r.Subject)
		r.Description = CleanText(r.Description)
		r.Resolution = CleanText(r.Resolution)

		key := [2]string{r.Description, r.Resolution}
		if _, dup := seen[key]; dup {
			st.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	st.OutputRows = len(out)

	types := counts(out, func(r repository.TicketRow) string { return r.TicketType })
	if len(types) > topTypes {
		types = types[:topTypes]
	}
	st.TypeDistribution = types
	st.PriorityBreakdown = counts(out, func(r repository.TicketRow) string { return r.Priority })
	return out, st
}

// counts 按出现次数降序统计，次数相同时按取值排序。
func counts(rows []repository.TicketRow, key func(repository.TicketRow) string) []Count {
	m := make(map[string]int)
	for _, r := range rows {
		m[key(r)]++
	}
	out := make([]Count, 0, len(m))
	for v, n := range m {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
