package recommend

import "strings"

// Options 控制语料构建与排序行为。零值字段在 withDefaults 中回退为默认值。
type Options struct {
	// 排序参数
	TopK           int     `json:"top_k"`
	CategoryBoost  float64 `json:"category_boost"`
	SubstringBoost float64 `json:"substring_boost"`
	MinScore       float64 `json:"min_score"`
	ClampScore     bool    `json:"clamp_score"`
	Deduplicate    bool    `json:"deduplicate"`
	DedupWindow    int     `json:"dedup_window"`

	// 建索引参数，快照加载时必须与构建时一致
	TypeWeight        int     `json:"type_weight"`
	SubjectWeight     int     `json:"subject_weight"`
	DescriptionWeight int     `json:"description_weight"`
	IncludeResolution bool    `json:"include_resolution"`
	MinDF             int     `json:"min_df"`
	MaxDFRatio        float64 `json:"max_df_ratio"`
	SublinearTF       bool    `json:"sublinear_tf"`
}

// DefaultOptions 返回参考行为的默认参数。
func DefaultOptions() Options {
	return Options{
		TopK:              3,
		CategoryBoost:     1.5,
		SubstringBoost:    1.3,
		MinScore:          0,
		ClampScore:        false,
		Deduplicate:       true,
		DedupWindow:       2,
		TypeWeight:        1,
		SubjectWeight:     1,
		DescriptionWeight: 1,
		IncludeResolution: true,
		MinDF:             1,
		MaxDFRatio:        1.0,
		SublinearTF:       false,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.CategoryBoost <= 0 {
		o.CategoryBoost = d.CategoryBoost
	}
	if o.SubstringBoost <= 0 {
		o.SubstringBoost = d.SubstringBoost
	}
	if o.MinScore < 0 {
		o.MinScore = 0
	}
	if o.DedupWindow <= 0 {
		o.DedupWindow = d.DedupWindow
	}
	if o.TypeWeight < 0 {
		o.TypeWeight = 0
	}
	if o.SubjectWeight < 0 {
		o.SubjectWeight = 0
	}
	if o.DescriptionWeight <= 0 {
		o.DescriptionWeight = d.DescriptionWeight
	}
	if o.MinDF <= 0 {
		o.MinDF = d.MinDF
	}
	if o.MaxDFRatio <= 0 || o.MaxDFRatio > 1 {
		o.MaxDFRatio = d.MaxDFRatio
	}
	return o
}

// sameIndexing 判断两组参数是否产生相同的词表与语料向量。
func (o Options) sameIndexing(other Options) bool {
	return o.TypeWeight == other.TypeWeight &&
		o.SubjectWeight == other.SubjectWeight &&
		o.DescriptionWeight == other.DescriptionWeight &&
		o.IncludeResolution == other.IncludeResolution &&
		o.MinDF == other.MinDF &&
		o.MaxDFRatio == other.MaxDFRatio &&
		o.SublinearTF == other.SublinearTF
}

// weightedText 按重复次数拼接字段，以重复来提高字段在 TF-IDF 中的权重。
func (o Options) weightedText(ticketType, subject, description string) string {
	parts := make([]string, 0, o.TypeWeight+o.SubjectWeight+o.DescriptionWeight)
	parts = repeatField(parts, ticketType, o.TypeWeight)
	parts = repeatField(parts, subject, o.SubjectWeight)
	parts = repeatField(parts, description, o.DescriptionWeight)
	return strings.Join(parts, " ")
}

// documentText 构造语料文档的文本表示。
func (o Options) documentText(r Record) string {
	text := o.weightedText(r.TicketType, r.Subject, r.IssueText)
	if o.IncludeResolution && r.ResolutionText != "" {
		text += " " + r.ResolutionText
	}
	return text
}

func repeatField(parts []string, field string, times int) []string {
	field = strings.TrimSpace(field)
	if field == "" {
		return parts
	}
	for i := 0; i < times; i++ {
		parts = append(parts, field)
	}
	return parts
}
