// Package recommend 实现基于 TF-IDF 的工单解决方案推荐引擎。
// 引擎在构建后只读，可被多个请求并发查询。
package recommend

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// 字母、组合附加符号、数字、空白之外的字符替换为空格，避免相邻词被意外拼接
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]+`)
	spaceRe   = regexp.MustCompile(`\s+`)
	lower     = cases.Lower(language.Und)
)

// minTokenLen 以下（含）长度的词会被丢弃。
const minTokenLen = 2

// stopWords 是固定的英文停用词表：冠词、介词、代词、系动词等功能词。
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the and or but nor so yet if then than
		in on at to for of with by from into onto over under about above below between through during
		before after up down out off again further
		is are was were be been being am do does did doing have has had having
		i me my mine myself you your yours yourself he him his himself she her hers herself
		it its itself we us our ours ourselves they them their theirs themselves
		this that these those what which who whom whose
		can will would shall should may might must could
		not no all any both each few more most other some such only own same too very just also
	`) {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord 判断词是否在停用词表中。
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// Normalize 将文本规范化为词序列：NFKC、转小写、去标点、合并空白、分词，
// 并去除停用词与长度 <= 2 的词。空文本返回空切片，不会出错。
func Normalize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	s := lower.String(norm.NFKC.String(text))
	s = nonWordRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return []string{}
	}

	fields := strings.Split(s, " ")
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= minTokenLen {
			continue
		}
		if IsStopWord(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
