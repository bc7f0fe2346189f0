package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// corpusRecords 返回参与建索引的记录，解决方案为空的记录被剔除。
func corpusRecords(records []Record) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.ResolutionText) == "" {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// Fingerprint 计算语料的摘要，只覆盖参与建索引的记录。
// 同一组记录按相同顺序给出相同结果，用于判断快照是否仍与语料来源一致。
func Fingerprint(records []Record) string {
	return fingerprintOf(corpusRecords(records))
}

func fingerprintOf(kept []Record) string {
	h := sha256.New()
	for _, r := range kept {
		for _, f := range []string{r.Category, r.TicketType, r.Subject, r.IssueText, r.ResolutionText, r.Priority} {
			fmt.Fprintf(h, "%d:%s", len(f), f)
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
