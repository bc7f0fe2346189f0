// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// 语料变更的原因
const (
	ReasonTicketResolved = "ticket_resolved"
	ReasonRecordAdded    = "record_added"
	ReasonManual         = "manual"
	ReasonScheduled      = "scheduled"
)

// CorpusRebuildTask 表示一次语料重建请求。
type CorpusRebuildTask struct {
	TaskID      string    `json:"task_id"`
	Reason      string    `json:"reason"`
	TicketID    uint      `json:"ticket_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
